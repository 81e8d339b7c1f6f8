package domain

import "github.com/google/uuid"

// OperationKind names a vault mutation.
type OperationKind string

const (
	OperationInitialize     OperationKind = "initialize"
	OperationDeposit        OperationKind = "deposit"
	OperationWithdraw       OperationKind = "withdraw"
	OperationFixAuthorities OperationKind = "fix_authorities"
)

// OperationStatus is the outcome of a submission attempt.
type OperationStatus string

const (
	// StatusSubmitted means the ledger accepted the transaction.
	StatusSubmitted OperationStatus = "submitted"
	// StatusRejected means the attempt failed before reaching the ledger.
	StatusRejected OperationStatus = "rejected"
	// StatusFailed means the ledger or wallet refused the transaction.
	StatusFailed OperationStatus = "failed"
)

// OperationRecord is one journaled vault operation attempt.
// Corresponds to vault_operations table in PostgreSQL.
type OperationRecord struct {
	OperationID string          // PRIMARY KEY, uuid
	Kind        OperationKind   // initialize | deposit | withdraw | fix_authorities
	Wallet      string          // base58 wallet identity
	Amount      uint64          // base units, 0 for owner operations
	Status      OperationStatus // submitted | rejected | failed
	Signature   *string         // set when submitted
	ErrorKind   *string         // validation | authorization | insufficient_balance | submission
	Error       *string         // user-facing message
	Logs        []string        // program logs from a failed simulation
	CreatedAt   int64           // Unix timestamp in milliseconds
}

// NewOperationID returns a fresh operation identifier.
func NewOperationID() string {
	return uuid.NewString()
}
