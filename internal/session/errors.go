package session

import (
	"errors"
	"fmt"

	"autoyield-vault/internal/solana"
)

// ErrorKind classifies a user-facing failure.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindAuthorization       ErrorKind = "authorization"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindSubmission          ErrorKind = "submission"
)

// Operation display names used in error messages.
const (
	OpInitialize     = "Initialize"
	OpFixAuthorities = "Fix authorities"
	OpDeposit        = "Deposit"
	OpWithdraw       = "Withdraw"
)

// Messages shown for local failures.
const (
	MsgNotOwnerInitialize     = "Only the vault owner can initialize the vault."
	MsgNotOwnerFixAuthorities = "Only the vault owner can fix vault authorities."
	MsgNoUSDCAccount          = "USDC token account not found. Please get some devnet USDC first."
	msgCheckLogs              = "Transaction failed. Check logs for details."
)

// OpError is a classified operation failure. Message is what the view shows;
// Logs carries program logs kept out of Message.
type OpError struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
	Logs    []string  `json:"-"`
	Err     error     `json:"-"`
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func validationError(err error) *OpError {
	return &OpError{Kind: KindValidation, Message: err.Error(), Err: err}
}

func authorizationError(op, msg string) *OpError {
	return &OpError{Kind: KindAuthorization, Op: op, Message: msg}
}

func insufficientBalanceError(msg string) *OpError {
	return &OpError{Kind: KindInsufficientBalance, Op: OpDeposit, Message: msg}
}

// submissionError classifies a wallet or ledger rejection. Program logs, when
// present, replace the detail with a pointer to the logs.
func submissionError(op string, err error) *OpError {
	e := &OpError{Kind: KindSubmission, Op: op, Err: err}

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) && txErr.HasLogs() {
		e.Logs = txErr.Logs
		e.Message = fmt.Sprintf("%s failed: %s", op, msgCheckLogs)
		return e
	}
	e.Message = fmt.Sprintf("%s failed: %s", op, err.Error())
	return e
}
