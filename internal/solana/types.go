package solana

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 public key / account address.
const PublicKeyLength = 32

// ErrAccountNotFound is returned when an account does not exist on the ledger.
var ErrAccountNotFound = errors.New("account not found")

// PublicKey is a 32-byte Solana account address.
type PublicKey [PublicKeyLength]byte

// Well-known program and sysvar addresses.
var (
	SystemProgramID          = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRentID             = MustPublicKey("SysvarRent111111111111111111111111111111111")
)

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode base58 %q: %w", s, err)
	}
	return PublicKeyFromBytes(raw)
}

// MustPublicKey is ParsePublicKey that panics on error. Use for constants only.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("invalid public key length %d", len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form.
func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw key bytes.
func (p PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLength)
	copy(b, p[:])
	return b
}

// IsZero reports whether the key is all zeroes.
func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// Equals reports byte equality.
func (p PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(p[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PublicKey) UnmarshalText(text []byte) error {
	pk, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// Blockhash is a recent blockhash with its expiry height.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// ConfirmedTransaction is a landed transaction as returned by getTransaction.
type ConfirmedTransaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Err       interface{}
	Logs      []string
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64
	ConfirmationStatus string
	Err                interface{}
}
