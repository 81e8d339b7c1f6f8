package vault

import (
	"fmt"

	"autoyield-vault/internal/solana"
)

// Addresses are the program-derived accounts of one vault.
type Addresses struct {
	Metadata    solana.PublicKey `json:"metadata"`
	Custody     solana.PublicKey `json:"custody"`
	ReceiptMint solana.PublicKey `json:"receiptMint"`
}

// DeriveAddresses computes the vault accounts for authority under programID.
// It is pure: identical inputs always yield identical addresses.
func DeriveAddresses(authority, programID solana.PublicKey) (Addresses, error) {
	var a Addresses
	var err error

	if a.Metadata, err = derive(SeedMetadata, authority, programID); err != nil {
		return Addresses{}, err
	}
	if a.Custody, err = derive(SeedCustody, authority, programID); err != nil {
		return Addresses{}, err
	}
	if a.ReceiptMint, err = derive(SeedReceiptMint, authority, programID); err != nil {
		return Addresses{}, err
	}
	return a, nil
}

// MustDeriveAddresses panics if derivation fails, which cannot happen for
// well-formed keys.
func MustDeriveAddresses(authority, programID solana.PublicKey) Addresses {
	a, err := DeriveAddresses(authority, programID)
	if err != nil {
		panic(err)
	}
	return a
}

func derive(seed string, authority, programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seed), authority[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive %s: %w", seed, err)
	}
	return addr, nil
}
