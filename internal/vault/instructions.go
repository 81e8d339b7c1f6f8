package vault

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"autoyield-vault/internal/solana"
)

// Instruction names as exposed by the program.
const (
	ixInitialize     = "initialize"
	ixDeposit        = "deposit"
	ixWithdraw       = "withdraw"
	ixFixAuthorities = "fix_authorities"
)

// InstructionDiscriminator returns the 8-byte selector of a program method.
func InstructionDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

func encodeNoArgs(name string) []byte {
	d := InstructionDiscriminator(name)
	return d[:]
}

func encodeAmount(name string, amount uint64) []byte {
	d := InstructionDiscriminator(name)
	data := make([]byte, 16)
	copy(data, d[:])
	binary.LittleEndian.PutUint64(data[8:], amount)
	return data
}

// Builder constructs vault instructions for one deployment.
type Builder struct {
	ProgramID solana.PublicKey
	Authority solana.PublicKey
	USDCMint  solana.PublicKey
	Addresses Addresses
}

// NewBuilder derives the vault addresses and returns a Builder.
func NewBuilder(programID, authority, usdcMint solana.PublicKey) (*Builder, error) {
	addrs, err := DeriveAddresses(authority, programID)
	if err != nil {
		return nil, err
	}
	return &Builder{
		ProgramID: programID,
		Authority: authority,
		USDCMint:  usdcMint,
		Addresses: addrs,
	}, nil
}

// UserAccounts are a wallet's associated token accounts for the vault mints.
type UserAccounts struct {
	USDC    solana.PublicKey
	Receipt solana.PublicKey
}

// UserAccounts derives the USDC and yUSDC token accounts of user.
func (b *Builder) UserAccounts(user solana.PublicKey) (UserAccounts, error) {
	usdc, err := solana.FindAssociatedTokenAddress(user, b.USDCMint)
	if err != nil {
		return UserAccounts{}, fmt.Errorf("derive usdc account: %w", err)
	}
	receipt, err := solana.FindAssociatedTokenAddress(user, b.Addresses.ReceiptMint)
	if err != nil {
		return UserAccounts{}, fmt.Errorf("derive receipt account: %w", err)
	}
	return UserAccounts{USDC: usdc, Receipt: receipt}, nil
}

// Initialize creates the metadata, custody and receipt mint accounts.
func (b *Builder) Initialize() solana.Instruction {
	return solana.Instruction{
		ProgramID: b.ProgramID,
		Accounts: []solana.AccountMeta{
			solana.Meta(b.Authority).Signer().Writable(),
			solana.Meta(b.Addresses.Metadata).Writable(),
			solana.Meta(b.USDCMint),
			solana.Meta(b.Addresses.Custody).Writable(),
			solana.Meta(b.Addresses.ReceiptMint).Writable(),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.AssociatedTokenProgramID),
			solana.Meta(solana.SysvarRentID),
		},
		Data: encodeNoArgs(ixInitialize),
	}
}

// FixAuthorities reassigns mint and custody authorities to the vault PDAs.
func (b *Builder) FixAuthorities(signer solana.PublicKey) solana.Instruction {
	return solana.Instruction{
		ProgramID: b.ProgramID,
		Accounts: []solana.AccountMeta{
			solana.Meta(signer).Signer().Writable(),
			solana.Meta(b.Addresses.Metadata).Writable(),
			solana.Meta(b.Addresses.ReceiptMint).Writable(),
			solana.Meta(b.Addresses.Custody).Writable(),
			solana.Meta(solana.TokenProgramID),
		},
		Data: encodeNoArgs(ixFixAuthorities),
	}
}

// Deposit moves amount base units of USDC from user into custody.
func (b *Builder) Deposit(user solana.PublicKey, ua UserAccounts, amount uint64) solana.Instruction {
	return solana.Instruction{
		ProgramID: b.ProgramID,
		Accounts: []solana.AccountMeta{
			solana.Meta(user).Signer().Writable(),
			solana.Meta(b.Authority),
			solana.Meta(b.Addresses.Metadata).Writable(),
			solana.Meta(ua.USDC).Writable(),
			solana.Meta(b.Addresses.Custody).Writable(),
			solana.Meta(b.USDCMint),
			solana.Meta(b.Addresses.ReceiptMint).Writable(),
			solana.Meta(ua.Receipt).Writable(),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.AssociatedTokenProgramID),
			solana.Meta(solana.SysvarRentID),
		},
		Data: encodeAmount(ixDeposit, amount),
	}
}

// Withdraw burns receipt tokens and returns amount base units of USDC to user.
func (b *Builder) Withdraw(user solana.PublicKey, ua UserAccounts, amount uint64) solana.Instruction {
	return solana.Instruction{
		ProgramID: b.ProgramID,
		Accounts: []solana.AccountMeta{
			solana.Meta(user).Signer().Writable(),
			solana.Meta(b.Authority),
			solana.Meta(b.Addresses.Metadata).Writable(),
			solana.Meta(b.Addresses.Custody).Writable(),
			solana.Meta(b.Addresses.ReceiptMint).Writable(),
			solana.Meta(ua.Receipt).Writable(),
			solana.Meta(ua.USDC).Writable(),
			solana.Meta(b.USDCMint),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.AssociatedTokenProgramID),
			solana.Meta(solana.SysvarRentID),
		},
		Data: encodeAmount(ixWithdraw, amount),
	}
}

// CreateReceiptAccount creates the user's yUSDC associated token account.
func (b *Builder) CreateReceiptAccount(user solana.PublicKey, ua UserAccounts) solana.Instruction {
	return solana.CreateAssociatedTokenAccountInstruction(user, ua.Receipt, user, b.Addresses.ReceiptMint)
}
