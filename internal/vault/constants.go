// Package vault describes the on-chain AutoYield vault: its derived
// addresses, account layout, instruction encoding and amount rules.
package vault

import (
	"github.com/shopspring/decimal"

	"autoyield-vault/internal/solana"
)

// Devnet deployment defaults.
var (
	DefaultUSDCMint  = solana.MustPublicKey("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	DefaultAuthority = solana.MustPublicKey("DWpFeAKWzFdTQFxUHzsTDCdXU1ouKoxypfMvLAYSbyT")
)

// PDA seed prefixes.
const (
	SeedMetadata    = "vault_metadata"
	SeedCustody     = "vault_usdc"
	SeedReceiptMint = "yusdc_mint"
)

// Decimals is the precision of both USDC and the yUSDC receipt token.
const Decimals = 6

// MaxAmount is the largest amount accepted by a single deposit or withdrawal.
var MaxAmount = decimal.NewFromInt(1_000_000)
