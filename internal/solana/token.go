package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// tokenAccountMinLen covers mint, owner and amount of an SPL token account.
const tokenAccountMinLen = 72

// TokenAccount is the subset of an SPL token account the client reads.
type TokenAccount struct {
	Address PublicKey
	Mint    PublicKey
	Owner   PublicKey
	Amount  uint64
}

// ParseTokenAccount decodes raw SPL token account data.
// Layout: mint [0:32], owner [32:64], amount u64 LE [64:72].
func ParseTokenAccount(address PublicKey, data []byte) (*TokenAccount, error) {
	if len(data) < tokenAccountMinLen {
		return nil, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	acc := &TokenAccount{Address: address}
	copy(acc.Mint[:], data[0:32])
	copy(acc.Owner[:], data[32:64])
	acc.Amount = binary.LittleEndian.Uint64(data[64:72])
	return acc, nil
}

// DecodeAccountData decodes the base64 payload of an AccountInfo.
func DecodeAccountData(info *AccountInfo) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

// CreateAssociatedTokenAccountInstruction creates the ATA of owner for mint,
// funded by payer.
func CreateAssociatedTokenAccountInstruction(payer, ata, owner, mint PublicKey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			Meta(payer).Signer().Writable(),
			Meta(ata).Writable(),
			Meta(owner),
			Meta(mint),
			Meta(SystemProgramID),
			Meta(TokenProgramID),
		},
		Data: []byte{},
	}
}

// ExplorerURL returns a block explorer link for a transaction signature.
// An empty cluster means mainnet.
func ExplorerURL(signature, cluster string) string {
	url := "https://explorer.solana.com/tx/" + signature
	if cluster != "" && cluster != "mainnet-beta" {
		url += "?cluster=" + cluster
	}
	return url
}
