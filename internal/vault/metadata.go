package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"autoyield-vault/internal/solana"
)

// MetadataAccountName is the account type name used to compute the
// metadata account discriminator.
const MetadataAccountName = "VaultMetaData"

// metadataLen is discriminator plus the fixed-size fields below.
const metadataLen = 8 + 32 + 8 + 8 + 32 + 32 + 8

// ErrInvalidAccountData is returned when account bytes do not decode as vault metadata.
var ErrInvalidAccountData = errors.New("invalid vault metadata account data")

// Metadata is the raw on-chain vault metadata account.
type Metadata struct {
	Authority       solana.PublicKey
	CustodyBalance  uint64 // base units
	ReceiptSupply   uint64 // base units
	ReceiptMint     solana.PublicKey
	Custody         solana.PublicKey
	LastDepositTime int64 // unix seconds
}

// AccountDiscriminator returns the 8-byte prefix identifying an account type.
func AccountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// DecodeMetadata parses metadata account bytes. Trailing bytes are ignored.
func DecodeMetadata(data []byte) (*Metadata, error) {
	if len(data) < metadataLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAccountData, len(data))
	}
	disc := AccountDiscriminator(MetadataAccountName)
	if !bytes.Equal(data[:8], disc[:]) {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInvalidAccountData)
	}

	m := &Metadata{}
	off := 8
	copy(m.Authority[:], data[off:off+32])
	off += 32
	m.CustodyBalance = binary.LittleEndian.Uint64(data[off:])
	off += 8
	m.ReceiptSupply = binary.LittleEndian.Uint64(data[off:])
	off += 8
	copy(m.ReceiptMint[:], data[off:off+32])
	off += 32
	copy(m.Custody[:], data[off:off+32])
	off += 32
	m.LastDepositTime = int64(binary.LittleEndian.Uint64(data[off:]))

	return m, nil
}

// Encode serializes the metadata in account layout. Used by tests and fixtures.
func (m *Metadata) Encode() []byte {
	buf := make([]byte, metadataLen)
	disc := AccountDiscriminator(MetadataAccountName)
	copy(buf, disc[:])
	off := 8
	copy(buf[off:], m.Authority[:])
	off += 32
	binary.LittleEndian.PutUint64(buf[off:], m.CustodyBalance)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.ReceiptSupply)
	off += 8
	copy(buf[off:], m.ReceiptMint[:])
	off += 32
	copy(buf[off:], m.Custody[:])
	off += 32
	binary.LittleEndian.PutUint64(buf[off:], uint64(m.LastDepositTime))
	return buf
}
