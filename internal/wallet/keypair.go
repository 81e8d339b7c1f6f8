// Package wallet signs and submits vault transactions with a local keypair
// and reports connection changes to the session controller.
package wallet

import (
	"context"
	"errors"
	"fmt"

	sg "github.com/gagliardetto/solana-go"

	"autoyield-vault/internal/solana"
)

// ErrNotConnected is returned when no keypair is connected.
var ErrNotConnected = errors.New("wallet not connected")

// Keypair signs transactions with an ed25519 key and submits them over RPC.
type Keypair struct {
	key    sg.PrivateKey
	pubkey solana.PublicKey
	rpc    solana.RPCClient
}

// LoadKeypair reads a solana-keygen JSON keypair file.
func LoadKeypair(path string, rpc solana.RPCClient) (*Keypair, error) {
	key, err := sg.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return NewKeypair(key, rpc)
}

// GenerateKeypair creates a keypair with a random key.
func GenerateKeypair(rpc solana.RPCClient) (*Keypair, error) {
	key, err := sg.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return NewKeypair(key, rpc)
}

// NewKeypair wraps an existing private key.
func NewKeypair(key sg.PrivateKey, rpc solana.RPCClient) (*Keypair, error) {
	pub, err := solana.PublicKeyFromBytes(key.PublicKey().Bytes())
	if err != nil {
		return nil, err
	}
	return &Keypair{key: key, pubkey: pub, rpc: rpc}, nil
}

// PublicKey returns the signing identity.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.pubkey
}

// SendTransaction signs tx against the latest blockhash and submits it.
// The returned string is the transaction signature reported by the node.
func (k *Keypair) SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	raw, err := k.Sign(ctx, tx)
	if err != nil {
		return "", err
	}
	return k.rpc.SendTransaction(ctx, raw)
}

// Sign serializes and signs tx without submitting it.
func (k *Keypair) Sign(ctx context.Context, tx *solana.Transaction) ([]byte, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	bh, err := k.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	hash, err := sg.HashFromBase58(bh.Hash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	ixs := make([]sg.Instruction, 0, len(tx.Instructions))
	for _, ix := range tx.Instructions {
		ixs = append(ixs, toInstruction(ix))
	}

	stx, err := sg.NewTransaction(ixs, hash, sg.TransactionPayer(toKey(tx.FeePayer)))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	signer := k.key.PublicKey()
	if _, err := stx.Sign(func(pk sg.PublicKey) *sg.PrivateKey {
		if pk.Equals(signer) {
			return &k.key
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := stx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	return raw, nil
}

func toKey(pk solana.PublicKey) sg.PublicKey {
	return sg.PublicKeyFromBytes(pk.Bytes())
}

func toInstruction(ix solana.Instruction) sg.Instruction {
	metas := make(sg.AccountMetaSlice, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		metas = append(metas, sg.NewAccountMeta(toKey(a.PublicKey), a.IsWritable, a.IsSigner))
	}
	return sg.NewInstruction(toKey(ix.ProgramID), metas, ix.Data)
}
