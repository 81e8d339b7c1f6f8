package stub

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"autoyield-vault/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient over in-memory accounts for testing.
type RPCClient struct {
	mu           sync.Mutex
	accounts     map[solana.PublicKey]*solana.AccountInfo
	transactions map[string]*solana.ConfirmedTransaction
	calls        map[string]int
	submitted    [][]byte

	// SendErr, when set, is returned by SendTransaction.
	SendErr error
	// AccountErr, when set, is returned by GetAccountInfo.
	AccountErr error
	// BeforeGetAccount runs before each GetAccountInfo lookup, outside the lock.
	BeforeGetAccount func(pubkey solana.PublicKey)
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts:     make(map[solana.PublicKey]*solana.AccountInfo),
		transactions: make(map[string]*solana.ConfirmedTransaction),
		calls:        make(map[string]int),
	}
}

// SetAccountData stores raw account data owned by owner.
func (c *RPCClient) SetAccountData(pubkey, owner solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pubkey] = &solana.AccountInfo{
		Lamports: 1_000_000,
		Owner:    owner.String(),
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// SetTokenAccount stores an SPL token account holding amount base units.
func (c *RPCClient) SetTokenAccount(pubkey, mint, owner solana.PublicKey, amount uint64) {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	c.SetAccountData(pubkey, solana.TokenProgramID, data)
}

// DeleteAccount removes an account.
func (c *RPCClient) DeleteAccount(pubkey solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, pubkey)
}

// AddTransaction adds a landed transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.ConfirmedTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Submitted returns the raw transactions passed to SendTransaction.
func (c *RPCClient) Submitted() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.submitted))
	copy(out, c.submitted)
	return out
}

func (c *RPCClient) record(method string) {
	c.mu.Lock()
	c.calls[method]++
	c.mu.Unlock()
}

// GetAccountInfo returns the stored account or nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*solana.AccountInfo, error) {
	c.record("getAccountInfo")
	if c.BeforeGetAccount != nil {
		c.BeforeGetAccount(pubkey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AccountErr != nil {
		return nil, c.AccountErr
	}
	info, ok := c.accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetLatestBlockhash returns a fixed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.record("getLatestBlockhash")
	return &solana.Blockhash{
		Hash:                 "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		LastValidBlockHeight: 1000,
	}, nil
}

// SendTransaction records raw and returns a deterministic signature.
func (c *RPCClient) SendTransaction(_ context.Context, raw []byte) (string, error) {
	c.record("sendTransaction")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.submitted = append(c.submitted, raw)
	return fmt.Sprintf("stubsig%d", len(c.submitted)), nil
}

// GetSignatureStatuses reports every known transaction as confirmed.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.record("getSignatureStatuses")
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if tx, ok := c.transactions[sig]; ok {
			out[i] = &solana.SignatureStatus{Slot: tx.Slot, ConfirmationStatus: "confirmed", Err: tx.Err}
		}
	}
	return out, nil
}

// GetSlot returns a fixed slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.record("getSlot")
	return 1, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.ConfirmedTransaction, error) {
	c.record("getTransaction")
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
