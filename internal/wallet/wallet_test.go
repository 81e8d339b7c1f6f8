package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoyield-vault/internal/session"
	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/solana/stub"
)

var memoProgram = solana.MustPublicKey("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

func memoTx(signer solana.PublicKey) *solana.Transaction {
	return solana.NewTransaction(signer, solana.Instruction{
		ProgramID: memoProgram,
		Accounts:  []solana.AccountMeta{solana.Meta(signer).Signer().Writable()},
		Data:      []byte("hello"),
	})
}

func TestKeypair_SendTransaction(t *testing.T) {
	rpc := stub.NewRPCClient()
	kp, err := GenerateKeypair(rpc)
	require.NoError(t, err)

	sig, err := kp.SendTransaction(context.Background(), memoTx(kp.PublicKey()))
	require.NoError(t, err)
	assert.Equal(t, "stubsig1", sig)
	assert.Equal(t, 1, rpc.Calls("getLatestBlockhash"))

	submitted := rpc.Submitted()
	require.Len(t, submitted, 1)
	raw := submitted[0]

	// compact-u16 signature count, one 64-byte signature, then the message.
	require.Greater(t, len(raw), 65)
	assert.Equal(t, byte(1), raw[0])
	message := raw[65:]
	assert.Equal(t, byte(1), message[0], "one required signature")
	assert.True(t, ed25519.Verify(kp.PublicKey().Bytes(), message, raw[1:65]))
}

func TestKeypair_SignMissingSigner(t *testing.T) {
	rpc := stub.NewRPCClient()
	kp, err := GenerateKeypair(rpc)
	require.NoError(t, err)
	other, err := GenerateKeypair(rpc)
	require.NoError(t, err)

	_, err = kp.SendTransaction(context.Background(), memoTx(other.PublicKey()))
	require.Error(t, err)
	assert.Empty(t, rpc.Submitted())
}

func TestKeypair_RejectsInvalidTransaction(t *testing.T) {
	rpc := stub.NewRPCClient()
	kp, err := GenerateKeypair(rpc)
	require.NoError(t, err)

	_, err = kp.SendTransaction(context.Background(), solana.NewTransaction(kp.PublicKey()))
	require.Error(t, err)
	assert.Equal(t, 0, rpc.Calls("getLatestBlockhash"))
}

func TestKeypair_SendError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErr = &solana.TransactionError{Message: "simulation failed", Logs: []string{"Program log: boom"}}
	kp, err := GenerateKeypair(rpc)
	require.NoError(t, err)

	_, err = kp.SendTransaction(context.Background(), memoTx(kp.PublicKey()))
	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.True(t, txErr.HasLogs())
}

func TestSession_Events(t *testing.T) {
	rpc := stub.NewRPCClient()
	a, err := GenerateKeypair(rpc)
	require.NoError(t, err)
	b, err := GenerateKeypair(rpc)
	require.NoError(t, err)

	ctx := context.Background()
	s := NewSession(8)

	require.NoError(t, s.Connect(ctx, a))
	require.NoError(t, s.Connect(ctx, b))
	require.NoError(t, s.Disconnect(ctx))

	want := []session.WalletEvent{
		{State: session.Connecting},
		{State: session.Connected, Identity: a.PublicKey()},
		{State: session.Connecting},
		{State: session.Connected, Identity: b.PublicKey()},
		{State: session.Disconnected},
	}
	for i, w := range want {
		select {
		case got := <-s.Events():
			assert.Equal(t, w, got, "event %d", i)
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}

	_, ok := s.Identity()
	assert.False(t, ok)
}

func TestSession_SendRequiresConnection(t *testing.T) {
	s := NewSession(1)
	_, err := s.SendTransaction(context.Background(), memoTx(solana.SystemProgramID))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSession_EmitHonorsContext(t *testing.T) {
	rpc := stub.NewRPCClient()
	kp, err := GenerateKeypair(rpc)
	require.NoError(t, err)

	s := NewSession(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Connect(ctx, kp), context.Canceled)
}
