package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRPCServer answers every request with the value returned by handle.
// A returned *rpcError is sent as the JSON-RPC error member.
func newRPCServer(t *testing.T, handle func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch v := handle(req).(type) {
		case *rpcError:
			resp["error"] = v
		default:
			resp["result"] = v
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	owner := MustPublicKey("DWpFeAKWzFdTQFxUHzsTDCdXU1ouKoxypfMvLAYSbyT")

	server := newRPCServer(t, func(req rpcRequest) interface{} {
		assert.Equal(t, "getAccountInfo", req.Method)
		assert.Equal(t, owner.String(), req.Params[0])
		return map[string]interface{}{
			"value": map[string]interface{}{
				"lamports":   uint64(1000000),
				"owner":      "11111111111111111111111111111111",
				"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
				"executable": false,
				"rentEpoch":  uint64(100),
			},
		}
	})

	client := NewHTTPClient(server.URL)
	info, err := client.GetAccountInfo(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, uint64(1000000), info.Lamports)
	assert.Equal(t, "11111111111111111111111111111111", info.Owner)
	assert.Equal(t, "SGVsbG8gV29ybGQ=", info.Data)
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return map[string]interface{}{"value": nil}
	})

	client := NewHTTPClient(server.URL)
	info, err := client.GetAccountInfo(context.Background(), SystemProgramID)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		assert.Equal(t, "getLatestBlockhash", req.Method)
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 10},
			"value": map[string]interface{}{
				"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
				"lastValidBlockHeight": 3090,
			},
		}
	})

	client := NewHTTPClient(server.URL)
	bh, err := client.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", bh.Hash)
	assert.Equal(t, uint64(3090), bh.LastValidBlockHeight)
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	raw := []byte{1, 2, 3, 4}

	server := newRPCServer(t, func(req rpcRequest) interface{} {
		assert.Equal(t, "sendTransaction", req.Method)
		assert.Equal(t, base64.StdEncoding.EncodeToString(raw), req.Params[0])
		return "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
	})

	client := NewHTTPClient(server.URL)
	sig, err := client.SendTransaction(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW", sig)
}

func TestHTTPClient_SendTransaction_PreflightFailure(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		data, _ := json.Marshal(map[string]interface{}{
			"err":  map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}}},
			"logs": []string{"Program log: Instruction: Deposit", "Program log: Error: insufficient funds"},
		})
		return &rpcError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1",
			Data:    data,
		}
	})

	client := NewHTTPClient(server.URL)
	_, err := client.SendTransaction(context.Background(), []byte{1})
	require.Error(t, err)

	var txErr *TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.True(t, txErr.HasLogs())
	assert.Len(t, txErr.Logs, 2)
	assert.Contains(t, txErr.Message, "simulation failed")
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		assert.Equal(t, "getSignatureStatuses", req.Method)
		return map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{"slot": 72, "confirmations": 10, "confirmationStatus": "confirmed", "err": nil},
				nil,
			},
		}
	})

	client := NewHTTPClient(server.URL)
	statuses, err := client.GetSignatureStatuses(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.NotNil(t, statuses[0])
	assert.Equal(t, "confirmed", statuses[0].ConfirmationStatus)
	assert.Nil(t, statuses[1])
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		assert.Equal(t, "getTransaction", req.Method)
		return map[string]interface{}{
			"slot":      int64(123456),
			"blockTime": int64(1700000000),
			"meta": map[string]interface{}{
				"err":         nil,
				"logMessages": []string{"Program log: Hello", "Program log: World"},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "testsig123")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, int64(123456), tx.Slot)
	assert.Equal(t, int64(1700000000), tx.BlockTime)
	assert.Len(t, tx.Logs, 2)
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return nil
	})

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return &rpcError{Code: -32600, Message: "Invalid Request"}
	})

	client := NewHTTPClient(server.URL)
	_, err := client.GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_Observer(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return int64(1)
	})

	var methods []string
	client := NewHTTPClient(server.URL,
		WithRateLimit(100),
		WithObserver(func(method string, _ time.Duration, err error) {
			assert.NoError(t, err)
			methods = append(methods, method)
		}),
	)

	_, err := client.GetSlot(context.Background())
	require.NoError(t, err)
	_, err = client.GetSlot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"getSlot", "getSlot"}, methods)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
