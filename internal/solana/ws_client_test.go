package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// idleServer accepts a connection and drains it until closed.
func idleServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_Connect(t *testing.T) {
	client, err := DialAccountStream(context.Background(), idleServer(t), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.False(t, client.closed.Load())
}

func TestWSClient_SubscribeAccount(t *testing.T) {
	account := MustPublicKey("DWpFeAKWzFdTQFxUHzsTDCdXU1ouKoxypfMvLAYSbyT")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "accountSubscribe" {
			t.Errorf("expected accountSubscribe, got %s", req.Method)
		}
		if req.Params[0] != account.String() {
			t.Errorf("unexpected account param %v", req.Params[0])
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 12345}); err != nil {
			return
		}

		time.Sleep(50 * time.Millisecond)
		notif := wsNotification{
			JSONRPC: "2.0",
			Method:  "accountNotification",
			Params: &wsNotificationParams{
				Subscription: 12345,
				Result: wsNotificationResult{
					Context: &wsContext{Slot: 100},
					Value: &getAccountInfoValue{
						Lamports: 2039280,
						Owner:    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
						Data:     []string{"AAAA", "base64"},
					},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := DialAccountStream(ctx, wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeAccount(ctx, account)
	require.NoError(t, err)

	select {
	case notif := <-ch:
		assert.Equal(t, account, notif.Account)
		assert.Equal(t, int64(100), notif.Slot)
		require.NotNil(t, notif.Info)
		assert.Equal(t, uint64(2039280), notif.Info.Lamports)
		assert.Equal(t, "AAAA", notif.Info.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.SubscribeTimeout = 50 * time.Millisecond

	client, err := DialAccountStream(context.Background(), idleServer(t), &cfg)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubscribeAccount(context.Background(), SystemProgramID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestWSClient_Close(t *testing.T) {
	client, err := DialAccountStream(context.Background(), idleServer(t), nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, client.closed.Load())

	// Double close should be safe
	require.NoError(t, client.Close())
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	client, err := DialAccountStream(context.Background(), idleServer(t), nil)
	require.NoError(t, err)

	client.Close()

	_, err = client.SubscribeAccount(context.Background(), SystemProgramID)
	assert.Error(t, err)
}
