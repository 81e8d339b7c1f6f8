package solana

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// TransactionError is a rejected submission. Logs holds program output from
// simulation when the node returned it.
type TransactionError struct {
	Message string
	Logs    []string
	Err     interface{}
}

func (e *TransactionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", e.Message, e.Err)
	}
	return e.Message
}

// HasLogs reports whether program logs were attached.
func (e *TransactionError) HasLogs() bool {
	return len(e.Logs) > 0
}

// preflightData is the data payload of a sendTransaction simulation failure.
type preflightData struct {
	Err  interface{} `json:"err"`
	Logs []string    `json:"logs"`
}

// asTransactionError converts a sendTransaction RPC error into a TransactionError.
func asTransactionError(e *rpcError) *TransactionError {
	txErr := &TransactionError{Message: strings.TrimSpace(e.Message)}
	if len(e.Data) == 0 {
		return txErr
	}
	var data preflightData
	if err := json.Unmarshal(e.Data, &data); err == nil {
		txErr.Logs = data.Logs
		txErr.Err = data.Err
	}
	return txErr
}
