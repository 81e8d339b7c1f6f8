package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_PrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.OperationsTotal.WithLabelValues("deposit", "submitted").Inc()
	m.OperationsTotal.WithLabelValues("deposit", "submitted").Inc()
	m.VaultExists.Set(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("deposit", "submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VaultExists))

	count, err := testutil.GatherAndCount(reg, "test_session_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordRPCCall_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RPCCallErrors.WithLabelValues("getSlot"))

	RecordRPCCall("getSlot", 10*time.Millisecond, nil)
	RecordRPCCall("getSlot", 10*time.Millisecond, errors.New("boom"))

	after := testutil.ToFloat64(DefaultMetrics.RPCCallErrors.WithLabelValues("getSlot"))
	assert.Equal(t, before+1, after)
}

func TestUpdateVaultState_Absent(t *testing.T) {
	UpdateVaultState(true, 12.5, 10)
	assert.Equal(t, 12.5, testutil.ToFloat64(DefaultMetrics.CustodyBalance))

	UpdateVaultState(false, 99, 99)
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.VaultExists))
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.CustodyBalance))
}
