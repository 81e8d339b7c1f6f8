package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const historySchema = "../migrations/clickhouse"

// setupTestDB starts a ClickHouse server with the snapshot schema applied.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "vault"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://default@%s:%s/vault", host, port.Port()))
	require.NoError(t, err)
	applySchema(t, ctx, conn)

	return conn, func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}
}

func applySchema(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(historySchema, "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(data), ";") {
			var lines []string
			for _, line := range strings.Split(stmt, "\n") {
				if !strings.HasPrefix(strings.TrimSpace(line), "--") {
					lines = append(lines, line)
				}
			}
			if stmt = strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
				require.NoError(t, conn.Exec(ctx, stmt), "apply %s", filepath.Base(f))
			}
		}
	}
}
