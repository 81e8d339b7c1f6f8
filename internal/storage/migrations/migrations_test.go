package migrations

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- comment
CREATE TABLE a (x UInt8);

CREATE TABLE b (y String);
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8)", stmts[0])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b'"))
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := fs.ReadFile(PostgresFS, "postgres/001_vault_operations.sql")
	require.NoError(t, err)
	assert.Contains(t, string(pg), "vault_operations")

	ch, err := fs.ReadFile(ClickhouseFS, "clickhouse/001_vault_snapshots.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(ch)) {
		assert.NoError(t, validateNoSemicolonInStrings(stmt))
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/vault")
	require.NoError(t, err)
	assert.Equal(t, "vault", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestSQLFiles_Ordered(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_b.sql":  {Data: []byte("B")},
		"m/001_a.sql":  {Data: []byte("A")},
		"m/readme.txt": {Data: []byte("skip")},
	}
	files, err := sqlFiles(fsys, "m")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a.sql", files[0].name)
	assert.Equal(t, "B", files[1].sql)
}

func TestStatements_RejectsQuotedSemicolon(t *testing.T) {
	_, err := statements("INSERT INTO t VALUES ('x;y');")
	assert.Error(t, err)

	stmts, err := statements("SELECT 1;\nSELECT 2;")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, stmts)
}
