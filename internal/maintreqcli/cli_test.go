package maintreqcli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/sheet"
	"github.com/phillip-england/maintreq/internal/store"
	"github.com/phillip-england/maintreq/internal/webapp"
)

func TestExecute_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"bogus"}, {"import"}} {
		err := execute(args, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrUsage, "%v", args)
	}

	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "maintreq import")
}

func TestSetup_WritesEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	var out bytes.Buffer
	require.NoError(t, execute([]string{"setup", "--master-password", "Manutencao#2024", "--env-file", envPath}, &out))
	assert.Contains(t, out.String(), "wrote")

	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `MASTER_PASSWORD="Manutencao#2024"`)
	assert.Contains(t, text, "PASSWORD_GATE=on")
	assert.Contains(t, text, "DB_DRIVER=sqlite")

	err = execute([]string{"setup", "--master-password", "outra", "--env-file", envPath}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestSetup_Validation(t *testing.T) {
	dir := t.TempDir()

	err := execute([]string{"setup", "--env-file", filepath.Join(dir, "a.env")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--master-password")

	err = execute([]string{"setup", "--master-password", " espaco", "--env-file", filepath.Join(dir, "b.env")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid master password")

	err = execute([]string{"setup", "--master-password", "x", "--db-driver", "oracle", "--env-file", filepath.Join(dir, "c.env")}, &bytes.Buffer{})
	require.Error(t, err)

	envPath := filepath.Join(dir, "d.env")
	require.NoError(t, execute([]string{"setup", "--no-gate", "--db-driver", "postgres", "--db-dsn", "postgres://u:p@localhost/m", "--env-file", envPath}, &bytes.Buffer{}))
	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PASSWORD_GATE=off")
	assert.Contains(t, string(data), "DB_DRIVER=postgres")
	assert.NotContains(t, string(data), "MASTER_PASSWORD")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	err := execute([]string{"migrate", "--env-file", filepath.Join(t.TempDir(), "missing.env")}, &bytes.Buffer{})
	assert.ErrorIs(t, err, store.ErrNotConfigured)
	assert.Contains(t, err.Error(), "DB_DSN not set")
}

func TestRuntimeMissing(t *testing.T) {
	t.Setenv("DB_DSN", "  ")
	t.Setenv("MASTER_PASSWORD", "")
	t.Setenv("PASSWORD_GATE", "on")
	assert.Equal(t, []string{"DB_DSN", "MASTER_PASSWORD"}, runtimeMissing(webapp.DefaultConfigFromEnv()))

	t.Setenv("PASSWORD_GATE", "off")
	t.Setenv("DB_DSN", "file:x.db")
	assert.Empty(t, runtimeMissing(webapp.DefaultConfigFromEnv()))
}

func sqliteEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "maintreq.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:"+dbPath+"?_busy_timeout=5000")
	t.Setenv("TIMEZONE", requests.DefaultTimezone)
	return dbPath
}

func TestMigrate_CreatesSQLiteDatabase(t *testing.T) {
	dbPath := sqliteEnv(t)
	var out bytes.Buffer
	require.NoError(t, execute([]string{"migrate", "--env-file", filepath.Join(t.TempDir(), "missing.env")}, &out))
	assert.Contains(t, out.String(), "migrated sqlite database")
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func writeReport(t *testing.T, rows []requests.Request) string {
	t.Helper()
	data, err := sheet.RenderReport(rows, time.UTC)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "relatorio.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func sampleRequests() []requests.Request {
	value := 99.9
	return []requests.Request{
		{ID: 7, SubmittedAt: time.Date(2024, 6, 1, 11, 15, 0, 0, time.UTC), RequesterName: "Ana Souza", RequesterSectorRole: "TI", EquipmentModel: "Leitor X200", EquipmentCode: "LX-1", AllocatedSystem: "WMS", Quantity: 1, Value: &value, Reason: "Tela", Status: requests.StatusAwaitingShipment},
		{ID: 8, SubmittedAt: time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC), RequesterName: "Bruna Dias", RequesterSectorRole: "Logística", EquipmentModel: "Coletor", EquipmentCode: "MC-01", AllocatedSystem: "ERP", Quantity: 3, Reason: "Bateria", Status: requests.StatusAwaitingShipment},
	}
}

func TestImport_DryRunDoesNotNeedDatabase(t *testing.T) {
	t.Setenv("DB_DSN", "")
	path := writeReport(t, sampleRequests())
	var out bytes.Buffer
	require.NoError(t, execute([]string{"import", "--dry-run", "--env-file", filepath.Join(t.TempDir(), "missing.env"), path}, &out))
	assert.Equal(t, "2 requests are valid (dry run)\n", out.String())
}

func TestImport_InsertsRows(t *testing.T) {
	sqliteEnv(t)
	path := writeReport(t, sampleRequests())
	var out bytes.Buffer
	require.NoError(t, execute([]string{"import", "--env-file", filepath.Join(t.TempDir(), "missing.env"), path}, &out))
	assert.Equal(t, "imported 2 requests\n", out.String())

	dsn := os.Getenv("DB_DSN")
	rows, err := store.NewGateway(store.Config{Dialect: store.SQLite, DSN: dsn}).FetchAllRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bruna Dias", rows[0].RequesterName)
	assert.NotEqual(t, int64(8), rows[0].ID, "ids are assigned by the store")
}

func TestImport_MissingFile(t *testing.T) {
	err := execute([]string{"import", filepath.Join(t.TempDir(), "nope.xlsx")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSQLiteFilePath(t *testing.T) {
	assert.Equal(t, "data/maintreq.db", sqliteFilePath(defaultSQLiteDSN))
	assert.Equal(t, "/tmp/x.db", sqliteFilePath("/tmp/x.db"))
	assert.Equal(t, "", sqliteFilePath(":memory:"))
	assert.Equal(t, "", sqliteFilePath("file::memory:?cache=shared"))
	assert.True(t, strings.HasSuffix(sqliteFilePath("file:./a/b.db"), "b.db"))
}
