package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipoapa2-hub/autopic/config"
)

// isolate points config, logs and the database at a temp dir and selects
// the placeholder provider with an SQLite database.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("AUTOPIC_CONFIG", filepath.Join(dir, "config.json"))
	t.Setenv("AI_PROVIDER", "placeholder")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "fleet.db"))
	t.Setenv("SESSION_BACKEND", "memory")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	askJSON, askVerbose, askSession = false, false, ""
	schemaVerify, configForce = false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedDatabase(t *testing.T, path, ddl string) {
	t.Helper()
	w, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Exec(ddl)
	require.NoError(t, err)
}

func TestAsk(t *testing.T) {
	isolate(t)

	out, err := execute(t, "ask", "hola")
	require.NoError(t, err)
	assert.Contains(t, out, "AutoPic IA")
}

func TestAskJSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, "ask", "--json", "--session", "s1", "hola", "qué", "tal")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["needsDatabase"])
	assert.Nil(t, got["sqlQuery"])
	assert.NotEmpty(t, got["turnId"])
	assert.Contains(t, got["response"], "AutoPic IA")
}

func TestAsk_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_BACKEND", "redis")

	_, err := execute(t, "ask", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "redis"`)
}

func TestSchemaPrint(t *testing.T) {
	isolate(t)

	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "Vehicles")
	assert.Contains(t, out, "VehicleUsages")
}

func TestSchemaVerify(t *testing.T) {
	dir := isolate(t)
	seedDatabase(t, filepath.Join(dir, "fleet.db"), `CREATE TABLE "Users" (id INTEGER PRIMARY KEY);`)

	out, err := execute(t, "schema", "--verify")
	require.ErrorIs(t, err, errSchemaDrift)
	assert.Contains(t, out, "missing tables:")
	assert.Contains(t, out, "Vehicles")
	assert.Contains(t, out, "Users.email")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	var saved config.AppConfig
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, config.DefaultAppConfig().Server.Port, saved.Server.Port)

	_, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	t.Setenv("DB_PASS", "hunter2")

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "****")
}

func TestNewRuntime_MemoryMetrics(t *testing.T) {
	isolate(t)
	cfg, err := config.LoadAppConfig()
	require.NoError(t, err)

	rt, err := newRuntime(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.memory)
	families, err := rt.registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "autopic_session_active")
	assert.Contains(t, strings.Join(names, " "), "go_goroutines")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadEnvFile(""))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("AUTOPIC_TEST_VALUE=fleet\n"), 0600))
	t.Setenv("AUTOPIC_TEST_VALUE", "")
	os.Unsetenv("AUTOPIC_TEST_VALUE")
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "fleet", os.Getenv("AUTOPIC_TEST_VALUE"))
}
