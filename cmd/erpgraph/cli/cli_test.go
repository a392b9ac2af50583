package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/connector"
	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/signature"
)

const testMasterKey = "0123456789abcdef0123456789abcdef"

// run executes the root command with args and returns what it wrote
// through cmd.OutOrStdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd("1.2.3", "abc123", "2026-01-01")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestMissingTables(t *testing.T) {
	entities := model.Entities()
	tables := make([]string, 0, len(entities))
	for _, e := range entities {
		tables = append(tables, strings.ToUpper(e.Table))
	}
	assert.Empty(t, missingTables(entities, tables))

	missing := missingTables(entities, tables[1:])
	assert.Len(t, missing, 1)
	assert.Contains(t, missing, entities[0].Table)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(not set)", mask(""))
	assert.Equal(t, "********", mask("secret"))
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)

	var info buildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "2026-01-01", info.Built)
	assert.Equal(t, 300, info.WindowSeconds)
	assert.Equal(t, 1000, info.MaxLimit)
	assert.Contains(t, info.Entities, "customers")
	assert.Contains(t, info.Signature, "hmac-sha256")
}

func TestVersionCmd_Text(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "erpgraph 1.2.3 (abc123, built 2026-01-01)")
	assert.Contains(t, out, "max limit 1000")
}

// capturingConnector records the config it was asked to connect with.
type capturingConnector struct {
	connector.Connector
	got *connector.ConnectionConfig
}

func (c *capturingConnector) Connect(cfg connector.ConnectionConfig) error {
	*c.got = cfg
	return errors.New("not dialing")
}

func TestConnectERP_PassesPrivateKeyPath(t *testing.T) {
	var got connector.ConnectionConfig
	registry := connector.NewRegistry()
	registry.RegisterDriver("snowflake", func() connector.Connector {
		return &capturingConnector{got: &got}
	})

	cfg := &config.AppConfig{ERP: config.ERPConfig{
		Driver:         "snowflake",
		DSN:            "svc@acct/ERP/PUBLIC?warehouse=WH",
		Schema:         "PUBLIC",
		PrivateKeyPath: "/keys/rsa_key.p8",
	}}
	_, err := connectERP(registry, cfg)
	require.Error(t, err)
	assert.Equal(t, "/keys/rsa_key.p8", got.PrivateKeyPath)
	assert.Equal(t, "PUBLIC", got.SchemaName)
}

func TestOpenAPICmd(t *testing.T) {
	out, err := run(t, "openapi", "--base-url", "https://erp.example.com")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "3.1.0", doc["openapi"])
	assert.Contains(t, out, "https://erp.example.com")
	assert.Contains(t, out, "/graphql")
}

func TestERPSchemaCmd(t *testing.T) {
	out, err := run(t, "erp", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "type Query")
	assert.Contains(t, out, "type Customer")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erpgraph.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rate_limit_per_minute")

	_, err = run(t, "config", "init", "-o", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", "-o", path, "--force")
	assert.NoError(t, err)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	t.Setenv("ERPGRAPH_AUTH_ADMIN_KEY", "very-secret-admin-key")

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "very-secret-admin-key")
	assert.Contains(t, out, "********")
}

func TestWriteSignedHeaders(t *testing.T) {
	h := signature.Headers("ak", "cid", "s3cr3t", time.Unix(1700000000, 0))

	var buf bytes.Buffer
	require.NoError(t, writeSignedHeaders(&buf, h, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "X-App-Key: ak", lines[0])
	assert.Equal(t, "X-Timestamp: 1700000000", lines[3])
}

func TestCredentialLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ERPGRAPH_AUTH_MASTER_KEY", testMasterKey)

	_, err := run(t, "--data-dir", dir, "operator", "create", "--login", "ops", "--password", "supersecretpassword")
	require.NoError(t, err)

	_, err = run(t, "--data-dir", dir, "operator", "create", "--login", "ops", "--password", "supersecretpassword")
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "--data-dir", dir, "credential", "create", "--login", "ops", "--password", "wrong-password")
	assert.Error(t, err)

	_, err = run(t, "--data-dir", dir, "credential", "create", "--login", "ops", "--password", "supersecretpassword", "--label", "sync")
	require.NoError(t, err)

	store, err := config.NewStore(dir)
	require.NoError(t, err)
	creds, err := store.ListCredentials(context.Background())
	store.Close()
	require.NoError(t, err)
	require.Len(t, creds, 1)
	appKey, clientID := creds[0].AppKey, creds[0].ClientID
	assert.Equal(t, "ops", creds[0].IssuedBy)

	out, err := run(t, "--data-dir", dir, "sign", appKey, clientID, "--timestamp", "1700000000", "--json")
	require.NoError(t, err)
	var headers map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &headers))
	assert.Equal(t, appKey, headers[signature.HeaderAppKey])
	assert.Equal(t, "1700000000", headers[signature.HeaderTimestamp])
	assert.Len(t, headers[signature.HeaderSignature], 64)

	_, err = run(t, "--data-dir", dir, "credential", "deactivate", appKey, clientID)
	require.NoError(t, err)

	_, err = run(t, "--data-dir", dir, "credential", "deactivate", appKey, clientID)
	assert.ErrorContains(t, err, "no active credential")

	_, err = run(t, "--data-dir", dir, "sign", appKey, clientID)
	assert.Error(t, err, "deactivated credentials cannot be signed for")
}

func TestOperatorDisable(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "--data-dir", dir, "operator", "create", "--login", "ops", "--password", "supersecretpassword")
	require.NoError(t, err)

	out, err := run(t, "--data-dir", dir, "operator", "disable", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")

	_, err = run(t, "--data-dir", dir, "operator", "disable", "nobody")
	assert.ErrorContains(t, err, "not found")
}

func TestSignRequiresMasterKey(t *testing.T) {
	t.Setenv("ERPGRAPH_AUTH_MASTER_KEY", "short")

	_, err := run(t, "--data-dir", t.TempDir(), "sign", "ak", "cid")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
