package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/service"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite:///"+filepath.Join(dir, "prospeccao.db"))
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "export"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("HUMAN_DELAYS", "false")
	t.Setenv("SELECTORS_FILE", "")
	t.Setenv("MESSAGE_TEMPLATE_FILE", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := &cli{}
	defer c.close()

	cmd := newRootCmd(c)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCLI_ImportOutreachStatsExport(t *testing.T) {
	dir := setupEnv(t)
	csvPath := filepath.Join(dir, "negocios.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Nome,Telefone,Categoria\nPadaria A,41 99988-0001,Padaria\nOficina B,41 99988-0002,Oficina\n"), 0o644))

	out, err := execute(t, "import", csvPath)
	require.NoError(t, err)
	var summary service.ImportSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Saved)

	out, err = execute(t, "outreach", "--test", "--max", "1")
	require.NoError(t, err)
	var result service.OutreachResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.SuccessfulSends)

	out, err = execute(t, "stats")
	require.NoError(t, err)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.TotalBusinesses)
	assert.Equal(t, 1, stats.MessagesSent)

	out, err = execute(t, "export")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.True(t, strings.HasSuffix(path, ".csv"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCLI_OutreachWithoutTargetsFails(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "outreach", "--test")
	require.Error(t, err)
	assert.Equal(t, service.ErrNoEligibleTargets.Error(), err.Error())
	assert.Contains(t, out, `"success": false`)
}

func TestCLI_DiscoverRequiresTerms(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "discover")
	assert.Error(t, err)
}

func TestCLI_InvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("MAX_MESSAGES_PER_HOUR", "zero")

	_, err := execute(t, "stats")
	assert.Error(t, err)
}
