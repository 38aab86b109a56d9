package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/schema"
)

const samplePaste = "Category: Quantitative Methods\nQuestion 3 of 60\nResult: Incorrect\n"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mistake_log.csv")
	t.Setenv("STORE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestExtractCmd(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, samplePaste, "extract")
	require.NoError(t, err)

	var res core.ExtractResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Usable)
	assert.Equal(t, "Quantitative Methods", res.Record[schema.Category])

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLogHistoryDelete(t *testing.T) {
	setupEnv(t)

	out, err := run(t, samplePaste, "log", "--error-type", "Calculation error", "--notes", "slow")
	require.NoError(t, err)
	assert.Contains(t, out, "Quantitative Methods (Calculation error)")

	input := filepath.Join(t.TempDir(), "paste.txt")
	require.NoError(t, os.WriteFile(input, []byte("Category: Ethics\n"), 0o644))
	_, err = run(t, "", "log", "-t", "Misread the question", input)
	require.NoError(t, err)

	out, err = run(t, "", "history", "--json")
	require.NoError(t, err)
	var page core.HistoryPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 2, page.Total)

	out, err = run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Ethics")
	assert.Contains(t, out, "2 of 2 shown")

	out, err = run(t, "", "delete", "0")
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 of 1 requested rows\n", out)

	out, err = run(t, "", "history", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Ethics", page.Entries[0].Record[schema.Category])
}

func TestLogCmd_Rejects(t *testing.T) {
	path := setupEnv(t)

	_, err := run(t, "nothing here", "log", "-t", "Calculation error")
	require.ErrorIs(t, err, core.ErrNotUsable)

	_, err = run(t, samplePaste, "log", "-t", "Bad luck")
	require.ErrorIs(t, err, core.ErrInvalidErrorType)

	_, err = run(t, samplePaste, "log")
	require.Error(t, err, "error type is required")

	_, err = run(t, "", "delete", "first")
	require.ErrorIs(t, err, core.ErrInvalidRequest)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestImportExport(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()

	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("Timestamp,Category\n2026-02-01 08:00:00,Ethics\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("Timestamp,Category\n2026-02-01 08:00:00,Economics\n"), 0o644))

	out, err := run(t, "", "import", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "a.csv: 1 rows")
	assert.Contains(t, out, "1 replaced, 1 total")

	out, err = run(t, "", "export", "--out", "-")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"Economics"`)

	dest := filepath.Join(dir, "export.csv")
	_, err = run(t, "", "export", "--excel", "-o", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf")))
}

func TestStoreFlag(t *testing.T) {
	envPath := setupEnv(t)
	flagPath := filepath.Join(t.TempDir(), "other.csv")

	_, err := run(t, samplePaste, "--store", flagPath, "log", "-t", "Calculation error")
	require.NoError(t, err)

	_, err = os.Stat(flagPath)
	assert.NoError(t, err)
	_, err = os.Stat(envPath)
	assert.True(t, os.IsNotExist(err))
}

func TestEnvFile(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "from_env_file.csv")
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_PATH="+path+"\n"), 0o644))

	root := newRootCmd()
	root.SetIn(strings.NewReader(samplePaste))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--env-file", envFile, "log", "-t", "Calculation error"})
	require.NoError(t, root.Execute())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
