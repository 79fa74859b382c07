package cli

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
)

func TestNewRootCommand_Metadata(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "keyterm", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.Contains(t, cmd.Version, "dev")
}

func TestNewRootCommand_SubcommandRegistration(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[strings.Fields(sub.Use)[0]] = true
	}

	for _, want := range []string{"extract", "keywords", "recover", "convert", "watch", "consume", "serve", "migrate"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"config", "log-level", "output-format", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected flag %q", name)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecoverCommand_JSONArray(t *testing.T) {
	out, err := runCLI(t, "recover", `["alpha","beta"]`)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\n", out)
}

func TestRecoverCommand_DelimitedProse(t *testing.T) {
	out, err := runCLI(t, "recover", "-f", "json", "苹果，香蕉；橙子")
	require.NoError(t, err)

	var keywords []string
	require.NoError(t, json.Unmarshal([]byte(out), &keywords))
	assert.Equal(t, []string{"苹果", "香蕉", "橙子"}, keywords)
}

func TestConvertCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.json")
	dst := filepath.Join(dir, "records.jsonl")

	source := `[{"problem_id":"gsm-17","problem":"What is a stack?","models":{"qwen2-7b":[{"answer":"A LIFO structure.","attempt":1},{"answer":"  ","attempt":2}]}}]`
	require.NoError(t, os.WriteFile(src, []byte(source), 0o644))

	out, err := runCLI(t, "convert", "-i", src, "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "OK:")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 1, "blank answer must be dropped")
	assert.Contains(t, lines[0], `"problem_id":"gsm-17"`)
	assert.Contains(t, lines[0], `"lang":"en"`)
}

func TestConvertCommand_UnknownLang(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.json")
	require.NoError(t, os.WriteFile(src, []byte(`[]`), 0o644))

	_, err := runCLI(t, "convert", "-i", src, "-o", filepath.Join(dir, "out.jsonl"), "--lang", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown language")
}

func TestExtractCommand_RequiredFlags(t *testing.T) {
	_, err := runCLI(t, "extract")
	require.Error(t, err)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRootCommand()
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}
