package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "hash-password", "loadtest", "version"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	configFile = ""
	t.Cleanup(func() { configFile = "" })

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config=/etc/gocred.yaml", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/etc/gocred.yaml", configFile)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "gocred dev")
}

func TestHashPasswordCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gocred.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  password:
    memory: 8192
    time: 1
    parallelism: 1
`), 0o600))

	configFile = ""
	t.Cleanup(func() { configFile = "" })

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("first\n\nsecond\n"))
	cmd.SetArgs([]string{"--config", path, "hash-password"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "$argon2id$v=19$m=8192,t=1,p=1$"), line)
	}
	assert.NotEqual(t, lines[0], lines[1])
}

func TestHashPasswordCommand_EmptyInput(t *testing.T) {
	configFile = ""

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("\n"))
	cmd.SetArgs([]string{"hash-password"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no password")
}
