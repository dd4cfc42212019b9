package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outerSource = `package p;

public class Outer {
	private int secret = 5;
	public int count = 21;

	void touch() { count = secret + 1; }
}
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[storage]\ndb_path = %q\n", filepath.Join(dir, "db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "src", "p", "Outer.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(outerSource), 0644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Version(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestIndexSearchEval(t *testing.T) {
	cfg := writeConfig(t)
	project := writeProject(t)

	out, err := run(t, "--config", cfg, "index", project)
	require.NoError(t, err)
	assert.Contains(t, out, project)

	out, err = run(t, "--config", cfg, "search", "Outer")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(project, "src", "p", "Outer.java"))
	assert.Contains(t, out, "type_declaration")

	out, err = run(t, "--config", cfg, "search", "--for", "field", "--limit-to", "write_accesses", "count")
	require.NoError(t, err)
	assert.Contains(t, out, "field_reference")

	out, err = run(t, "--config", cfg, "eval", "--type", "p.Outer", "--disassemble", "return count + 1;")
	require.NoError(t, err)
	assert.Contains(t, out, "compiled")
	assert.Contains(t, out, "getfield p/Outer.count:I")
}

func TestEvalCmd_Problems(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "eval", "return missing;")
	require.Error(t, err)
	assert.Contains(t, out, "UNDEFINED_NAME")
}

func TestEvalCmd_FinalLocal(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "eval", "--local", "int:x", "x = 2;")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "eval", "--local", "final int:x", "x = 2;")
	require.Error(t, err)
	assert.Contains(t, out, "INVALID_LEFT_HAND_SIDE")
}

func TestCommands_InvalidFlags(t *testing.T) {
	cfg := writeConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"bad search kind", []string{"search", "--for", "module", "A"}},
		{"bad limit", []string{"search", "--limit-to", "everything", "A"}},
		{"bad rule", []string{"search", "--rule", "fuzzy", "A"}},
		{"bad local", []string{"eval", "--local", "x", "x"}},
		{"bad exclude", []string{"index", "--exclude", "[abc", t.TempDir()}},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.toml"), "search", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.name != "missing config" {
				args = append([]string{"--config", cfg}, args...)
			}
			_, err := run(t, args...)
			assert.Error(t, err)
		})
	}
}
