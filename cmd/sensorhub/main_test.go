package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
)

type cliEnv struct {
	t     *testing.T
	store string
	out   *bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	dir := t.TempDir()
	env := &cliEnv{t: t, store: filepath.Join(dir, "channels.yaml"), out: &bytes.Buffer{}}
	console.SetOutput(env.out, env.out)
	t.Cleanup(func() { console.SetOutput(os.Stdout, os.Stderr) })
	return env
}

// run executes the cli against a temporary store on simulated hardware.
func (e *cliEnv) run(args ...string) int {
	e.out.Reset()
	app := newApp()
	app.Writer = e.out
	app.ErrWriter = e.out
	app.ExitErrHandler = func(*cli.Context, error) {}
	base := []string{"sensorhub",
		"--config", filepath.Join(filepath.Dir(e.store), "missing.yaml"),
		"--store", e.store,
		"--platform", "simulated",
	}
	return run(app, append(base, args...))
}

func (e *cliEnv) listYAML() map[string]any {
	require.Equal(e.t, 0, e.run("channels", "list", "-o", "yaml"))
	var doc map[string]any
	require.NoError(e.t, yaml.Unmarshal(e.out.Bytes(), &doc))
	return doc
}

func TestCLI_FirstRunCreatesDefaults(t *testing.T) {
	env := newCLIEnv(t)
	require.Equal(t, 0, env.run("channels", "list"))
	assert.Contains(t, env.out.String(), "creating new configuration")
	assert.Contains(t, env.out.String(), "5 of 5 channels active")

	doc := env.listYAML()
	assert.Equal(t, 5, doc["active"])
	_, err := os.Stat(env.store)
	assert.NoError(t, err)
}

func TestCLI_ChannelLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, 0, env.run("channels", "add-i2c", "-c", "10", "-a", "0x3C"))
	assert.Equal(t, 0, env.run("channels", "add-spi", "-c", "20", "--cs", "14"))
	assert.Equal(t, console.ExitUsage, env.run("channels", "add-i2c", "-c", "10", "-a", "0x3D"))
	assert.Equal(t, console.ExitUsage, env.run("channels", "add-spi", "-c", "5", "--cs", "14"))
	assert.Equal(t, 0, env.run("channels", "update", "-c", "2", "-m", "DIGITAL"))
	assert.Equal(t, console.ExitUsage, env.run("channels", "update", "-c", "10", "-m", "DIGITAL"))
	assert.Equal(t, 0, env.run("channels", "disable", "4"))
	assert.Equal(t, console.ExitNotFound, env.run("channels", "enable", "99"))
	assert.Equal(t, 0, env.run("channels", "remove", "--yes", "20"))
	assert.Equal(t, console.ExitUsage, env.run("channels", "remove", "--yes", "1"))
	assert.Equal(t, 0, env.run("channels", "disable-mode", "ANALOG"))

	doc := env.listYAML()
	// 1, 2 (digital) and 3 stay active, 4 and 5 are off, 10 is active
	assert.Equal(t, 4, doc["active"])
	assert.Len(t, doc["channels"], 6)
}

func TestCLI_Read(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, 0, env.run("read", "3"))
	assert.Contains(t, env.out.String(), "344")

	assert.Equal(t, 0, env.run("channels", "disable", "3"))
	assert.Equal(t, console.ExitFailure, env.run("read", "3"))
	assert.Equal(t, 0, env.run("read", "--sentinel", "3"))
	assert.Contains(t, env.out.String(), "-1")
	assert.Equal(t, console.ExitNotFound, env.run("read", "42"))

	assert.Equal(t, 0, env.run("read", "--all"))
	assert.Contains(t, env.out.String(), "ANALOG")
	assert.NotContains(t, env.out.String(), "ONEWIRE")
}

func TestCLI_CorruptStore(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.store, []byte("version: 1\nfixed: [{channel: 1, mode: BOGUS}]\n"), 0o644))

	assert.Equal(t, console.ExitCorrupt, env.run("channels", "list"))
	assert.Equal(t, 0, env.run("channels", "reset", "--yes"))
	assert.Equal(t, 5, env.listYAML()["active"])
}

func TestCLI_ResetKeepsBusIDsUnique(t *testing.T) {
	env := newCLIEnv(t)
	require.Equal(t, 0, env.run("channels", "add-i2c", "-c", "10", "-a", "0x3C"))
	assert.Contains(t, env.out.String(), "(id 1)")
	require.Equal(t, 0, env.run("channels", "add-spi", "-c", "20", "--cs", "14"))
	assert.Contains(t, env.out.String(), "(id 2)")

	require.Equal(t, 0, env.run("channels", "reset", "--yes"))
	require.Equal(t, 0, env.run("channels", "add-i2c", "-c", "10", "-a", "0x3C"))
	assert.Contains(t, env.out.String(), "(id 3)")

	raw, err := os.ReadFile(env.store)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "last_id: 3")
}

func TestCLI_ScanUnsupported(t *testing.T) {
	env := newCLIEnv(t)
	assert.Equal(t, console.ExitUnavailable, env.run("scan"))
}
