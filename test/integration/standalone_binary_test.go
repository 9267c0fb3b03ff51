package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the CLI into a temp dir and returns its path.
func buildBinary(t *testing.T) string {
	t.Helper()

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot, "go env GOMOD returned empty")

	binaryPath := filepath.Join(t.TempDir(), "stationlink")
	build := exec.Command("go", "build", "-o", binaryPath, "./cmd/stationlink")
	build.Dir = repoRoot
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build:\n%s", out)
	return binaryPath
}

func TestStandaloneBinaryRunsOutsideRepo(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("config paths below follow XDG_CONFIG_HOME")
	}
	if testing.Short() {
		t.Skip("builds the binary")
	}

	binary := buildBinary(t)
	outside := t.TempDir()
	env := append(os.Environ(), "XDG_CONFIG_HOME="+outside, "HOME="+outside)

	run := func(args ...string) string {
		cmd := exec.Command(binary, args...)
		cmd.Dir = outside
		cmd.Env = env
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "%v:\n%s", args, out)
		return string(out)
	}

	assert.True(t, strings.HasPrefix(run("version"), "stationlink "))
	assert.Contains(t, run("--help"), "status")

	configPath := filepath.Join(outside, "stationlink", "config.yaml")
	run("doctor", "init")
	_, err := os.Stat(configPath)
	require.NoError(t, err)
	run("--config", configPath, "doctor", "validate")
}
