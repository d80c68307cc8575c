package e2e

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": "smoke reply"}}],
			"usage": {"total_tokens": 30}
		}`)
	}))
	defer server.Close()

	home := t.TempDir()
	binaryPath := buildBinary(t)

	_, stderr, err := runProm(t, binaryPath, home,
		"account", "create", "--id", "acct-1", "--name", "Primary", "--grant", "1000")
	require.NoError(t, err, "stderr: %s", stderr)

	_, stderr, err = runProm(t, binaryPath, home,
		"backend", "register",
		"--id", "local",
		"--name", "Local",
		"--provider", "self",
		"--model", "llama",
		"--categories", "chat",
		"--secret-ref", "self/local",
		"--base-url", server.URL,
	)
	require.NoError(t, err, "stderr: %s", stderr)

	secretDir := filepath.Join(home, ".prometheus", "secrets", "self")
	require.NoError(t, os.MkdirAll(secretDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(secretDir, "local"), []byte("sk-smoke"), 0o600))

	stdout, stderr, err := runProm(t, binaryPath, home,
		"chat", "--account", "acct-1", "--session", "sess-1", "--message", "hello there")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "smoke reply")

	stdout, stderr, err = runProm(t, binaryPath, home, "tokens", "balance", "--account", "acct-1")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "balance: 970")

	stdout, stderr, err = runProm(t, binaryPath, home, "account", "status", "--account", "acct-1")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Primary (acct-1)")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "prom-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/prom")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build prom binary: %s", string(output))
	return binaryPath
}

func runProm(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
