package process_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture compiles a program from testdata/resilience into a temp binary.
func buildFixture(t *testing.T, dirName string) string {
	t.Helper()

	exeName := dirName
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	destPath := filepath.Join(t.TempDir(), exeName)

	source, err := filepath.Abs(filepath.Join("testdata", "resilience", dirName, "main.go"))
	require.NoError(t, err)

	cmd := exec.Command("go", "build", "-o", destPath, source)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "Failed to build fixture %s: %s", dirName, string(out))

	return destPath
}

func runFixture(t *testing.T, exe string, timeout time.Duration) (time.Duration, error) {
	t.Helper()
	r := process.NewRunner()
	r.Register(process.ToolConfig{Name: "fixture", Command: exe})

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := r.Execute(ctx, "fixture", nil)
	duration := time.Since(start)
	t.Logf("Duration: %v, Error: %v", duration, err)
	return duration, err
}

func TestResilience_GoodCitizen(t *testing.T) {
	duration, err := runFixture(t, buildFixture(t, "good_citizen"), 2*time.Second)

	// Windows has no interrupt for child processes, so it falls back to kill.
	assert.Greater(t, duration, 2*time.Second)
	if runtime.GOOS == "windows" {
		assert.Less(t, duration, 10*time.Second)
	} else {
		assert.Less(t, duration, 5*time.Second, "On Unix, it should exit gracefully quickly after signal")
	}

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestResilience_BadCitizen_Ignore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow test in short mode")
	}
	duration, err := runFixture(t, buildFixture(t, "bad_citizen_ignore"), time.Second)

	assert.Greater(t, duration, process.DefaultGracePeriod, "Should wait for grace period")
	assert.Error(t, err)
}

func TestResilience_BadCitizen_Slow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow test in short mode")
	}
	duration, err := runFixture(t, buildFixture(t, "bad_citizen_slow"), time.Second)

	assert.Greater(t, duration, process.DefaultGracePeriod, "Should wait for at least grace period")
	assert.Error(t, err)
}

func TestResilience_Crashy(t *testing.T) {
	_, err := runFixture(t, buildFixture(t, "crashy"), 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 123")
	assert.Contains(t, err.Error(), "Something went terribly wrong")
}
