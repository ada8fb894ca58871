package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReportsWatchedFile(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "sfdx-config.json")
	other := filepath.Join(dir, "alias.json")

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{watched, ""}, func(path string) {
			select {
			case changed <- path:
			default:
			}
		})
	}()

	// The watcher registers asynchronously; keep writing until it reports.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var got string
loop:
	for {
		select {
		case got = <-changed:
			break loop
		case <-ticker.C:
			require.NoError(t, os.WriteFile(other, []byte(`{}`), 0600))
			require.NoError(t, os.WriteFile(watched, []byte(`{"apiVersion": "60.0"}`), 0600))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
	assert.Equal(t, watched, filepath.Clean(got))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	missing := filepath.Join(t.TempDir(), "nope", ".sfdx", "sfdx-config.json")
	err := Watch(ctx, []string{missing}, func(string) { t.Error("unexpected change") })
	assert.NoError(t, err)
}
