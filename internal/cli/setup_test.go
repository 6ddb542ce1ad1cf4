package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fmueller/fwtext/internal/whisper"
	"github.com/stretchr/testify/require"
)

func modelFileServer(t *testing.T, missing ...string) (*httptest.Server, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var served []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		for _, m := range missing {
			if m == name {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		}

		mu.Lock()
		served = append(served, name)
		mu.Unlock()
		_, _ = w.Write([]byte("content of " + name))
	}))
	t.Cleanup(server.Close)

	return server, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), served...)
	}
}

func TestSetupDownloadsMissingModelFiles(t *testing.T) {
	t.Parallel()

	server, served := modelFileServer(t)
	modelDir := filepath.Join(t.TempDir(), "faster-whisper-large-v3")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "config.json"), []byte("{}"), 0o644))

	cfg := testConfig("b4.mp4")
	cfg.ModelDir = modelDir
	app := &appState{cfg: cfg, modelBaseURL: server.URL, noProgress: true, downloadRetries: 1}

	stdout, _, err := runAppCommand(t, app, []string{"setup", "--no-progress"})
	require.NoError(t, err)
	require.Contains(t, stdout, "Model installed at "+modelDir)
	require.ElementsMatch(t, []string{"model.bin", "preprocessor_config.json", "tokenizer.json", "vocabulary.json"}, served())

	content, err := os.ReadFile(filepath.Join(modelDir, "model.bin"))
	require.NoError(t, err)
	require.Equal(t, "content of model.bin", string(content))

	resolved, err := whisper.ResolveModelDir(modelDir)
	require.NoError(t, err)
	require.Equal(t, modelDir, resolved)

	stdout, _, err = runAppCommand(t, app, []string{"setup"})
	require.NoError(t, err)
	require.Contains(t, stdout, "Model already present at "+modelDir)
}

func TestSetupToleratesMissingOptionalFile(t *testing.T) {
	t.Parallel()

	server, _ := modelFileServer(t, "preprocessor_config.json")
	cfg := testConfig("b4.mp4")
	cfg.ModelDir = filepath.Join(t.TempDir(), "model")
	app := &appState{cfg: cfg, modelBaseURL: server.URL, noProgress: true, downloadRetries: 1}

	_, _, err := runAppCommand(t, app, []string{"setup"})
	require.NoError(t, err)

	_, err = whisper.ResolveModelDir(cfg.ModelDir)
	require.NoError(t, err)
}

func TestSetupRejectsCorruptedWeights(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("content of model.bin"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "model.bin" {
			w.Header().Set(whisper.ModelChecksumHeader, `"`+hex.EncodeToString(sum[:])+`"`)
			_, _ = w.Write([]byte("truncated weights"))
			return
		}
		_, _ = w.Write([]byte("content of " + name))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig("b4.mp4")
	cfg.ModelDir = filepath.Join(t.TempDir(), "model")
	app := &appState{cfg: cfg, modelBaseURL: server.URL, noProgress: true, downloadRetries: 1}

	_, _, err := runAppCommand(t, app, []string{"setup"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "download model file model.bin")
	require.Contains(t, err.Error(), "checksum mismatch")

	_, err = os.Stat(filepath.Join(cfg.ModelDir, "model.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetupFailsWhenWeightsUnavailable(t *testing.T) {
	t.Parallel()

	server, _ := modelFileServer(t, "model.bin")
	cfg := testConfig("b4.mp4")
	cfg.ModelDir = filepath.Join(t.TempDir(), "model")
	app := &appState{cfg: cfg, modelBaseURL: server.URL, noProgress: true, downloadRetries: 1}

	_, _, err := runAppCommand(t, app, []string{"setup"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "download model file model.bin")
}
