package models

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CompletionFunc is the model store contract's download callback:
// it receives nil on success, or the failure reason.
type CompletionFunc func(err error)

// Store implements the model store collaborator: exists(logical_name),
// resolve_path(logical_name), and download(logical_name, callback).
type Store struct {
	modelsDir string

	mu         sync.RWMutex
	downloads  map[string]context.CancelFunc
	onProgress func(id string, fraction float64)
}

// NewStore creates the models directory if needed and returns a Store
// rooted there.
func NewStore(modelsDir string) (*Store, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("models: create models dir: %w", err)
	}
	return &Store{
		modelsDir: modelsDir,
		downloads: make(map[string]context.CancelFunc),
	}, nil
}

// SetProgressCallback installs a callback invoked as downloads progress.
func (s *Store) SetProgressCallback(fn func(id string, fraction float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// path returns logicalName's registry entry and the shared base path its
// three model files (-encoder.onnx, -decoder.onnx, -tokens.txt) live
// under, e.g. ".../tiny.en" for ".../tiny.en-encoder.onnx".
func (s *Store) path(logicalName string) (Info, string, error) {
	info, ok := ByID(logicalName)
	if !ok {
		return Info{}, "", fmt.Errorf("models: unknown model %q", logicalName)
	}
	return info, filepath.Join(s.modelsDir, info.Base), nil
}

// Exists reports whether logicalName's encoder file has already been
// downloaded and passes the minimum-size sanity check. The decoder and
// tokens files are small enough that a truncated encoder is by far the
// most likely partial-download failure mode.
func (s *Store) Exists(logicalName string) bool {
	reg, base, err := s.path(logicalName)
	if err != nil {
		return false
	}
	info, err := os.Stat(base + "-encoder.onnx")
	if err != nil {
		return false
	}
	return info.Size() >= reg.MinBytes
}

// ResolvePath returns the shared base path for logicalName's model
// files, whether or not they currently exist.
func (s *Store) ResolvePath(logicalName string) (string, error) {
	_, base, err := s.path(logicalName)
	if err != nil {
		return "", err
	}
	return base, nil
}

// Download fetches logicalName's encoder/decoder/tokens triple
// asynchronously, invoking onComplete when it finishes (success or
// failure). Calling Download again for a model already downloading
// cancels and restarts the previous attempt.
func (s *Store) Download(logicalName string, onComplete CompletionFunc) error {
	info, base, err := s.path(logicalName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if cancel, ok := s.downloads[logicalName]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.downloads[logicalName] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.downloads, logicalName)
			s.mu.Unlock()
		}()

		files := []struct {
			url, destPath string
			minBytes      int64
			weight        float64
		}{
			{info.EncoderURL(), base + "-encoder.onnx", info.MinBytes, 0.9},
			{info.DecoderURL(), base + "-decoder.onnx", 0, 0.08},
			{info.TokensURL(), base + "-tokens.txt", 0, 0.02},
		}

		var completedWeight float64
		err := error(nil)
		for _, f := range files {
			fileWeight := f.weight
			baseWeight := completedWeight
			ferr := DownloadFile(ctx, f.url, f.destPath, f.minBytes, func(fraction float64) {
				s.mu.RLock()
				cb := s.onProgress
				s.mu.RUnlock()
				if cb != nil {
					cb(logicalName, baseWeight+fraction*fileWeight)
				}
			})
			completedWeight += fileWeight
			if ferr != nil {
				err = ferr
				break
			}
		}
		if err != nil {
			cleanupPartialDownload(base + "-encoder.onnx")
			cleanupPartialDownload(base + "-decoder.onnx")
			cleanupPartialDownload(base + "-tokens.txt")
		}
		if onComplete != nil {
			onComplete(err)
		}
	}()

	return nil
}

// CancelDownload aborts an in-flight download for logicalName, if any.
func (s *Store) CancelDownload(logicalName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.downloads[logicalName]; ok {
		cancel()
		delete(s.downloads, logicalName)
	}
}

// IsDownloading reports whether a download is currently in flight.
func (s *Store) IsDownloading(logicalName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.downloads[logicalName]
	return ok
}

// DeleteModel removes a downloaded model's encoder, decoder, and tokens
// files.
func (s *Store) DeleteModel(logicalName string) error {
	_, base, err := s.path(logicalName)
	if err != nil {
		return err
	}
	for _, suffix := range []string{"-encoder.onnx", "-decoder.onnx", "-tokens.txt"} {
		if err := os.Remove(base + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("models: delete %s: %w", logicalName, err)
		}
	}
	return nil
}
