package asr

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Manager owns the single ASR context slot the worker borrows from: one
// owner (this Manager, held by the filter), one borrower (the worker, via
// Infer). Reload and Discard both null the active engine before closing
// it, and Infer holds the context mutex for the full duration of the
// underlying engine call rather than just the pointer read — matching the
// lock-guard-around-the-inference-call discipline, so a reload can never
// free an engine a worker is still mid-call on.
type Manager struct {
	mu          sync.Mutex
	constructor Constructor
	active      Engine
	modelPath   string
	params      Params
	logger      *log.Logger
}

// NewManager creates a Manager with no active engine. Reload must be
// called before Infer will succeed.
func NewManager(constructor Constructor, logger *log.Logger) *Manager {
	return &Manager{constructor: constructor, logger: logger, params: DefaultParams()}
}

// SetParams updates the stored inference parameters under the same mutex
// that guards the context pointer.
func (m *Manager) SetParams(p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}

// CurrentParams returns the parameters last stored by SetParams. Infer
// uses only the Params it is passed; the worker passes this value to pick
// up settings changes made via Update().
func (m *Manager) CurrentParams() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Reload swaps in a new engine for modelPath. If modelPath already
// matches the active model, Reload is a no-op: it only tears down and
// rebuilds the engine when the model path actually changes.
func (m *Manager) Reload(modelPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if modelPath == m.modelPath && m.active != nil {
		return nil
	}

	newEngine, err := m.constructor(modelPath)
	if err != nil {
		return fmt.Errorf("asr: construct engine for %s: %w", modelPath, err)
	}

	old := m.active
	m.active = nil
	m.modelPath = ""
	if old != nil {
		if cerr := old.Close(); cerr != nil && m.logger != nil {
			m.logger.Printf("asr: error closing previous engine: %v", cerr)
		}
	}

	m.active = newEngine
	m.modelPath = modelPath
	return nil
}

// Discard nulls the active engine and closes it, mirroring the inference-
// failure path: free and null the ASR context. The worker observes a nil
// engine at its next Active() check and exits.
func (m *Manager) Discard() {
	m.mu.Lock()
	old := m.active
	m.active = nil
	m.modelPath = ""
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil && m.logger != nil {
			m.logger.Printf("asr: error closing discarded engine: %v", err)
		}
	}
}

// Active reports whether a context is currently loaded.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// ModelPath returns the currently loaded model's path, or "" if none.
func (m *Manager) ModelPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelPath
}

// Infer forwards to the active engine, holding the context mutex for the
// entire call so a concurrent Reload or Discard cannot free the engine out
// from under an in-flight inference. On engine failure it discards the
// context itself before returning.
func (m *Manager) Infer(ctx context.Context, params Params, mono []float32) (Result, error) {
	m.mu.Lock()
	engine := m.active
	if engine == nil {
		m.mu.Unlock()
		return Result{}, fmt.Errorf("asr: no active engine")
	}

	result, err := engine.Infer(ctx, params, mono)
	if err != nil {
		m.active = nil
		m.modelPath = ""
		m.mu.Unlock()
		if cerr := engine.Close(); cerr != nil && m.logger != nil {
			m.logger.Printf("asr: error closing discarded engine: %v", cerr)
		}
		return Result{}, err
	}
	m.mu.Unlock()
	return result, nil
}

// Close tears down the active engine, if any.
func (m *Manager) Close() error {
	m.Discard()
	return nil
}
