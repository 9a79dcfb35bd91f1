package server

import (
	"sync"
	"sync/atomic"

	"github.com/jonathan/churnforge/internal/artifact"
)

// ModelHandle holds the served artifact. Readers get the current artifact
// without locking; loads and reloads are serialized so at most one is in flight.
type ModelHandle struct {
	path    string
	current atomic.Pointer[artifact.Artifact]
	loadMu  sync.Mutex
}

// NewModelHandle returns an empty handle for the artifact at path.
func NewModelHandle(path string) *ModelHandle {
	return &ModelHandle{path: path}
}

// Path is the artifact location.
func (h *ModelHandle) Path() string { return h.path }

// Present reports whether an artifact file exists at Path.
func (h *ModelHandle) Present() bool { return artifact.Exists(h.path) }

// Loaded reports whether an artifact is held in memory.
func (h *ModelHandle) Loaded() bool { return h.current.Load() != nil }

// Get returns the loaded artifact, loading it on first use.
func (h *ModelHandle) Get() (*artifact.Artifact, error) {
	if a := h.current.Load(); a != nil {
		return a, nil
	}
	h.loadMu.Lock()
	defer h.loadMu.Unlock()
	if a := h.current.Load(); a != nil {
		return a, nil
	}
	a, err := artifact.Load(h.path)
	if err != nil {
		return nil, &ErrModelUnavailable{Path: h.path, Cause: err}
	}
	h.current.Store(a)
	return a, nil
}

// Reload reads the artifact again and swaps it in. On failure the previous
// artifact stays in service.
func (h *ModelHandle) Reload() (*artifact.Artifact, error) {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()
	a, err := artifact.Load(h.path)
	if err != nil {
		return nil, &ErrModelUnavailable{Path: h.path, Cause: err}
	}
	h.current.Store(a)
	return a, nil
}
