package objectstore

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dtcinsights/dtc-insights/internal/domain/history"
)

// MemoryArchive keeps exports in memory for local runs and tests.
type MemoryArchive struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]history.Export
}

func NewMemoryArchive(prefix string) *MemoryArchive {
	return &MemoryArchive{prefix: prefix, objects: make(map[string]history.Export)}
}

func (a *MemoryArchive) Save(_ context.Context, owner string, exp history.Export) (string, error) {
	key := objectKey(a.prefix, owner, exp.Filename)
	a.mu.Lock()
	a.objects[key] = exp
	a.mu.Unlock()
	return key, nil
}

// Get returns a stored export.
func (a *MemoryArchive) Get(key string) (history.Export, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	exp, ok := a.objects[key]
	return exp, ok
}

var _ history.ExportArchive = (*MemoryArchive)(nil)

func objectKey(prefix, owner, filename string) string {
	owner = strings.Trim(strings.NewReplacer("/", "_", "\\", "_").Replace(owner), "._")
	if owner == "" {
		owner = "anonymous"
	}
	return path.Join(strings.Trim(prefix, "/"), owner, uuid.NewString(), path.Base(filename))
}
