package cache

import (
	"os"
	"sync"
	"time"
)

// ModificationTracker remembers the last observed modification time of each
// database file so unchanged files can be skipped between scans.
//
// Thread Safety:
//
//	Safe for concurrent use. Two callers racing on the same changed path may
//	both see true; re-scanning twice is harmless.
type ModificationTracker struct {
	mu           sync.RWMutex
	lastModified map[string]time.Time
}

// NewModificationTracker creates an empty tracker.
func NewModificationTracker() *ModificationTracker {
	return &ModificationTracker{
		lastModified: make(map[string]time.Time),
	}
}

// ShouldScan stats path and reports whether it changed since the last call.
//
// A path that cannot be stat'ed always needs scanning and leaves state alone.
// The first sighting of a path records its modification time and returns true.
// Afterwards true is returned only when the modification time strictly
// advances, and the new time is recorded.
func (t *ModificationTracker) ShouldScan(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		trackerChecks.WithLabelValues("stat_error").Inc()
		return true
	}
	modTime := info.ModTime()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.lastModified[path]
	if !ok || modTime.After(prev) {
		t.lastModified[path] = modTime
		trackerChecks.WithLabelValues("changed").Inc()
		return true
	}
	trackerChecks.WithLabelValues("unchanged").Inc()
	return false
}

// GetLastModified returns the recorded modification time for path.
func (t *ModificationTracker) GetLastModified(path string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mt, ok := t.lastModified[path]
	return mt, ok
}

// UpdateLastModified records modTime for path without touching the file system.
func (t *ModificationTracker) UpdateLastModified(path string, modTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastModified[path] = modTime
}

// Len returns the number of tracked paths.
func (t *ModificationTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lastModified)
}
