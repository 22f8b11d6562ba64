package scanner

import (
	"context"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rpggio/inventory/internal/sqlite"
)

// countFunc counts the records of one database file.
type countFunc func(ctx context.Context, path string) (sqlite.RecordCounts, error)

type countEntry struct {
	size    int64
	modTime time.Time
	counts  sqlite.RecordCounts
}

// countCache remembers record counts per file and reuses them while the file
// keeps the same size and modification time.
type countCache struct {
	entries *lru.Cache[string, countEntry]
	count   countFunc
}

// newCountCache returns a cache holding up to size files. A size of zero
// disables caching and every call counts the file.
func newCountCache(size int, count countFunc) (*countCache, error) {
	c := &countCache{count: count}
	if size <= 0 {
		return c, nil
	}
	entries, err := lru.New[string, countEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create count cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

func (c *countCache) get(ctx context.Context, path string) (sqlite.RecordCounts, error) {
	if c.entries == nil {
		return c.count(ctx, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		return c.count(ctx, path)
	}

	if e, ok := c.entries.Get(path); ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		countCacheLookups.WithLabelValues("hit").Inc()
		return e.counts, nil
	}
	countCacheLookups.WithLabelValues("miss").Inc()

	counts, err := c.count(ctx, path)
	if err != nil {
		c.entries.Remove(path)
		return counts, err
	}
	c.entries.Add(path, countEntry{size: info.Size(), modTime: info.ModTime(), counts: counts})
	return counts, nil
}

func (c *countCache) len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}
