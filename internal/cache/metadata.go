package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rpggio/inventory/internal/domain/inventory"
	"github.com/rpggio/inventory/internal/repository"
	"golang.org/x/sync/singleflight"
)

// Default TTLs. Less volatile entities live longer.
const (
	DefaultDatabaseTTL = 5 * time.Minute
	DefaultProjectTTL  = 10 * time.Minute
	DefaultClientTTL   = 15 * time.Minute
)

// Entity kinds, used as metric labels and singleflight key prefixes.
const (
	KindDatabase = "database"
	KindProject  = "project"
	KindClient   = "client"
)

// ProjectDatabaseGetter fetches a project database from the durable store.
type ProjectDatabaseGetter interface {
	GetProjectDatabase(ctx context.Context, id int) (*inventory.ProjectDatabase, error)
}

// ClientProjectGetter fetches a client project from the durable store.
type ClientProjectGetter interface {
	GetClientProject(ctx context.Context, id int) (*inventory.ClientProject, error)
}

// ClientGetter fetches a client from the durable store.
type ClientGetter interface {
	GetClient(ctx context.Context, id int) (*inventory.Client, error)
}

// Option configures a MetadataCache.
type Option func(*MetadataCache)

// WithTTLs overrides the per-kind TTLs. Non-positive values keep the default.
func WithTTLs(database, project, client time.Duration) Option {
	return func(c *MetadataCache) {
		if database > 0 {
			c.databases.ttl = database
		}
		if project > 0 {
			c.projects.ttl = project
		}
		if client > 0 {
			c.clients.ttl = client
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *MetadataCache) {
		c.now = now
	}
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *MetadataCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// MetadataCache is a read-through cache over three independent keyspaces:
// project databases, client projects and clients.
//
// Thread Safety:
//
//	Each keyspace has its own RWMutex. Durable store fetches run outside
//	any lock; concurrent misses on the same key share one fetch, which is
//	not cancelled when a waiting caller gives up. A fetch that started
//	before an invalidation is neither joined nor cached afterwards.
type MetadataCache struct {
	databases *keyspace[inventory.ProjectDatabase]
	projects  *keyspace[inventory.ClientProject]
	clients   *keyspace[inventory.Client]

	flight singleflight.Group
	now    func() time.Time
	logger *slog.Logger
}

// NewMetadataCache creates an empty cache with the default TTLs.
func NewMetadataCache(opts ...Option) *MetadataCache {
	c := &MetadataCache{
		databases: newKeyspace[inventory.ProjectDatabase](KindDatabase, DefaultDatabaseTTL),
		projects:  newKeyspace[inventory.ClientProject](KindProject, DefaultProjectTTL),
		clients:   newKeyspace[inventory.Client](KindClient, DefaultClientTTL),
		now:       time.Now,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProjectDatabase returns the project database with the given id, fetching
// it from src when absent or expired. Fetch errors are returned unchanged and
// are never cached.
func (c *MetadataCache) GetProjectDatabase(ctx context.Context, src ProjectDatabaseGetter, id int) (*inventory.ProjectDatabase, error) {
	return get(ctx, c, c.databases, id, src.GetProjectDatabase)
}

// GetClientProject returns the client project with the given id.
func (c *MetadataCache) GetClientProject(ctx context.Context, src ClientProjectGetter, id int) (*inventory.ClientProject, error) {
	return get(ctx, c, c.projects, id, src.GetClientProject)
}

// GetClient returns the client with the given id.
func (c *MetadataCache) GetClient(ctx context.Context, src ClientGetter, id int) (*inventory.Client, error) {
	return get(ctx, c, c.clients, id, src.GetClient)
}

// InvalidateProjectDatabase drops one project database entry.
func (c *MetadataCache) InvalidateProjectDatabase(id int) { c.databases.delete(id) }

// InvalidateClientProject drops one client project entry.
func (c *MetadataCache) InvalidateClientProject(id int) { c.projects.delete(id) }

// InvalidateClient drops one client entry.
func (c *MetadataCache) InvalidateClient(id int) { c.clients.delete(id) }

// Clear drops every entry in all three keyspaces.
func (c *MetadataCache) Clear() {
	c.databases.clear()
	c.projects.clear()
	c.clients.clear()
}

// KeyspaceStats reports counters for one entity kind.
type KeyspaceStats struct {
	Kind        string        `json:"kind"`
	TTL         time.Duration `json:"ttl"`
	Entries     int           `json:"entries"`
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	FetchErrors int64         `json:"fetch_errors"`
}

// Stats returns per-keyspace counters in database, project, client order.
func (c *MetadataCache) Stats() []KeyspaceStats {
	return []KeyspaceStats{
		c.databases.stats(),
		c.projects.stats(),
		c.clients.stats(),
	}
}

func get[T any](ctx context.Context, c *MetadataCache, ks *keyspace[T], id int, fetch func(context.Context, int) (*T, error)) (*T, error) {
	v, gen, ok := ks.lookup(id, c.now())
	if ok {
		ks.hits.Add(1)
		metadataLookups.WithLabelValues(ks.kind, "hit").Inc()
		return v, nil
	}
	ks.misses.Add(1)
	metadataLookups.WithLabelValues(ks.kind, "miss").Inc()

	// The generation is part of the key: a read after an invalidation never
	// joins a fetch that started before it.
	key := ks.kind + ":" + strconv.Itoa(id) + "@" + gen.String()

	// The shared fetch must outlive the caller that started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		v, err := fetch(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, repository.ErrNotFound
		}
		ks.store(id, v, gen, c.now())
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			ks.fetchErrors.Add(1)
			metadataFetchErrors.WithLabelValues(ks.kind).Inc()
			c.logger.Debug("metadata fetch failed", "kind", ks.kind, "id", id, "error", res.Err)
			return nil, res.Err
		}
		return clone(res.Val.(*T)), nil
	}
}

type entry[T any] struct {
	value     *T
	expiresAt time.Time
}

// generation identifies the state of one key. It changes whenever the key is
// invalidated or its keyspace cleared.
type generation struct {
	epoch uint64
	id    uint64
}

func (g generation) String() string {
	return strconv.FormatUint(g.epoch, 10) + "." + strconv.FormatUint(g.id, 10)
}

type keyspace[T any] struct {
	kind string
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[int]entry[T]
	epoch   uint64
	gens    map[int]uint64

	hits        atomic.Int64
	misses      atomic.Int64
	fetchErrors atomic.Int64
}

func newKeyspace[T any](kind string, ttl time.Duration) *keyspace[T] {
	return &keyspace[T]{
		kind:    kind,
		ttl:     ttl,
		entries: make(map[int]entry[T]),
		gens:    make(map[int]uint64),
	}
}

// lookup returns a copy of a live entry, or the key's current generation on
// a miss. Entries are live while now < expiresAt.
func (k *keyspace[T]) lookup(id int, now time.Time) (*T, generation, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	gen := generation{epoch: k.epoch, id: k.gens[id]}
	e, ok := k.entries[id]
	if !ok || !now.Before(e.expiresAt) {
		return nil, gen, false
	}
	return clone(e.value), gen, true
}

// store caches v unless the key was invalidated since gen was read.
func (k *keyspace[T]) store(id int, v *T, gen generation, now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if gen.epoch != k.epoch || gen.id != k.gens[id] {
		return
	}
	k.entries[id] = entry[T]{value: clone(v), expiresAt: now.Add(k.ttl)}
}

func (k *keyspace[T]) delete(id int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, id)
	k.gens[id]++
}

func (k *keyspace[T]) clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = make(map[int]entry[T])
	k.gens = make(map[int]uint64)
	k.epoch++
}

func (k *keyspace[T]) stats() KeyspaceStats {
	k.mu.RLock()
	n := len(k.entries)
	k.mu.RUnlock()
	return KeyspaceStats{
		Kind:        k.kind,
		TTL:         k.ttl,
		Entries:     n,
		Hits:        k.hits.Load(),
		Misses:      k.misses.Load(),
		FetchErrors: k.fetchErrors.Load(),
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}
