// Package collection ties a storage, its mount points, its entity registry
// and a worker pool into one queryable collection.
package collection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/shoal/internal/mountpoint"
	"github.com/llehouerou/shoal/internal/query"
	"github.com/llehouerou/shoal/internal/registry"
	"github.com/llehouerou/shoal/internal/storage"
)

// IDKey is the admin component holding the collection id.
const IDKey = "COLLECTION_ID"

// Options configures Open. Zero values get defaults.
type Options struct {
	// Path of the SQLite database. ":memory:" for a throwaway collection.
	Path string
	// MountPoints are registered as devices on open.
	MountPoints   []string
	Workers       int
	BatchSize     int
	SweepInterval time.Duration
	Logger        *zerolog.Logger
}

// Collection is one local collection and everything needed to query it.
type Collection struct {
	id       string
	store    *storage.SQLite
	mounts   *mountpoint.Manager
	registry *registry.Registry
	pool     *query.Pool
	env      *query.Env
	logger   zerolog.Logger

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open opens the database at opts.Path, registers the configured mount
// points and starts the worker pool and the registry sweep loop.
func Open(ctx context.Context, opts Options) (*Collection, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Workers <= 0 {
		opts.Workers = query.DefaultWorkers
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}

	store, err := storage.Open(ctx, opts.Path)
	if err != nil {
		return nil, err
	}

	id, err := collectionID(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	mounts, err := mountpoint.New(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	for _, mp := range opts.MountPoints {
		if _, err := mounts.Register(ctx, mp); err != nil {
			store.Close()
			return nil, fmt.Errorf("register mount point %s: %w", mp, err)
		}
	}

	logger = logger.With().Str("collection", id).Logger()
	reg := registry.New(id, mounts)
	pool := query.NewPool(opts.Workers)

	c := &Collection{
		id:       id,
		store:    store,
		mounts:   mounts,
		registry: reg,
		pool:     pool,
		logger:   logger,
		stop:     make(chan struct{}),
		env: &query.Env{
			CollectionID: id,
			Storage:      store,
			Paths:        mounts,
			Registry:     reg,
			Pool:         pool,
			Logger:       logger,
			BatchSize:    opts.BatchSize,
		},
	}

	c.wg.Go(func() { c.sweepLoop(opts.SweepInterval) })

	logger.Info().
		Str("path", opts.Path).
		Int("devices", len(mounts.Devices())).
		Int("workers", opts.Workers).
		Msg("collection opened")
	return c, nil
}

// collectionID returns the id stored in the admin table, creating one for
// a new database.
func collectionID(ctx context.Context, store storage.Storage) (string, error) {
	rows, err := store.Query(ctx, "SELECT value FROM "+storage.AdminTable+
		" WHERE component = '"+IDKey+"';")
	if err != nil {
		return "", fmt.Errorf("read collection id: %w", err)
	}
	if len(rows) > 0 && rows[0][0] != "" {
		return rows[0][0], nil
	}

	id := uuid.NewString()
	err = store.Exec(ctx, "INSERT INTO "+storage.AdminTable+
		" (component, value) VALUES ('"+IDKey+"', '"+id+"');")
	if err != nil {
		return "", fmt.Errorf("store collection id: %w", err)
	}
	return id, nil
}

func (c *Collection) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			released := c.registry.Sweep()
			stats := c.registry.Stats()
			c.logger.Debug().
				Int("released", released).
				Int("tracks", stats.Tracks).
				Int("artists", stats.Artists).
				Int("albums", stats.Albums).
				Msg("registry swept")
		}
	}
}

func (c *Collection) ID() string {
	return c.id
}

// Env is the query environment bound to this collection.
func (c *Collection) Env() *query.Env {
	return c.env
}

// NewQueryMaker returns an empty query maker for this collection.
func (c *Collection) NewQueryMaker() *query.QueryMaker {
	return query.New(c.env)
}

func (c *Collection) Mounts() *mountpoint.Manager {
	return c.mounts
}

func (c *Collection) Registry() *registry.Registry {
	return c.registry
}

func (c *Collection) Storage() *storage.SQLite {
	return c.store
}

// Writer returns a writer adding tracks to this collection.
func (c *Collection) Writer() *Writer {
	return &Writer{store: c.store, paths: c.mounts, logger: c.logger}
}

// Close stops the sweep loop, waits for queued queries and closes the
// database.
func (c *Collection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		c.pool.Close()
		err = c.store.Close()
		c.logger.Debug().Msg("collection closed")
	})
	return err
}
