package query

import (
	"github.com/rs/zerolog"

	"github.com/llehouerou/shoal/internal/registry"
	"github.com/llehouerou/shoal/internal/storage"
)

// DefaultBatchSize is the number of rows materialized per delivered batch.
const DefaultBatchSize = 500

// PathResolver maps file paths onto stored locations and tells which
// locations are currently available.
type PathResolver interface {
	IDForURL(path string) int
	RelativePath(deviceID int, path string) string
	MountedDeviceIDs() []int
}

// Env is everything a query needs from the collection it runs against.
type Env struct {
	CollectionID string
	Storage      storage.Storage
	// Paths scopes queries to mounted devices. Optional.
	Paths    PathResolver
	Registry *registry.Registry
	// Pool runs asynchronous queries. Without a pool each run gets its own goroutine.
	Pool      *Pool
	Logger    zerolog.Logger
	BatchSize int
}

func (e *Env) batchSize() int {
	if e.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return e.BatchSize
}
