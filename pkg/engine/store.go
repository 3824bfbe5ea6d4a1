package engine

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// stores bundles the three durable stores a *raft.Raft needs: the log
// store, the stable store (both backed by one bbolt file via
// raft-boltdb, same as the teacher's manager.Bootstrap), and a
// file-backed snapshot store. Each cluster (global or per-resource) gets
// its own subdirectory so their logs never collide.
type stores struct {
	log      raft.LogStore
	stable   raft.StableStore
	snapshot raft.SnapshotStore
	boltPath string
}

// OpenStores opens the durable, boltdb-backed stores for a cluster.
func OpenStores(baseDir, clusterID string, retainSnapshots int) (*stores, error) {
	dir := filepath.Join(baseDir, clusterID)
	boltPath := filepath.Join(dir, "raft.db")
	boltStore, err := raftboltdb.NewBoltStore(boltPath)
	if err != nil {
		return nil, fmt.Errorf("engine: open bolt store for %s: %w", clusterID, err)
	}
	snapStore, err := raft.NewFileSnapshotStore(dir, retainSnapshots, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: open snapshot store for %s: %w", clusterID, err)
	}
	return &stores{log: boltStore, stable: boltStore, snapshot: snapStore, boltPath: boltPath}, nil
}

// inmemStores backs a cluster entirely in memory, used by tests that
// don't want a boltdb file on disk for every resource cluster they spin
// up.
func inmemStores() *stores {
	return &stores{
		log:      raft.NewInmemStore(),
		stable:   raft.NewInmemStore(),
		snapshot: raft.NewInmemSnapshotStore(),
	}
}

// InMemoryStores exposes inmemStores to callers outside the package:
// tests that need a cheap Open(...) without a boltdb file on disk for
// every cluster they spin up, and the coordinator whenever its config
// leaves DataDir empty.
func InMemoryStores() *stores {
	return inmemStores()
}
