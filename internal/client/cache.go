// Package client holds the consumer side of the ordering API: a versioned local
// copy of each parent's child order that is updated optimistically and rolled back
// when the server rejects the change, and a small HTTP client for the reorder calls.
package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Cache keys for the three ordered collections.
func BoardsKey() string                   { return "boards" }
func ColumnsKey(boardID uuid.UUID) string { return "columns:" + boardID.String() }
func TasksKey(columnID uuid.UUID) string  { return "tasks:" + columnID.String() }

// Snapshot is the rollback point taken before an optimistic change.
type Snapshot struct {
	Parent  string
	IDs     []uuid.UUID
	Version uint64

	applied uint64
	next    []uuid.UUID
}

type entry struct {
	ids     []uuid.UUID
	version uint64
	// last order the server confirmed and the version it was applied at
	confirmed   []uuid.UUID
	confirmedAt uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

func (c *Cache) entry(parent string) *entry {
	e, ok := c.entries[parent]
	if !ok {
		e = &entry{}
		c.entries[parent] = e
	}
	return e
}

// Order returns the current local order of parent and its version.
func (c *Cache) Order(parent string) ([]uuid.UUID, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(parent)
	return clone(e.ids), e.version
}

// Confirmed returns the last order acknowledged by the server.
func (c *Cache) Confirmed(parent string) []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.entry(parent).confirmed)
}

func (c *Cache) Snapshot(parent string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(parent)
	return Snapshot{Parent: parent, IDs: clone(e.ids), Version: e.version, applied: e.version, next: clone(e.ids)}
}

// Apply replaces the local order of parent and returns the snapshot to commit or
// roll back once the server answers.
func (c *Cache) Apply(parent string, ids []uuid.UUID) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(parent)
	snap := Snapshot{Parent: parent, IDs: clone(e.ids), Version: e.version}
	e.ids = clone(ids)
	e.version++
	snap.applied = e.version
	snap.next = clone(ids)
	return snap
}

// Commit records the applied order as server-confirmed. A late acknowledgement of a
// change older than the confirmed order is ignored.
func (c *Cache) Commit(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(s.Parent)
	if s.applied <= e.confirmedAt {
		return
	}
	e.confirmed = clone(s.next)
	e.confirmedAt = s.applied
}

// Rollback restores the order captured in s. It does nothing and returns false when a
// later Apply or Replace has already superseded the change.
func (c *Cache) Rollback(s Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(s.Parent)
	if e.version != s.applied {
		return false
	}
	e.ids = clone(s.IDs)
	e.version++
	return true
}

// Replace installs the authoritative order fetched from the server.
func (c *Cache) Replace(parent string, ids []uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(parent)
	e.ids = clone(ids)
	e.confirmed = clone(ids)
	e.version++
	e.confirmedAt = e.version
	return e.version
}

// Mutate applies ids to parent, calls send, then commits or rolls back.
func (c *Cache) Mutate(ctx context.Context, parent string, ids []uuid.UUID, send func(ctx context.Context, ids []uuid.UUID) error) error {
	snap := c.Apply(parent, ids)
	if err := send(ctx, ids); err != nil {
		c.Rollback(snap)
		return err
	}
	c.Commit(snap)
	return nil
}

// MutateMove is Mutate for a child leaving source for dest. Both parents are
// updated together and rolled back together.
func (c *Cache) MutateMove(ctx context.Context, source string, sourceIDs []uuid.UUID, dest string, destIDs []uuid.UUID, send func(ctx context.Context) error) error {
	srcSnap := c.Apply(source, sourceIDs)
	destSnap := c.Apply(dest, destIDs)
	if err := send(ctx); err != nil {
		c.Rollback(destSnap)
		c.Rollback(srcSnap)
		return err
	}
	c.Commit(srcSnap)
	c.Commit(destSnap)
	return nil
}

func clone(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out
}
