// Package cache holds the consumer-side memoization layer for roster +
// analytics bundles. It is in-process and single-consumer: correctness comes
// from caller-driven invalidation after mutations, not TTLs.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/attendance-api/internal/dto"
)

// Fetcher loads a fresh bundle for a (section, subject) key.
type Fetcher func(ctx context.Context, sectionID uint, subjectID *uint) (dto.RosterBundle, error)

type key struct {
	sectionID uint
	subjectID uint // 0 when the session has no subject
}

func (k key) String() string {
	return fmt.Sprintf("%d:%d", k.sectionID, k.subjectID)
}

// RosterCache memoizes roster bundles per (section, subject) and collapses
// concurrent fetches for an unresolved key into a single underlying call.
// A failed fetch leaves no entry behind, so the next Get retries cleanly.
// Each key carries a generation counter bumped on invalidation; a fetch only
// memoizes its result if the key's generation is unchanged, so an Invalidate
// racing an in-flight fetch never loses to a pre-invalidation payload.
type RosterCache struct {
	mu      sync.Mutex
	entries map[key]dto.RosterBundle
	gens    map[key]uint64
	group   singleflight.Group
	fetch   Fetcher
	logger  zerolog.Logger
}

// NewRosterCache constructs the cache around the given fetcher.
func NewRosterCache(fetch Fetcher, logger zerolog.Logger) *RosterCache {
	return &RosterCache{
		entries: make(map[key]dto.RosterBundle),
		gens:    make(map[key]uint64),
		fetch:   fetch,
		logger:  logger.With().Str("component", "roster_cache").Logger(),
	}
}

// Get returns the memoized bundle for the key, or performs exactly one fetch
// and memoizes the result. Concurrent callers for the same unresolved key
// share the in-flight fetch instead of issuing their own.
func (c *RosterCache) Get(ctx context.Context, sectionID uint, subjectID *uint) (dto.RosterBundle, error) {
	k := makeKey(sectionID, subjectID)

	c.mu.Lock()
	if bundle, ok := c.entries[k]; ok {
		c.mu.Unlock()
		return bundle, nil
	}
	if _, ok := c.gens[k]; !ok {
		// Section-wide invalidation must reach in-flight keys too.
		c.gens[k] = 0
	}
	c.mu.Unlock()

	result := c.group.DoChan(k.String(), func() (interface{}, error) {
		c.mu.Lock()
		gen := c.gens[k]
		c.mu.Unlock()

		bundle, err := c.fetch(ctx, sectionID, subjectID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[k] == gen {
			c.entries[k] = bundle
		}
		c.mu.Unlock()

		return bundle, nil
	})

	select {
	case <-ctx.Done():
		// The caller went away; forget the in-flight call so a later Get
		// starts clean. The server saw at most one read, never a write.
		c.group.Forget(k.String())
		return dto.RosterBundle{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return dto.RosterBundle{}, res.Err
		}
		return res.Val.(dto.RosterBundle), nil
	}
}

// Invalidate drops the memoized entry for (section, subject), or every entry
// for the section when subjectID is nil. The drop is immediately visible to
// subsequent Get calls.
func (c *RosterCache) Invalidate(sectionID uint, subjectID *uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if subjectID != nil {
		k := makeKey(sectionID, subjectID)
		delete(c.entries, k)
		c.gens[k]++
		return
	}

	for k := range c.gens {
		if k.sectionID == sectionID {
			delete(c.entries, k)
			c.gens[k]++
		}
	}
}

// InvalidateAll empties the cache.
func (c *RosterCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[key]dto.RosterBundle)
	for k := range c.gens {
		c.gens[k]++
	}
}

// Len reports the number of memoized entries.
func (c *RosterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func makeKey(sectionID uint, subjectID *uint) key {
	k := key{sectionID: sectionID}
	if subjectID != nil {
		k.subjectID = *subjectID
	}
	return k
}
