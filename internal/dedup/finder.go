package dedup

import (
	"context"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
)

// Lookup is the minimal slice of storage.Store the Finder needs: looking
// up an exact content-hash match and scanning same-type candidates for a
// near-duplicate. Declaring it here (rather than importing the storage
// package) keeps dedup a leaf package with no dependency on storage.
type Lookup interface {
	FindByContentHash(ctx context.Context, contentHash, userID string) (*memory.Memory, error)
	FindByTypeAndUser(ctx context.Context, memoryType memory.Type, userID string, limit int) ([]*memory.Memory, error)
}

// Finder implements spec §4.2's find_duplicate contract against a Lookup.
type Finder struct {
	lookup    Lookup
	threshold float64
	// candidateScanLimit bounds how many same-type memories are pulled for
	// the near-duplicate Jaccard scan, keeping find_duplicate's cost
	// bounded regardless of store size.
	candidateScanLimit int
}

// NewFinder builds a Finder. threshold<=0 uses DefaultNearDuplicateThreshold.
func NewFinder(lookup Lookup, threshold float64) *Finder {
	if threshold <= 0 {
		threshold = DefaultNearDuplicateThreshold
	}
	return &Finder{lookup: lookup, threshold: threshold, candidateScanLimit: 200}
}

// FindDuplicate implements spec §4.2 rules 1-2: an exact (content_hash,
// user_id) match on a live memory wins outright; otherwise same-type,
// same-user candidates are Jaccard-scored against m's keywords and the
// first one clearing the threshold is returned.
func (f *Finder) FindDuplicate(ctx context.Context, m *memory.Memory) (*memory.Memory, error) {
	exact, err := f.lookup.FindByContentHash(ctx, m.ContentHash, m.UserID)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return exact, nil
	}

	candidates, err := f.lookup.FindByTypeAndUser(ctx, m.MemoryType, m.UserID, f.candidateScanLimit)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.ID == m.ID {
			continue
		}
		if IsNearDuplicate(m.Keywords, c.Keywords, f.threshold) {
			return c, nil
		}
	}
	return nil, nil
}
