// Package idgen implements the IdGenerator component of spec.md §4.6's
// `create` path and §9: "produces unique monotonic ids for newly created
// objects." Ids are process-local and monotonic per EntityType, seeded
// from the current MAX(ID) of that type's table at bind time — the
// teacher's dialect/sql package targets backends (SQLite, MySQL) that
// lack a sequence-free RETURNING id, so the core generates ids itself
// rather than relying on an autoincrement round-trip.
package idgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	sqldialect "github.com/syssam/persistcore/dialect/sql"
	"github.com/syssam/persistcore/registry"
)

// IdGenerator hands out unique, monotonically increasing ids, one atomic
// counter per root EntityType (ids are scoped to a whole ancestor chain,
// since the "ID" primary key is shared by every table in the chain).
type IdGenerator struct {
	mu       sync.Mutex
	counters map[*registry.EntityType]*atomic.Uint64
}

// New returns an IdGenerator with no seeded counters; SeedFromDatabase (or
// Seed, for tests) should be called per root EntityType before Next is
// used; the Controller does this once in Open.
func New() *IdGenerator {
	return &IdGenerator{counters: map[*registry.EntityType]*atomic.Uint64{}}
}

// Seed initializes (or raises) the counter for et's root ancestor so the
// next Next(et) returns at least max+1.
func (g *IdGenerator) Seed(et *registry.EntityType, max uint64) {
	root := et.Chain()[0]
	c := g.counterFor(root)
	for {
		cur := c.Load()
		if cur >= max {
			return
		}
		if c.CompareAndSwap(cur, max) {
			return
		}
	}
}

func (g *IdGenerator) counterFor(root *registry.EntityType) *atomic.Uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.counters[root]
	if !ok {
		c = &atomic.Uint64{}
		g.counters[root] = c
	}
	return c
}

// Quoter is the narrow identifier-quoting surface SeedFromDatabase needs
// from a dialect/family.Mapper.
type Quoter interface {
	Quote(ident string) string
}

// SeedFromDatabase queries MAX(ID) for et's root table (ids are shared
// across the whole ancestor chain) and seeds the counter accordingly.
func SeedFromDatabase(ctx context.Context, g *IdGenerator, conn sqldialect.ExecQuerier, et *registry.EntityType, q Quoter) error {
	root := et.Chain()[0]
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", q.Quote("ID"), q.Quote(root.TableName))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("idgen: seed %s: %w", et.Name, err)
	}
	defer rows.Close()
	var max *uint64
	if rows.Next() {
		if err := rows.Scan(&max); err != nil {
			return fmt.Errorf("idgen: seed %s: scan: %w", et.Name, err)
		}
	}
	if max != nil {
		g.Seed(et, *max)
	}
	return nil
}

// Next returns the next unique id for et.
func (g *IdGenerator) Next(et *registry.EntityType) uint64 {
	root := et.Chain()[0]
	return g.counterFor(root).Add(1)
}
