// Package deleter implements the Deleter component of spec.md §4.9:
// reachability-checked cascaded deletion of an Object and the direct and
// indirect children that reference it through Accumulation-declared
// references, with a per-Object veto hook,
// single-transaction execution, and rollback-with-re-registration on any
// SQL failure.
//
// Grounded on the teacher's dialect/sql Driver/Tx transaction discipline
// (the same drv.Tx(ctx)/Commit/Rollback pattern the Saver uses); the
// reachability walk itself has no teacher analogue and is implemented
// directly from spec.md §4.9 over objstore's reference/accumulation
// index.
package deleter

import (
	"context"
	"fmt"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/internal/ident"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
)

// Vetoer is the per-Object hook spec.md §4.9 calls `can_be_deleted()`: an
// application type may implement it to veto a pending delete. Types that
// don't implement Vetoer are always deletable.
type Vetoer interface {
	CanBeDeleted() bool
}

// VetoError is returned when a collected Object's CanBeDeleted hook
// vetoes the delete; the whole operation aborts with no database
// mutation.
type VetoError struct {
	TypeName string
	ID       uint64
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("deleter: %s(id=%d) vetoed deletion", e.TypeName, e.ID)
}

// Deleter is the process-wide Deleter instance owned by one Controller.
type Deleter struct {
	reg    *registry.Registry
	mapper family.Mapper
	store  *objstore.ObjectStore
	cache  *recordcache.RecordCache
}

// New returns a Deleter wired to the given components.
func New(reg *registry.Registry, mapper family.Mapper, store *objstore.ObjectStore, cache *recordcache.RecordCache) *Deleter {
	return &Deleter{reg: reg, mapper: mapper, store: store, cache: cache}
}

// Delete implements spec.md §4.9's delete(obj): it recursively collects
// obj and its direct and indirect referrers (those reachable through
// Accumulation fields, see collectReachable), runs every collected
// Object's CanBeDeleted veto hook before touching the database, then
// deletes every collected Object's ancestor-chain rows, referrers first,
// in a single transaction and unregisters them from the ObjectStore and RecordCache.
// On any SQL failure it rolls back and re-registers everything it had
// unregistered, re-raising the error.
func (d *Deleter) Delete(ctx context.Context, drv dialect.Driver, obj *objstore.Object) error {
	collected := d.collectReachable(obj)

	for _, o := range collected {
		if v, ok := o.Interface().(Vetoer); ok && !v.CanBeDeleted() {
			return &VetoError{TypeName: o.EntityType.Name, ID: o.ID}
		}
	}

	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("deleter: begin tx: %w", err)
	}

	// Null out every Reference FK column that points from one collected
	// Object to another collected Object whose rows are deleted no later
	// than its own, in whichever chain table holds it. This breaks
	// reference cycles among the collected set up front (spec.md §8
	// scenario 5: c1->c2->c3->c1), so the per-object DELETEs below never
	// hit a foreign key still pointing at a row about to be removed,
	// regardless of whether this family allows ON DELETE CASCADE within a
	// cycle (dialect/family.Mapper.AllowsCascadeInCycle).
	if err := d.breakCycles(ctx, tx, collected); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("deleter: %w", err)
	}

	// Delete in reverse collection order, so every referrer's rows go
	// before the rows of the Object it references.
	for i := len(collected) - 1; i >= 0; i-- {
		o := collected[i]
		if !o.Stored() {
			continue
		}
		if err := d.deleteChain(ctx, tx, o); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("deleter: delete %s(id=%d): %w", o.EntityType.Name, o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		d.reregister(collected)
		return fmt.Errorf("deleter: commit: %w", err)
	}

	for _, o := range collected {
		d.store.Unregister(o)
		d.cache.Delete(o.EntityType, o.ID)
	}
	return nil
}

// collectReachable walks obj's accumulation (inverse-reference) index to
// find the registered Objects that transitively reference obj — obj's
// direct and indirect children, per spec.md §4.9's "recursively collect".
// obj itself is always the first element. Only references that an
// Accumulation field declares the inverse of are followed; a referrer
// whose Reference field has no matching Accumulation field on its target
// type is not collected.
func (d *Deleter) collectReachable(obj *objstore.Object) []*objstore.Object {
	seen := map[*objstore.Object]bool{obj: true}
	order := []*objstore.Object{obj}
	queue := []*objstore.Object{obj}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, f := range cur.EntityType.AllFields() {
			if f.Kind != registry.Accumulation {
				continue
			}
			for _, child := range d.store.Accumulation(cur, f.Name) {
				if seen[child] {
					continue
				}
				seen[child] = true
				order = append(order, child)
				queue = append(queue, child)
			}
		}
	}
	return order
}

// breakCycles nulls, for every Reference field on every collected
// Object, the column backing that field whenever its current target is
// also in the collected set and is deleted before the referrer (it comes
// later in collected, which Delete walks in reverse) or is the referrer
// itself.
func (d *Deleter) breakCycles(ctx context.Context, tx dialect.Tx, collected []*objstore.Object) error {
	idx := map[*objstore.Object]int{}
	for i, o := range collected {
		idx[o] = i
	}
	for _, o := range collected {
		if !o.Stored() {
			continue
		}
		for _, f := range o.EntityType.AllFields() {
			if f.Kind != registry.Reference {
				continue
			}
			target, ok := d.store.ReferenceTarget(o, f.Name)
			pos, in := idx[target]
			if !ok || !in || pos < idx[o] {
				continue
			}
			col := ident.ReferenceColumnName(f.Name)
			query := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = ?", d.mapper.Quote(f.Owner.TableName), d.mapper.Quote(col), d.mapper.Quote(ident.ColumnID))
			if err := tx.Exec(ctx, query, []any{o.ID}, nil); err != nil {
				return fmt.Errorf("break cycle on %s.%s: %w", f.Owner.Name, f.Name, err)
			}
		}
	}
	return nil
}

// deleteChain deletes o's own row from every table in its ancestor
// chain, leaf-first (children tables of the single-inheritance chain
// must lose their row before the root, since the child table's own
// primary key is also an FK to its parent table).
func (d *Deleter) deleteChain(ctx context.Context, tx dialect.Tx, o *objstore.Object) error {
	chain := o.EntityType.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		et := chain[i]
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.mapper.Quote(et.TableName), d.mapper.Quote(ident.ColumnID))
		if err := tx.Exec(ctx, query, []any{o.ID}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deleter) reregister(collected []*objstore.Object) {
	for _, o := range collected {
		d.store.Register(o)
	}
}
