// Package saver implements the Saver component of spec.md §4.6: diffs a
// stored or new Object's fields against its RecordCache image, resolves
// save dependency order for un-stored referenced Objects, writes
// dependency-ordered INSERT/UPDATE statements (root table first, so
// child ancestor rows always have a parent row to reference), diffs
// Complex-field entry tables using fractional element-order keys
// (saver/orderkey), pre-checks constraints before touching the
// database, and falls back to per-column recovery when a whole-object
// UPDATE fails partway through.
//
// Grounded on the teacher's dialect/sql Driver/Tx abstraction for
// transaction discipline; the diff/dependency-ordering algorithm itself
// has no teacher analogue (the teacher never saves application data, it
// only builds/executes queries a caller supplies), so it is implemented
// directly from spec.md §4.6/§4.7.
package saver

import (
	"context"
	"fmt"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/idgen"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/valuecodec"
)

// Saver is the process-wide Saver instance owned by one Controller.
type Saver struct {
	reg    *registry.Registry
	mapper family.Mapper
	codec  *valuecodec.Codec
	ids    *idgen.IdGenerator
	cache  *recordcache.RecordCache
	store  *objstore.ObjectStore
}

// New returns a Saver wired to the given components.
func New(reg *registry.Registry, mapper family.Mapper, codec *valuecodec.Codec, ids *idgen.IdGenerator, cache *recordcache.RecordCache, store *objstore.ObjectStore) *Saver {
	return &Saver{reg: reg, mapper: mapper, codec: codec, ids: ids, cache: cache, store: store}
}

// Save persists obj: any not-yet-stored Reference target is saved first
// (recursively, cycle-safe), then obj's own ancestor-chain tables and
// Complex-field entry tables are written in a single transaction. Save
// is idempotent: an obj with no changed columns and no changed Complex
// fields issues no SQL beyond opening and committing its transaction.
func (s *Saver) Save(ctx context.Context, drv dialect.Driver, obj *objstore.Object) error {
	return s.save(ctx, drv, obj, map[*objstore.Object]bool{})
}

func (s *Saver) save(ctx context.Context, drv dialect.Driver, obj *objstore.Object, saving map[*objstore.Object]bool) error {
	if saving[obj] {
		return nil // cycle back-pointer: the INSERT already scheduled will carry a NULL FK, fixed up below.
	}
	saving[obj] = true
	defer delete(saving, obj)

	for _, f := range obj.EntityType.AllFields() {
		if f.Kind != registry.Reference {
			continue
		}
		target, ok := s.store.ReferenceTarget(obj, f.Name)
		if ok && !target.Stored() {
			if err := s.save(ctx, drv, target, saving); err != nil {
				return err
			}
		}
	}

	obj.ClearWarnings()
	for _, et := range obj.EntityType.Chain() {
		if _, err := checkConstraints(s.store, et, obj); err != nil {
			return err
		}
	}

	isNew := !obj.Stored()
	record := s.cache.GetOrCreate(obj.EntityType, obj.ID)

	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("saver: begin tx: %w", err)
	}

	if err := s.writeChain(ctx, tx, obj, record, isNew); err != nil {
		_ = tx.Rollback()
		if isNew {
			return fmt.Errorf("saver: insert %s(id=%d): %w", obj.EntityType.Name, obj.ID, err)
		}
		return s.recoverPartial(ctx, drv, obj, record)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saver: commit: %w", err)
	}

	obj.MarkStored()
	obj.ClearFieldErrors()
	return nil
}

// writeChain writes every ancestor table's changed columns (root first)
// and every Complex field's entry-table diff, all against one
// transaction.
func (s *Saver) writeChain(ctx context.Context, tx dialect.Tx, obj *objstore.Object, record *recordcache.ObjectRecord, isNew bool) error {
	for _, et := range obj.EntityType.Chain() {
		changes, err := diffTable(s.codec, s.store, record, et, obj, isNew)
		if err != nil {
			return err
		}
		if isNew {
			if err := s.insertRow(ctx, tx, et, obj, changes); err != nil {
				return err
			}
		} else if len(changes) > 0 {
			if err := s.updateRow(ctx, tx, et, obj, changes); err != nil {
				return err
			}
		}
		for _, c := range changes {
			record.Set(c.column, c.value)
		}
	}

	for _, f := range obj.EntityType.AllFields() {
		if f.Kind != registry.Complex {
			continue
		}
		if err := s.writeComplexField(ctx, tx, f, obj, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *Saver) insertRow(ctx context.Context, tx dialect.Tx, et *registry.EntityType, obj *objstore.Object, changes []columnChange) error {
	cols := []string{idColumn}
	args := []any{obj.ID}
	if et.Parent == nil {
		cols = append(cols, domainClassColumn, lastModifiedColumn)
		args = append(args, obj.EntityType.Name, nowTransport())
	}
	for _, c := range changes {
		cols = append(cols, c.column)
		args = append(args, c.value)
	}
	query := buildInsert(s.mapper, et.TableName, cols)
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("saver: insert %s: %w", et.TableName, err)
	}
	return nil
}

func (s *Saver) updateRow(ctx context.Context, tx dialect.Tx, et *registry.EntityType, obj *objstore.Object, changes []columnChange) error {
	cols := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, c := range changes {
		cols = append(cols, c.column)
		args = append(args, c.value)
	}
	if et.Parent == nil {
		cols = append(cols, lastModifiedColumn)
		args = append(args, nowTransport())
	}
	args = append(args, obj.ID)
	query := buildUpdate(s.mapper, et.TableName, cols, idColumn)
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("saver: update %s: %w", et.TableName, err)
	}
	return nil
}

func (s *Saver) writeComplexField(ctx context.Context, tx dialect.Tx, f *registry.FieldSpec, obj *objstore.Object, record *recordcache.ObjectRecord) error {
	if unchanged, err := record.ComplexUnchanged(f.Name, currentComplexValue(f, obj)); err == nil && unchanged {
		return nil
	}

	ops, newRows, err := diffComplexField(s.store, record, f, obj)
	if err != nil {
		return err
	}
	mainTable := f.Owner.TableName
	for _, op := range ops {
		if err := s.execEntryOp(ctx, tx, f, mainTable, obj.ID, op); err != nil {
			return fmt.Errorf("saver: %s.%s: %w", f.Owner.Name, f.Name, err)
		}
	}
	record.SetComplexRows(f.Name, newRows)
	if err := record.SetComplexSnapshot(f.Name, currentComplexValue(f, obj)); err != nil {
		return fmt.Errorf("saver: %s.%s: snapshot: %w", f.Owner.Name, f.Name, err)
	}
	return nil
}

func (s *Saver) execEntryOp(ctx context.Context, tx dialect.Tx, f *registry.FieldSpec, mainTable string, mainID uint64, op entryOp) error {
	table := f.EntryTableName
	switch f.Complex.Shape {
	case registry.ShapeSet, registry.ShapeArray:
		switch op.op {
		case "insert":
			return tx.Exec(ctx, buildEntryInsertSet(s.mapper, table, mainTable), []any{mainID, op.value}, nil)
		case "delete":
			return tx.Exec(ctx, buildEntryDeleteSet(s.mapper, table, mainTable), []any{mainID, op.value}, nil)
		}
	case registry.ShapeList:
		switch op.op {
		case "insert":
			return tx.Exec(ctx, buildEntryInsertList(s.mapper, table, mainTable), []any{mainID, op.value, op.orderKey}, nil)
		case "delete":
			return tx.Exec(ctx, buildEntryDeleteList(s.mapper, table, mainTable), []any{mainID, op.orderKey}, nil)
		}
	case registry.ShapeMap:
		switch op.op {
		case "insert":
			return tx.Exec(ctx, buildEntryInsertMap(s.mapper, table, mainTable), []any{mainID, op.key, op.value}, nil)
		case "update":
			return tx.Exec(ctx, buildEntryUpdateMap(s.mapper, table, mainTable), []any{op.value, mainID, op.key}, nil)
		case "delete":
			return tx.Exec(ctx, buildEntryDeleteMap(s.mapper, table, mainTable), []any{mainID, op.key}, nil)
		}
	}
	return fmt.Errorf("unsupported entry op %q for shape %s", op.op, f.Complex.Shape)
}
