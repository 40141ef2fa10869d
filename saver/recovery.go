package saver

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/valuecodec"
)

// recoverPartial implements spec.md §4.6's post-failure behavior: when
// the whole-object UPDATE transaction failed, retry one column at a
// time, each in its own transaction, so fields that can be updated are.
// A column whose UPDATE still fails gets a persistent field error and
// its live value is restored to the last-known-good one so the Object
// stays consistent with the database; a column that does succeed clears
// any previously recorded error for it.
func (s *Saver) recoverPartial(ctx context.Context, drv dialect.Driver, obj *objstore.Object, record *recordcache.ObjectRecord) error {
	var firstErr error
	for _, et := range obj.EntityType.Chain() {
		changes, err := diffTable(s.codec, s.store, record, et, obj, false)
		if err != nil {
			firstErr = err
			continue
		}
		for _, c := range changes {
			if err := s.recoverColumn(ctx, drv, et, obj, record, c); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("saver: partial recovery for %s(id=%d): %w", obj.EntityType.Name, obj.ID, firstErr)
	}
	return nil
}

func (s *Saver) recoverColumn(ctx context.Context, drv dialect.Driver, et *registry.EntityType, obj *objstore.Object, record *recordcache.ObjectRecord, c columnChange) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	if err := s.updateRow(ctx, tx, et, obj, []columnChange{c}); err != nil {
		_ = tx.Rollback()
		obj.SetFieldError(c.field.Name, err)
		if prev, ok := record.Get(c.column); ok {
			restoreDataField(s.codec, c.field, obj, prev)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		obj.SetFieldError(c.field.Name, err)
		return err
	}
	record.Set(c.column, c.value)
	obj.SetFieldError(c.field.Name, nil)
	return nil
}

// restoreDataField resets a Data-kind field's live value back to the
// transport value last known to be in the database, undoing whatever
// change the caller had applied before the failed save. Reference
// fields are left untouched: their live value is a pointer into the
// ObjectStore, not a decodable scalar, and the dependency-ordering pass
// already guarantees the referenced Object itself is consistent.
func restoreDataField(codec *valuecodec.Codec, f *registry.FieldSpec, obj *objstore.Object, prev any) {
	if f.Kind != registry.Data {
		return
	}
	var fileHint string
	if existing := f.Get(obj.Value); existing.Kind() == reflect.Struct && existing.Type() == reflect.TypeOf(registry.File{}) {
		fileHint = existing.Interface().(registry.File).OriginalPath
	}
	v, _, err := codec.DecodeData(f, prev, f.IsEncrypted && codec.HasCrypto(), fileHint)
	if err != nil || !v.IsValid() {
		return
	}
	fv := f.Get(obj.Value)
	if fv.Kind() == reflect.Ptr {
		if !v.Type().ConvertibleTo(fv.Type().Elem()) {
			return
		}
		ptr := reflect.New(fv.Type().Elem())
		ptr.Elem().Set(v.Convert(fv.Type().Elem()))
		fv.Set(ptr)
		return
	}
	if v.Type().ConvertibleTo(fv.Type()) {
		fv.Set(v.Convert(fv.Type()))
	}
}
