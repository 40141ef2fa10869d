package saver

import (
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/valuecodec"
)

// columnChange is one column whose transport value differs from the
// RecordCache's last-known image.
type columnChange struct {
	field     *registry.FieldSpec
	column    string
	value     any
	encrypted bool
}

// diffTable computes the changed Data/Reference columns for one
// ancestor table (et's own fields only, not the whole chain — each
// ancestor table is updated independently, per spec.md §4.6: "one
// UPDATE per ancestor table that has changed columns").
//
// For a brand-new (!obj.Stored()) object every own-table column is
// "changed" (there is nothing to diff against). For an already-stored
// object, a column is changed only if the encoded transport value
// differs from record.Get(column).
func diffTable(codec *valuecodec.Codec, store *objstore.ObjectStore, record *recordcache.ObjectRecord, et *registry.EntityType, obj *objstore.Object, isNew bool) ([]columnChange, error) {
	var changes []columnChange
	for _, f := range et.Fields {
		switch f.Kind {
		case registry.Data:
			v := f.Get(obj.Value)
			transport, encrypted, err := codec.EncodeData(f, v)
			if err != nil {
				return nil, fmt.Errorf("saver: %s.%s: %w", et.Name, f.Name, err)
			}
			if !isNew {
				if prev, ok := record.Get(f.ColumnName); ok && valuesEqual(prev, transport) {
					continue
				}
			}
			changes = append(changes, columnChange{field: f, column: f.ColumnName, value: transport, encrypted: encrypted})

		case registry.Reference:
			var id any
			if target, ok := store.ReferenceTarget(obj, f.Name); ok {
				id = target.ID
			}
			if !isNew {
				if prev, ok := record.Get(f.ColumnName); ok && valuesEqual(prev, id) {
					continue
				}
			}
			changes = append(changes, columnChange{field: f, column: f.ColumnName, value: id})
		}
	}
	return changes, nil
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}
