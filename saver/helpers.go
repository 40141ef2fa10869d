package saver

import (
	"time"

	"github.com/syssam/persistcore/internal/ident"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/registry"
)

const (
	idColumn           = ident.ColumnID
	domainClassColumn  = ident.ColumnDomainClass
	lastModifiedColumn = ident.ColumnLastModified
)

// nowTransport returns the current time truncated to millisecond
// precision, the LAST_MODIFIED column's transport form (spec.md §6).
func nowTransport() time.Time {
	return time.Now().Round(time.Millisecond)
}

// currentComplexValue reads a Complex field's live Go value, for
// RecordCache's O(1) msgpack short-circuit.
func currentComplexValue(f *registry.FieldSpec, obj *objstore.Object) any {
	return f.Get(obj.Value).Interface()
}
