package registry

import "reflect"

// Kind classifies a FieldSpec, per spec.md §3/§4.1.
type Kind int

const (
	// Data is a plain scalar/text/temporal/blob field.
	Data Kind = iota
	// Reference is a field whose static type is another registered
	// EntityType.
	Reference
	// Complex is an array, List/Set, or Map container field.
	Complex
	// Accumulation is the (non-materialized) inverse of a Reference
	// field on another type.
	Accumulation
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "data"
	case Reference:
		return "reference"
	case Complex:
		return "complex"
	case Accumulation:
		return "accumulation"
	default:
		return "unknown"
	}
}

// ComplexShape distinguishes the four container shapes spec.md §3 allows
// for a Complex field.
type ComplexShape int

const (
	ShapeArray ComplexShape = iota
	ShapeList
	ShapeSet
	ShapeMap
)

func (s ComplexShape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeList:
		return "list"
	case ShapeSet:
		return "set"
	case ShapeMap:
		return "map"
	default:
		return "unknown"
	}
}

// ReferenceSpec describes a Reference-kind field's target and on-delete
// behavior.
type ReferenceSpec struct {
	Target          *EntityType
	OnDeleteCascade bool
}

// ComplexSpec describes a Complex-kind field's container shape and the
// static type(s) of its contents.
type ComplexSpec struct {
	Shape ComplexShape
	// Elem is the element Go type (value type, for Map).
	Elem reflect.Type
	// Key is the key Go type; only set when Shape == ShapeMap.
	Key reflect.Type
}

// AccumulationSpec describes the inverse reference field an
// Accumulation-kind field mirrors.
type AccumulationSpec struct {
	// Target is the EntityType on the many side of the relation.
	Target *EntityType
	// InverseField is the name of the Reference field on Target that
	// points back to this FieldSpec's owner.
	InverseField string
}

// FieldSpec describes one field of one EntityType (spec.md §3).
type FieldSpec struct {
	Owner *EntityType
	Name  string
	Kind  Kind

	// Index is this field's index within its owning EntityType's Go
	// struct (reflect.Value.Field(Index)); it is scoped to the
	// directly-owning struct, not the whole ancestor chain, because each
	// ancestor in Chain() is itself addressed by its own GoType.
	Index int

	// GoType is the field's static Go type.
	GoType reflect.Type

	// ColumnName is the canonical column name (Data/Reference kinds).
	// EntryTableName is the canonical entry-table name (Complex kind).
	ColumnName     string
	EntryTableName string

	Nullable bool
	// UniqueGroup, if non-empty, names a unique-constraint group; all
	// FieldSpecs across an EntityType sharing the same group form a
	// (possibly multi-column) UNIQUE constraint.
	UniqueGroup string
	// ColumnSize bounds text/enum column width; 0 means "use the
	// family's default".
	ColumnSize int
	// IsEncrypted marks a Data field for ValueCodec symmetric
	// encryption.
	IsEncrypted bool
	// IsSecretForLogging marks a field whose value must never appear in
	// logs or error messages (independent of encryption).
	IsSecretForLogging bool

	// CreatedInVersion/ChangedInVersions/RemovedInVersion record the
	// field's lifecycle, per spec.md §3. 0 means "unset"/"never removed".
	CreatedInVersion  int
	ChangedInVersions []int
	RemovedInVersion  int

	Reference    *ReferenceSpec    // set iff Kind == Reference
	Complex      *ComplexSpec      // set iff Kind == Complex
	Accumulation *AccumulationSpec // set iff Kind == Accumulation

	// StringCodecType is set when a Data field's value is converted
	// through a user-registered string codec (registry.RegisterStringCodec)
	// rather than a natively supported type.
	StringCodecType reflect.Type
}

// IsRemoved reports whether the field has been retired as of
// schemaVersion (0 means "current", i.e. never removed).
func (f *FieldSpec) IsRemoved(schemaVersion int) bool {
	return f.RemovedInVersion != 0 && schemaVersion >= f.RemovedInVersion
}

// Get returns the value of this field on leaf, a reflect.Value of (or
// pointer to) an application struct whose type is, or embeds, f.Owner's
// GoType. Promoted-field resolution through Go's anonymous embedding does
// the ancestor-chain traversal spec.md §4.1 describes as
// "traverses the chain of FieldSpec arrays".
func (f *FieldSpec) Get(leaf reflect.Value) reflect.Value {
	for leaf.Kind() == reflect.Ptr {
		leaf = leaf.Elem()
	}
	return leaf.FieldByName(f.Name)
}

// Set assigns v to this field on leaf. leaf must be addressable (a
// pointer to, or an addressable struct embedding, f.Owner's GoType).
func (f *FieldSpec) Set(leaf reflect.Value, v reflect.Value) {
	f.Get(leaf).Set(v)
}
