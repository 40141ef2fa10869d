package registry

import "reflect"

// StringCodec converts a user type to/from its string persistence form.
// Registered with RegisterStringCodec for any Data-kind field whose type
// is not one of the natively supported shapes (spec.md §4.1: "unsupported
// types yield a registration error unless a user-supplied string codec is
// registered for the type").
type StringCodec interface {
	EncodeString(v any) (string, error)
	DecodeString(s string) (any, error)
}

// stringCodecs is process-wide: codecs are a property of the Go type, not
// of any one Registry instance, matching spec.md §9's
// "Map<TypeId, (to_string_fn, from_string_fn)>".
var stringCodecs = map[reflect.Type]StringCodec{}

// RegisterStringCodec registers a bidirectional string codec for the
// given example value's type. Call before RegisterTypes so
// fields of that type classify as Data instead of failing registration.
func RegisterStringCodec(example any, codec StringCodec) {
	stringCodecs[reflect.TypeOf(example)] = codec
}

func lookupStringCodec(t reflect.Type) (StringCodec, bool) {
	c, ok := stringCodecs[t]
	return c, ok
}

// LookupStringCodec returns the string codec registered for t, if any.
// Exported for valuecodec, which applies the codec at encode/decode time
// (registration itself only needs to know a codec exists).
func LookupStringCodec(t reflect.Type) (StringCodec, bool) {
	return lookupStringCodec(t)
}
