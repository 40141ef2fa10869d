// Package valuecodec implements the ValueCodec component of spec.md
// §4.10: conversion between application values and SQL-transport values,
// including the boolean short-text-literal convention, enum discriminant
// storage, user-registered string codecs, and optional symmetric
// encryption for fields marked IsEncrypted.
package valuecodec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/persistcore/registry"
)

// BoolTrue/BoolFalse are the short text literals booleans are stored as
// (spec.md §4.10: "booleans (stored as a short text literal)").
const (
	BoolTrue  = "Y"
	BoolFalse = "N"
)

// Codec converts between application field values (reflect.Value, always
// the dereferenced, non-pointer value for a non-nil field) and their SQL
// transport representation (a value database/sql can bind/scan: string,
// int64, float64, []byte, time.Time, bool, or nil).
type Codec struct {
	crypto *Crypto // nil if no cryptPassword is configured
}

// New returns a Codec. crypto may be nil, in which case encrypted fields
// fall back to plaintext storage with a one-time CryptoWarning (spec.md
// §7's Crypto kind); the caller (Controller) is responsible for emitting
// that warning exactly once per field.
func New(crypto *Crypto) *Codec {
	return &Codec{crypto: crypto}
}

// HasCrypto reports whether this Codec has usable key material configured.
func (c *Codec) HasCrypto() bool { return c.crypto != nil }

// EncodeData converts a Data-kind field's current value on obj into its
// SQL transport representation. A nil *Codec.crypto with fs.IsEncrypted
// set returns the plaintext value and encrypted=false so the caller can
// emit a CryptoWarning.
func (c *Codec) EncodeData(fs *registry.FieldSpec, v reflect.Value) (transport any, encrypted bool, err error) {
	if fs.Kind != registry.Data {
		return nil, false, fmt.Errorf("valuecodec: %s is not a Data field", fs.Name)
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false, nil
		}
		v = v.Elem()
	}

	if v.Type() == fileGoType {
		b, err := encodeFile(v.Interface().(registry.File))
		if err != nil {
			return nil, false, fmt.Errorf("valuecodec: %s: %w", fs.Name, err)
		}
		return b, false, nil
	}

	var s string
	var raw any
	switch {
	case fs.StringCodecType != nil:
		codec, ok := registry.LookupStringCodec(fs.StringCodecType)
		if !ok {
			return nil, false, fmt.Errorf("valuecodec: %s: no string codec registered for %s", fs.Name, fs.StringCodecType)
		}
		s, err = codec.EncodeString(v.Interface())
		if err != nil {
			return nil, false, fmt.Errorf("valuecodec: %s: encode: %w", fs.Name, err)
		}
	case isEnumKind(v):
		s = stringerOrFormat(v)
	case v.Kind() == reflect.String:
		s = v.String()
	default:
		raw, err = encodeNative(v)
		if err != nil {
			return nil, false, fmt.Errorf("valuecodec: %s: %w", fs.Name, err)
		}
	}

	if raw != nil {
		// Non-string-shaped native value: encryption only applies to the
		// text transport form, per spec.md §4.10 ("cipher text is stored
		// as text"), so non-text fields are never encrypted even if
		// IsEncrypted is set on a non-text column.
		return raw, false, nil
	}

	if fs.IsEncrypted && c.crypto != nil {
		cipher, err := c.crypto.Encrypt(s)
		if err != nil {
			return nil, false, fmt.Errorf("valuecodec: %s: encrypt: %w", fs.Name, err)
		}
		return cipher, true, nil
	}
	return s, false, nil
}

// DecodeData converts a SQL transport value back into an application
// value assignable to field fs, handling decryption first if the stored
// value is ciphertext. fileHint carries the existing File.OriginalPath
// (if any) so a File-kind field restores to the same path on reload; it
// is ignored for every other kind. usedFallback reports whether a
// File-kind field fell back to a temp path, so the caller (Loader) can
// record a warning on the Object; it is always false for non-File fields.
func (c *Codec) DecodeData(fs *registry.FieldSpec, transport any, wasEncrypted bool, fileHint string) (value reflect.Value, usedFallback bool, err error) {
	if transport == nil {
		return reflect.Value{}, false, nil
	}

	dt := fs.GoType
	if dt.Kind() == reflect.Ptr {
		dt = dt.Elem()
	}
	if dt == fileGoType {
		blob, ok := transport.([]byte)
		if !ok {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: file column must be a blob", fs.Name)
		}
		f, err, fallback := decodeFile(blob, fileHint)
		if err != nil {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: %w", fs.Name, err)
		}
		return reflect.ValueOf(f), fallback, nil
	}

	if wasEncrypted {
		ct, ok := transport.(string)
		if !ok {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: encrypted value must be text", fs.Name)
		}
		if c.crypto == nil {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: encrypted value present but no cryptPassword configured", fs.Name)
		}
		pt, err := c.crypto.Decrypt(ct)
		if err != nil {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: decrypt: %w", fs.Name, err)
		}
		transport = pt
	}

	if fs.StringCodecType != nil {
		codec, ok := registry.LookupStringCodec(fs.StringCodecType)
		if !ok {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: no string codec registered for %s", fs.Name, fs.StringCodecType)
		}
		s, ok := transport.(string)
		if !ok {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: string-codec column must be text", fs.Name)
		}
		v, err := codec.DecodeString(s)
		if err != nil {
			return reflect.Value{}, false, fmt.Errorf("valuecodec: %s: decode: %w", fs.Name, err)
		}
		return reflect.ValueOf(v), false, nil
	}

	if dt.Name() != "" && dt.PkgPath() != "" && dt != reflect.TypeOf(time.Time{}) && isEnumUnderlyingKind(dt.Kind()) {
		v, err := decodeEnum(dt, transport)
		return v, false, err
	}
	v, err := decodeNative(dt, transport)
	return v, false, err
}

// EncodeElement converts one element of a Complex (collection/map) field
// to its entry-table transport value. Complex elements carry no
// per-field encryption or string-codec configuration (those apply only
// to Data fields), so this is a plain native/enum/string conversion.
func EncodeElement(v reflect.Value) (any, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	switch {
	case isEnumKind(v):
		return stringerOrFormat(v), nil
	case v.Kind() == reflect.String:
		return v.String(), nil
	default:
		return encodeNative(v)
	}
}

// DecodeElement reverses EncodeElement for an element of static type dt.
func DecodeElement(dt reflect.Type, transport any) (reflect.Value, error) {
	for dt.Kind() == reflect.Ptr {
		dt = dt.Elem()
	}
	if dt.Name() != "" && dt.PkgPath() != "" && dt != reflect.TypeOf(time.Time{}) && isEnumUnderlyingKind(dt.Kind()) {
		return decodeEnum(dt, transport)
	}
	return decodeNative(dt, transport)
}

func isEnumKind(v reflect.Value) bool {
	t := v.Type()
	return t.Name() != "" && t.PkgPath() != "" && t != reflect.TypeOf(time.Time{}) && isEnumUnderlyingKind(t.Kind())
}

func isEnumUnderlyingKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func stringerOrFormat(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// decodeEnum maps a stored discriminant name back to dt's zero-value-typed
// representation. Integer-kind enums are decoded from their literal
// numeric text form (spec.md does not require symbolic names for integer
// enums, only that the round-trip is exact).
func decodeEnum(dt reflect.Type, transport any) (reflect.Value, error) {
	s, ok := transport.(string)
	if !ok {
		return reflect.Value{}, fmt.Errorf("valuecodec: enum column must be text, got %T", transport)
	}
	rv := reflect.New(dt).Elem()
	switch dt.Kind() {
	case reflect.String:
		rv.SetString(s)
	default:
		var n int64
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return reflect.Value{}, fmt.Errorf("valuecodec: enum %s: %w", dt.Name(), err)
		}
		rv.SetInt(n)
	}
	return rv, nil
}
