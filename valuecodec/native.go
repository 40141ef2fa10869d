package valuecodec

import (
	"fmt"
	"reflect"
	"time"
)

// encodeNative converts a natively-supported, non-string, non-enum,
// non-string-codec Data value to its SQL transport representation.
// Plain string fields are handled directly by EncodeData, which never
// calls this function for reflect.String values.
func encodeNative(v reflect.Value) (any, error) {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return BoolTrue, nil
		}
		return BoolFalse, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), nil
		}
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return b, nil
		}
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			// Millisecond precision, per spec.md §4.10; dialects without
			// sub-second precision round at the DDL/driver layer, not here.
			return t.Round(time.Millisecond), nil
		}
	}
	return nil, fmt.Errorf("valuecodec: unsupported native kind %s", v.Kind())
}

func decodeNative(dt reflect.Type, transport any) (reflect.Value, error) {
	switch dt.Kind() {
	case reflect.Bool:
		s, ok := transport.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("valuecodec: bool column must be text, got %T", transport)
		}
		return reflect.ValueOf(s == BoolTrue), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(transport)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(dt).Elem()
		rv.SetInt(n)
		return rv, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(transport)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(dt).Elem()
		rv.SetUint(uint64(n))
		return rv, nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(transport)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(dt).Elem()
		rv.SetFloat(f)
		return rv, nil
	case reflect.String:
		s, ok := transport.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("valuecodec: text column must be text, got %T", transport)
		}
		return reflect.ValueOf(s), nil
	case reflect.Slice:
		if dt.Elem().Kind() == reflect.Uint8 {
			b, ok := transport.([]byte)
			if !ok {
				return reflect.Value{}, fmt.Errorf("valuecodec: blob column must be []byte, got %T", transport)
			}
			return reflect.ValueOf(b), nil
		}
	case reflect.Array:
		if dt.Elem().Kind() == reflect.Uint8 {
			b, ok := transport.([]byte)
			if !ok {
				return reflect.Value{}, fmt.Errorf("valuecodec: blob column must be []byte, got %T", transport)
			}
			rv := reflect.New(dt).Elem()
			reflect.Copy(rv, reflect.ValueOf(b))
			return rv, nil
		}
	case reflect.Struct:
		if dt == reflect.TypeOf(time.Time{}) {
			switch t := transport.(type) {
			case time.Time:
				return reflect.ValueOf(t.Round(time.Millisecond)), nil
			case string:
				parsed, err := time.Parse(time.RFC3339Nano, t)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("valuecodec: time column: %w", err)
				}
				return reflect.ValueOf(parsed.Round(time.Millisecond)), nil
			default:
				return reflect.Value{}, fmt.Errorf("valuecodec: time column: unsupported transport type %T", transport)
			}
		}
	}
	return reflect.Value{}, fmt.Errorf("valuecodec: unsupported native kind %s", dt.Kind())
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("valuecodec: expected an integer transport value, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("valuecodec: expected a floating transport value, got %T", v)
	}
}
