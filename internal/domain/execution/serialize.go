package execution

import (
	"fmt"
	"reflect"
	"unicode/utf8"
)

// MaxPreviewSize is the byte/rune threshold above which a string or byte
// slice is elided from a stored result (64 KiB).
const MaxPreviewSize = 16384 * 4

// MakeJSONSerializable converts an arbitrary Go value into something
// encoding/json can always marshal, mirroring the scalar/bytes/list/map
// fallback rules of the original implementation: strings, numbers,
// bools, and nil pass through; byte slices decode as UTF-8 or fall back
// to a placeholder; slices and maps recurse; anything else renders as a
// type-named placeholder.
func MakeJSONSerializable(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("<non-serializable bytes:%d>", len(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = MakeJSONSerializable(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		for _, key := range rv.MapKeys() {
			out[fmt.Sprintf("%v", key.Interface())] = MakeJSONSerializable(rv.MapIndex(key).Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return MakeJSONSerializable(rv.Elem().Interface())
	default:
		return fmt.Sprintf("<non-serializable %s>", rv.Type().Name())
	}
}

// TruncateLargeValues recursively elides strings and byte slices longer
// than MaxPreviewSize, matching the stored-result contract (spec §4.6).
func TruncateLargeValues(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = TruncateLargeValues(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = TruncateLargeValues(val)
		}
		return out
	case string:
		if len(v) > MaxPreviewSize {
			return fmt.Sprintf("<truncated %d bytes>", len(v))
		}
		return v
	case []byte:
		if len(v) > MaxPreviewSize {
			return fmt.Sprintf("<truncated %d bytes>", len(v))
		}
		return v
	default:
		return value
	}
}

// RedactSecrets rewrites any string that literally contains a resolved
// secret value with the `<secret::KEY>` placeholder, so stored results
// never leak plaintext secrets. secretsByValue maps the resolved value to
// its originating key.
func RedactSecrets(value interface{}, secretsByValue map[string]string) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = RedactSecrets(val, secretsByValue)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = RedactSecrets(val, secretsByValue)
		}
		return out
	case string:
		return redactString(v, secretsByValue)
	default:
		return value
	}
}

func redactString(s string, secretsByValue map[string]string) string {
	for secretValue, key := range secretsByValue {
		if secretValue == "" {
			continue
		}
		placeholder := "<secret::" + key + ">"
		s = replaceAll(s, secretValue, placeholder)
	}
	return s
}

func replaceAll(s, old, new string) string {
	if old == "" {
		return s
	}
	result := ""
	for {
		idx := indexOf(s, old)
		if idx < 0 {
			return result + s
		}
		result += s[:idx] + new
		s = s[idx+len(old):]
	}
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}
