package ingest

import "strconv"

// Null-safe accessors for loosely-structured extraction output. Every
// lookup takes an explicit default so missing or mistyped paths degrade
// to a declared value at the ingestion boundary instead of failing the
// whole record.

// get walks nested maps and returns the value at the path, or nil when
// any hop is missing or not a map.
func get(data map[string]interface{}, keys ...string) interface{} {
	var current interface{} = data
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// str returns the string at the path, coercing numbers and booleans;
// anything else yields def.
func str(data map[string]interface{}, def string, keys ...string) string {
	switch v := get(data, keys...).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}

// boolVal returns the boolean at the path, accepting "true"/"false"
// strings as a common model quirk; anything else yields def.
func boolVal(data map[string]interface{}, def bool, keys ...string) bool {
	switch v := get(data, keys...).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return def
	default:
		return def
	}
}

// intVal returns the integer at the path; JSON numbers arrive as float64
// and numeric strings are parsed. Anything else yields def.
func intVal(data map[string]interface{}, def int, keys ...string) int {
	switch v := get(data, keys...).(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		return def
	default:
		return def
	}
}

// strList returns the list of strings at the path, skipping non-string
// entries. Missing or non-list values yield an empty list.
func strList(data map[string]interface{}, keys ...string) []string {
	items, ok := get(data, keys...).([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// list returns the raw list at the path. Missing or non-list values
// yield an empty list; entry shape is checked by the caller so malformed
// entries can be skipped individually.
func list(data map[string]interface{}, keys ...string) []interface{} {
	items, ok := get(data, keys...).([]interface{})
	if !ok {
		return nil
	}
	return items
}

// itemStr reads a string field from one child-collection entry.
func itemStr(item map[string]interface{}, key string) string {
	if s, ok := item[key].(string); ok {
		return s
	}
	return ""
}
