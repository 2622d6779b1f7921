package template

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// fromJSON decodes s into a generic value, nil when s is not JSON.
func fromJSON(s string) any {
	var result any
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil
	}
	return result
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// safeGet walks a dot separated path through maps, slices and structs and
// returns nil as soon as a step is missing. Map keys may contain dashes,
// which the plain template dot syntax cannot address:
//
//	{{ safeGet "metadata.source-url" . }}
//	{{ safeGet "installed.0.id" . }}
func safeGet(path string, data any) any {
	parts := strings.Split(path, ".")
	val := reflect.ValueOf(data)

	for _, p := range parts {
		for val.IsValid() && (val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface) {
			if val.IsNil() {
				return nil
			}
			val = val.Elem()
		}
		if !val.IsValid() {
			return nil
		}

		switch val.Kind() {
		case reflect.Struct:
			fv := val.FieldByName(p)
			if !fv.IsValid() {
				return nil
			}
			val = fv

		case reflect.Map:
			mv := val.MapIndex(reflect.ValueOf(p))
			if !mv.IsValid() {
				return nil
			}
			val = mv

		case reflect.Slice, reflect.Array:
			idx, err := strconv.Atoi(p)
			if err != nil || idx < 0 || idx >= val.Len() {
				return nil
			}
			val = val.Index(idx)

		default:
			return nil
		}
	}

	for val.IsValid() && (val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface) {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	if !val.IsValid() {
		return nil
	}
	return val.Interface()
}

// safeGetOr is safeGet with a fallback for nil results.
func safeGetOr(path string, data any, def any) any {
	v := safeGet(path, data)
	if v == nil {
		return def
	}
	return v
}
