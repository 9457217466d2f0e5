// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net/url"
	"reflect"
	"strings"
)

const masked = "***"

// secretMarkers flag map keys and struct fields whose values never reach a log line.
var secretMarkers = []string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential", "auth"}

// MaskSecrets converts v into a tree of maps and slices with secret-looking
// fields replaced by "***". Pointers are followed; nil yields nil.
func MaskSecrets(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			out[it.Key().String()] = maskField(it.Key().String(), it.Value())
		}
		return out
	case reflect.Struct:
		t := rv.Type()
		out := make(map[string]any, t.NumField())
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = maskField(f.Name, rv.Field(i))
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = MaskSecrets(rv.Index(i).Interface())
		}
		return out
	default:
		return rv.Interface()
	}
}

func maskField(name string, v reflect.Value) any {
	if isSecretName(name) {
		return masked
	}
	return MaskSecrets(v.Interface())
}

func isSecretName(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range secretMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// MaskURL hides userinfo in a server URL: http://user:pw@nas/ becomes http://***@nas/.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	i := strings.Index(raw, "@")
	if i < 0 {
		return raw
	}
	return u.Scheme + "://" + masked + raw[i:]
}
