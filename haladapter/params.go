package haladapter

import (
	"encoding/json"
	"strconv"
	"strings"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("haladapter", logger.InfoLevel)

// getAny/toInt/toFloat/toBool/unwrapValue are the usual reef-pi
// parameter-coercion helpers: config values arrive as loosely-typed
// JSON, sometimes wrapped in a {"value": ...} envelope from the UI.

func getAny(m map[string]interface{}, key string) (interface{}, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return unwrapValue(v), true
}

func getIntAny(m map[string]interface{}, def int, key string) int {
	v, ok := getAny(m, key)
	if !ok {
		return def
	}
	if i, ok := toInt(v); ok {
		return i
	}
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return def
}

func getFloatAny(m map[string]interface{}, def float64, key string) float64 {
	v, ok := getAny(m, key)
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

func getBoolAny(m map[string]interface{}, def bool, key string) bool {
	v, ok := getAny(m, key)
	if !ok {
		return def
	}
	if b, ok := toBool(v); ok {
		return b
	}
	return def
}

func getStringAny(m map[string]interface{}, def string, key string) string {
	v, ok := getAny(m, key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case int:
		return t != 0, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

func unwrapValue(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		for _, k := range []string{"value", "Value", "current", "Current", "val", "Val"} {
			if vv, ok := m[k]; ok {
				return vv
			}
		}
	}
	return v
}
