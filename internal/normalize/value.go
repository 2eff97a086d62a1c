package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

// Decode parses a raw JSON body into generic values.
func Decode(raw []byte) (any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("decode payload: empty body")
	}
	var out any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

// Unwrap strips a {success, data} envelope. Bare payloads are returned unchanged.
// ok is false only when the envelope reports success=false.
func Unwrap(v any) (any, bool) {
	obj, isMap := v.(map[string]any)
	if !isMap {
		return v, v != nil
	}
	if success, has := obj["success"]; has {
		if flag, isBool := success.(bool); isBool && !flag {
			return nil, false
		}
	}
	if data, has := obj["data"]; has && data != nil {
		return data, true
	}
	return obj, true
}

// DecodeEnvelope is Decode followed by Unwrap.
func DecodeEnvelope(raw []byte) (any, error) {
	decoded, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	data, ok := Unwrap(decoded)
	if !ok {
		return nil, fmt.Errorf("decode payload: envelope reports failure")
	}
	return data, nil
}

// keyTable maps an internal field to the source key spellings, in priority order.
type keyTable map[string][]string

func (t keyTable) value(src map[string]any, field string) any {
	keys, ok := t[field]
	if !ok {
		keys = []string{field}
	}
	for _, key := range keys {
		if v := lookupPath(src, key); v != nil {
			return v
		}
	}
	return nil
}

func (t keyTable) str(src map[string]any, field string) string {
	return asString(t.value(src, field))
}

func (t keyTable) id(src map[string]any, field string) string {
	return asID(t.value(src, field))
}

func (t keyTable) count(src map[string]any, field string) int {
	keys, ok := t[field]
	if !ok {
		keys = []string{field}
	}
	for _, key := range keys {
		if v := asInt(lookupPath(src, key)); v != 0 {
			return v
		}
	}
	return 0
}

func (t keyTable) countPtr(src map[string]any, field string) *int {
	v := t.value(src, field)
	if v == nil {
		return nil
	}
	if _, ok := asNumber(v); !ok {
		return nil
	}
	n := asInt(v)
	return &n
}

func (t keyTable) decimal(src map[string]any, field string) float64 {
	f, _ := asNumber(t.value(src, field))
	return f
}

func (t keyTable) obj(src map[string]any, field string) map[string]any {
	return asMap(t.value(src, field))
}

func (t keyTable) list(src map[string]any, field string) []any {
	return asSlice(t.value(src, field))
}

// lookupPath resolves dotted keys like "type.name".
func lookupPath(src map[string]any, path string) any {
	if src == nil {
		return nil
	}
	current := any(src)
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := obj[part]
		if !ok || next == nil {
			return nil
		}
		current = next
	}
	return current
}

func asMap(v any) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// asSlice accepts bare arrays and {data: [...]} relations.
func asSlice(v any) []any {
	switch typed := v.(type) {
	case []any:
		return typed
	case map[string]any:
		if data, ok := typed["data"].([]any); ok {
			return data
		}
	}
	return nil
}

func asString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		// relation objects like country: {name: "..."}
		return asString(typed["name"])
	case nil:
		return ""
	default:
		if f, ok := asNumber(v); ok {
			return formatNumber(f)
		}
		return ""
	}
}

func asID(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case nil, map[string]any, []any, bool:
		return ""
	default:
		if f, ok := asNumber(typed); ok {
			return formatNumber(f)
		}
		return ""
	}
}

func asNumber(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(typed), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v any) int {
	f, ok := asNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

func asFloatPtr(v any) *float64 {
	f, ok := asNumber(v)
	if !ok || f == 0 {
		return nil
	}
	return &f
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}
