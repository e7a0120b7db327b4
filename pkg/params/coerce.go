package params

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/reoring/goskema/dsl"
)

const (
	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02T15:04"
)

// numbers parses numeric text and json.Number through goskema, which
// canonicalises both to a json.Number.
var numbers = dsl.NumberJSON().CoerceFromString()

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	localTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// coerce converts raw into the Go representation of kind. Blank strings become
// nil. The boolean result is false when raw cannot be represented.
func coerce(kind, of Kind, raw any) (any, bool) {
	if raw == nil {
		return nil, true
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" && kind != KindArray {
		if kind == KindString {
			return s, true
		}
		if kind == KindBool {
			return false, true
		}
		return nil, true
	}

	switch kind {
	case KindString:
		return coerceString(raw)
	case KindInteger:
		return coerceInteger(raw)
	case KindFloat:
		return toFloat(raw)
	case KindBool:
		return coerceBool(raw)
	case KindDate:
		return coerceDate(raw)
	case KindDateTime:
		return coerceDateTime(raw)
	case KindArray:
		return coerceArray(of, raw)
	default:
		return raw, true
	}
}

func coerceString(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true
	case float32, float64:
		f, _ := toFloat(v)
		return formatNumber(f), true
	default:
		return nil, false
	}
}

func coerceInteger(raw any) (any, bool) {
	if n, ok := raw.(json.Number); ok {
		raw = n.String()
	}
	if s, ok := raw.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	}
	f, ok := toFloat(raw)
	if !ok || f != math.Trunc(f) {
		return nil, false
	}
	return int64(f), true
}

func coerceBool(raw any) (any, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on", "yes", "t", "y":
			return true, true
		case "0", "false", "off", "no", "f", "n":
			return false, true
		}
		return nil, false
	}
	f, ok := toFloat(raw)
	if !ok {
		return nil, false
	}
	switch f {
	case 0:
		return false, true
	case 1:
		return true, true
	}
	return nil, false
}

func coerceDate(raw any) (any, bool) {
	switch v := raw.(type) {
	case time.Time:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), true
	case string:
		text := strings.TrimSpace(v)
		if t, err := time.Parse(dateLayout, text); err == nil {
			return t, true
		}
		if t, ok := parseDateTime(text); ok {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return nil, false
}

func coerceDateTime(raw any) (any, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		if t, ok := parseDateTime(strings.TrimSpace(v)); ok {
			return t, true
		}
	}
	return nil, false
}

func parseDateTime(text string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceArray(of Kind, raw any) (any, bool) {
	items := flatten(raw)
	if _, isMap := raw.(map[string]any); isMap {
		return nil, false
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		if item == nil {
			continue
		}
		value, ok := coerce(of, KindString, item)
		if !ok {
			return nil, false
		}
		out = append(out, value)
	}
	return out, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		return parseNumber(v)
	case string:
		return parseNumber(strings.TrimSpace(v))
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseNumber(raw any) (float64, bool) {
	num, err := numbers.Parse(context.Background(), raw)
	if err != nil {
		return 0, false
	}
	f, err := num.Float64()
	return f, err == nil
}
