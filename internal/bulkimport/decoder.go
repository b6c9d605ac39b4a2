package bulkimport

import (
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/vectra/metadata"
)

// Vector cells must be numeric. Meta cells run through a fixed-priority
// decoder chain: native database types map directly, text is tried as
// integer, then float, then boolean-like, then timestamp-like, and
// finally kept as raw text. The chain order is part of the import
// contract; reordering it changes the typed schema of imported data.

// coerceFloat converts a scanned vector cell to float64. A NULL cell or
// non-numeric text fails the whole row.
func coerceFloat(cell any) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case []byte:
		return parseFloatText(string(v))
	case string:
		return parseFloatText(v)
	default:
		return 0, false
	}
}

func parseFloatText(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// coerceMeta converts a scanned meta cell to a typed metadata value.
// ok is false for NULL cells, which are skipped rather than failing the
// row.
func coerceMeta(cell any) (metadata.Value, bool) {
	switch v := cell.(type) {
	case nil:
		return metadata.Value{}, false
	case int64:
		return intValue(v), true
	case int32:
		return metadata.Int(v), true
	case float64:
		return metadata.Float(float32(v)), true
	case float32:
		return metadata.Float(v), true
	case bool:
		return metadata.Bool(v), true
	case time.Time:
		return metadata.Time(v), true
	case []byte:
		return decodeText(string(v)), true
	case string:
		return decodeText(v), true
	default:
		return metadata.Value{}, false
	}
}

// intValue keeps 32-bit integers typed; anything wider degrades to
// float rather than silently truncating.
func intValue(v int64) metadata.Value {
	if v >= -1<<31 && v < 1<<31 {
		return metadata.Int(int32(v))
	}
	return metadata.Float(float32(v))
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// decodeText runs the text decoder chain.
func decodeText(s string) metadata.Value {
	trimmed := strings.TrimSpace(s)

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return intValue(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 32); err == nil {
		return metadata.Float(float32(f))
	}
	switch strings.ToLower(trimmed) {
	case "true", "t", "yes":
		return metadata.Bool(true)
	case "false", "f", "no":
		return metadata.Bool(false)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return metadata.Time(ts)
		}
	}
	return metadata.String(s)
}
