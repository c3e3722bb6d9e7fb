package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Record is a decoded JSON object as received from a back end.
type Record = map[string]interface{}

var (
	errMissingKey       = errors.New("missing key")
	errFieldInvalidType = errors.New("field type was not the expected one")
	errEmptyValue       = errors.New("empty value")
)

// ExtractString returns the non-empty text value of key. Numbers are formatted.
func ExtractString(payload Record, key string) (string, error) {
	value, present := lookup(payload, key)
	if !present || value == nil {
		return "", errMissingKey
	}

	ret, ok := toString(value)
	if !ok {
		return "", errFieldInvalidType
	}

	if ret == "" {
		return "", errEmptyValue
	}

	return ret, nil
}

func CopyRecord(payload Record) Record {
	ret := make(Record, len(payload))

	for k, v := range payload {
		ret[k] = v
	}

	return ret
}

// lookup resolves key in payload. A literal key wins over a dotted path, and an exact
// match wins over a case-insensitive one.
func lookup(payload Record, key string) (interface{}, bool) {
	if payload == nil {
		return nil, false
	}

	value, ok := lookupKey(payload, key)
	if ok {
		return value, true
	}

	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}

	child, ok := lookupKey(payload, head)
	if !ok {
		return nil, false
	}

	childRecord, ok := child.(map[string]interface{})
	if !ok {
		return nil, false
	}

	return lookup(childRecord, rest)
}

func lookupKey(payload Record, key string) (interface{}, bool) {
	value, ok := payload[key]
	if ok {
		return value, true
	}

	for _, k := range sortedKeys(payload) {
		if strings.EqualFold(k, key) {
			return payload[k], true
		}
	}

	return nil, false
}

func sortedKeys(payload Record) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// firstValue returns the first non-nil value found among keys.
func firstValue(payload Record, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		value, ok := lookup(payload, key)
		if ok && value != nil {
			return value, true
		}
	}

	return nil, false
}

func firstString(payload Record, keys ...string) string {
	for _, key := range keys {
		ret, err := ExtractString(payload, key)
		if err == nil {
			return ret
		}
	}

	return ""
}

func firstNumber(payload Record, keys ...string) (float64, bool) {
	for _, key := range keys {
		value, ok := lookup(payload, key)
		if !ok {
			continue
		}

		ret, ok := toNumber(value)
		if ok {
			return ret, true
		}
	}

	return 0, false
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case map[string]interface{}:
		// reference objects like {"id": "...", "name": "..."}
		name := firstString(v, "name", "displayName", "id")
		return name, name != ""
	default:
		return "", false
	}
}

func toNumber(value interface{}) (float64, bool) {
	var ret float64

	switch v := value.(type) {
	case float64:
		ret = v
	case float32:
		ret = float64(v)
	case int:
		ret = float64(v)
	case int64:
		ret = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}

		ret = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%")), 64)
		if err != nil {
			return 0, false
		}

		ret = f
	default:
		return 0, false
	}

	if math.IsNaN(ret) || math.IsInf(ret, 0) {
		return 0, false
	}

	return ret, true
}

// toStringList accepts a list, a comma separated string or a single value.
func toStringList(value interface{}) []string {
	ret := []string{}

	switch v := value.(type) {
	case nil:
	case []interface{}:
		for _, item := range v {
			ret = append(ret, toStringList(item)...)
		}
	case []string:
		for _, item := range v {
			ret = append(ret, toStringList(item)...)
		}
	case string:
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
			part = strings.TrimSpace(part)
			if part != "" {
				ret = append(ret, part)
			}
		}
	default:
		s, ok := toString(v)
		if ok && s != "" {
			ret = append(ret, s)
		}
	}

	return ret
}

func firstStringList(payload Record, keys ...string) []string {
	for _, key := range keys {
		value, ok := lookup(payload, key)
		if !ok {
			continue
		}

		ret := toStringList(value)
		if len(ret) > 0 {
			return ret
		}
	}

	return []string{}
}

// uniqueSorted trims, drops empty and duplicated entries, and sorts.
func uniqueSorted(values []string) []string {
	ret := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			ret = append(ret, v)
		}
	}

	slices.Sort(ret)

	return slices.Compact(ret)
}

// uniqueOrdered drops empty and duplicated entries keeping the first occurrence.
func uniqueOrdered(values []string) []string {
	ret := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		ret = append(ret, v)
	}

	return ret
}

func asRecord(value interface{}) (Record, bool) {
	ret, ok := value.(map[string]interface{})

	return ret, ok
}

func asList(value interface{}) ([]interface{}, bool) {
	ret, ok := value.([]interface{})

	return ret, ok
}

func ptr[T any](v T) *T {
	return &v
}

func intPtr(v float64, ok bool) *int {
	if !ok || v < 0 {
		return nil
	}

	return ptr(int(math.Round(v)))
}

// pct keeps a percentage in [0, 100]. Negative values are sensor errors and are dropped.
func pct(v float64, ok bool) *float64 {
	if !ok || v < 0 {
		return nil
	}

	return ptr(round(math.Min(v, 100), 2))
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))

	return math.Round(v*p) / p
}

func describe(value interface{}) string {
	return fmt.Sprintf("%T", value)
}
