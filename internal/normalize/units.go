package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit is an explicit storage unit. A value without a Unit is never converted.
type Unit int

const (
	UnitNone Unit = iota
	UnitBytes
	UnitKB
	UnitMB
	UnitGB
	UnitTB
	UnitKiB
	UnitMiB
	UnitGiB
	UnitTiB
)

var unitBytes = map[Unit]float64{
	UnitBytes: 1,
	UnitKB:    1e3,
	UnitMB:    1e6,
	UnitGB:    1e9,
	UnitTB:    1e12,
	UnitKiB:   1 << 10,
	UnitMiB:   1 << 20,
	UnitGiB:   1 << 30,
	UnitTiB:   1 << 40,
}

var unitNames = map[string]Unit{
	"b":     UnitBytes,
	"byte":  UnitBytes,
	"bytes": UnitBytes,
	"kb":    UnitKB,
	"mb":    UnitMB,
	"gb":    UnitGB,
	"tb":    UnitTB,
	"kib":   UnitKiB,
	"mib":   UnitMiB,
	"gib":   UnitGiB,
	"tib":   UnitTiB,
	// vCloud metric vocabulary, binary multiples
	"kilobyte": UnitKiB,
	"megabyte": UnitMiB,
	"gigabyte": UnitGiB,
}

// key suffixes, longest first
var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{
	{"bytes", UnitBytes},
	{"tib", UnitTiB},
	{"gib", UnitGiB},
	{"mib", UnitMiB},
	{"kib", UnitKiB},
	{"tb", UnitTB},
	{"gb", UnitGB},
	{"mb", UnitMB},
	{"kb", UnitKB},
}

func (u Unit) String() string {
	switch u {
	case UnitBytes:
		return "B"
	case UnitKB:
		return "KB"
	case UnitMB:
		return "MB"
	case UnitGB:
		return "GB"
	case UnitTB:
		return "TB"
	case UnitKiB:
		return "KiB"
	case UnitMiB:
		return "MiB"
	case UnitGiB:
		return "GiB"
	case UnitTiB:
		return "TiB"
	default:
		return "none"
	}
}

// ParseUnit maps a unit label to a Unit, case-insensitively.
func ParseUnit(s string) (Unit, bool) {
	ret, ok := unitNames[strings.ToLower(strings.TrimSpace(s))]

	return ret, ok
}

// UnitFromKey detects a unit suffix in a field name such as used_kib or diskSizeGB.
// It returns the field name without the suffix.
func UnitFromKey(key string) (string, Unit) {
	lower := strings.ToLower(key)

	for _, s := range unitSuffixes {
		if len(lower) > len(s.suffix) && strings.HasSuffix(lower, s.suffix) {
			base := strings.TrimRight(lower[:len(lower)-len(s.suffix)], "_- ")

			return base, s.unit
		}
	}

	return lower, UnitNone
}

// Quantity is a value tagged with its unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// NewQuantity rejects unit-less, negative and non finite values.
func NewQuantity(value float64, unit Unit) (Quantity, bool) {
	if unit == UnitNone || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return Quantity{}, false
	}

	return Quantity{Value: value, Unit: unit}, true
}

func (q Quantity) Bytes() float64 {
	return q.Value * unitBytes[q.Unit]
}

// In converts q to unit.
func (q Quantity) In(unit Unit) float64 {
	return q.Bytes() / unitBytes[unit]
}

func (q Quantity) String() string {
	return fmt.Sprintf("%s %s", strconv.FormatFloat(q.Value, 'f', -1, 64), q.Unit)
}

var quantityRegexp = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([A-Za-z]+)\s*$`)

// ParseQuantity parses "50 GiB" like strings. A bare number is rejected.
func ParseQuantity(s string) (Quantity, bool) {
	m := quantityRegexp.FindStringSubmatch(s)
	if m == nil {
		return Quantity{}, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Quantity{}, false
	}

	unit, ok := ParseUnit(m[2])
	if !ok {
		return Quantity{}, false
	}

	return NewQuantity(value, unit)
}

// QuantityOf reads a raw value with an optional unit hint. Numbers need a hint, strings
// carry their own unit, and {value, unit} objects are accepted.
func QuantityOf(value interface{}, hint Unit) (Quantity, bool) {
	switch v := value.(type) {
	case string:
		q, ok := ParseQuantity(v)
		if ok {
			return q, true
		}

		if hint == UnitNone {
			return Quantity{}, false
		}

		n, ok := toNumber(v)
		if !ok {
			return Quantity{}, false
		}

		return NewQuantity(n, hint)
	case map[string]interface{}:
		n, ok := firstNumber(v, "value", "amount", "size")
		if !ok {
			return Quantity{}, false
		}

		unit, ok := ParseUnit(firstString(v, "unit", "units"))
		if !ok {
			unit = hint
		}

		return NewQuantity(n, unit)
	default:
		n, ok := toNumber(v)
		if !ok {
			return Quantity{}, false
		}

		return NewQuantity(n, hint)
	}
}

// UnitField names a raw field together with the unit the provider documents for it.
// UnitNone means the value must carry its own unit.
type UnitField struct {
	Key  string
	Unit Unit
}

func firstQuantity(payload Record, fields ...UnitField) (Quantity, bool) {
	for _, field := range fields {
		value, ok := lookup(payload, field.Key)
		if !ok || value == nil {
			continue
		}

		hint := field.Unit
		if hint == UnitNone {
			_, hint = UnitFromKey(field.Key)
		}

		q, ok := QuantityOf(value, hint)
		if ok {
			return q, true
		}
	}

	return Quantity{}, false
}
