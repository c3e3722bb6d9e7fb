package normalize

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// DiskHints lists the provider documented disk fields. Fields not listed are still
// read when their name carries a unit suffix.
type DiskHints struct {
	Used     []UnitField
	Capacity []UnitField
}

var (
	usedBases     = []string{"used", "allocated", "usage", "consumed", "usedspace", "allocatedspace", "usedsize", "actualsize", "filesize"}
	capacityBases = []string{"size", "capacity", "total", "provisioned", "disksize", "capacitysize", "totalsize", "provisionedsize", "provisionedspace", "maxsize"}
	pctKeys       = []string{"pct", "percent", "percentage", "usage_pct", "used_pct", "usedPercent", "usage_percent", "used_percent"}
	diskNameKeys  = []string{"name", "label", "device", "path", "id"}
)

var diskTextRegexp = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([A-Za-z]+)\s*/\s*([0-9]+(?:\.[0-9]+)?)\s*([A-Za-z]+)(?:\s*\(\s*([0-9]+(?:\.[0-9]+)?)\s*%\s*\))?\s*$`)

// ParseDisks accepts a list of disks, a single disk object, a map of disks keyed by name,
// or a text value with one disk per line or per ';'.
func ParseDisks(value interface{}, hints DiskHints) []entity.DiskUsage {
	ret := []entity.DiskUsage{}

	switch v := value.(type) {
	case nil:
	case []interface{}:
		for _, item := range v {
			ret = append(ret, ParseDisks(item, hints)...)
		}
	case string:
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '\n' }) {
			disk, ok := ParseDiskText(part)
			if ok {
				ret = append(ret, disk)
			}
		}
	case map[string]interface{}:
		disk, ok := ParseDiskRecord(v, hints)
		if ok {
			return append(ret, disk)
		}

		for _, key := range sortedKeys(v) {
			if _, isRecord := asRecord(v[key]); isRecord {
				ret = append(ret, ParseDisks(v[key], hints)...)
			}
		}
	}

	return ret
}

// ParseDiskText parses "120 GiB / 200 GiB (60%)" or a capacity alone such as "200 GiB".
// Unparseable text is kept as is without any figure.
func ParseDiskText(text string) (entity.DiskUsage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.DiskUsage{}, false
	}

	m := diskTextRegexp.FindStringSubmatch(text)
	if m != nil {
		used, usedOK := ParseQuantity(m[1] + " " + m[2])
		capacity, capacityOK := ParseQuantity(m[3] + " " + m[4])

		var reported *float64
		if m[5] != "" {
			if p, err := strconv.ParseFloat(m[5], 64); err == nil {
				reported = ptr(p)
			}
		}

		return buildDisk(used, usedOK, capacity, capacityOK, reported), true
	}

	capacity, ok := ParseQuantity(text)
	if ok {
		return buildDisk(Quantity{}, false, capacity, true, nil), true
	}

	return entity.DiskUsage{Text: text}, true
}

// ParseDiskRecord reads the used and capacity quantities of a disk object independently.
// It fails when the object carries neither.
func ParseDiskRecord(record Record, hints DiskHints) (entity.DiskUsage, bool) {
	used, usedOK := firstQuantity(record, hints.Used...)
	capacity, capacityOK := firstQuantity(record, hints.Capacity...)

	// record level unit: {"used": 50, "size": 100, "unit": "GiB"}
	recordUnit, _ := ParseUnit(firstString(record, "unit", "units"))

	for _, key := range sortedKeys(record) {
		base, unit := UnitFromKey(key)
		base = strings.NewReplacer("_", "", "-", "").Replace(base)

		if unit == UnitNone {
			unit = recordUnit
		}

		switch {
		case !usedOK && slices.Contains(usedBases, base):
			used, usedOK = QuantityOf(record[key], unit)
		case !capacityOK && slices.Contains(capacityBases, base):
			capacity, capacityOK = QuantityOf(record[key], unit)
		}
	}

	if !usedOK && !capacityOK {
		text := firstString(record, "text", "summary")
		if text != "" {
			return ParseDiskText(text)
		}

		return entity.DiskUsage{}, false
	}

	var reported *float64
	if p, ok := firstNumber(record, pctKeys...); ok {
		reported = ptr(p)
	}

	ret := buildDisk(used, usedOK, capacity, capacityOK, reported)

	name := firstString(record, diskNameKeys...)
	if name != "" && ret.Text != "" {
		ret.Text = name + ": " + ret.Text
	}

	return ret, true
}

// DiskFromQuantities builds a disk from already tagged quantities.
func DiskFromQuantities(used *Quantity, capacity *Quantity, reportedPct *float64) (entity.DiskUsage, bool) {
	if used == nil && capacity == nil {
		return entity.DiskUsage{}, false
	}

	var u, c Quantity
	if used != nil {
		u = *used
	}

	if capacity != nil {
		c = *capacity
	}

	return buildDisk(u, used != nil, c, capacity != nil, reportedPct), true
}

// buildDisk applies the percentage precedence: a reported value within [0, 100] wins,
// otherwise it is computed when both quantities exist, otherwise it stays nil.
func buildDisk(used Quantity, usedOK bool, capacity Quantity, capacityOK bool, reported *float64) entity.DiskUsage {
	ret := entity.DiskUsage{}

	if usedOK {
		ret.AllocatedGiB = ptr(round(used.In(UnitGiB), 2))
		ret.UsedKiB = ptr(round(used.In(UnitKiB), 0))
	}

	if capacityOK {
		ret.SizeGiB = ptr(round(capacity.In(UnitGiB), 2))
		ret.ProvisionedKiB = ptr(round(capacity.In(UnitKiB), 0))
	}

	switch {
	case reported != nil && *reported >= 0 && *reported <= 100:
		ret.Pct = ptr(round(*reported, 2))
	case usedOK && capacityOK && capacity.Bytes() > 0:
		ret.Pct = ptr(round(math.Min(used.Bytes()/capacity.Bytes()*100, 100), 2))
	}

	ret.Text = diskText(used, usedOK, capacity, capacityOK, ret.Pct)

	return ret
}

func diskText(used Quantity, usedOK bool, capacity Quantity, capacityOK bool, pct *float64) string {
	var b strings.Builder

	switch {
	case usedOK && capacityOK:
		b.WriteString(humanize.IBytes(uint64(used.Bytes())))
		b.WriteString(" / ")
		b.WriteString(humanize.IBytes(uint64(capacity.Bytes())))
	case capacityOK:
		b.WriteString(humanize.IBytes(uint64(capacity.Bytes())))
	case usedOK:
		b.WriteString(humanize.IBytes(uint64(used.Bytes())))
		b.WriteString(" used")
	}

	if pct != nil {
		b.WriteString(" (")
		b.WriteString(strconv.FormatFloat(round(*pct, 1), 'f', -1, 64))
		b.WriteString("%)")
	}

	return b.String()
}
