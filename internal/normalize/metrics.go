package normalize

import (
	"strconv"
	"strings"
)

const maxMetricDepth = 6

var (
	metricWrappers  = []string{"entry", "metric", "metrics", "metricSeries", "statistics"}
	metricNameKeys  = []string{"name", "key", "id", "metricName"}
	metricValueKeys = []string{"value", "values", "latest", "datum", "current", "avg", "average"}
)

// Metric is one sampled value found in a metric document.
type Metric struct {
	Value float64
	// Unit as reported next to the sample, may be empty.
	Unit string
}

// FindMetric looks up a dotted metric key such as disk.used.latest in a semi-structured
// container. index selects a per-disk suffix (key.N or key_N), a negative index means none.
// Direct matches are tried first, then grouped ({"disk": {"used.latest": ...}}) and
// prefixed (vm.disk.used.latest) matches. Negative samples are sensor errors and discarded.
func FindMetric(container interface{}, key string, index int) (Metric, bool) {
	candidates := []string{key}
	if index >= 0 {
		idx := strconv.Itoa(index)
		candidates = []string{key + "." + idx, key + "_" + idx}
	}

	matchers := []func(string) bool{
		func(name string) bool {
			return matchAny(candidates, func(c string) bool { return strings.EqualFold(name, c) })
		},
		func(name string) bool {
			return matchAny(candidates, func(c string) bool {
				lower := strings.ToLower(name)
				c = strings.ToLower(c)

				return strings.HasSuffix(lower, "."+c) || strings.HasSuffix(lower, "/"+c) || strings.HasSuffix(lower, ":"+c)
			})
		},
	}

	// direct
	ret, ok := walkMetric(container, matchers[0], 0)
	if ok {
		return validMetric(ret)
	}

	// grouped
	group, rest, found := strings.Cut(key, ".")
	if found {
		for _, child := range groupChildren(container, group, 0) {
			ret, ok = FindMetric(child, rest, index)
			if ok {
				return ret, true
			}
		}
	}

	// prefixed
	ret, ok = walkMetric(container, matchers[1], 0)
	if ok {
		return validMetric(ret)
	}

	return Metric{}, false
}

// MetricValue is FindMetric without the unit.
func MetricValue(container interface{}, key string, index int) *float64 {
	ret, ok := FindMetric(container, key, index)
	if !ok {
		return nil
	}

	return ptr(ret.Value)
}

func validMetric(m Metric) (Metric, bool) {
	if m.Value < 0 {
		return Metric{}, false
	}

	return m, true
}

func matchAny(candidates []string, match func(string) bool) bool {
	for _, c := range candidates {
		if match(c) {
			return true
		}
	}

	return false
}

func walkMetric(container interface{}, match func(string) bool, depth int) (Metric, bool) {
	if depth > maxMetricDepth {
		return Metric{}, false
	}

	switch v := container.(type) {
	case map[string]interface{}:
		// dictionary keyed by metric name
		for _, k := range sortedKeys(v) {
			if match(k) {
				ret, ok := sampleOf(v[k], "")
				if ok {
					return ret, true
				}
			}
		}

		// the map is itself a {name, value} sample
		name := firstString(v, metricNameKeys...)
		if name != "" && match(name) {
			ret, ok := sampleOf(v, "")
			if ok {
				return ret, true
			}
		}

		for _, wrapper := range metricWrappers {
			child, ok := lookupKey(v, wrapper)
			if !ok {
				continue
			}

			ret, ok := walkMetric(child, match, depth+1)
			if ok {
				return ret, true
			}
		}
	case []interface{}:
		for _, item := range v {
			ret, ok := walkMetric(item, match, depth+1)
			if ok {
				return ret, true
			}
		}
	}

	return Metric{}, false
}

// groupChildren returns the containers grouped under name.
func groupChildren(container interface{}, name string, depth int) []interface{} {
	if depth > maxMetricDepth {
		return nil
	}

	ret := []interface{}{}

	switch v := container.(type) {
	case map[string]interface{}:
		child, ok := lookupKey(v, name)
		if ok {
			if _, isSample := sampleOf(child, ""); !isSample {
				ret = append(ret, child)
			}
		}

		if firstString(v, metricNameKeys...) == name {
			ret = append(ret, v)
		}

		for _, wrapper := range metricWrappers {
			child, ok := lookupKey(v, wrapper)
			if ok {
				ret = append(ret, groupChildren(child, name, depth+1)...)
			}
		}
	case []interface{}:
		for _, item := range v {
			ret = append(ret, groupChildren(item, name, depth+1)...)
		}
	}

	return ret
}

// sampleOf extracts a numeric sample from a scalar, a {value, unit} object or a list of samples.
func sampleOf(value interface{}, unit string) (Metric, bool) {
	switch v := value.(type) {
	case map[string]interface{}:
		if u := firstString(v, "unit", "units"); u != "" {
			unit = u
		}

		for _, key := range metricValueKeys {
			child, ok := lookupKey(v, key)
			if !ok {
				continue
			}

			ret, ok := sampleOf(child, unit)
			if ok {
				return ret, true
			}
		}
	case []interface{}:
		// latest sample last
		for i := len(v) - 1; i >= 0; i-- {
			ret, ok := sampleOf(v[i], unit)
			if ok {
				return ret, true
			}
		}
	default:
		n, ok := toNumber(v)
		if ok {
			return Metric{Value: n, Unit: unit}, true
		}
	}

	return Metric{}, false
}
