package normalize

import (
	"strings"
	"unicode"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Classifier derives an environment from naming when the provider does not supply one.
type Classifier interface {
	// Classify inspects candidates in order (name, cluster, host) and returns an environment.
	Classify(candidates ...string) string
}

var defaultPrefixes = map[rune]string{
	'S': "Sandbox",
	'T': "Test",
	'P': "Production",
	'D': "Development",
}

// PrefixClassifier matches the leading letter of name tokens against a prefix table.
// This is a naming convention heuristic, not an authoritative source: a VM named
// "payroll" is classified as Production.
type PrefixClassifier struct {
	prefixes map[rune]string
}

// NewPrefixClassifier builds the S/T/P/D classifier. overrides replaces or extends
// the table, keyed by a single letter.
func NewPrefixClassifier(overrides map[string]string) PrefixClassifier {
	prefixes := make(map[rune]string, len(defaultPrefixes)+len(overrides))

	for k, v := range defaultPrefixes {
		prefixes[k] = v
	}

	for k, v := range overrides {
		runes := []rune(strings.TrimSpace(k))
		if len(runes) != 1 {
			continue
		}

		prefixes[unicode.ToUpper(runes[0])] = v
	}

	return PrefixClassifier{prefixes: prefixes}
}

func (c PrefixClassifier) Classify(candidates ...string) string {
	for _, candidate := range candidates {
		for _, token := range tokens(candidate) {
			env, ok := c.match(token)
			if ok {
				return env
			}
		}
	}

	return entity.EnvironmentUnknown
}

func (c PrefixClassifier) match(token string) (string, bool) {
	for _, r := range token {
		env, ok := c.prefixes[unicode.ToUpper(r)]

		return env, ok
	}

	return "", false
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
}

// DisplayCluster returns the VM cluster, or a value inferred from the first letter of
// its host. The inferred value is for display only and never stored in the record.
func DisplayCluster(vm entity.VM, c PrefixClassifier) string {
	if vm.Cluster != "" {
		return vm.Cluster
	}

	host := strings.TrimSpace(vm.Host)
	if host == "" {
		return ""
	}

	env, ok := c.match(host)
	if !ok {
		return ""
	}

	return env
}
