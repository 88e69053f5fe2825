package config

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	floatPattern   = regexp.MustCompile(`^[+-]?(\d+\.\d*|\d*\.\d+)$`)
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
)

// coerce converts an environment variable value. First match wins:
// boolean words (including "1" and "0"), dotted decimals, integers, string.
func coerce(raw string) any {
	switch strings.ToLower(raw) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	}

	if floatPattern.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}

	if integerPattern.MatchString(raw) {
		if i, err := strconv.Atoi(raw); err == nil {
			return i
		}
	}

	return raw
}

// envOverride is one PREFIX_* variable stripped of its prefix.
type envOverride struct {
	name   string
	tokens []string
	value  string
}

// collectOverrides picks the variables carrying prefix out of environ
// ("KEY=VALUE" pairs) and returns them sorted by name.
func collectOverrides(environ []string, prefix string) []envOverride {
	prefix = strings.TrimSuffix(prefix, "_") + "_"

	var overrides []envOverride
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, prefix) || isSelectorVariable(name) {
			continue
		}
		suffix := strings.Trim(strings.ToLower(name[len(prefix):]), "_")
		if suffix == "" {
			continue
		}
		tokens := strings.FieldsFunc(suffix, func(r rune) bool { return r == '_' })
		overrides = append(overrides, envOverride{name: name, tokens: tokens, value: value})
	}

	sort.Slice(overrides, func(i, j int) bool {
		return overrides[i].name < overrides[j].name
	})
	return overrides
}

// resolveEnvPath maps upper-snake tokens onto the tree. Existing keys are
// matched greedily, longest token run first, so "verify_ssl" is found under
// "api" for API_VERIFY_SSL. A leaf only matches when it consumes every
// remaining token. Unmatched tokens become a new leaf key joined with "_";
// when nothing matched at all, the first token opens a new section.
func resolveEnvPath(tree map[string]any, tokens []string) []string {
	var segments []string
	node := tree
	i := 0

	for i < len(tokens) && node != nil {
		matched := false
		for j := len(tokens); j > i; j-- {
			key := strings.Join(tokens[i:j], "_")
			value, ok := node[key]
			if !ok {
				continue
			}
			child, isMap := value.(map[string]any)
			if !isMap && j != len(tokens) {
				continue
			}
			segments = append(segments, key)
			node = child
			i = j
			matched = true
			break
		}
		if !matched {
			break
		}
	}

	if i == len(tokens) {
		return segments
	}

	rest := tokens[i:]
	if len(segments) == 0 && len(rest) > 1 {
		return []string{rest[0], strings.Join(rest[1:], "_")}
	}
	return append(segments, strings.Join(rest, "_"))
}
