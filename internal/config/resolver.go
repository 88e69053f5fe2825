package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Resolver is the merged configuration view.
//
// It is not safe for concurrent use. Set is meant for test-local overrides
// within a single goroutine; tests running in parallel against the same
// Resolver may or may not observe each other's writes.
type Resolver struct {
	env  Environment
	tree map[string]any
}

// New wraps an in-memory document. The document is copied.
func New(env Environment, doc map[string]any) *Resolver {
	tree, _ := normalize(doc).(map[string]any)
	if tree == nil {
		tree = map[string]any{}
	}
	return &Resolver{env: env, tree: tree}
}

// ApplyEnvironmentVariables overlays every {prefix}_{PATH} variable of the
// process environment onto the tree. Values are coerced to bool, float, int or
// string. Variables are applied in name order. A variable resolving to an
// existing mapping is skipped; only leaves are overridden. The environment
// selectors TEST_ENVIRONMENT and ENVIRONMENT are never overlaid.
func (r *Resolver) ApplyEnvironmentVariables(prefix string) *Resolver {
	return r.applyEnviron(os.Environ(), prefix)
}

func (r *Resolver) applyEnviron(environ []string, prefix string) *Resolver {
	for _, override := range collectOverrides(environ, prefix) {
		segments := resolveEnvPath(r.tree, override.tokens)
		if existing, ok := lookup(r.tree, segments); ok {
			if _, isMap := existing.(map[string]any); isMap {
				continue
			}
		}
		setPath(r.tree, segments, coerce(override.value))
	}
	return r
}

// Get returns the value at path, or def (nil when omitted) if any segment is
// absent. Mappings and lists are returned as copies.
func (r *Resolver) Get(path string, def ...any) any {
	if value, ok := r.Lookup(path); ok {
		return value
	}
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

// Lookup reports whether path exists. A present null leaf counts as present.
func (r *Resolver) Lookup(path string) (any, bool) {
	value, ok := lookup(r.tree, splitPath(path))
	if !ok {
		return nil, false
	}
	return cloneValue(value), true
}

// MustGet is the strict accessor: an absent path is a *PathError.
func (r *Resolver) MustGet(path string) (any, error) {
	value, ok := r.Lookup(path)
	if !ok {
		return nil, &PathError{Path: path}
	}
	return value, nil
}

// Set writes value into the in-memory tree. Source documents are untouched.
func (r *Resolver) Set(path string, value any) error {
	segments := splitPath(path)
	if segments == nil {
		return fmt.Errorf("invalid config path %q", path)
	}
	setPath(r.tree, segments, normalize(value))
	return nil
}

// Section returns a copy of the mapping under a top-level key, or an empty
// mapping when the key is absent or not a mapping.
func (r *Resolver) Section(name string) map[string]any {
	if section, ok := r.tree[name].(map[string]any); ok {
		return cloneMap(section)
	}
	return map[string]any{}
}

// ToMap returns a copy of the whole merged tree.
func (r *Resolver) ToMap() map[string]any {
	return cloneMap(r.tree)
}

// YAML renders the merged tree.
func (r *Resolver) YAML() ([]byte, error) {
	out, err := yaml.Marshal(r.tree)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// String renders scalar values as strings; mappings and lists yield def.
func (r *Resolver) String(path, def string) string {
	switch v := r.Get(path).(type) {
	case string:
		return v
	case nil:
		return def
	case map[string]any, []any:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Int accepts integers, integral floats, numeric strings and booleans, so
// an overlaid "0" or "1" (coerced to false/true) still reads as 0 or 1.
func (r *Resolver) Int(path string, def int) int {
	switch v := r.Get(path).(type) {
	case bool:
		return boolToInt(v)
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

// Float accepts numbers, numeric strings and booleans (as 0 or 1).
func (r *Resolver) Float(path string, def float64) float64 {
	switch v := r.Get(path).(type) {
	case bool:
		return float64(boolToInt(v))
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool accepts booleans, the boolean words of the overlay coercion and
// integers (non-zero is true).
func (r *Resolver) Bool(path string, def bool) bool {
	switch v := r.Get(path).(type) {
	case bool:
		return v
	case string:
		if b, ok := coerce(v).(bool); ok {
			return b
		}
	case int:
		return v != 0
	}
	return def
}

// Duration accepts Go duration strings ("1m30s") or a bare number of seconds.
// Booleans read as 0s or 1s.
func (r *Resolver) Duration(path string, def time.Duration) time.Duration {
	switch v := r.Get(path).(type) {
	case bool:
		return time.Duration(boolToInt(v)) * time.Second
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return def
}

// StringSlice returns list values rendered as strings. A scalar string is
// split on commas.
func (r *Resolver) StringSlice(path string, def []string) []string {
	switch v := r.Get(path).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

// StringMap flattens one mapping level into strings, e.g. for HTTP headers.
func (r *Resolver) StringMap(path string) map[string]string {
	out := map[string]string{}
	m, ok := r.Get(path).(map[string]any)
	if !ok {
		return out
	}
	for key, value := range m {
		if value == nil {
			continue
		}
		out[key] = fmt.Sprint(value)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
