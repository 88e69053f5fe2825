package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultEnvPrefix is the variable prefix used when Options leaves it empty.
	DefaultEnvPrefix = "TEST"
	// DefaultConfigDir is where LoadDir looks for documents by default.
	DefaultConfigDir = "config/environments"

	baseFileName  = "default.yaml"
	localFileName = "local.yaml"
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// Options describes where LoadDir finds its documents.
type Options struct {
	Environment Environment
	ConfigDir   string
	EnvPrefix   string
	// SkipEnvOverrides disables the PREFIX_* overlay.
	SkipEnvOverrides bool
}

// Load reads the base document (required), the environment document and the
// local override (both optional, empty paths allowed) and deep-merges them in
// that order. It fails with a *LoadError if the base document is missing or
// any document cannot be parsed; no partial result is returned.
func Load(env Environment, basePath, envPath, localPath string) (*Resolver, error) {
	base, err := readDocument(basePath, true)
	if err != nil {
		return nil, err
	}

	tree := base
	for _, path := range []string{envPath, localPath} {
		doc, err := readDocument(path, false)
		if err != nil {
			return nil, err
		}
		deepMerge(tree, doc)
	}

	return &Resolver{env: env, tree: tree}, nil
}

// LoadDir resolves default.yaml, <environment>.yaml and local.yaml inside
// opts.ConfigDir and applies PREFIX_* overrides unless disabled.
func LoadDir(opts Options) (*Resolver, error) {
	env := opts.Environment
	if env == "" {
		env = EnvironmentFromProcess()
	}
	dir := opts.ConfigDir
	if dir == "" {
		dir = DefaultConfigDir
	}

	r, err := Load(env,
		filepath.Join(dir, baseFileName),
		filepath.Join(dir, string(env)+".yaml"),
		filepath.Join(dir, localFileName),
	)
	if err != nil {
		return nil, err
	}

	if !opts.SkipEnvOverrides {
		prefix := opts.EnvPrefix
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}
		r.ApplyEnvironmentVariables(prefix)
	}
	return r, nil
}

// readDocument parses one YAML document into a normalized mapping. A missing
// optional document is an empty mapping.
func readDocument(path string, required bool) (map[string]any, error) {
	if path == "" {
		if required {
			return nil, &LoadError{Path: path, Err: errors.New("base document path is empty")}
		}
		return map[string]any{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return map[string]any{}, nil
		}
		return nil, &LoadError{Path: path, Err: fmt.Errorf("read file: %w", err)}
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Path: path, Line: yamlErrorLine(err), Err: fmt.Errorf("parse YAML: %w", err)}
	}
	if raw == nil {
		return map[string]any{}, nil
	}

	doc, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("top-level node must be a mapping, got %T", raw)}
	}
	return doc, nil
}

func yamlErrorLine(err error) int {
	match := yamlLinePattern.FindStringSubmatch(err.Error())
	if match == nil {
		return 0
	}
	line, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0
	}
	return line
}

// LoadSchema reads <dir>/<name>.json. JSON is a subset of YAML, so the schema
// is decoded with the same parser as the configuration documents.
func LoadSchema(dir, name string) (map[string]any, error) {
	path := filepath.Join(dir, strings.TrimSuffix(name, ".json")+".json")
	return readDocument(path, true)
}
