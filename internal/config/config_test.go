package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const baseYAML = `
environment:
  name: development
api:
  timeout: 30
  retries: 3
  verify_ssl: true
  headers:
    Accept: application/json
database:
  host: localhost
  port: 5432
`

func TestLoadMergesEnvironmentDocument(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", baseYAML)
	env := writeFile(t, dir, "development.yaml", `
api:
  base_url: "https://api-dev.example.com"
`)

	r, err := Load(Development, base, env, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if got := r.Get("api.timeout"); got != 30 {
		t.Fatalf("expected api.timeout 30, got %#v", got)
	}
	if got := r.Get("api.base_url"); got != "https://api-dev.example.com" {
		t.Fatalf("unexpected api.base_url: %#v", got)
	}
	if got := r.Get("api.missing", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %#v", got)
	}
	if got := r.Get("api.missing"); got != nil {
		t.Fatalf("expected nil for missing path, got %#v", got)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", "a:\n  b:\n    c: base\n    d: base\n    e: base\n")
	env := writeFile(t, dir, "staging.yaml", "a:\n  b:\n    c: env\n    d: env\n")
	local := writeFile(t, dir, "local.yaml", "a:\n  b:\n    c: local\n")

	r, err := Load(Staging, base, env, local)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	tests := map[string]string{
		"a.b.c": "local",
		"a.b.d": "env",
		"a.b.e": "base",
	}
	for path, want := range tests {
		if got := r.Get(path); got != want {
			t.Fatalf("%s: expected %q, got %#v", path, want, got)
		}
	}
}

func TestDeepMergePreservesSiblings(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", "a:\n  x: 1\n  y: 2\n")
	env := writeFile(t, dir, "dev.yaml", "a:\n  y: 3\n")

	r, err := Load("dev", base, env, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := map[string]any{"a": map[string]any{"x": 1, "y": 3}}
	if got := r.ToMap(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestDeepMergeReplacesNonMappings(t *testing.T) {
	dst := map[string]any{
		"list":   []any{1, 2, 3},
		"scalar": map[string]any{"nested": true},
	}
	deepMerge(dst, map[string]any{
		"list":   []any{9},
		"scalar": "flat",
	})

	if got := dst["list"]; !reflect.DeepEqual(got, []any{9}) {
		t.Fatalf("expected list to be replaced, got %#v", got)
	}
	if got := dst["scalar"]; got != "flat" {
		t.Fatalf("expected mapping to be replaced by scalar, got %#v", got)
	}
}

func TestLoadMissingOptionalDocuments(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", baseYAML)

	withMissing, err := Load(Production, base, filepath.Join(dir, "production.yaml"), filepath.Join(dir, "local.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	baseOnly, err := Load(Production, base, "", "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !reflect.DeepEqual(withMissing.ToMap(), baseOnly.ToMap()) {
		t.Fatalf("missing optional documents changed the result")
	}
}

func TestLoadMissingBaseDocument(t *testing.T) {
	dir := t.TempDir()

	r, err := Load(Development, filepath.Join(dir, "nope.yaml"), "", "")
	if err == nil {
		t.Fatalf("expected error for missing base document")
	}
	if r != nil {
		t.Fatalf("expected no resolver on failure")
	}
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", baseYAML)
	broken := writeFile(t, dir, "staging.yaml", "api:\n  timeout: 30\n  retries: [1, 2\n")

	_, err := Load(Staging, base, broken, "")
	if err == nil {
		t.Fatalf("expected parse error")
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if loadErr.Path != broken {
		t.Fatalf("expected error to name %s, got %s", broken, loadErr.Path)
	}
	if loadErr.Line == 0 {
		t.Fatalf("expected a line number in %v", loadErr)
	}
}

func TestLoadRejectsNonMappingDocument(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", "- a\n- b\n")

	if _, err := Load(Development, base, "", ""); !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad for list document, got %v", err)
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", "")

	r, err := Load(Development, base, "", "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(r.ToMap()) != 0 {
		t.Fatalf("expected empty tree, got %#v", r.ToMap())
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", baseYAML)
	env := writeFile(t, dir, "staging.yaml", "api:\n  timeout: 60\n")

	first, err := Load(Staging, base, env, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	second, err := Load(Staging, base, env, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !reflect.DeepEqual(first.ToMap(), second.ToMap()) {
		t.Fatalf("repeated loads differ")
	}
	for i := 0; i < 3; i++ {
		if first.Get("api.timeout") != 60 || second.Get("api.timeout") != 60 {
			t.Fatalf("repeated lookups differ")
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", baseYAML)
	writeFile(t, dir, "staging.yaml", "environment:\n  name: staging\napi:\n  base_url: https://api-staging.example.com\n")
	writeFile(t, dir, "local.yaml", "api:\n  retries: 5\n")
	t.Setenv("LOADDIR_API_TIMEOUT", "45")

	r, err := LoadDir(Options{Environment: Staging, ConfigDir: dir, EnvPrefix: "LOADDIR"})
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}

	if got := r.Get("api.timeout"); got != 45 {
		t.Fatalf("expected env override 45, got %#v", got)
	}
	if got := r.Get("api.retries"); got != 5 {
		t.Fatalf("expected local override 5, got %#v", got)
	}
	if !r.IsStaging() {
		t.Fatalf("expected staging environment")
	}
}

func TestLoadDirSkipEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", baseYAML)
	t.Setenv("SKIPPED_API_TIMEOUT", "99")

	r, err := LoadDir(Options{Environment: Development, ConfigDir: dir, EnvPrefix: "SKIPPED", SkipEnvOverrides: true})
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}
	if got := r.Get("api.timeout"); got != 30 {
		t.Fatalf("expected base value 30, got %#v", got)
	}
}

func TestSetWritesInMemoryOnly(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "default.yaml", baseYAML)

	r, err := Load(Development, base, "", "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if err := r.Set("api.timeout", 5); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := r.Set("feature.flags.beta", true); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := r.Set("database.host.primary", "db-1"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if got := r.Get("api.timeout"); got != 5 {
		t.Fatalf("expected 5, got %#v", got)
	}
	if got := r.Get("feature.flags.beta"); got != true {
		t.Fatalf("expected intermediate mappings to be created, got %#v", got)
	}
	if got := r.Get("database.host.primary"); got != "db-1" {
		t.Fatalf("expected scalar parent to become mapping, got %#v", got)
	}

	reloaded, err := Load(Development, base, "", "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := reloaded.Get("api.timeout"); got != 30 {
		t.Fatalf("Set leaked into source document: %#v", got)
	}

	if err := r.Set("bad..path", 1); err == nil {
		t.Fatalf("expected error for empty segment")
	}
}

func TestGetReturnsCopies(t *testing.T) {
	r := New(Development, map[string]any{"api": map[string]any{"timeout": 30}})

	section := r.Get("api").(map[string]any)
	section["timeout"] = 1

	if got := r.Get("api.timeout"); got != 30 {
		t.Fatalf("mutation of returned mapping leaked: %#v", got)
	}
}

func TestMustGet(t *testing.T) {
	r := New(Development, map[string]any{"api": map[string]any{"token": nil}})

	if _, err := r.MustGet("api.token"); err != nil {
		t.Fatalf("expected present null leaf, got %v", err)
	}

	_, err := r.MustGet("api.timeout")
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
	var pathErr *PathError
	if !errors.As(err, &pathErr) || pathErr.Path != "api.timeout" {
		t.Fatalf("expected PathError for api.timeout, got %v", err)
	}
}

func TestGetThroughScalar(t *testing.T) {
	r := New(Development, map[string]any{"api": "flat"})

	if got := r.Get("api.timeout", 10); got != 10 {
		t.Fatalf("expected default when walking through scalar, got %#v", got)
	}
	if got := r.Get("", "def"); got != "def" {
		t.Fatalf("expected default for empty path, got %#v", got)
	}
}

func TestSection(t *testing.T) {
	r := New(Development, map[string]any{
		"api":  map[string]any{"timeout": 30},
		"flat": 1,
	})

	if got := r.Section("api"); !reflect.DeepEqual(got, map[string]any{"timeout": 30}) {
		t.Fatalf("unexpected section: %#v", got)
	}
	if got := r.Section("missing"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty mapping, got %#v", got)
	}
	if got := r.Section("flat"); len(got) != 0 {
		t.Fatalf("expected empty mapping for scalar, got %#v", got)
	}
}

func TestTypedAccessors(t *testing.T) {
	r := New(Development, map[string]any{
		"api": map[string]any{
			"timeout":        30,
			"backoff_factor": 0.5,
			"verify_ssl":     "no",
			"poll":           "1m30s",
			"port":           "8080",
			"hosts":          []any{"a", "b"},
			"csv":            "x, y ,z",
			"headers":        map[string]any{"X-Trace": 1, "X-Skip": nil},
		},
	})

	if got := r.String("api.timeout", ""); got != "30" {
		t.Fatalf("String: got %q", got)
	}
	if got := r.String("api.missing", "def"); got != "def" {
		t.Fatalf("String default: got %q", got)
	}
	if got := r.Int("api.port", 0); got != 8080 {
		t.Fatalf("Int from string: got %d", got)
	}
	if got := r.Int("api.backoff_factor", 7); got != 7 {
		t.Fatalf("Int from fractional float: got %d", got)
	}
	if got := r.Float("api.backoff_factor", 0); got != 0.5 {
		t.Fatalf("Float: got %v", got)
	}
	if got := r.Float("api.timeout", 0); got != 30 {
		t.Fatalf("Float from int: got %v", got)
	}
	if got := r.Bool("api.verify_ssl", true); got {
		t.Fatalf("Bool from string: got %v", got)
	}
	if got := r.Duration("api.timeout", 0); got != 30*time.Second {
		t.Fatalf("Duration from seconds: got %s", got)
	}
	if got := r.Duration("api.poll", 0); got != 90*time.Second {
		t.Fatalf("Duration from string: got %s", got)
	}
	if got := r.Duration("api.backoff_factor", 0); got != 500*time.Millisecond {
		t.Fatalf("Duration from float: got %s", got)
	}
	if got := r.StringSlice("api.hosts", nil); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("StringSlice list: got %v", got)
	}
	if got := r.StringSlice("api.csv", nil); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("StringSlice csv: got %v", got)
	}
	if got := r.StringMap("api.headers"); !reflect.DeepEqual(got, map[string]string{"X-Trace": "1"}) {
		t.Fatalf("StringMap: got %v", got)
	}
}

func TestEnvironmentPredicates(t *testing.T) {
	tests := []struct {
		name   string
		env    Environment
		doc    map[string]any
		prod   bool
		stage  bool
		dev    bool
		custom string
	}{
		{name: "FieldWins", env: Development, doc: map[string]any{"environment": map[string]any{"name": "production"}}, prod: true, custom: "production"},
		{name: "FallbackToLoadName", env: Staging, doc: map[string]any{}, stage: true, custom: "staging"},
		{name: "ShortAlias", env: "dev", doc: map[string]any{}, dev: true, custom: "dev"},
		{name: "CaseSensitive", env: "Production", doc: map[string]any{}, custom: "Production"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.env, tt.doc)
			if r.IsProduction() != tt.prod || r.IsStaging() != tt.stage || r.IsDevelopment() != tt.dev {
				t.Fatalf("unexpected predicates for %q: prod=%v stage=%v dev=%v",
					r.Environment(), r.IsProduction(), r.IsStaging(), r.IsDevelopment())
			}
			if !r.IsEnvironment(tt.custom) {
				t.Fatalf("expected IsEnvironment(%q)", tt.custom)
			}
		})
	}
}

func TestEnvironmentFromProcess(t *testing.T) {
	t.Setenv("TEST_ENVIRONMENT", "")
	t.Setenv("ENVIRONMENT", "")
	if got := EnvironmentFromProcess(); got != Development {
		t.Fatalf("expected default development, got %s", got)
	}

	t.Setenv("ENVIRONMENT", "staging")
	if got := EnvironmentFromProcess(); got != Staging {
		t.Fatalf("expected staging from ENVIRONMENT, got %s", got)
	}

	t.Setenv("TEST_ENVIRONMENT", "production")
	if got := EnvironmentFromProcess(); got != Production {
		t.Fatalf("expected TEST_ENVIRONMENT to win, got %s", got)
	}
}

func TestYAMLSnapshot(t *testing.T) {
	r := New(Development, map[string]any{"api": map[string]any{"timeout": 30}})

	out, err := r.YAML()
	if err != nil {
		t.Fatalf("YAML returned error: %v", err)
	}
	if string(out) != "api:\n    timeout: 30\n" {
		t.Fatalf("unexpected YAML: %q", out)
	}
}

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user.json", `{"type": "object", "required": ["id", "email"]}`)

	schema, err := LoadSchema(dir, "user")
	if err != nil {
		t.Fatalf("LoadSchema returned error: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("unexpected schema: %#v", schema)
	}
	if _, err := LoadSchema(dir, "missing"); !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad for missing schema, got %v", err)
	}
}

func TestLoadDirSelectorKeepsEnvironmentSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", "environment:\n  name: development\n  region: eu\n")
	t.Setenv("TEST_ENVIRONMENT", "staging")

	r, err := LoadDir(Options{ConfigDir: dir})
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}

	if _, ok := r.Get("environment").(map[string]any); !ok {
		t.Fatalf("expected environment mapping, got %#v", r.Get("environment"))
	}
	if got := r.Get("environment.region"); got != "eu" {
		t.Fatalf("expected region eu, got %#v", got)
	}
}

func TestLoadDirShippedLayout(t *testing.T) {
	t.Setenv("TEST_ENVIRONMENT", "staging")
	t.Setenv("ENVIRONMENT", "")

	r, err := LoadDir(Options{ConfigDir: filepath.Join("..", "..", "config", "environments")})
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}

	name, err := r.MustGet("environment.name")
	if err != nil || name != "staging" {
		t.Fatalf("expected environment.name staging, got %#v (%v)", name, err)
	}
	if got := r.Get("environment.region"); got != "eu-west-1" {
		t.Fatalf("expected base region to survive, got %#v", got)
	}
	if !r.IsStaging() {
		t.Fatalf("expected staging predicates, got %s", r.Environment())
	}
	if got := r.Get("api.base_url"); got != "https://api-staging.example.com" {
		t.Fatalf("unexpected base URL %#v", got)
	}
}
