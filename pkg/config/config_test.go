package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/logflow/patternflow/pkg/discovery"
	pferrors "github.com/logflow/patternflow/pkg/errors"
	"github.com/logflow/patternflow/pkg/patterns"
	"github.com/logflow/patternflow/pkg/writer"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}

	opts, err := cfg.DiscoveryOptions()
	if err != nil {
		t.Fatalf("DiscoveryOptions failed: %v", err)
	}
	if opts.Patterns != patterns.PrimitiveTandemArrays {
		t.Errorf("Expected primitive tandem arrays, got %s", opts.Patterns)
	}
	if !opts.Narrow {
		t.Error("Expected narrowing on by default")
	}
	if opts.Extractor == nil {
		t.Error("Expected an event class extractor")
	}

	relog, err := cfg.RelogOptions()
	if err != nil {
		t.Fatalf("RelogOptions failed: %v", err)
	}
	if relog.Undefined != discovery.InsertAsSingleEvent {
		t.Errorf("Expected single-event, got %s", relog.Undefined)
	}
}

func TestManager_LayeredFiles(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.yaml", `
discovery:
  patterns: mr
  strategy: merged
  narrow: false
`)
	project := writeFile(t, dir, "project.yaml", `
discovery:
  patterns: smr
  level: 2
relog:
  undefined: all-events
`)
	missing := filepath.Join(dir, "missing.yaml")

	m := NewManagerWithPaths(missing, user, project)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Discovery.Patterns != "smr" {
		t.Errorf("Expected project file to win, got %q", cfg.Discovery.Patterns)
	}
	if cfg.Discovery.Strategy != "merged" {
		t.Errorf("Expected user strategy to survive, got %q", cfg.Discovery.Strategy)
	}
	if cfg.Discovery.Narrow {
		t.Error("Expected narrow=false from user file")
	}
	if cfg.Discovery.MaxTandemPeriod != 10 {
		t.Errorf("Expected default period 10, got %d", cfg.Discovery.MaxTandemPeriod)
	}
	if cfg.Discovery.Level != 2 {
		t.Errorf("Expected level 2, got %d", cfg.Discovery.Level)
	}

	paths := m.GetPaths()
	if len(paths) != 2 || paths[0] != user || paths[1] != project {
		t.Errorf("Expected loaded paths [user project], got %v", paths)
	}
}

func TestManager_Env(t *testing.T) {
	t.Setenv("PATTERNFLOW_PATTERNS", "nsmr")
	t.Setenv("PATTERNFLOW_WORKERS", "3")
	t.Setenv("PATTERNFLOW_NARROW", "false")

	m := NewManagerWithPaths()
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()
	if cfg.Discovery.Patterns != "nsmr" || cfg.Discovery.Workers != 3 || cfg.Discovery.Narrow {
		t.Errorf("Env overrides not applied: %+v", cfg.Discovery)
	}
}

func TestManager_BadYAML(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "discovery: [unclosed")

	err := NewManagerWithPaths(bad).Load()
	if err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
	if !pferrors.IsCode(err, pferrors.CodeInvalidConfig) {
		t.Errorf("Expected %s, got %v", pferrors.CodeInvalidConfig, err)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Discovery.Patterns = "bogus"
	cfg.Relog.Undefined = "sometimes"
	cfg.Input.Delimiter = ";;"
	cfg.Telemetry.SamplingRatio = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	multi, ok := err.(*pferrors.MultiError)
	if !ok {
		t.Fatalf("Expected *MultiError, got %T", err)
	}
	if len(multi.Errors) != 4 {
		t.Errorf("Expected 4 errors, got %d: %v", len(multi.Errors), err)
	}
	for _, e := range multi.Errors {
		if !pferrors.IsCode(e, pferrors.CodeInvalidConfig) {
			t.Errorf("Expected %s, got %v", pferrors.CodeInvalidConfig, e)
		}
	}
}

func TestManager_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	m := NewManagerWithPaths()
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewManagerWithPaths(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if *reloaded.Get() != *m.Get() {
		t.Errorf("Expected identical config after save, got %+v", reloaded.Get())
	}
}

func TestConverters(t *testing.T) {
	cfg := Default()
	cfg.Input.Delimiter = ";"
	cfg.Input.CaseColumn = "case"
	cfg.Input.Sheet = "Events"
	cfg.Output.Compression = "zstd"
	cfg.Output.BatchSize = 100
	cfg.Storage.Endpoint = "http://localhost:9000"
	cfg.Storage.UsePathStyle = true

	p := cfg.ParserConfig()
	if p.Delimiter != ';' || p.CaseIDColumn != "case" || p.Sheet != "Events" {
		t.Errorf("Unexpected parser config %+v", p)
	}
	if p.ActivityColumn != "concept:name" {
		t.Errorf("Expected default activity column, got %q", p.ActivityColumn)
	}

	w := cfg.WriterConfig()
	if w.Compression != writer.CompressionZstd || w.BatchSize != 100 {
		t.Errorf("Unexpected writer config %+v", w)
	}

	s := cfg.StorageOptions()
	if s.Region != "us-east-1" || s.Endpoint != "http://localhost:9000" || !s.UsePathStyle {
		t.Errorf("Unexpected storage config %+v", s)
	}
}
