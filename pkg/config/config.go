// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/logflow/patternflow/pkg/discovery"
	pferrors "github.com/logflow/patternflow/pkg/errors"
	"github.com/logflow/patternflow/pkg/eventclass"
	"github.com/logflow/patternflow/pkg/parser"
	"github.com/logflow/patternflow/pkg/patterns"
	"github.com/logflow/patternflow/pkg/storage"
	"github.com/logflow/patternflow/pkg/writer"
)

// Config holds all patternflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Discovery DiscoveryConfig `yaml:"discovery"`
	Relog     RelogConfig     `yaml:"relog"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DiscoveryConfig controls activity discovery passes.
type DiscoveryConfig struct {
	Patterns            string `yaml:"patterns"` // pta | mta | mr | smr | nsmr
	Strategy            string `yaml:"strategy"` // per-trace | merged
	MaxTandemPeriod     int    `yaml:"max_tandem_period"`
	Level               int    `yaml:"level"`
	Narrow              bool   `yaml:"narrow"`
	Workers             int    `yaml:"workers"` // 0 = one per CPU
	UnattachedMinEvents int    `yaml:"unattached_min_events"`
	EventClass          string `yaml:"event_class"` // activity | activity+resource
	MaxIterations       int    `yaml:"max_iterations"`
}

// RelogConfig controls abstracted log construction.
type RelogConfig struct {
	Undefined   string `yaml:"undefined"` // dont-insert | single-event | all-events
	Placeholder string `yaml:"placeholder"`
}

// InputConfig maps event log columns.
type InputConfig struct {
	Format          string `yaml:"format"` // empty = from extension
	CaseColumn      string `yaml:"case_column"`
	ActivityColumn  string `yaml:"activity_column"`
	TimestampColumn string `yaml:"timestamp_column"`
	ResourceColumn  string `yaml:"resource_column"`
	TimestampFormat string `yaml:"timestamp_format"`
	Delimiter       string `yaml:"delimiter"`
	Sheet           string `yaml:"sheet"`
}

// OutputConfig controls exported files.
type OutputConfig struct {
	Compression string `yaml:"compression"` // snappy | zstd | gzip | none
	BatchSize   int    `yaml:"batch_size"`
}

// StorageConfig configures s3:// inputs and outputs.
type StorageConfig struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`

	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// TelemetryConfig controls OTLP tracing.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	ServiceName   string  `yaml:"service_name"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
	Insecure      bool    `yaml:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Discovery: DiscoveryConfig{
			Patterns:        "pta",
			Strategy:        "per-trace",
			MaxTandemPeriod: 10,
			Narrow:          true,
			EventClass:      "activity",
			MaxIterations:   5,
		},
		Relog: RelogConfig{
			Undefined:   "single-event",
			Placeholder: discovery.UndefinedActivityName,
		},
		Input: InputConfig{
			CaseColumn:      "case:concept:name",
			ActivityColumn:  "concept:name",
			TimestampColumn: "time:timestamp",
			ResourceColumn:  "org:resource",
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			Delimiter:       ",",
		},
		Output: OutputConfig{
			Compression: "snappy",
			BatchSize:   8192,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Telemetry: TelemetryConfig{
			Endpoint:      "localhost:4317",
			ServiceName:   "patternflow",
			SamplingRatio: 1.0,
			Insecure:      true,
		},
	}
}

// DiscoveryOptions converts the discovery section into pass options.
func (c *Config) DiscoveryOptions() (discovery.Options, error) {
	opts := discovery.DefaultOptions()

	kind, err := patterns.ParseKind(c.Discovery.Patterns)
	if err != nil {
		return opts, pferrors.Wrap(err, pferrors.CodeInvalidConfig, "invalid discovery.patterns")
	}
	strategy, err := patterns.ParseStrategy(c.Discovery.Strategy)
	if err != nil {
		return opts, pferrors.Wrap(err, pferrors.CodeInvalidConfig, "invalid discovery.strategy")
	}
	extractor, ok := eventclass.ParseExtractor(c.Discovery.EventClass)
	if !ok {
		return opts, pferrors.InvalidConfig("discovery.event_class", c.Discovery.EventClass, "unknown event class")
	}

	opts.Patterns = kind
	opts.Strategy = strategy
	opts.MaxTandemPeriod = c.Discovery.MaxTandemPeriod
	opts.Level = c.Discovery.Level
	opts.Narrow = c.Discovery.Narrow
	opts.Workers = c.Discovery.Workers
	opts.UnattachedMinEvents = c.Discovery.UnattachedMinEvents
	opts.Extractor = extractor
	return opts, nil
}

// RelogOptions converts the relog section.
func (c *Config) RelogOptions() (discovery.RelogOptions, error) {
	undef, err := discovery.ParseUndefStrategy(c.Relog.Undefined)
	if err != nil {
		return discovery.RelogOptions{}, pferrors.Wrap(err, pferrors.CodeInvalidConfig, "invalid relog.undefined")
	}
	return discovery.RelogOptions{Undefined: undef, Placeholder: c.Relog.Placeholder}, nil
}

// ParserConfig converts the input section.
func (c *Config) ParserConfig() parser.Config {
	cfg := parser.DefaultConfig()
	cfg.CaseIDColumn = c.Input.CaseColumn
	cfg.ActivityColumn = c.Input.ActivityColumn
	cfg.TimestampColumn = c.Input.TimestampColumn
	cfg.ResourceColumn = c.Input.ResourceColumn
	cfg.TimestampFormat = c.Input.TimestampFormat
	cfg.Sheet = c.Input.Sheet
	if len(c.Input.Delimiter) == 1 {
		cfg.Delimiter = c.Input.Delimiter[0]
	}
	return cfg
}

// WriterConfig converts the output section.
func (c *Config) WriterConfig() writer.Config {
	cfg := writer.DefaultConfig()
	if c.Output.BatchSize > 0 {
		cfg.BatchSize = c.Output.BatchSize
	}
	if c.Output.Compression != "" {
		cfg.Compression = writer.ParseCompression(c.Output.Compression)
	}
	return cfg
}

// StorageOptions converts the storage section.
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Region:          c.Storage.Region,
		Endpoint:        c.Storage.Endpoint,
		UsePathStyle:    c.Storage.UsePathStyle,
		AccessKeyID:     c.Storage.AccessKeyID,
		SecretAccessKey: c.Storage.SecretAccessKey,
	}
}

// Validate reports every invalid value as a coded error.
func (c *Config) Validate() error {
	var errs pferrors.MultiError

	if _, err := c.DiscoveryOptions(); err != nil {
		errs.Add(err)
	}
	if _, err := c.RelogOptions(); err != nil {
		errs.Add(err)
	}
	if c.Discovery.Level < 0 {
		errs.Add(pferrors.InvalidConfig("discovery.level", c.Discovery.Level, "level must not be negative"))
	}
	if c.Discovery.UnattachedMinEvents < 0 {
		errs.Add(pferrors.InvalidConfig("discovery.unattached_min_events", c.Discovery.UnattachedMinEvents, "must not be negative"))
	}
	if len(c.Input.Delimiter) != 1 {
		errs.Add(pferrors.InvalidConfig("input.delimiter", c.Input.Delimiter, "delimiter must be a single byte"))
	}
	if c.Input.CaseColumn == "" || c.Input.ActivityColumn == "" {
		errs.Add(pferrors.InvalidConfig("input", c.Input, "case and activity columns are required"))
	}
	switch c.Output.Compression {
	case "snappy", "zstd", "gzip", "none", "":
	default:
		errs.Add(pferrors.InvalidConfig("output.compression", c.Output.Compression, "unknown compression"))
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		errs.Add(pferrors.InvalidConfig("telemetry.sampling_ratio", r, "ratio must be within [0, 1]"))
	}

	return errs.Combined()
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // loaded config file paths

	// search overrides the default file search list when set.
	search []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// NewManagerWithPaths creates a manager that reads only the given files.
func NewManagerWithPaths(paths ...string) *Manager {
	return &Manager{
		config: Default(),
		search: append([]string{}, paths...),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	// Later files override earlier ones
	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return pferrors.Wrap(err, pferrors.CodeInvalidConfig, "failed to load config").
				WithContext("path", path)
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	if m.search != nil {
		return m.search
	}

	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/patternflow/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".patternflow", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".patternflow.yaml"))
	}

	return paths
}

// loadFile decodes a config file over the current values. Keys absent
// from the file keep their previous value.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	next := *m.config
	if err := yaml.Unmarshal(data, &next); err != nil {
		return err
	}
	m.config = &next
	return nil
}

// loadEnv applies PATTERNFLOW_* overrides.
func (m *Manager) loadEnv() {
	c := m.config

	if v := os.Getenv("PATTERNFLOW_PATTERNS"); v != "" {
		c.Discovery.Patterns = v
	}
	if v := os.Getenv("PATTERNFLOW_STRATEGY"); v != "" {
		c.Discovery.Strategy = v
	}
	if v, ok := envInt("PATTERNFLOW_MAX_TANDEM_PERIOD"); ok {
		c.Discovery.MaxTandemPeriod = v
	}
	if v, ok := envInt("PATTERNFLOW_WORKERS"); ok {
		c.Discovery.Workers = v
	}
	if v, ok := envBool("PATTERNFLOW_NARROW"); ok {
		c.Discovery.Narrow = v
	}
	if v := os.Getenv("PATTERNFLOW_UNDEFINED"); v != "" {
		c.Relog.Undefined = v
	}
	if v := os.Getenv("PATTERNFLOW_COMPRESSION"); v != "" {
		c.Output.Compression = v
	}
	if v, ok := envBool("PATTERNFLOW_TELEMETRY"); ok {
		c.Telemetry.Enabled = v
	}
	if v := os.Getenv("PATTERNFLOW_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("PATTERNFLOW_S3_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.Region = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, err == nil
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return b, err == nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := *m.config
	return &c
}

// GetPaths returns the loaded config file paths.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.paths...)
}

// SearchPaths returns every path Load looks at, in priority order.
func (m *Manager) SearchPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.getConfigPaths()...)
}

// Marshal renders the current configuration as YAML.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return yaml.Marshal(m.config)
}

// Save writes the current configuration to path, creating parent
// directories as needed.
func (m *Manager) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to create config dir")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to write config").
			WithContext("path", path)
	}
	return nil
}

// UserConfigPath returns ~/.patternflow/config.yaml.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".patternflow", "config.yaml"), nil
}

var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the process-wide manager, loaded on first use.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		_ = globalManager.Load()
	})
	return globalManager
}
