package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/javacontext-mcp/internal/eval"
	"github.com/dshills/javacontext-mcp/internal/indexer"
	"github.com/dshills/javacontext-mcp/internal/search"
)

// Environment variables read by Load.
const (
	EnvConfigPath = "JAVACONTEXT_CONFIG"
	EnvDBPath     = "JAVACONTEXT_DB_PATH"
	EnvWorkers    = "JAVACONTEXT_WORKERS"
)

// DefaultDir is the per-user directory holding the configuration file and
// the database.
const DefaultDir = "~/.javacontext"

// ErrIllegalOptions is returned by Validate for option combinations the
// evaluator rejects. It is the same error the eval package returns.
var ErrIllegalOptions = eval.ErrIllegalOptions

// ErrInvalidConfig wraps every other validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Storage Storage `toml:"storage"`
	Indexer Indexer `toml:"indexer"`
	Search  Search  `toml:"search"`
	Eval    Eval    `toml:"eval"`
}

type Storage struct {
	// DBPath is the directory holding javacontext.db.
	DBPath string `toml:"db_path"`
}

type Indexer struct {
	Workers      int      `toml:"workers"`
	Include      []string `toml:"include"`
	Exclude      []string `toml:"exclude"`
	IncludeTests bool     `toml:"include_tests"`
	Watch        bool     `toml:"watch"`
	DebounceMs   int      `toml:"debounce_ms"`
}

type Search struct {
	Workers int `toml:"workers"`
	// CacheSize is the number of parsed units kept between searches.
	CacheSize int `toml:"cache_size"`
	// WaitPolicy is force_immediate, cancel_if_not_ready or wait_until_ready.
	WaitPolicy string `toml:"wait_policy"`
}

type Eval struct {
	PackageName                   string   `toml:"package_name"`
	Imports                       []string `toml:"imports"`
	ClassNamePrefix               string   `toml:"class_name_prefix"`
	Encoding                      string   `toml:"encoding"`
	IncludeRunningVMBootclasspath bool     `toml:"include_running_vm_bootclasspath"`
	DecodedCacheSize              int      `toml:"decoded_cache_size"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	ix := indexer.DefaultConfig()
	return &Config{
		Storage: Storage{DBPath: filepath.Join(DefaultDir, "indices")},
		Indexer: Indexer{
			Workers:      ix.Workers,
			Include:      ix.Include,
			Exclude:      ix.Exclude,
			IncludeTests: ix.IncludeTests,
			DebounceMs:   int(indexer.DefaultDebounce / time.Millisecond),
		},
		Search: Search{
			Workers:    runtime.NumCPU(),
			CacheSize:  128,
			WaitPolicy: search.ForceImmediate.String(),
		},
		Eval: Eval{
			ClassNamePrefix:  "CodeSnippet_",
			DecodedCacheSize: 64,
		},
	}
}

// Load reads the configuration file at path, or at $JAVACONTEXT_CONFIG, or
// at ~/.javacontext/config.toml, then applies environment overrides and
// validates the result. Only the default file may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if !explicit {
		path = filepath.Join(DefaultDir, "config.toml")
	}
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvWorkers, v)
		}
		c.Indexer.Workers = n
		c.Search.Workers = n
	}
	return nil
}

// Validate checks value ranges and the evaluator option rules.
func (c *Config) Validate() error {
	if c.Storage.DBPath == "" {
		return fmt.Errorf("%w: storage.db_path cannot be empty", ErrInvalidConfig)
	}
	if c.Indexer.Workers < 0 {
		return fmt.Errorf("%w: indexer.workers must not be negative, got %d", ErrInvalidConfig, c.Indexer.Workers)
	}
	if c.Indexer.DebounceMs < 0 {
		return fmt.Errorf("%w: indexer.debounce_ms must not be negative, got %d", ErrInvalidConfig, c.Indexer.DebounceMs)
	}
	for _, p := range append(append([]string(nil), c.Indexer.Include...), c.Indexer.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad glob %q", ErrInvalidConfig, p)
		}
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("%w: search.workers must not be negative, got %d", ErrInvalidConfig, c.Search.Workers)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("%w: search.cache_size must not be negative, got %d", ErrInvalidConfig, c.Search.CacheSize)
	}
	if _, err := c.WaitPolicy(); err != nil {
		return err
	}
	if err := c.EvalOptions().Validate(); err != nil {
		if errors.Is(err, ErrIllegalOptions) {
			return fmt.Errorf("eval: encoding cannot be combined with include_running_vm_bootclasspath: %w", err)
		}
		return fmt.Errorf("%w: eval: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WaitPolicy parses the search wait policy.
func (c *Config) WaitPolicy() (search.WaitPolicy, error) {
	if c.Search.WaitPolicy == "" {
		return search.ForceImmediate, nil
	}
	if p, ok := search.ParseWaitPolicy(strings.ToLower(c.Search.WaitPolicy)); ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: unknown search.wait_policy %q", ErrInvalidConfig, c.Search.WaitPolicy)
}

// IndexerConfig returns the indexer section as an indexer configuration.
func (c *Config) IndexerConfig() *indexer.Config {
	return &indexer.Config{
		Workers:      c.Indexer.Workers,
		Include:      append([]string(nil), c.Indexer.Include...),
		Exclude:      append([]string(nil), c.Indexer.Exclude...),
		IncludeTests: c.Indexer.IncludeTests,
	}
}

// Debounce returns the watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Indexer.DebounceMs) * time.Millisecond
}

// SearchOptions returns the search section as engine options. The config
// must have passed Validate.
func (c *Config) SearchOptions() search.Options {
	policy, _ := c.WaitPolicy()
	return search.Options{Workers: c.Search.Workers, CacheSize: c.Search.CacheSize, Policy: policy}
}

// EvalOptions returns the eval section as evaluation context options.
func (c *Config) EvalOptions() eval.Options {
	return eval.Options{
		PackageName:                   c.Eval.PackageName,
		Imports:                       append([]string(nil), c.Eval.Imports...),
		ClassNamePrefix:               c.Eval.ClassNamePrefix,
		Encoding:                      c.Eval.Encoding,
		IncludeRunningVMBootclasspath: c.Eval.IncludeRunningVMBootclasspath,
		DecodedCacheSize:              c.Eval.DecodedCacheSize,
	}
}

// DBFile returns the database file under the storage directory, with a
// leading ~ expanded.
func (c *Config) DBFile() (string, error) {
	dir, err := ExpandHome(c.Storage.DBPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "javacontext.db"), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
