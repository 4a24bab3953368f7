// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed thread configuration, layered loading and a thread-safe store with
// atomic snapshots and reload listeners.

package control

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	units "github.com/docker/go-units"
	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/internal/concurrency"
	"github.com/xyproto/env/v2"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "HIOLOAD_THREAD_"

// Config keys, shared by the environment (upper-cased, prefixed), config
// files and api.Control maps.
const (
	KeyDefaultStackSize = "default_stack_size"
	KeyMaxStackSize     = "max_stack_size"
	KeyMaxThreads       = "max_threads"
	KeyCgroupRoot       = "cgroup_root"
	KeyCgroupNamespace  = "cgroup_namespace"
	KeyRealtimePriority = "realtime_priority"
	KeyLogLevel         = "log_level"
	KeyHangThreshold    = "hang_threshold"
)

// Keys lists every recognised config key.
var Keys = []string{
	KeyDefaultStackSize, KeyMaxStackSize, KeyMaxThreads, KeyCgroupRoot,
	KeyCgroupNamespace, KeyRealtimePriority, KeyLogLevel, KeyHangThreshold,
}

// DefaultHangThreshold is how long a blocking call may run before it is reported.
const DefaultHangThreshold = 30 * time.Second

// Config holds the tunables of the thread layer.
type Config struct {
	DefaultStackSize int64
	MaxStackSize     int64
	MaxThreads       int
	CgroupRoot       string
	CgroupNamespace  string
	RealtimePriority int
	LogLevel         string
	HangThreshold    time.Duration
}

// DefaultConfig returns built-in defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStackSize: concurrency.DefaultThreadStackSize(),
		MaxStackSize:     concurrency.DefaultMaxStackSize,
		MaxThreads:       concurrency.DefaultMaxThreads,
		CgroupRoot:       concurrency.DefaultCgroupRoot,
		CgroupNamespace:  concurrency.DefaultCgroupNamespace,
		RealtimePriority: concurrency.DefaultRealtimePriority,
		LogLevel:         "info",
		HangThreshold:    DefaultHangThreshold,
	}
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	switch {
	case c.DefaultStackSize < 0:
		return invalidConfig(KeyDefaultStackSize, c.DefaultStackSize, "must not be negative")
	case c.MaxStackSize < 0:
		return invalidConfig(KeyMaxStackSize, c.MaxStackSize, "must not be negative")
	case c.MaxStackSize > 0 && c.DefaultStackSize > c.MaxStackSize:
		return invalidConfig(KeyDefaultStackSize, c.DefaultStackSize, "exceeds max_stack_size")
	case c.MaxThreads < 0:
		return invalidConfig(KeyMaxThreads, c.MaxThreads, "must not be negative")
	case c.RealtimePriority < 1 || c.RealtimePriority > 99:
		return invalidConfig(KeyRealtimePriority, c.RealtimePriority, "must be within [1, 99]")
	case hclog.LevelFromString(c.LogLevel) == hclog.NoLevel:
		return invalidConfig(KeyLogLevel, c.LogLevel, "unknown log level")
	case c.HangThreshold < 0:
		return invalidConfig(KeyHangThreshold, c.HangThreshold, "must not be negative")
	}
	return nil
}

func invalidConfig(key string, value any, msg string) error {
	return api.NewError(api.ErrCodeInvalidArgument, "invalid config: "+key+" "+msg).
		WithContext("key", key).WithContext("value", value)
}

// Limits converts the creation bounds for the launcher.
func (c Config) Limits() concurrency.Limits {
	return concurrency.Limits{
		MaxThreads:       c.MaxThreads,
		MaxStackSize:     c.MaxStackSize,
		DefaultStackSize: c.DefaultStackSize,
	}
}

// Map renders c with the same keys accepted by Set. Sizes are human-readable.
func (c Config) Map() map[string]any {
	return map[string]any{
		KeyDefaultStackSize: units.BytesSize(float64(c.DefaultStackSize)),
		KeyMaxStackSize:     units.BytesSize(float64(c.MaxStackSize)),
		KeyMaxThreads:       c.MaxThreads,
		KeyCgroupRoot:       c.CgroupRoot,
		KeyCgroupNamespace:  c.CgroupNamespace,
		KeyRealtimePriority: c.RealtimePriority,
		KeyLogLevel:         c.LogLevel,
		KeyHangThreshold:    c.HangThreshold.String(),
	}
}

// Set assigns one key. Values may be strings or native Go numbers.
func (c *Config) Set(key string, value any) error {
	var err error
	switch key {
	case KeyDefaultStackSize:
		c.DefaultStackSize, err = toSize(value)
	case KeyMaxStackSize:
		c.MaxStackSize, err = toSize(value)
	case KeyMaxThreads:
		c.MaxThreads, err = toInt(value)
	case KeyCgroupRoot:
		c.CgroupRoot, err = toString(value)
	case KeyCgroupNamespace:
		c.CgroupNamespace, err = toString(value)
	case KeyRealtimePriority:
		c.RealtimePriority, err = toInt(value)
	case KeyLogLevel:
		c.LogLevel, err = toString(value)
	case KeyHangThreshold:
		c.HangThreshold, err = toDuration(value)
	default:
		return api.NewError(api.ErrCodeNotFound, "unknown config key").WithContext("key", key)
	}
	if err != nil {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid config value").
			WithContext("key", key).WithContext("value", value).WithCause(err)
	}
	return nil
}

// Apply returns a copy of c with every entry of m set, validated.
func (c Config) Apply(m map[string]any) (Config, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Set(k, m[k]); err != nil {
			return c, err
		}
	}
	return c, c.Validate()
}

func toSize(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return units.RAMInBytes(strings.TrimSpace(x))
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	}
	return 0, fmt.Errorf("unsupported size %T", v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	}
	return 0, fmt.Errorf("unsupported integer %T", v)
}

func toString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return "", fmt.Errorf("unsupported string %T", v)
}

func toDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case string:
		return time.ParseDuration(strings.TrimSpace(x))
	case time.Duration:
		return x, nil
	}
	return 0, fmt.Errorf("unsupported duration %T", v)
}

// EnvName returns the environment variable for key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// LoadEnv overlays HIOLOAD_THREAD_* variables onto base.
func LoadEnv(base Config) (Config, error) {
	m := make(map[string]any)
	for _, k := range Keys {
		if name := EnvName(k); env.Has(name) {
			m[k] = env.Str(name)
		}
	}
	return base.Apply(m)
}

// LoadFile overlays a file of "key = value" lines onto base. Blank lines and
// lines starting with '#' are skipped.
func LoadFile(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer f.Close()

	m := make(map[string]any)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		k, v, ok := strings.Cut(text, "=")
		if !ok {
			return base, api.NewError(api.ErrCodeInvalidArgument, "malformed config line").
				WithContext("path", path).WithContext("line", line)
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return base, err
	}
	return base.Apply(m)
}

// Load builds the effective config: defaults, then environment, then path
// when non-empty.
func Load(path string) (Config, error) {
	cfg, err := LoadEnv(DefaultConfig())
	if err != nil || path == "" {
		return cfg, err
	}
	return LoadFile(path, cfg)
}

// ConfigStore holds the current Config as an immutable snapshot.
type ConfigStore struct {
	current   atomic.Pointer[Config]
	mu        sync.Mutex
	listeners []func(Config)
}

// NewConfigStore initializes a store holding cfg.
func NewConfigStore(cfg Config) *ConfigStore {
	cs := &ConfigStore{}
	cs.current.Store(&cfg)
	return cs
}

// Config returns the current snapshot.
func (cs *ConfigStore) Config() Config { return *cs.current.Load() }

// GetSnapshot returns the current config as a key/value map.
func (cs *ConfigStore) GetSnapshot() map[string]any { return cs.Config().Map() }

// Update validates and publishes cfg, then notifies listeners in
// registration order on the calling goroutine.
func (cs *ConfigStore) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.current.Store(&cfg)
	listeners := append([]func(Config){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// SetConfig merges newCfg into the current snapshot. Nothing is published
// if any entry is rejected.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	cfg, err := cs.Config().Apply(newCfg)
	if err != nil {
		return err
	}
	return cs.Update(cfg)
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
