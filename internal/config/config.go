// Package config loads, sanitizes and persists the trayhop YAML settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"

	"trayhop/internal/applist"
	"trayhop/internal/hotkeys"
	"trayhop/internal/pages"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	renameRetryBaseDelay = 10 * time.Millisecond
	// maxValidPort is the highest TCP port number. Port 0 means "OS auto-assign".
	maxValidPort = 65535

	// DefaultSlots is the app grid size when app_list.slots is unset.
	DefaultSlots = 24
	maxSlots     = 512
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	out := defaultPathWarningState.messages
	defaultPathWarningState.messages = nil
	return out
}

// GestureConfig tunes drag paging.
type GestureConfig struct {
	MinimumThreshold  float64 `yaml:"minimum_threshold" json:"minimum_threshold"`
	ThresholdFraction float64 `yaml:"threshold_fraction" json:"threshold_fraction"`
	// TestMode accepts phaseless synthetic scroll events from UI tests.
	TestMode bool `yaml:"test_mode" json:"test_mode"`
}

// AppListConfig controls the app grid projection.
type AppListConfig struct {
	Filter string `yaml:"filter" json:"filter"`
	Sort   string `yaml:"sort" json:"sort"`
	Slots  int    `yaml:"slots" json:"slots"`
	// Locale is a BCP 47 tag used for name collation. Empty means root rules.
	Locale string `yaml:"locale,omitempty" json:"locale,omitempty"`
}

// Config is the on-disk settings document.
type Config struct {
	// Hotkeys maps action names (see hotkeys.Action) to combo specs.
	// A missing or blank entry leaves the action unbound.
	Hotkeys       map[string]string `yaml:"hotkeys" json:"hotkeys"`
	Gesture       GestureConfig     `yaml:"gesture" json:"gesture"`
	AppList       AppListConfig     `yaml:"app_list" json:"app_list"`
	WebSocketPort int               `yaml:"websocket_port" json:"websocket_port"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		Hotkeys: map[string]string{
			hotkeys.ToggleVisibility.String(): "Ctrl+Alt+SPACE",
			hotkeys.NextPage.String():         "Ctrl+Alt+RIGHT",
			hotkeys.PreviousPage.String():     "Ctrl+Alt+LEFT",
		},
		Gesture: GestureConfig{
			MinimumThreshold:  pages.DefaultMinimumThreshold,
			ThresholdFraction: pages.DefaultThresholdFraction,
		},
		AppList: AppListConfig{
			Filter: applist.FilterAll.String(),
			Sort:   applist.SortRecency.String(),
			Slots:  DefaultSlots,
		},
	}
}

// Sequencer returns the paging thresholds described by the gesture section.
func (c Config) Sequencer() pages.Sequencer {
	return pages.Sequencer{
		MinimumThreshold:  c.Gesture.MinimumThreshold,
		ThresholdFraction: c.Gesture.ThresholdFraction,
	}
}

// BindingSource returns the hotkey table for hotkeys.Registry.
func (c Config) BindingSource() hotkeys.StaticSource {
	return hotkeys.SpecSource(c.Hotkeys)
}

// FilterMode returns the parsed app_list.filter (FilterAll when invalid).
func (c Config) FilterMode() applist.FilterMode {
	mode, _ := applist.ParseFilterMode(c.AppList.Filter)
	return mode
}

// SortMode returns the parsed app_list.sort (SortRecency when invalid).
func (c Config) SortMode() applist.SortMode {
	mode, _ := applist.ParseSortMode(c.AppList.Sort)
	return mode
}

// Projector returns an app list projector for app_list.locale.
func (c Config) Projector() applist.Projector {
	tag, err := language.Parse(c.AppList.Locale)
	if err != nil {
		return applist.Projector{}
	}
	return applist.Projector{Locale: tag}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "trayhop", "config.yaml")
}

// Load reads path. A missing or empty file yields DefaultConfig. A parse
// failure yields DefaultConfig together with the error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}

	// A present hotkeys section replaces the defaults instead of merging.
	cfg.Hotkeys = nil
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	if cfg.Hotkeys == nil {
		cfg.Hotkeys = DefaultConfig().Hotkeys
	}
	sanitize(&cfg)
	return cfg, nil
}

// EnsureFile loads path and writes the defaults when the file is missing.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Hotkeys != nil {
		dst.Hotkeys = maps.Clone(src.Hotkeys)
	}
	return dst
}

// Save sanitizes cfg and writes it atomically. path must lie inside the
// default config directory. The sanitized config is returned.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	cfg = Clone(cfg)
	sanitize(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	// Temp file in the same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// sanitize repairs cfg in place. Every problem is logged and replaced by a
// safe value; sanitize never fails.
func sanitize(cfg *Config) {
	sanitizeHotkeys(cfg)
	sanitizeGesture(cfg)
	sanitizeAppList(cfg)
	validateWebSocketPort(cfg)
}

// sanitizeHotkeys drops unknown actions and unparsable specs and rewrites
// the rest in canonical form so that saved files compare cleanly.
func sanitizeHotkeys(cfg *Config) {
	if cfg.Hotkeys == nil {
		return
	}
	clean := make(map[string]string, len(cfg.Hotkeys))
	for name, spec := range cfg.Hotkeys {
		action, err := hotkeys.ParseAction(name)
		if err != nil {
			slog.Warn("[WARN-CONFIG] dropping hotkey for unknown action", "action", name)
			continue
		}
		if strings.TrimSpace(spec) == "" {
			continue
		}
		combo, err := hotkeys.ParseCombo(spec)
		if err != nil {
			slog.Warn("[WARN-CONFIG] dropping unparsable hotkey", "action", name, "spec", spec, "error", err)
			continue
		}
		clean[action.String()] = combo.String()
	}
	cfg.Hotkeys = clean
}

func sanitizeGesture(cfg *Config) {
	g := &cfg.Gesture
	if !positiveFinite(g.MinimumThreshold) {
		slog.Warn("[WARN-CONFIG] gesture.minimum_threshold must be positive, using default",
			"configured", g.MinimumThreshold, "default", pages.DefaultMinimumThreshold)
		g.MinimumThreshold = pages.DefaultMinimumThreshold
	}
	if !positiveFinite(g.ThresholdFraction) || g.ThresholdFraction > 1 {
		slog.Warn("[WARN-CONFIG] gesture.threshold_fraction must be in (0, 1], using default",
			"configured", g.ThresholdFraction, "default", pages.DefaultThresholdFraction)
		g.ThresholdFraction = pages.DefaultThresholdFraction
	}
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sanitizeAppList(cfg *Config) {
	a := &cfg.AppList
	filter, err := applist.ParseFilterMode(a.Filter)
	if err != nil {
		slog.Warn("[WARN-CONFIG] invalid app_list.filter, using default", "error", err)
	}
	a.Filter = filter.String()

	sortMode, err := applist.ParseSortMode(a.Sort)
	if err != nil {
		slog.Warn("[WARN-CONFIG] invalid app_list.sort, using default", "error", err)
	}
	a.Sort = sortMode.String()

	if a.Slots <= 0 || a.Slots > maxSlots {
		slog.Warn("[WARN-CONFIG] app_list.slots out of range, using default",
			"configured", a.Slots, "max", maxSlots, "default", DefaultSlots)
		a.Slots = DefaultSlots
	}

	a.Locale = strings.TrimSpace(a.Locale)
	if a.Locale != "" {
		tag, err := language.Parse(a.Locale)
		if err != nil {
			slog.Warn("[WARN-CONFIG] invalid app_list.locale, using root collation", "locale", a.Locale, "error", err)
			a.Locale = ""
		} else {
			a.Locale = tag.String()
		}
	}
}

func validateWebSocketPort(cfg *Config) {
	if cfg.WebSocketPort < 0 || cfg.WebSocketPort > maxValidPort {
		slog.Warn("[WARN-CONFIG] websocket_port out of valid range (0-65535), falling back to 0 (auto-assign)",
			"configured", cfg.WebSocketPort, "max", maxValidPort)
		cfg.WebSocketPort = 0
	}
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
