package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are filled in by Normalize.
type Config struct {
	// Addr is the listen address of the HTTP API.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// ModelCacheDir is where fetched artifacts are stored, one directory
	// per model id. Supports a leading '~'.
	ModelCacheDir string `json:"model_cache_dir" yaml:"model_cache_dir" toml:"model_cache_dir"`

	// FetchBaseURL is the artifact source root. Empty disables remote
	// fetching; models must already be in the cache dir.
	FetchBaseURL string `json:"fetch_base_url" yaml:"fetch_base_url" toml:"fetch_base_url"`
	// FetchToken is sent as a bearer token on artifact requests.
	FetchToken string `json:"fetch_token" yaml:"fetch_token" toml:"fetch_token"`
	// FetchWorkers bounds concurrent artifact transfers.
	FetchWorkers int `json:"fetch_workers" yaml:"fetch_workers" toml:"fetch_workers"`
	// FetchRetries is the number of attempts per transfer.
	FetchRetries int `json:"fetch_retries" yaml:"fetch_retries" toml:"fetch_retries"`

	// VRAMFallbackMB is the assumed device capacity when the device
	// cannot report one.
	VRAMFallbackMB float64 `json:"vram_fallback_mb" yaml:"vram_fallback_mb" toml:"vram_fallback_mb"`
	// VRAMThreshold scales capacity down to the usable budget (0..1].
	VRAMThreshold float64 `json:"vram_threshold" yaml:"vram_threshold" toml:"vram_threshold"`
	// DefaultEstimateMB is the admission estimate for models whose task
	// kind has no override in EstimateMB.
	DefaultEstimateMB float64 `json:"default_estimate_mb" yaml:"default_estimate_mb" toml:"default_estimate_mb"`
	// EstimateMB overrides the admission estimate per task kind
	// (keys: text, image, audio_tts, audio_stt).
	EstimateMB map[string]float64 `json:"estimate_mb" yaml:"estimate_mb" toml:"estimate_mb"`

	// Device names the compute device ("cpu", "cuda", ...). Informational
	// unless a device probe is wired in.
	Device string `json:"device" yaml:"device" toml:"device"`
	// LogLevel is the zerolog level name (trace..panic).
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
