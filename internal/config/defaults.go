package config

import (
	"fmt"

	"inferd/internal/common/fsutil"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:              ":8000",
		ModelCacheDir:     "~/models/inferd",
		FetchWorkers:      2,
		FetchRetries:      3,
		VRAMFallbackMB:    8192,
		VRAMThreshold:     0.9,
		DefaultEstimateMB: 2048,
		Device:            "cpu",
		LogLevel:          "info",
		CORSOrigins:       []string{"*"},
	}
}

// Normalize fills unset fields from Default and expands the cache dir.
func Normalize(cfg Config) (Config, error) {
	def := Default()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ModelCacheDir == "" {
		cfg.ModelCacheDir = def.ModelCacheDir
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = def.FetchWorkers
	}
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = def.FetchRetries
	}
	if cfg.VRAMFallbackMB <= 0 {
		cfg.VRAMFallbackMB = def.VRAMFallbackMB
	}
	if cfg.VRAMThreshold <= 0 {
		cfg.VRAMThreshold = def.VRAMThreshold
	}
	if cfg.DefaultEstimateMB <= 0 {
		cfg.DefaultEstimateMB = def.DefaultEstimateMB
	}
	if cfg.Device == "" {
		cfg.Device = def.Device
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = def.CORSOrigins
	}
	dir, err := fsutil.ExpandHome(cfg.ModelCacheDir)
	if err != nil {
		return cfg, fmt.Errorf("model_cache_dir: %w", err)
	}
	cfg.ModelCacheDir = dir
	return cfg, nil
}

// Validate rejects values Normalize cannot repair.
func Validate(cfg Config) error {
	if cfg.VRAMThreshold <= 0 || cfg.VRAMThreshold > 1 {
		return fmt.Errorf("vram_threshold must be in (0,1], got %v", cfg.VRAMThreshold)
	}
	if cfg.VRAMFallbackMB <= 0 {
		return fmt.Errorf("vram_fallback_mb must be positive, got %v", cfg.VRAMFallbackMB)
	}
	if cfg.DefaultEstimateMB <= 0 {
		return fmt.Errorf("default_estimate_mb must be positive, got %v", cfg.DefaultEstimateMB)
	}
	for task, mb := range cfg.EstimateMB {
		if mb <= 0 {
			return fmt.Errorf("estimate_mb[%s] must be positive, got %v", task, mb)
		}
	}
	if cfg.FetchWorkers <= 0 {
		return fmt.Errorf("fetch_workers must be positive, got %d", cfg.FetchWorkers)
	}
	return nil
}
