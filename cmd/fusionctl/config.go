package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fusionkit/fusionctl/internal/core/deploy"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	DataDir        string             `mapstructure:"data_dir"`
	ProjectName    string             `mapstructure:"project_name"`
	RequiredGroup  string             `mapstructure:"required_group"`
	ServiceAccount string             `mapstructure:"service_account"`
	Image          ImageConfig        `mapstructure:"image"`
	Acceleration   AccelerationConfig `mapstructure:"acceleration"`
	Network        NetworkConfig      `mapstructure:"network"`
	Resources      ResourcesConfig    `mapstructure:"resources"`
	Security       SecurityConfig     `mapstructure:"security"`
	Rotation       RotationConfig     `mapstructure:"rotation"`
	History        HistoryConfig      `mapstructure:"history"`
	Log            LogConfig          `mapstructure:"log"`
}

// ImageConfig selects the deployed image.
type ImageConfig struct {
	Registry   string `mapstructure:"registry"`
	Repository string `mapstructure:"repository"`
	Tag        string `mapstructure:"tag"`
}

// AccelerationConfig selects the GPU runtime class.
type AccelerationConfig struct {
	// Backend is one of none, rocm, cuda, tensorrt.
	Backend string `mapstructure:"backend"`

	// CUDARuntime states that the NVIDIA container runtime is installed.
	// Required for the tensorrt backend.
	CUDARuntime bool `mapstructure:"cuda_runtime"`

	// VisibleDevices narrows the ROCm devices the container sees.
	VisibleDevices string `mapstructure:"visible_devices"`

	// GFXOverride forces a ROCm GPU generation for misreporting cards.
	GFXOverride string `mapstructure:"gfx_override"`
}

// NetworkConfig holds the host-side binding.
type NetworkConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// ResourcesConfig holds container resource limits.
type ResourcesConfig struct {
	ShmSize     string `mapstructure:"shm_size"`
	MemoryLimit string `mapstructure:"memory_limit"`
	GPUCount    string `mapstructure:"gpu_count"`
}

// SecurityConfig holds hardening flags.
type SecurityConfig struct {
	ReadOnlyRootFS bool `mapstructure:"read_only_rootfs"`
}

// RotationConfig holds the container log rotation policy.
type RotationConfig struct {
	MaxSize  string `mapstructure:"max_size"`
	MaxFiles int    `mapstructure:"max_files"`
}

// HistoryConfig controls the local action history.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("data_dir", "/var/lib/fusionctl")
	v.SetDefault("project_name", "fusionctl")
	v.SetDefault("required_group", "docker")
	v.SetDefault("service_account", "fusionctl")
	v.SetDefault("image.registry", deploy.DefaultRegistry)
	v.SetDefault("image.repository", deploy.DefaultRepository)
	v.SetDefault("image.tag", deploy.DefaultTag)
	v.SetDefault("acceleration.backend", "none")
	v.SetDefault("acceleration.cuda_runtime", false)
	v.SetDefault("acceleration.visible_devices", "")
	v.SetDefault("acceleration.gfx_override", "")
	v.SetDefault("network.bind_address", deploy.DefaultBindAddress)
	v.SetDefault("network.port", deploy.DefaultPort)
	v.SetDefault("resources.shm_size", deploy.DefaultShmSize)
	v.SetDefault("resources.memory_limit", deploy.DefaultMemoryLimit)
	v.SetDefault("resources.gpu_count", deploy.DefaultGPUCount)
	v.SetDefault("security.read_only_rootfs", false)
	v.SetDefault("rotation.max_size", deploy.DefaultLogMaxSize)
	v.SetDefault("rotation.max_files", deploy.DefaultLogMaxFiles)
	v.SetDefault("history.enabled", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("FUSIONCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// DeployOptions maps the loaded configuration onto the core options record.
func (c *Config) DeployOptions(modelsDir string) deploy.Options {
	return deploy.Options{
		Registry:       c.Image.Registry,
		Repository:     c.Image.Repository,
		Tag:            c.Image.Tag,
		Acceleration:   c.Acceleration.Backend,
		CUDARuntime:    c.Acceleration.CUDARuntime,
		VisibleDevices: c.Acceleration.VisibleDevices,
		GFXOverride:    c.Acceleration.GFXOverride,
		BindAddress:    c.Network.BindAddress,
		Port:           c.Network.Port,
		ShmSize:        c.Resources.ShmSize,
		MemoryLimit:    c.Resources.MemoryLimit,
		GPUCount:       c.Resources.GPUCount,
		ReadOnlyRootFS: c.Security.ReadOnlyRootFS,
		ModelsDir:      modelsDir,
		LogMaxSize:     c.Rotation.MaxSize,
		LogMaxFiles:    c.Rotation.MaxFiles,
	}
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs go
// to stderr; stdout is reserved for command output.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
