package deploy

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// ContainerPort is the port the application listens on inside the
	// container. The host-side binding is configurable; this side is not.
	ContainerPort = 7860

	// ServiceName is the compose service name.
	ServiceName = "facefusion"
)

// Defaults applied by NewConfig when an option is left empty.
const (
	DefaultRegistry    = "docker.io"
	DefaultRepository  = "facefusion/facefusion"
	DefaultTag         = "3.5.0"
	DefaultBindAddress = "127.0.0.1"
	DefaultPort        = 7860
	DefaultShmSize     = "512m"
	DefaultMemoryLimit = "8g"
	DefaultGPUCount    = "all"
	DefaultLogMaxSize  = "10m"
	DefaultLogMaxFiles = 3
	DefaultModelsDir   = "/var/lib/fusionctl/models"
)

// =============================================================================
// Acceleration Backend
// =============================================================================

// Acceleration selects which GPU runtime class (or none) the deployed
// process uses. It drives conditional rendering of device passthrough and
// reservation blocks.
type Acceleration string

const (
	AccelNone     Acceleration = "none"
	AccelROCm     Acceleration = "rocm"
	AccelCUDA     Acceleration = "cuda"
	AccelTensorRT Acceleration = "tensorrt"
)

// NvidiaClass reports whether the backend is served by the NVIDIA container
// runtime (device reservations instead of device passthrough).
func (a Acceleration) NvidiaClass() bool {
	return a == AccelCUDA || a == AccelTensorRT
}

// ImageSuffix returns the tag suffix the published images use for this
// backend.
func (a Acceleration) ImageSuffix() string {
	switch a {
	case AccelROCm:
		return "-rocm"
	case AccelCUDA:
		return "-cuda"
	case AccelTensorRT:
		return "-tensorrt"
	default:
		return ""
	}
}

// =============================================================================
// Options and Config
// =============================================================================

// Options holds the raw user-supplied settings before validation. All fields
// are optional; empty values fall back to the package defaults.
type Options struct {
	Registry   string
	Repository string
	Tag        string

	Acceleration string
	// CUDARuntime states that the host exposes the NVIDIA/CUDA container
	// runtime. The tensorrt backend refuses to deploy without it.
	CUDARuntime bool

	BindAddress string
	Port        int

	ShmSize     string
	MemoryLimit string
	// GPUCount is "all" or a positive integer, forwarded to the engine's
	// device reservation. Only meaningful for NVIDIA-class backends.
	GPUCount string

	ReadOnlyRootFS bool

	// ModelsDir is the host directory bind-mounted into the container for
	// downloaded model weights.
	ModelsDir string

	LogMaxSize  string
	LogMaxFiles int

	// VisibleDevices narrows which ROCm devices the container sees
	// (ROCR_VISIBLE_DEVICES). Comma-separated device indexes.
	VisibleDevices string
	// GFXOverride forces a GPU generation (HSA_OVERRIDE_GFX_VERSION) for
	// ROCm cards that misreport their architecture.
	GFXOverride string
}

// Config is the validated, immutable deployment configuration. Construct it
// with NewConfig; never mutate it afterwards. Two field-wise equal Configs
// render identical compose text.
type Config struct {
	Registry   string
	Repository string
	Tag        string

	Acceleration Acceleration
	CUDARuntime  bool

	BindAddress string
	Port        int

	ShmSize     string
	MemoryLimit string
	GPUCount    string

	ReadOnlyRootFS bool

	ModelsDir string

	LogMaxSize  string
	LogMaxFiles int

	VisibleDevices string
	GFXOverride    string
}

// =============================================================================
// Construction
// =============================================================================

var (
	// Docker image path components: lowercase name parts separated by
	// ./_/- plus an optional registry prefix handled separately.
	repositoryPattern = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*$`)
	tagPattern        = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]{0,127}$`)
	sizePattern       = regexp.MustCompile(`^[1-9][0-9]*[bkmg]?$`)
	devicesPattern    = regexp.MustCompile(`^[0-9]+(?:,[0-9]+)*$`)
)

// NewConfig validates the options and returns an immutable Config. Every
// cross-field constraint is enforced here; downstream code (the renderer in
// particular) may assume a Config is valid.
func NewConfig(opts Options) (Config, error) {
	cfg := Config{
		Registry:       defaulted(opts.Registry, DefaultRegistry),
		Repository:     defaulted(opts.Repository, DefaultRepository),
		Tag:            defaulted(opts.Tag, DefaultTag),
		Acceleration:   Acceleration(defaulted(opts.Acceleration, string(AccelNone))),
		CUDARuntime:    opts.CUDARuntime,
		BindAddress:    defaulted(opts.BindAddress, DefaultBindAddress),
		Port:           opts.Port,
		ShmSize:        defaulted(opts.ShmSize, DefaultShmSize),
		MemoryLimit:    defaulted(opts.MemoryLimit, DefaultMemoryLimit),
		GPUCount:       defaulted(opts.GPUCount, DefaultGPUCount),
		ReadOnlyRootFS: opts.ReadOnlyRootFS,
		ModelsDir:      defaulted(opts.ModelsDir, DefaultModelsDir),
		LogMaxSize:     defaulted(opts.LogMaxSize, DefaultLogMaxSize),
		LogMaxFiles:    opts.LogMaxFiles,
		VisibleDevices: opts.VisibleDevices,
		GFXOverride:    opts.GFXOverride,
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogMaxFiles == 0 {
		cfg.LogMaxFiles = DefaultLogMaxFiles
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaulted(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func (c Config) validate() error {
	switch c.Acceleration {
	case AccelNone, AccelROCm, AccelCUDA, AccelTensorRT:
	default:
		return NewConfigError("acceleration", fmt.Sprintf("unknown backend %q (expected none, rocm, cuda or tensorrt)", c.Acceleration), ErrInvalidAcceleration)
	}

	// The upstream schema asserted tensorrt against its own enum value,
	// which can never fail. The real constraint is against the host: the
	// tensorrt image runs on the NVIDIA container runtime.
	if c.Acceleration == AccelTensorRT && !c.CUDARuntime {
		return NewConfigError("acceleration", "tensorrt selected but the CUDA container runtime is not available on this host", ErrTensorRTRequiresCUDA)
	}

	if c.Acceleration != AccelROCm {
		if c.VisibleDevices != "" {
			return NewConfigError("visible_devices", "visible device selection requires the rocm backend", ErrBackendMismatch)
		}
		if c.GFXOverride != "" {
			return NewConfigError("gfx_override", "GFX generation override requires the rocm backend", ErrBackendMismatch)
		}
	}
	if c.VisibleDevices != "" && !devicesPattern.MatchString(c.VisibleDevices) {
		return NewConfigError("visible_devices", fmt.Sprintf("%q is not a comma-separated list of device indexes", c.VisibleDevices), ErrBackendMismatch)
	}

	if net.ParseIP(c.BindAddress) == nil {
		return NewConfigError("network.bind_address", fmt.Sprintf("%q is not an IP address", c.BindAddress), ErrInvalidBindAddress)
	}
	if c.Port < 1 || c.Port > 65535 {
		return NewConfigError("network.port", fmt.Sprintf("port %d out of range 1-65535", c.Port), ErrInvalidPort)
	}
	if _, err := nat.ParsePortSpec(c.PortMapping()); err != nil {
		return NewConfigError("network", fmt.Sprintf("port binding %q rejected: %v", c.PortMapping(), err), ErrInvalidPort)
	}

	if c.GPUCount != "all" {
		n, err := strconv.Atoi(c.GPUCount)
		if err != nil || n < 1 {
			return NewConfigError("resources.gpu_count", fmt.Sprintf("got %q", c.GPUCount), ErrInvalidGPUCount)
		}
	}
	if !sizePattern.MatchString(strings.ToLower(c.ShmSize)) {
		return NewConfigError("resources.shm_size", fmt.Sprintf("got %q", c.ShmSize), ErrInvalidSize)
	}
	if !sizePattern.MatchString(strings.ToLower(c.MemoryLimit)) {
		return NewConfigError("resources.memory_limit", fmt.Sprintf("got %q", c.MemoryLimit), ErrInvalidSize)
	}

	if !repositoryPattern.MatchString(c.Repository) {
		return NewConfigError("image.repository", fmt.Sprintf("got %q", c.Repository), ErrInvalidImageRef)
	}
	if !tagPattern.MatchString(c.Tag) {
		return NewConfigError("image.tag", fmt.Sprintf("got %q", c.Tag), ErrInvalidImageRef)
	}
	if strings.ContainsAny(c.Registry, " \t\"'") || c.Registry == "" {
		return NewConfigError("image.registry", fmt.Sprintf("got %q", c.Registry), ErrInvalidImageRef)
	}

	if !strings.HasPrefix(c.ModelsDir, "/") || strings.ContainsAny(c.ModelsDir, ":\"'\n\t ") {
		return NewConfigError("models_dir", fmt.Sprintf("got %q, want an absolute path without spaces or colons", c.ModelsDir), ErrInvalidModelsDir)
	}

	if !sizePattern.MatchString(strings.ToLower(c.LogMaxSize)) {
		return NewConfigError("logging.max_size", fmt.Sprintf("got %q", c.LogMaxSize), ErrInvalidLogPolicy)
	}
	if c.LogMaxFiles < 1 {
		return NewConfigError("logging.max_files", fmt.Sprintf("got %d", c.LogMaxFiles), ErrInvalidLogPolicy)
	}

	return nil
}

// =============================================================================
// Derived Values
// =============================================================================

// ImageRef returns the full image reference including the backend tag suffix.
func (c Config) ImageRef() string {
	return fmt.Sprintf("%s/%s:%s%s", c.Registry, c.Repository, c.Tag, c.Acceleration.ImageSuffix())
}

// PortMapping returns the compose port binding string.
func (c Config) PortMapping() string {
	return fmt.Sprintf("%s:%d:%d", c.BindAddress, c.Port, ContainerPort)
}

// LoopbackOnly reports whether the service is reachable from this host only.
func (c Config) LoopbackOnly() bool {
	ip := net.ParseIP(c.BindAddress)
	return ip != nil && ip.IsLoopback()
}

// URL returns the address users should open after a successful start. An
// unspecified bind address (0.0.0.0, ::) is reported as localhost.
func (c Config) URL() string {
	host := c.BindAddress
	if ip := net.ParseIP(c.BindAddress); ip != nil && ip.IsUnspecified() {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

// ProbeURL returns the address the dispatcher's liveness probe targets. The
// probe runs on the deployment host itself, so an unspecified bind address
// is probed via loopback.
func (c Config) ProbeURL() string {
	host := c.BindAddress
	if ip := net.ParseIP(c.BindAddress); ip != nil && ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d/", host, c.Port)
}
