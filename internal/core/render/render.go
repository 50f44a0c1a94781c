// Package render turns a validated deployment configuration into the compose
// definition text. This is part of the Functional Core - Render is pure,
// total and deterministic: equal configs yield byte-identical output, which
// is what makes the dispatcher's sync step idempotent.
package render

import (
	"bytes"
	"fmt"

	"github.com/fusionkit/fusionctl/internal/core/deploy"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Fixed Render Constants
// =============================================================================

const (
	composeVersion = "3.8"
	restartPolicy  = "unless-stopped"
	ipcMode        = "private"
	hardeningOpt   = "no-new-privileges:true"
	assetsMount    = "/workspace/.assets"
	tmpfsMount     = "/tmp"

	healthInterval    = "30s"
	healthTimeout     = "10s"
	healthRetries     = 3
	healthStartPeriod = "90s"

	logDriver = "json-file"
)

// rocmDevices are the kernel device nodes the AMD runtime needs passed
// through to the container.
var rocmDevices = []string{"/dev/kfd", "/dev/dri"}

// rocmGroups grant the container user access to the passed-through devices.
var rocmGroups = []string{"video", "render"}

// =============================================================================
// Renderer
// =============================================================================

// Render maps a validated config to the compose definition. It performs no
// I/O and never fails: invalid configs cannot be constructed, so every field
// it reads has already passed validation.
func Render(cfg deploy.Config) []byte {
	svc := service{
		Image:       cfg.ImageRef(),
		Restart:     restartPolicy,
		ShmSize:     cfg.ShmSize,
		IPC:         ipcMode,
		SecurityOpt: []string{hardeningOpt},
		Ports:       []string{cfg.PortMapping()},
		Volumes:     []string{fmt.Sprintf("%s:%s", cfg.ModelsDir, assetsMount)},
		Environment: environment(cfg),
		Healthcheck: healthcheck{
			Test:        []string{"CMD", "curl", "-fsS", fmt.Sprintf("http://127.0.0.1:%d/", deploy.ContainerPort)},
			Interval:    healthInterval,
			Timeout:     healthTimeout,
			Retries:     healthRetries,
			StartPeriod: healthStartPeriod,
		},
		Logging: logging{
			Driver: logDriver,
			Options: quotedMap{
				"max-size": cfg.LogMaxSize,
				"max-file": fmt.Sprintf("%d", cfg.LogMaxFiles),
			},
		},
	}

	if cfg.ReadOnlyRootFS {
		svc.ReadOnly = true
		svc.Tmpfs = []string{tmpfsMount}
	}

	if cfg.Acceleration == deploy.AccelROCm {
		svc.Devices = append(svc.Devices, rocmDevices...)
		svc.GroupAdd = append(svc.GroupAdd, rocmGroups...)
	}

	if cfg.Acceleration.NvidiaClass() {
		svc.Deploy = &deploySection{
			Resources: resources{
				Limits: limits{Memory: cfg.MemoryLimit},
				Reservations: reservations{
					Devices: []deviceReservation{{
						Driver:       "nvidia",
						Count:        countValue(cfg.GPUCount),
						Capabilities: []string{"gpu"},
					}},
				},
			},
		}
	}

	doc := document{
		Version:  composeVersion,
		Services: map[string]service{deploy.ServiceName: svc},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	// Marshaling a fixed struct cannot fail; the one dynamic scalar
	// (device count) is validated at construction.
	if err := enc.Encode(doc); err != nil {
		panic(fmt.Sprintf("render: encode compose document: %v", err))
	}
	enc.Close()
	return buf.Bytes()
}

// environment builds the env block. The server always binds all interfaces
// inside the container; host exposure is controlled by the port mapping.
func environment(cfg deploy.Config) quotedMap {
	env := quotedMap{
		"GRADIO_SERVER_NAME": "0.0.0.0",
	}
	if cfg.Acceleration == deploy.AccelROCm {
		if cfg.VisibleDevices != "" {
			env["ROCR_VISIBLE_DEVICES"] = cfg.VisibleDevices
		}
		if cfg.GFXOverride != "" {
			env["HSA_OVERRIDE_GFX_VERSION"] = cfg.GFXOverride
		}
	}
	return env
}
