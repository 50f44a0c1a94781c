package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fusionkit/fusionctl/internal/core/deploy"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConfig(t *testing.T, opts deploy.Options) deploy.Config {
	t.Helper()
	cfg, err := deploy.NewConfig(opts)
	require.NoError(t, err)
	return cfg
}

// =============================================================================
// Determinism
// =============================================================================

func TestRender_Deterministic(t *testing.T) {
	opts := deploy.Options{
		Acceleration:   "rocm",
		VisibleDevices: "0,1",
		GFXOverride:    "10.3.0",
		BindAddress:    "0.0.0.0",
		Port:           9000,
		ReadOnlyRootFS: true,
	}
	first := Render(mustConfig(t, opts))
	second := Render(mustConfig(t, opts))
	assert.Equal(t, first, second, "equal configs must render byte-identical text")
}

// =============================================================================
// Always-Emitted Sections
// =============================================================================

func TestRender_BaseSections(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{})))

	assert.Contains(t, out, `version: "3.8"`)
	assert.Contains(t, out, "facefusion:")
	assert.Contains(t, out, "image: docker.io/facefusion/facefusion:3.5.0")
	assert.Contains(t, out, "restart: unless-stopped")
	assert.Contains(t, out, "shm_size: 512m")
	assert.Contains(t, out, "ipc: private")
	assert.Contains(t, out, "no-new-privileges:true")
	assert.Contains(t, out, "127.0.0.1:7860:7860")
	assert.Contains(t, out, `GRADIO_SERVER_NAME: "0.0.0.0"`)
	assert.Contains(t, out, "healthcheck:")
	assert.Contains(t, out, "interval: 30s")
	assert.Contains(t, out, "start_period: 90s")
	assert.Contains(t, out, "driver: json-file")
	assert.Contains(t, out, `max-size: "10m"`)
	assert.Contains(t, out, `max-file: "3"`)
	assert.Contains(t, out, "/var/lib/fusionctl/models:/workspace/.assets")
}

// =============================================================================
// Conditional Sections
// =============================================================================

func TestRender_NoAcceleration(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{Acceleration: "none"})))

	assert.NotContains(t, out, "devices:")
	assert.NotContains(t, out, "group_add:")
	assert.NotContains(t, out, "deploy:")
	assert.NotContains(t, out, "nvidia")
}

func TestRender_ROCm(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{Acceleration: "rocm"})))

	assert.Contains(t, out, "/dev/kfd")
	assert.Contains(t, out, "/dev/dri")
	assert.Contains(t, out, "group_add:")
	assert.Contains(t, out, "video")
	assert.Contains(t, out, "render")
	assert.NotContains(t, out, "nvidia")
	assert.NotContains(t, out, "reservations:")
}

func TestRender_CUDA(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{Acceleration: "cuda", GPUCount: "2", MemoryLimit: "16g"})))

	assert.Contains(t, out, "driver: nvidia")
	assert.Contains(t, out, "count: 2")
	assert.Contains(t, out, "capabilities:")
	assert.Contains(t, out, "memory: 16g")
	assert.NotContains(t, out, "/dev/kfd")
	assert.NotContains(t, out, "group_add:")
}

func TestRender_CUDAAllGPUs(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{Acceleration: "cuda"})))
	assert.Contains(t, out, "count: all")
}

func TestRender_TensorRT(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{Acceleration: "tensorrt", CUDARuntime: true})))

	assert.Contains(t, out, "image: docker.io/facefusion/facefusion:3.5.0-tensorrt")
	assert.Contains(t, out, "driver: nvidia")
	assert.NotContains(t, out, "/dev/kfd")
}

func TestRender_ReadOnlyRootFS(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{ReadOnlyRootFS: true})))
	assert.Contains(t, out, "read_only: true")
	assert.Contains(t, out, "tmpfs:")
	assert.Contains(t, out, "/tmp")

	out = string(Render(mustConfig(t, deploy.Options{})))
	assert.NotContains(t, out, "read_only:")
	assert.NotContains(t, out, "tmpfs:")
}

// =============================================================================
// ROCm Scenario
// =============================================================================

func TestRender_ROCmScenario(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{
		BindAddress:    "0.0.0.0",
		Port:           9000,
		Acceleration:   "rocm",
		VisibleDevices: "0,1",
	})))

	assert.Contains(t, out, "0.0.0.0:9000:7860")
	assert.Contains(t, out, `ROCR_VISIBLE_DEVICES: "0,1"`)
	assert.Contains(t, out, "/dev/kfd")
	assert.Contains(t, out, "/dev/dri")
	assert.NotContains(t, out, "HSA_OVERRIDE_GFX_VERSION")
}

func TestRender_ROCmGFXOverride(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{
		Acceleration: "rocm",
		GFXOverride:  "10.3.0",
	})))
	assert.Contains(t, out, `HSA_OVERRIDE_GFX_VERSION: "10.3.0"`)
}

// =============================================================================
// Lint
// =============================================================================

func TestLint_AcceptsRenderedOutput(t *testing.T) {
	backends := []deploy.Options{
		{Acceleration: "none"},
		{Acceleration: "rocm", VisibleDevices: "0"},
		{Acceleration: "cuda", GPUCount: "1"},
		{Acceleration: "tensorrt", CUDARuntime: true},
		{ReadOnlyRootFS: true},
	}
	for _, opts := range backends {
		out := Render(mustConfig(t, opts))
		assert.NoError(t, Lint(out), "backend %s", opts.Acceleration)
	}
}

func TestLint_RejectsGarbage(t *testing.T) {
	assert.Error(t, Lint([]byte("not: [valid")))
	assert.Error(t, Lint([]byte("services:\n  web:\n    command: echo\n")))
}

func TestLint_EmitsNoLoaderWarnings(t *testing.T) {
	// The compose loader warns through logrus when it sees the obsolete
	// version attribute. Linting runs on every start and pull, so it must
	// stay silent.
	var buf bytes.Buffer
	orig := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(orig)

	out := Render(mustConfig(t, deploy.Options{}))
	require.Contains(t, string(out), `version: "3.8"`)
	require.NoError(t, Lint(out))
	assert.Empty(t, buf.String())
}

// =============================================================================
// Escaping
// =============================================================================

func TestRender_QuotesEnvironmentValues(t *testing.T) {
	out := string(Render(mustConfig(t, deploy.Options{Acceleration: "rocm", VisibleDevices: "0,1"})))

	// Every environment value is double-quoted so a loader cannot re-type
	// or re-structure user-controlled strings.
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "ROCR_VISIBLE_DEVICES:") || strings.HasPrefix(trimmed, "GRADIO_SERVER_NAME:") {
			assert.Contains(t, trimmed, `"`)
		}
	}
}
