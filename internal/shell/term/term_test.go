package term

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_StreamsAndTags(t *testing.T) {
	out := &bytes.Buffer{}
	errs := &bytes.Buffer{}
	p := NewPrinterTo(out, errs)

	p.Info("syncing %s", "definition")
	p.Success("done")
	p.Warn("slow")
	p.Error("broken")

	assert.Contains(t, out.String(), "[INFO] syncing definition")
	assert.Contains(t, out.String(), "[ OK ] done")
	assert.Contains(t, errs.String(), "[WARN] slow")
	assert.Contains(t, errs.String(), "[FAIL] broken")

	assert.NotContains(t, out.String(), "\033[", "color must be off for non-terminal writers")
	assert.NotContains(t, errs.String(), "\033[")
}
