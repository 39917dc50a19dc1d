package linear_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/modkit/internal/adapters/linear"
)

func TestRenderer_StepLifecycle(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	r := linear.NewRenderer(&out)

	start := time.Now()
	r.OnStepStart("span1", "", "fetch", start)
	r.OnStepLog("span1", []byte("downloading v2.0.0\nhalf"))
	r.OnStepLog("span1", []byte(" line\r\n"))
	r.OnStepLog("unknown", []byte("dropped\n"))
	r.OnStepComplete("span1", start.Add(1500*time.Millisecond), nil)

	assert.Equal(t, strings.Join([]string{
		"[fetch] Starting...",
		"[fetch] downloading v2.0.0",
		"[fetch] half line",
		"[fetch] ✓ Completed in 1.5s",
		"",
	}, "\n"), out.String())
}

func TestRenderer_Failure(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	r := linear.NewRenderer(&out)

	start := time.Now()
	r.OnStepStart("span1", "", "validate", start)
	r.OnStepLog("span1", []byte("partial"))
	r.OnStepComplete("span1", start.Add(20*time.Millisecond), errors.New("module validation failed"))

	assert.Contains(t, out.String(), "[validate] partial\n")
	assert.Contains(t, out.String(), "[validate] ✗ Failed after 20ms: module validation failed")
}

func TestRenderer_StopInterruptsRunningSteps(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	r := linear.NewRenderer(&out)

	now := time.Now()
	r.OnStepStart("a", "", "lock", now)
	r.OnStepComplete("a", now, nil)
	r.OnStepStart("b", "", "post-install hook", now)
	r.OnStepLog("b", []byte("migrating"))

	assert.NoError(t, r.Stop())
	assert.Contains(t, out.String(), "[post-install hook] migrating\n[post-install hook] ! Interrupted\n")
	assert.NotContains(t, out.String(), "[lock] ! Interrupted")
}
