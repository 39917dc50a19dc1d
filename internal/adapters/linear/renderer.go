// Package linear provides a synchronous, line-buffered step renderer.
package linear

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/ui/output"
	"go.trai.ch/modkit/internal/ui/style"
)

// Renderer implements ports.Renderer with one prefixed line per event.
type Renderer struct {
	w      io.Writer
	output *termenv.Output

	mu    sync.Mutex
	steps map[string]*stepState
	order []string
}

type stepState struct {
	name      string
	startTime time.Time
	status    domain.StepStatus
	buf       bytes.Buffer
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{
		w:      w,
		output: output.NewWithProfile(w, output.ColorProfileANSI),
		steps:  make(map[string]*stepState),
	}
}

// OnStepStart prints a step start message.
func (r *Renderer) OnStepStart(spanID, _ /* parentID */, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps[spanID] = &stepState{name: name, startTime: startTime, status: domain.StepStatusRunning}
	r.order = append(r.order, spanID)

	_, _ = fmt.Fprintf(r.w, "%s Starting...\n", r.prefix(name))
}

// OnStepLog buffers output and prints complete lines with the step prefix.
func (r *Renderer) OnStepLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step, ok := r.steps[spanID]
	if !ok {
		return
	}

	step.buf.Write(data)
	for {
		i := bytes.IndexByte(step.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := step.buf.Next(i + 1)
		r.printLineLocked(step.name, line)
	}
}

// OnStepComplete flushes remaining output and prints the completion status.
func (r *Renderer) OnStepComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step, ok := r.steps[spanID]
	if !ok {
		return
	}
	r.flushLocked(step)

	duration := endTime.Sub(step.startTime).Round(time.Millisecond)
	if err != nil {
		step.status = domain.StepStatusFailed
		symbol := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.w, "%s %s Failed after %v: %v\n", r.prefix(step.name), symbol, duration, err)
	} else {
		step.status = domain.StepStatusCompleted
		symbol := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
		_, _ = fmt.Fprintf(r.w, "%s %s Completed in %v\n", r.prefix(step.name), symbol, duration)
	}

	delete(r.steps, spanID)
}

// Stop flushes buffered output and marks steps that never completed as interrupted.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spanID := range r.order {
		step, ok := r.steps[spanID]
		if !ok || step.status.IsTerminal() {
			continue
		}
		r.flushLocked(step)
		step.status = domain.StepStatusInterrupted
		symbol := r.output.String(style.Warning).Foreground(termenv.ANSIYellow).String()
		_, _ = fmt.Fprintf(r.w, "%s %s Interrupted\n", r.prefix(step.name), symbol)
	}
	r.steps = make(map[string]*stepState)
	r.order = nil
	return nil
}

func (r *Renderer) prefix(name string) string {
	return r.output.String(fmt.Sprintf("[%s]", name)).Faint().String()
}

// flushLocked prints any partial line. Must be called with r.mu held.
func (r *Renderer) flushLocked(step *stepState) {
	if step.buf.Len() > 0 {
		r.printLineLocked(step.name, step.buf.Bytes())
		step.buf.Reset()
	}
}

// printLineLocked prints a line with the step name prefix. Must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.w, "%s %s\n", r.prefix(name), line)
}
