// Package prompt implements the interactive terminal layer: confirmations,
// single-choice selection, hidden input and a spinner for long operations.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"go.trai.ch/modkit/internal/adapters/detector"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/ui/output"
	"go.trai.ch/modkit/internal/ui/style"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// Prompter implements ports.Prompter on a terminal.
type Prompter struct {
	in          *bufio.Reader
	fd          int
	out         io.Writer
	output      *termenv.Output
	interactive bool

	mu      sync.Mutex
	program *tea.Program
}

// New creates a Prompter reading stdin and writing out. The mode is detected from the terminal.
func New(stdin, stdout *os.File, out io.Writer) *Prompter {
	p := NewWithIO(stdin, out, detector.DetectEnvironment(stdin, stdout) == detector.ModeInteractive)
	if stdin != nil {
		p.fd = int(stdin.Fd()) //nolint:gosec // file descriptors fit in int
	}
	return p
}

// NewWithIO creates a Prompter over arbitrary streams.
func NewWithIO(in io.Reader, out io.Writer, interactive bool) *Prompter {
	if in == nil {
		in = strings.NewReader("")
	}
	return &Prompter{
		in:          bufio.NewReader(in),
		fd:          -1,
		out:         out,
		output:      output.New(out),
		interactive: interactive,
	}
}

// Interactive reports whether prompts are shown.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Confirm asks a yes/no question. Non-interactive terminals and empty answers take def.
func (p *Prompter) Confirm(label string, def bool) bool {
	if !p.interactive {
		return def
	}

	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		_, _ = fmt.Fprintf(p.out, "%s %s ", p.output.String("?").Foreground(termenv.ANSICyan).Bold(), label+" "+hint)
		answer, err := p.readLine()
		if err != nil {
			return def
		}
		switch strings.ToLower(answer) {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		_, _ = fmt.Fprintln(p.out, "Please answer yes or no.")
	}
}

// Select offers numbered options and returns the chosen value.
// Non-interactive terminals and empty answers take def.
func (p *Prompter) Select(label string, options []domain.Option, def string) (string, error) {
	if len(options) == 0 {
		return "", domain.ErrNoVersionSelected
	}
	if !p.interactive {
		return def, nil
	}

	defIndex := 0
	_, _ = fmt.Fprintf(p.out, "%s %s\n", p.output.String("?").Foreground(termenv.ANSICyan).Bold(), label)
	for i, opt := range options {
		marker := " "
		if opt.Value == def {
			marker = style.Arrow
			defIndex = i + 1
		}
		_, _ = fmt.Fprintf(p.out, " %s %d) %s\n", marker, i+1, opt.Label)
	}

	for {
		if defIndex > 0 {
			_, _ = fmt.Fprintf(p.out, "Choice [%d]: ", defIndex)
		} else {
			_, _ = fmt.Fprint(p.out, "Choice: ")
		}
		answer, err := p.readLine()
		if err != nil {
			return def, nil //nolint:nilerr // closed input takes the default
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return options[n-1].Value, nil
		}
		for _, opt := range options {
			if opt.Value == answer {
				return opt.Value, nil
			}
		}
		_, _ = fmt.Fprintf(p.out, "Enter a number between 1 and %d.\n", len(options))
	}
}

// Secret reads a value without echoing it when stdin is a terminal.
func (p *Prompter) Secret(label string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s %s: ", p.output.String("?").Foreground(termenv.ANSICyan).Bold(), label)
	if p.fd >= 0 && term.IsTerminal(p.fd) {
		b, err := term.ReadPassword(p.fd)
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", zerr.Wrap(err, "failed to read secret")
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := p.readLine()
	if err != nil {
		return "", zerr.Wrap(err, "failed to read secret")
	}
	return line, nil
}

// Spin runs fn while a spinner is shown. Without a terminal only the label is printed.
func (p *Prompter) Spin(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if !p.interactive {
		_, _ = fmt.Fprintln(p.out, label)
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newSpinner(label),
		tea.WithInput(nil),
		tea.WithOutput(p.out),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	p.setProgram(program)
	defer p.setProgram(nil)

	var g errgroup.Group
	g.Go(func() error {
		_, err := program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return zerr.Wrap(err, "spinner failed")
		}
		return nil
	})

	err := fn(ctx)
	program.Send(doneMsg{err: err})
	if waitErr := g.Wait(); waitErr != nil && err == nil {
		return waitErr
	}
	return err
}

// Writer returns a writer that prints above an active spinner.
func (p *Prompter) Writer() io.Writer {
	return spinWriter{p: p}
}

func (p *Prompter) setProgram(program *tea.Program) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.program = program
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

type spinWriter struct {
	p *Prompter
}

func (w spinWriter) Write(b []byte) (int, error) {
	w.p.mu.Lock()
	program := w.p.program
	w.p.mu.Unlock()

	if program == nil {
		return w.p.out.Write(b)
	}
	program.Println(strings.TrimSuffix(string(b), "\n"))
	return len(b), nil
}
