// Package launcher starts processes for launch configurations, with or
// without a debugger attached.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/joeycumines/launchman/internal/launch"
)

// Mode selects whether breakpoints are honoured.
type Mode int

const (
	// ModeDebug starts the program under its debugger.
	ModeDebug Mode = iota
	// ModeNoDebug runs the program directly.
	ModeNoDebug
)

func (m Mode) String() string {
	if m == ModeNoDebug {
		return "run"
	}
	return "debug"
}

var (
	// ErrAttachUnsupported is returned for configurations with request
	// "attach"; attaching needs a debug adapter.
	ErrAttachUnsupported = errors.New("attach configurations cannot be launched")

	// ErrNoProgram is returned when a configuration names nothing to run.
	ErrNoProgram = errors.New("configuration has no program, module or runtimeExecutable")
)

// Launcher starts a session for a configuration. It does not track the
// session beyond returning it.
type Launcher interface {
	Launch(ctx context.Context, cfg launch.Configuration, mode Mode) (*Session, error)
}

// Session is a started program.
type Session struct {
	ID   string
	Name string
	Mode Mode
	Plan *Plan

	output syncBuffer
	done   chan struct{}
	err    error
}

func newSession(id, name string, mode Mode, plan *Plan) *Session {
	return &Session{ID: id, Name: name, Mode: mode, Plan: plan, done: make(chan struct{})}
}

// Done is closed when the program exits.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the program exits and returns its exit error.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Output returns everything the program has written so far.
func (s *Session) Output() string { return s.output.String() }

func (s *Session) finish(err error) {
	s.err = err
	close(s.done)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Call records one Launch invocation.
type Call struct {
	Configuration launch.Configuration
	Mode          Mode
}

// RecordingLauncher records launches without starting anything. Sessions it
// returns are already finished.
type RecordingLauncher struct {
	// Err, when set, is returned by every Launch.
	Err error

	mu    sync.Mutex
	calls []Call
}

// Launch records the call.
func (r *RecordingLauncher) Launch(ctx context.Context, cfg launch.Configuration, mode Mode) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.calls = append(r.calls, Call{Configuration: cfg.Clone(), Mode: mode})
	n := len(r.calls)
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s := newSession("recorded-"+strconv.Itoa(n), cfg.Name, mode, nil)
	s.finish(nil)
	return s, nil
}

// Calls returns the recorded launches in order.
func (r *RecordingLauncher) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
