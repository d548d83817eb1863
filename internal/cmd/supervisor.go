package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/raphi011/cicache/internal/log"
)

// Killable is a tracked process handle.
type Killable interface {
	Kill() error
	Exited() bool
	String() string
}

// Supervisor tracks the processes of one unit of work so they can be
// terminated together. The zero value is ready to use.
type Supervisor struct {
	mu      sync.Mutex
	procs   []Killable
	aborted bool
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Track registers p. If the supervisor has already been aborted by KillAll,
// p is killed right away so late starters of a failed batch do not run on.
func (s *Supervisor) Track(p Killable) {
	s.mu.Lock()
	s.procs = append(s.procs, p)
	aborted := s.aborted
	s.mu.Unlock()

	if aborted && !p.Exited() {
		_ = p.Kill()
	}
}

// Len returns the number of tracked processes.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// KillAll requests termination of every tracked process that has not
// exited. A failure to kill one process is logged and collected, and the
// remaining processes are still killed.
func (s *Supervisor) KillAll(ctx context.Context) []error {
	s.mu.Lock()
	s.aborted = true
	procs := make([]Killable, len(s.procs))
	copy(procs, s.procs)
	s.mu.Unlock()

	l := log.FromContext(ctx)
	var errs []error
	for _, p := range procs {
		if p.Exited() {
			continue
		}
		if err := p.Kill(); err != nil {
			l.Warnf("Failed to kill process %s: %v", p, err)
			errs = append(errs, fmt.Errorf("kill %s: %w", p, err))
		}
	}
	return errs
}
