// Package progress shows what a long save or restore is doing on an
// interactive terminal.
//
// Both components render to the writer they are created with (stderr in
// the CLI) and are only used when that writer is a terminal; CI logs get
// the plain log lines instead.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
)

// stopTimeout bounds how long Stop waits for the renderer to exit.
const stopTimeout = 500 * time.Millisecond

// messageUpdate is sent to update the spinner message
type messageUpdate string

// Spinner shows an animated message while work of unknown size runs.
type Spinner struct {
	out       io.Writer
	program   *tea.Program
	msgChan   chan string
	done      chan struct{}
	mu        sync.Mutex
	isRunning bool
	lastMsg   string
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	msgChan chan string
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForMessage())
}

func (m spinnerModel) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.msgChan
		if !ok {
			return tea.Quit()
		}
		return messageUpdate(msg)
	}
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messageUpdate:
		m.message = string(msg)
		return m, m.waitForMessage()
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() tea.View {
	if m.message == "" {
		return tea.NewView("")
	}
	return tea.NewView(fmt.Sprintf("%s %s", m.spinner.View(), m.message))
}

// NewSpinner creates a spinner writing to out.
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		msgChan: make(chan string, 10),
		done:    make(chan struct{}),
		lastMsg: message,
	}
}

// Message returns the current message.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMsg
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	model := spinnerModel{
		spinner: sp,
		message: s.lastMsg,
		msgChan: s.msgChan,
	}

	// Signals are handled by the command context, not the renderer.
	s.program = tea.NewProgram(model, tea.WithoutSignalHandler(), tea.WithInput(nil), tea.WithOutput(s.out))
	s.isRunning = true

	go func() {
		_, _ = s.program.Run()
		close(s.done)
	}()
}

// UpdateMessage changes the spinner message.
// Updates are dropped while the renderer is busy.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastMsg = message
	if !s.isRunning {
		return
	}

	select {
	case s.msgChan <- message:
	default:
	}
}

// Stop stops the spinner and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.msgChan)
	s.mu.Unlock()

	stop(s.program, s.done, s.out)
}

// stop quits program, waits for it to exit and clears the line.
func stop(program *tea.Program, done <-chan struct{}, out io.Writer) {
	if program != nil {
		program.Quit()
	}

	select {
	case <-done:
	case <-time.After(stopTimeout):
	}

	fmt.Fprint(out, "\r\033[K")
}
