package progress

import (
	"fmt"
	"io"
	"sync"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cicache/internal/ui/styles"
)

// barUpdate is sent to update the progress bar
type barUpdate struct {
	current int
	total   int
}

// Bar shows how many of a known number of archives are done.
type Bar struct {
	out       io.Writer
	program   *tea.Program
	updateCh  chan barUpdate
	done      chan struct{}
	mu        sync.Mutex
	isRunning bool
	total     int
	current   int
	message   string
}

type barModel struct {
	progress progress.Model
	message  string
	current  int
	total    int
	updateCh chan barUpdate
}

func (m barModel) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m barModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updateCh
		if !ok {
			return tea.Quit()
		}
		return update
	}
}

func (m barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case barUpdate:
		m.current = msg.current
		m.total = msg.total
		return m, m.waitForUpdate()
	default:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}
}

func (m barModel) View() tea.View {
	// [████████░░░░░░░░]  3/10 Saving deps-linux
	return tea.NewView(fmt.Sprintf("%s %s %s",
		m.progress.ViewAs(Percent(m.current, m.total)),
		Counter(m.current, m.total),
		m.message))
}

// Percent returns current/total clamped to [0, 1].
func Percent(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(max(float64(current)/float64(total), 0), 1)
}

// Counter formats "current/total" padded to the width of total.
func Counter(current, total int) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("%*d/%d", width, current, total)
}

// NewBar creates a progress bar writing to out.
func NewBar(out io.Writer, total int, message string) *Bar {
	return &Bar{
		out:      out,
		updateCh: make(chan barUpdate, 10),
		done:     make(chan struct{}),
		total:    total,
		message:  message,
	}
}

// Start begins rendering.
func (b *Bar) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isRunning {
		return
	}

	model := barModel{
		progress: progress.New(
			progress.WithWidth(30),
			progress.WithoutPercentage(),
			progress.WithColors(styles.Primary, styles.Success),
		),
		message:  b.message,
		current:  b.current,
		total:    b.total,
		updateCh: b.updateCh,
	}

	b.program = tea.NewProgram(model, tea.WithoutSignalHandler(), tea.WithInput(nil), tea.WithOutput(b.out))
	b.isRunning = true

	go func() {
		_, _ = b.program.Run()
		close(b.done)
	}()
}

// SetProgress records that current of total items are done. It matches
// cache.ProgressFunc and is safe to call from archive workers.
func (b *Bar) SetProgress(current, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current, b.total = current, total
	if !b.isRunning {
		return
	}

	select {
	case b.updateCh <- barUpdate{current: current, total: total}:
	default:
	}
}

// Progress returns the last recorded progress.
func (b *Bar) Progress() (current, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.total
}

// Stop stops rendering and clears the line.
func (b *Bar) Stop() {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = false
	close(b.updateCh)
	b.mu.Unlock()

	stop(b.program, b.done, b.out)
}
