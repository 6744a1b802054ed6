package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides rich terminal progress using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexModel
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not
// a terminal so NewRenderer can fall back to plain text.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newIndexModel(cfg.VaultDir)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			// The TUI did not respond to quit; don't hang the process.
		}
	}
	return nil
}

// Message types for bubbletea.
type progressMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

// indexModel is the bubbletea model for indexing progress.
type indexModel struct {
	vaultDir string
	styles   Styles

	spinner     spinner.Model
	progressBar progress.Model
	width       int

	stage       Stage
	current     int
	total       int
	currentNote string
	errCount    int
	warnCount   int

	complete bool
	quitting bool
	stats    CompletionStats
}

func newIndexModel(vaultDir string) *indexModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorViolet))

	p := progress.New(
		progress.WithSolidFill(ColorViolet),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &indexModel{
		vaultDir:    vaultDir,
		styles:      DefaultStyles(),
		spinner:     s,
		progressBar: p,
		width:       80,
	}
}

// Init implements tea.Model.
func (m *indexModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-20, 20)

	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.currentNote = msg.CurrentNote
		return m, nil

	case errorMsg:
		if msg.IsWarn {
			m.warnCount++
		} else {
			m.errCount++
		}
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	var lines []string

	title := "Lorekeep Indexer"
	if m.vaultDir != "" {
		title += " · " + m.vaultDir
	}
	lines = append(lines, m.styles.Header.Render(title))
	lines = append(lines, m.renderStages())

	if m.total > 0 {
		pct := float64(m.current) / float64(m.total)
		lines = append(lines, fmt.Sprintf("%s  %s",
			m.progressBar.ViewAs(pct),
			m.styles.Active.Render(fmt.Sprintf("%3.0f%%", pct*100))))
		lines = append(lines, m.styles.Label.Render(fmt.Sprintf("%d / %d notes", m.current, m.total)))
	} else {
		lines = append(lines, fmt.Sprintf("%s %s...", m.spinner.View(), m.stage))
	}

	if m.currentNote != "" {
		lines = append(lines, m.styles.Dim.Render(m.currentNote))
	}
	if m.errCount > 0 || m.warnCount > 0 {
		lines = append(lines, m.styles.Warning.Render(
			fmt.Sprintf("⚠ %d warnings  ✗ %d errors", m.warnCount, m.errCount)))
	}

	return strings.Join(lines, "\n") + "\n"
}

// renderStages renders the pipeline stage indicators.
func (m *indexModel) renderStages() string {
	stages := []Stage{StageScanning, StageIndexing}

	var parts []string
	for _, s := range stages {
		var icon string
		var style lipgloss.Style
		switch {
		case s < m.stage:
			icon, style = "●", m.styles.Success
		case s == m.stage:
			icon, style = m.spinner.View(), m.styles.Active
		default:
			icon, style = "○", m.styles.Dim
		}
		parts = append(parts, style.Render(icon+" "+s.String()))
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

// renderComplete renders the completion summary.
func (m *indexModel) renderComplete() string {
	var lines []string
	lines = append(lines, m.styles.Success.Render("✓ Indexing Complete"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Notes:"), m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Notes))))
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Links:"), m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Links))))
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Duration:"), m.styles.Active.Render(m.stats.Duration.Round(time.Millisecond).String())))
	if m.stats.Embedder.Model != "" {
		lines = append(lines, fmt.Sprintf("%s %s",
			m.styles.Label.Render("Embedder:"),
			m.styles.Label.Render(fmt.Sprintf("%s (%d dims)", m.stats.Embedder.Model, m.stats.Embedder.Dimensions))))
	}
	if m.stats.Errors > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorViolet)).
		Padding(1, 2)

	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)
