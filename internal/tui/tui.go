package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/aqidash/internal/aqi"
	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/export"
	"github.com/lox/aqidash/internal/filters"
	"github.com/lox/aqidash/internal/views"
)

// Exporter writes the current dashboard to a workbook.
type Exporter interface {
	Export(ctx context.Context, snap dashboard.Snapshot, now time.Time) (export.Result, error)
}

var horizons = []int{1, 3, 5}

var (
	accent      = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	subtle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panel       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	alertBox    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("203")).Padding(1, 2)
)

type slotMsg dashboard.Slot

type exportDoneMsg struct {
	res export.Result
	err error
}

type model struct {
	ctx      context.Context
	dash     *dashboard.Dashboard
	exporter Exporter
	spinner  spinner.Model
	now      func() time.Time

	applyOnStart bool
	expanded     bool
	alert        string
	notice       string
	width        int
	height       int
}

func newModel(ctx context.Context, dash *dashboard.Dashboard, exporter Exporter) model {
	return model{
		ctx:      ctx,
		dash:     dash,
		exporter: exporter,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		now:      time.Now,
	}
}

// Run starts the terminal dashboard and applies the current filters.
func Run(ctx context.Context, dash *dashboard.Dashboard, exporter Exporter) error {
	p := newProgram(ctx, dash, exporter, tea.WithAltScreen())
	defer dash.Data.OnUpdate(nil)
	_, err := p.Run()
	return err
}

// newProgram wires slot updates into the program. Send blocks until the event
// loop reads it, and fetches are launched from inside Update, so updates are
// delivered from their own goroutines.
func newProgram(ctx context.Context, dash *dashboard.Dashboard, exporter Exporter, opts ...tea.ProgramOption) *tea.Program {
	m := newModel(ctx, dash, exporter)
	m.applyOnStart = true
	p := tea.NewProgram(m, append(opts, tea.WithContext(ctx))...)
	dash.Data.OnUpdate(func(s dashboard.Slot) {
		go p.Send(slotMsg(s))
	})
	return p
}

func (m model) Init() tea.Cmd {
	if !m.applyOnStart {
		return m.spinner.Tick
	}
	ctx, dash := m.ctx, m.dash
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		dash.Apply(ctx)
		return nil
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case slotMsg:
		return m, nil
	case exportDoneMsg:
		if msg.err != nil {
			m.alert = "Failed to generate Excel file. Please try again.\n\n" + msg.err.Error()
			return m, nil
		}
		m.notice = fmt.Sprintf("Exported %s (%d sheets)", msg.res.Path, msg.res.Sheets)
		return m, nil
	case tea.KeyMsg:
		if m.alert != "" {
			// The alert blocks until dismissed.
			m.alert = ""
			return m, nil
		}
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "a":
		r := m.dash.Apply(m.ctx)
		m.notice = fmt.Sprintf("Applying filters (round %d)", r.ID)
	case "1", "2", "3", "4", "5", "6":
		p := filters.Presets[int(key[0]-'1')]
		if err := m.dash.Filters.ApplyPreset(p, m.now()); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		r := m.dash.Apply(m.ctx)
		m.notice = fmt.Sprintf("%s selected (round %d)", p.Label(), r.ID)
	case "p":
		years := nextHorizon(m.dash.Horizon())
		r, err := m.dash.Predict(m.ctx, years)
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.notice = fmt.Sprintf("Forecasting %d year(s) ahead (round %d)", years, r.ID)
	case "x":
		m.expanded = !m.expanded
	case "e":
		if m.exporter == nil {
			m.alert = "Export is not configured."
			return m, nil
		}
		m.notice = "Exporting..."
		return m, m.exportCmd()
	}
	return m, nil
}

func nextHorizon(current int) int {
	for i, h := range horizons {
		if h == current {
			return horizons[(i+1)%len(horizons)]
		}
	}
	return horizons[0]
}

func (m model) exportCmd() tea.Cmd {
	ctx, exporter, dash, now := m.ctx, m.exporter, m.dash, m.now()
	return func() tea.Msg {
		res, err := exporter.Export(ctx, dash.ExportSnapshot(now), now)
		return exportDoneMsg{res: res, err: err}
	}
}

func (m model) View() string {
	if m.alert != "" {
		return alertBox.Render(badStyle.Render("Export failed") + "\n\n" + m.alert + "\n\n" + subtle.Render("Press any key to dismiss"))
	}

	fv := m.dash.Filters.Values()
	bag := m.dash.Data.Snapshot()

	header := headerStyle.Render("Air Quality Index Dashboard")
	toggle := "expand"
	if m.expanded {
		toggle = "collapse"
	}
	meta := subtle.Render(fmt.Sprintf("a apply · 1-6 presets · p forecast (%dy) · x %s alerts · e export · q quit",
		m.dash.Horizon(), toggle))

	filterLine := fmt.Sprintf("%s  %s - %s  [%s]",
		strings.Join(fv.States, ", "),
		fv.Range.Start.Format("1/2/2006"), fv.Range.End.Format("1/2/2006"),
		fv.ActivePreset.Label())
	if fv.LastAppliedAt != nil {
		filterLine += subtle.Render("  updated " + fv.LastAppliedAt.Format("Jan 2 15:04:05"))
	}
	if bag.Loading() {
		filterLine += "  " + m.spinner.View()
	}

	sections := []string{header, meta, filterLine}
	sections = append(sections, panel.Render(renderHero(views.Hero(bag))))
	sections = append(sections, panel.Render(renderBanner(views.AlertBanner(views.Alerts(bag.MapAQI()), m.expanded))))
	if rows := views.Comparisons(bag.YoYComparison()); len(rows) > 0 {
		sections = append(sections, panel.Render(renderComparisons(rows)))
	}
	sections = append(sections, panel.Render(m.renderSlots(bag)))
	if recs := bag.Recommendations(); recs != nil && len(recs.Response) > 0 {
		var b strings.Builder
		b.WriteString(accent.Render("Recommendations"))
		for i, r := range recs.Response {
			fmt.Fprintf(&b, "\n%d. %s", i+1, r.Title)
		}
		sections = append(sections, panel.Render(b.String()))
	}
	if m.notice != "" {
		sections = append(sections, subtle.Render(m.notice))
	}
	return strings.Join(sections, "\n")
}

func categoryStyle(c aqi.Category) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color())).Bold(true)
}

func renderHero(h views.HeroKPI) string {
	if !h.Ready {
		return accent.Render("AQI") + "  N/A"
	}
	return fmt.Sprintf("%s  %s  %s\nPM2.5 %s μg/m³ · PM10 %s μg/m³ · Gases %s ppb",
		accent.Render("AQI"), aqi.FormatValue(h.AvgAQI), categoryStyle(h.Category).Render(h.Label),
		aqi.FormatValue(h.AvgPM25), aqi.FormatValue(h.AvgPM10), aqi.FormatValue(h.SumGases))
}

func renderBanner(b views.Banner) string {
	if b.AllClear {
		return okStyle.Render("All Clear") + subtle.Render("  no states above sensitive-group levels")
	}
	var sb strings.Builder
	sb.WriteString(badStyle.Render(fmt.Sprintf("%d state alert(s)", b.Total)))
	for _, a := range b.Visible {
		fmt.Fprintf(&sb, "\n%-16s %6.1f  %s", a.State, a.Value, categoryStyle(a.Category).Render(a.Category.String()))
	}
	if more := b.MoreLabel(); more != "" {
		sb.WriteString("\n" + subtle.Render(more))
	}
	return sb.String()
}

func renderComparisons(rows []views.Comparison) string {
	var sb strings.Builder
	sb.WriteString(accent.Render("Year over Year"))
	for _, r := range rows {
		change := r.Change
		switch r.Tone {
		case views.ToneFavorable:
			change = okStyle.Render(change)
		case views.ToneUnfavorable:
			change = badStyle.Render(change)
		}
		fmt.Fprintf(&sb, "\n%-24s %8.2f %-6s %s", r.Label, r.Current, r.Unit, change)
	}
	return sb.String()
}

func (m model) renderSlots(bag dashboard.Bag) string {
	var cells []string
	for _, s := range bag.Slots() {
		var mark string
		switch s.Status {
		case dashboard.StatusLoading:
			mark = m.spinner.View()
		case dashboard.StatusReady:
			mark = okStyle.Render("●")
		case dashboard.StatusFailed:
			mark = badStyle.Render("✗")
		default:
			mark = subtle.Render("○")
		}
		cells = append(cells, fmt.Sprintf("%s %s", mark, s.Key))
	}

	var lines []string
	for i := 0; i < len(cells); i += 3 {
		end := min(i+3, len(cells))
		lines = append(lines, strings.Join(cells[i:end], "   "))
	}
	return strings.Join(lines, "\n")
}
