package filters

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lox/aqidash/internal/models"
)

// Preset names a shortcut date range.
type Preset string

const (
	Preset7Days   Preset = "7d"
	Preset30Days  Preset = "30d"
	Preset3Months Preset = "3m"
	Preset6Months Preset = "6m"
	Preset1Year   Preset = "1y"
	PresetAll     Preset = "all"
	PresetCustom  Preset = "custom"
)

// Presets lists the selectable presets in display order.
var Presets = []Preset{Preset7Days, Preset30Days, Preset3Months, Preset6Months, Preset1Year, PresetAll}

// DefaultStates is the selection the dashboard starts with.
var DefaultStates = []string{"Alabama", "California", "Florida", "New York"}

// AllTimeStart is where the "all" preset begins.
var AllTimeStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Label returns the button text for a preset.
func (p Preset) Label() string {
	switch p {
	case Preset7Days:
		return "7 Days"
	case Preset30Days:
		return "30 Days"
	case Preset3Months:
		return "3 Months"
	case Preset6Months:
		return "6 Months"
	case Preset1Year:
		return "1 Year"
	case PresetAll:
		return "All Time"
	case PresetCustom:
		return "Custom"
	default:
		return string(p)
	}
}

// DateRange is an inclusive span of calendar dates (times are truncated to midnight UTC).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Range computes the date range a preset selects relative to now.
func (p Preset) Range(now time.Time) (DateRange, error) {
	today := Day(now)
	switch p {
	case Preset7Days:
		return DateRange{Start: today.AddDate(0, 0, -7), End: today}, nil
	case Preset30Days:
		return DateRange{Start: today.AddDate(0, 0, -30), End: today}, nil
	case Preset3Months:
		return DateRange{Start: today.AddDate(0, -3, 0), End: today}, nil
	case Preset6Months:
		return DateRange{Start: today.AddDate(0, -6, 0), End: today}, nil
	case Preset1Year:
		return DateRange{Start: today.AddDate(-1, 0, 0), End: today}, nil
	case PresetAll:
		return DateRange{Start: AllTimeStart, End: today}, nil
	default:
		return DateRange{}, fmt.Errorf("unknown preset %q", p)
	}
}

// ParsePreset validates a preset name.
func ParsePreset(s string) (Preset, error) {
	for _, p := range Presets {
		if string(p) == s {
			return p, nil
		}
	}
	if s == string(PresetCustom) {
		return PresetCustom, nil
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// Day truncates t to a calendar date in UTC, keeping t's local wall date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Values is an immutable copy of the filter state.
type Values struct {
	States        []string
	Range         DateRange
	ActivePreset  Preset
	LastAppliedAt *time.Time
}

// Payload derives the request body. predictType is included only when non-nil.
func (v Values) Payload(predictType *int) models.FilterPayload {
	p := models.FilterPayload{
		StartMonth: strconv.Itoa(int(v.Range.Start.Month())),
		StartYear:  strconv.Itoa(v.Range.Start.Year()),
		EndMonth:   strconv.Itoa(int(v.Range.End.Month())),
		EndYear:    strconv.Itoa(v.Range.End.Year()),
		States:     append([]string{}, v.States...),
	}
	if predictType != nil {
		years := *predictType
		p.PredictType = &years
	}
	return p
}

// State holds the user's current selection. Fetch results never mutate it.
type State struct {
	mu            sync.RWMutex
	states        []string
	dateRange     DateRange
	activePreset  Preset
	lastAppliedAt *time.Time
	boundsApplied bool
}

// New returns a state with the default states and the "all" preset.
func New(now time.Time) *State {
	r, _ := PresetAll.Range(now)
	return &State{
		states:       append([]string{}, DefaultStates...),
		dateRange:    r,
		activePreset: PresetAll,
	}
}

// Values returns a snapshot of the current selection.
func (s *State) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := Values{
		States:       append([]string{}, s.states...),
		Range:        s.dateRange,
		ActivePreset: s.activePreset,
	}
	if s.lastAppliedAt != nil {
		t := *s.lastAppliedAt
		v.LastAppliedAt = &t
	}
	return v
}

// Payload derives the request body from the current selection.
func (s *State) Payload(predictType *int) models.FilterPayload {
	return s.Values().Payload(predictType)
}

// SelectStates replaces the selection. Duplicates are dropped, first occurrence wins.
func (s *State) SelectStates(states []string) {
	seen := make(map[string]bool, len(states))
	out := make([]string, 0, len(states))
	for _, st := range states {
		if st == "" || seen[st] {
			continue
		}
		seen[st] = true
		out = append(out, st)
	}

	s.mu.Lock()
	s.states = out
	s.mu.Unlock()
}

// ApplyPreset sets the active preset and the range it selects.
func (s *State) ApplyPreset(p Preset, now time.Time) error {
	r, err := p.Range(now)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.activePreset = p
	s.dateRange = r
	s.mu.Unlock()
	return nil
}

// SetDateRange records a manual range edit; the preset becomes custom.
func (s *State) SetDateRange(r DateRange) error {
	r = DateRange{Start: Day(r.Start), End: Day(r.End)}
	if r.End.Before(r.Start) {
		return fmt.Errorf("date range end %s before start %s", r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}

	s.mu.Lock()
	s.dateRange = r
	s.activePreset = PresetCustom
	s.mu.Unlock()
	return nil
}

// InitFromBounds sets the range to the backend's data span the first time it is called.
// It reports whether the range was changed.
func (s *State) InitFromBounds(b models.DateBounds) bool {
	if b.Min.Month < 1 || b.Min.Month > 12 || b.Max.Month < 1 || b.Max.Month > 12 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundsApplied {
		return false
	}

	start := time.Date(b.Min.Year, time.Month(b.Min.Month), 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of the following month is the last day of max month.
	end := time.Date(b.Max.Year, time.Month(b.Max.Month)+1, 0, 0, 0, 0, 0, time.UTC)
	s.dateRange = DateRange{Start: start, End: end}
	s.boundsApplied = true
	return true
}

// MarkApplied records when filters were last applied.
func (s *State) MarkApplied(now time.Time) {
	s.mu.Lock()
	s.lastAppliedAt = &now
	s.mu.Unlock()
}
