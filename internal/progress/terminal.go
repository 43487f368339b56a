// Package progress renders per-track and batch progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"spotload/pkg/models"
)

type BarStyle string

const (
	BarGradient BarStyle = "gradient"
	BarMoon     BarStyle = "moon"

	barWidth  = 40
	moonWidth = 10
)

var moonPhases = []string{"🌑", "🌒", "🌓", "🌔", "🌕"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

func ParseBarStyle(s string) (BarStyle, error) {
	switch BarStyle(strings.ToLower(s)) {
	case "", BarGradient:
		return BarGradient, nil
	case BarMoon:
		return BarMoon, nil
	default:
		return "", fmt.Errorf("unknown progress bar style %q (use %s or %s)", s, BarGradient, BarMoon)
	}
}

// Terminal writes human readable progress lines to out.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	style BarStyle
	bar   progress.Model
}

func NewTerminal(out io.Writer, style BarStyle) *Terminal {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = barWidth

	return &Terminal{out: out, style: style, bar: bar}
}

func (t *Terminal) TrackStarted(i, n int, track models.Track) {
	t.printf("%s\n", titleStyle.Render(fmt.Sprintf("Downloading '%s' by %s...", track.Name, track.Artist)))
}

func (t *Terminal) TrackFinished(i, n int, track models.Track, r models.FetchResult) {
	if !r.OK() {
		msg := fmt.Sprintf("  %s '%s': %s", r.Status, track.Name, errText(r.Err))
		t.printf("%s\n", warningStyle.Render(msg))
	}
	pct := percent(i, n)
	t.printf("%d/%d songs downloaded %s %d%%\n", i, n, t.render(pct), pct)
}

func (t *Terminal) CollectionFinished(dest string, s models.Summary) {
	line := fmt.Sprintf("Download completed! %d of %d tracks saved to %s", s.Downloaded, s.Attempted, dest)
	if s.Failed > 0 {
		t.printf("%s %s\n", successStyle.Render(line), warningStyle.Render(fmt.Sprintf("(%d failed)", s.Failed)))
		return
	}
	t.printf("%s\n", successStyle.Render(line))
}

func (t *Terminal) LinkFailed(link string, err error) {
	t.printf("%s\n", errorStyle.Render(fmt.Sprintf("Could not process %s: %v", link, err)))
}

func (t *Terminal) BatchProgress(completed, total int) {
	pct := percent(completed, total)
	t.printf("%s %s %d%%\n", dimStyle.Render(fmt.Sprintf("Links %d/%d", completed, total)), t.render(pct), pct)
}

func (t *Terminal) render(pct int) string {
	if t.style == BarMoon {
		return MoonBar(pct)
	}
	return t.bar.ViewAs(float64(pct) / 100)
}

func (t *Terminal) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// MoonBar draws pct as ten moon glyphs: new moons pending, one partially lit
// moon for the current tenth, and full moons for completed tenths.
func MoonBar(pct int) string {
	if pct >= 100 {
		return strings.Repeat(moonPhases[4], moonWidth)
	}
	if pct < 0 {
		pct = 0
	}
	full := pct / 10
	partial := int(float64(pct%10) / 2.5)
	return strings.Repeat(moonPhases[0], moonWidth-full-1) + moonPhases[partial] + strings.Repeat(moonPhases[4], full)
}

func percent(i, n int) int {
	if n <= 0 {
		return 100
	}
	return i * 100 / n
}

func errText(err error) string {
	if err == nil {
		return "no details"
	}
	return err.Error()
}
