// viewport.go provides a scrollable, word-wrapping text area shared by the
// chat transcript and the schema view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Viewport is a scrollable text area. Lines wider than the viewport are
// wrapped; styled lines are measured by their printed width.
type Viewport struct {
	width   int
	height  int
	content []string
	wrapped []string // content after wrapping to width
	scrollY int
}

// NewViewport creates a viewport with the given dimensions.
func NewViewport(width, height int) *Viewport {
	return &Viewport{width: width, height: height}
}

// SetContent replaces the viewport content.
func (v *Viewport) SetContent(content string) {
	v.SetContentLines(strings.Split(content, "\n"))
}

// SetContentLines replaces the viewport content with pre-split lines.
func (v *Viewport) SetContentLines(lines []string) {
	v.content = lines
	v.rewrap()
}

// SetSize updates viewport dimensions.
func (v *Viewport) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.rewrap()
}

// ScrollUp moves the viewport up by n lines.
func (v *Viewport) ScrollUp(n int) {
	v.scrollY -= n
	v.clampScroll()
}

// ScrollDown moves the viewport down by n lines.
func (v *Viewport) ScrollDown(n int) {
	v.scrollY += n
	v.clampScroll()
}

// PageUp scrolls up by one page.
func (v *Viewport) PageUp() { v.ScrollUp(v.height) }

// PageDown scrolls down by one page.
func (v *Viewport) PageDown() { v.ScrollDown(v.height) }

// Home scrolls to the top.
func (v *Viewport) Home() { v.scrollY = 0 }

// End scrolls to the bottom.
func (v *Viewport) End() { v.scrollY = v.maxScrollY() }

// AtBottom reports whether the last line is visible.
func (v *Viewport) AtBottom() bool { return v.scrollY >= v.maxScrollY() }

// Render returns the visible portion of the content.
func (v *Viewport) Render() string {
	if len(v.wrapped) == 0 {
		return ""
	}

	end := v.scrollY + v.height
	if end > len(v.wrapped) {
		end = len(v.wrapped)
	}
	visible := append([]string(nil), v.wrapped[v.scrollY:end]...)
	for len(visible) < v.height {
		visible = append(visible, "")
	}

	content := strings.Join(visible, "\n")
	if indicator := v.scrollIndicator(); indicator != "" {
		return content + "\n" + indicator
	}
	return content
}

func (v *Viewport) rewrap() {
	v.wrapped = v.wrapped[:0]
	for _, line := range v.content {
		if v.width <= 0 || lipgloss.Width(line) <= v.width {
			v.wrapped = append(v.wrapped, line)
			continue
		}
		v.wrapped = append(v.wrapped,
			strings.Split(lipgloss.NewStyle().Width(v.width).Render(line), "\n")...)
	}
	v.clampScroll()
}

func (v *Viewport) clampScroll() {
	if maxY := v.maxScrollY(); v.scrollY > maxY {
		v.scrollY = maxY
	}
	if v.scrollY < 0 {
		v.scrollY = 0
	}
}

func (v *Viewport) maxScrollY() int {
	max := len(v.wrapped) - v.height
	if max < 0 {
		return 0
	}
	return max
}

func (v *Viewport) scrollIndicator() string {
	total := len(v.wrapped)
	if total <= v.height {
		return ""
	}
	label := fmt.Sprintf(" %d%% (%d/%d)", v.scrollY*100/total, v.scrollY+1, total)
	rule := v.width - lipgloss.Width(label)
	if rule < 0 {
		rule = 0
	}
	return StyleDimmed.Render(strings.Repeat("─", rule) + label)
}
