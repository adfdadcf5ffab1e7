// app.go is the top-level Bubble Tea model that hosts the panels.
//
// Key design decisions:
//   - The chat panel owns the keyboard for text; only non-text keys
//     (Tab, F1, Ctrl+C) are handled globally.
//   - Async results are delivered to every panel so a turn that finishes
//     while another tab is active is not lost.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/equipoapa2-hub/autopic/assistant"
)

const appVersion = "0.1.0"

// Tab indices.
const (
	TabChat = iota
	TabSchema
)

// App is the root Bubble Tea model.
type App struct {
	opts      Options
	views     []View
	activeTab int

	width     int
	height    int
	showHelp  bool
	statusMsg string
}

// NewApp creates the application with the chat panel active.
func NewApp(ctx context.Context, a Assistant, opts Options) *App {
	if opts.SessionID == "" {
		opts.SessionID = assistant.DefaultSessionID
	}
	return &App{
		opts: opts,
		views: []View{
			NewChatView(ctx, a, opts.SessionID, opts.Provider),
			NewSchemaView(ctx, opts.Schema, opts.Verify),
		},
		activeTab: TabChat,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.views))
	for _, v := range a.views {
		cmds = append(cmds, v.Init())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// header(1) + tabs(1) + border(2) + status(1)
		contentW := a.width - 2
		contentH := a.height - 5
		for _, v := range a.views {
			v.SetSize(contentW, contentH)
		}
		return a, nil

	case StatusMsg:
		a.statusMsg = string(msg)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmds []tea.Cmd
	for i, v := range a.views {
		updated, cmd := v.Update(msg)
		a.views[i] = updated
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.statusMsg = ""

	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "f1":
		a.showHelp = !a.showHelp
		return a, nil
	case "tab":
		return a.switchTab((a.activeTab + 1) % len(a.views))
	case "shift+tab":
		return a.switchTab((a.activeTab + len(a.views) - 1) % len(a.views))
	case "esc":
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
	}

	updated, cmd := a.views[a.activeTab].Update(msg)
	a.views[a.activeTab] = updated
	return a, cmd
}

func (a *App) switchTab(idx int) (tea.Model, tea.Cmd) {
	if idx >= 0 && idx < len(a.views) {
		a.activeTab = idx
		a.showHelp = false
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}

	var inner string
	if a.showHelp {
		inner = a.renderHelp()
	} else {
		inner = a.views[a.activeTab].View()
	}

	frameHeight := a.height - 5
	if frameHeight < 0 {
		frameHeight = 0
	}
	frame := StyleBorder.
		Width(a.width - 2).
		Height(frameHeight).
		Render(inner)

	return strings.Join([]string{a.renderHeader(), a.renderTabBar(), frame, a.renderStatusBar()}, "\n")
}

// renderHeader draws logo, version, provider and session.
func (a *App) renderHeader() string {
	left := StyleBold.Render("🚗 AutoPic") + StyleDimmed.Render(" v"+appVersion)
	if a.opts.Database != "" {
		left += StyleSuccess.Render("  ⚡ " + a.opts.Database)
	}

	right := StyleDimmed.Render(fmt.Sprintf("sesión %s · %s", a.opts.SessionID, a.opts.Provider))
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) renderTabBar() string {
	var tabs []string
	for i, v := range a.views {
		if i == a.activeTab {
			tabs = append(tabs, StyleTabActive.Render(v.Name()))
		} else {
			tabs = append(tabs, StyleTabInactive.Render(v.Name()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) renderStatusBar() string {
	content := a.statusMsg
	if content == "" {
		var parts []string
		for _, h := range a.helpItems() {
			parts = append(parts, StyleHelpKey.Render(h.Key)+" "+StyleHelpDesc.Render(h.Desc))
		}
		content = strings.Join(parts, "  │  ")
	}
	return StyleStatusBar.Width(a.width).Render(content)
}

func (a *App) helpItems() []KeyBinding {
	global := []KeyBinding{
		{Key: "Tab", Desc: "switch view"},
		{Key: "F1", Desc: "help"},
		{Key: "Ctrl+C", Desc: "quit"},
	}
	return append(a.views[a.activeTab].ShortHelp(), global...)
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("⌨ AutoPic Keyboard Shortcuts"),
		StyleHelpKey.Render("Tab / Shift+Tab") + "  Switch between Chat and Schema",
		StyleHelpKey.Render("F1") + "               Toggle this help",
		StyleHelpKey.Render("Ctrl+C") + "           Quit",
		"",
		StyleTitle.Render("Chat"),
		StyleHelpKey.Render("Enter") + "            Send the question",
		StyleHelpKey.Render("Ctrl+L") + "           Clear the session context",
		StyleHelpKey.Render("Ctrl+D") + "           Show SQL and rows of the last answer",
		StyleHelpKey.Render("PgUp/PgDn") + "        Scroll the conversation",
		"",
		StyleTitle.Render("Schema"),
		StyleHelpKey.Render("↑/↓ j/k") + "          Scroll",
		StyleHelpKey.Render("v") + "                Compare with the live database",
		"",
		StyleDimmed.Render("Press F1 or Esc to close"),
	}

	return lipgloss.NewStyle().
		Width(a.width-4).
		Padding(1, 2).
		Render(strings.Join(help, "\n"))
}
