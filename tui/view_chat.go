// view_chat.go is the assistant chat.
//
// Turns are sent asynchronously; the UI remains responsive while the
// assistant works. The debug panel shows the SQL and rows behind the
// last database-backed answer.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/equipoapa2-hub/autopic/assistant"
)

const (
	maxDebugRows     = 10
	maxDebugColWidth = 30
)

type chatEntry struct {
	user bool
	text string
	err  bool
}

// ChatView is the conversation panel.
type ChatView struct {
	ctx       context.Context
	assistant Assistant
	sessionID string
	provider  string

	viewport  *Viewport
	input     string
	entries   []chatEntry
	last      *assistant.TurnResult
	loading   bool
	showDebug bool
	width     int
	height    int
}

// NewChatView creates the chat panel for one session.
func NewChatView(ctx context.Context, a Assistant, sessionID, provider string) *ChatView {
	return &ChatView{
		ctx:       ctx,
		assistant: a,
		sessionID: sessionID,
		provider:  provider,
		viewport:  NewViewport(80, 20),
	}
}

func (v *ChatView) Name() string { return "Chat" }

func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.resize()
}

func (v *ChatView) ShortHelp() []KeyBinding {
	return []KeyBinding{
		{Key: "Enter", Desc: "send"},
		{Key: "Ctrl+L", Desc: "clear context"},
		{Key: "Ctrl+D", Desc: "debug"},
		{Key: "PgUp/PgDn", Desc: "scroll"},
	}
}

func (v *ChatView) Init() tea.Cmd {
	v.render()
	return nil
}

func (v *ChatView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case TurnResultMsg:
		v.loading = false
		if msg.Err != nil {
			v.entries = append(v.entries, chatEntry{text: "Error: " + msg.Err.Error(), err: true})
		} else {
			v.last = msg.Result
			v.entries = append(v.entries, chatEntry{text: msg.Result.AnswerText})
		}
		v.resize()
		v.render()
		v.viewport.End()
		return v, nil

	case ClearedMsg:
		if msg.Err != nil {
			return v, statusCmd("clear failed: " + msg.Err.Error())
		}
		v.entries = nil
		v.last = nil
		v.resize()
		v.render()
		return v, statusCmd("Contexto limpiado correctamente")
	}

	return v, nil
}

func (v *ChatView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return v, v.send()
	case "ctrl+l":
		if v.loading {
			return v, nil
		}
		return v, v.clear()
	case "ctrl+d":
		v.showDebug = !v.showDebug
		v.resize()
	case "up", "ctrl+k":
		v.viewport.ScrollUp(1)
	case "down", "ctrl+j":
		v.viewport.ScrollDown(1)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	case "backspace":
		if len(v.input) > 0 {
			_, size := utf8.DecodeLastRuneInString(v.input)
			v.input = v.input[:len(v.input)-size]
		}
	default:
		if msg.Type == tea.KeyRunes {
			v.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			v.input += " "
		}
	}
	return v, nil
}

func (v *ChatView) send() tea.Cmd {
	text := strings.TrimSpace(v.input)
	if text == "" || v.loading {
		return nil
	}

	v.entries = append(v.entries, chatEntry{user: true, text: text})
	v.input = ""
	v.loading = true
	v.render()
	v.viewport.End()

	ctx, a, sessionID := v.ctx, v.assistant, v.sessionID
	return func() tea.Msg {
		res, err := a.HandleMessage(ctx, text, sessionID)
		return TurnResultMsg{Result: res, Err: err}
	}
}

func (v *ChatView) clear() tea.Cmd {
	ctx, a, sessionID := v.ctx, v.assistant, v.sessionID
	return func() tea.Msg {
		return ClearedMsg{Err: a.ClearSession(ctx, sessionID)}
	}
}

func (v *ChatView) render() {
	lines := []string{
		StyleTitle.Render("AutoPic IA") + " " + StyleDimmed.Render("("+v.provider+")"),
	}

	if len(v.entries) == 0 {
		lines = append(lines,
			"Pregunta lo que necesites sobre la flotilla:",
			"  • ¿Cuántos vehículos están disponibles?",
			"  • ¿Quién usó el vehículo ABC-123 la semana pasada?",
			"  • ¿Qué vehículos están en mantenimiento?",
			"",
			StyleDimmed.Render("Escribe tu pregunta y presiona Enter."),
		)
	}

	for _, e := range v.entries {
		switch {
		case e.user:
			lines = append(lines, StyleUser.Render("Tú: ")+e.text, "")
		case e.err:
			lines = append(lines, StyleError.Render(e.text), "")
		default:
			lines = append(lines, StyleAssistant.Render("IA:"))
			for _, line := range strings.Split(e.text, "\n") {
				lines = append(lines, "  "+line)
			}
			lines = append(lines, "")
		}
	}

	if v.loading {
		lines = append(lines, StyleDimmed.Render("  ⏳ Pensando..."))
	}

	v.viewport.SetContentLines(lines)
}

// resize splits the height between transcript and debug panel.
func (v *ChatView) resize() {
	h := v.height - 2 // prompt + spacer
	if panel := v.debugPanel(); panel != "" {
		h -= lipgloss.Height(panel)
	}
	if h < 3 {
		h = 3
	}
	v.viewport.SetSize(v.width, h)
}

func (v *ChatView) debugPanel() string {
	if !v.showDebug {
		return ""
	}
	var lines []string
	switch {
	case v.last == nil:
		lines = append(lines, StyleDimmed.Render("Sin turnos todavía."))
	case !v.last.UsedDatabase:
		lines = append(lines, StyleDimmed.Render("Último turno: respuesta directa (sin consulta)."))
	default:
		lines = append(lines, StyleWarning.Render("SQL: ")+v.last.Query)
		lines = append(lines, formatRows(v.last.Rows)...)
	}
	return StyleDebug.Width(v.width).Render(strings.Join(lines, "\n"))
}

func (v *ChatView) View() string {
	prompt := StylePrompt.Render("Pregunta> ") + v.input + "█"
	if v.loading {
		prompt = StylePrompt.Render("Pregunta> ") + StyleDimmed.Render("esperando respuesta...")
	}

	sections := []string{prompt, "", v.viewport.Render()}
	if panel := v.debugPanel(); panel != "" {
		sections = append(sections, panel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// formatRows renders rows as an aligned table, columns in name order.
func formatRows(rows []map[string]any) []string {
	if len(rows) == 0 {
		return []string{StyleDimmed.Render("(0 filas)")}
	}

	colSet := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			colSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(colSet))
	for k := range colSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	shown := rows
	if len(shown) > maxDebugRows {
		shown = shown[:maxDebugRows]
	}

	cells := make([][]string, len(shown))
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for r, row := range shown {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			cell := "NULL"
			if val, ok := row[col]; ok && val != nil {
				cell = fmt.Sprint(val)
			}
			cell = truncateRunes(cell, maxDebugColWidth)
			cells[r][i] = cell
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var header, separator strings.Builder
	for i, col := range columns {
		header.WriteString(" " + padRight(col, widths[i]) + " │")
		separator.WriteString(strings.Repeat("─", widths[i]+2) + "┼")
	}
	lines := []string{
		StyleSuccess.Render(strings.TrimSuffix(header.String(), "│")),
		StyleDimmed.Render(strings.TrimSuffix(separator.String(), "┼")),
	}
	for _, row := range cells {
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(" " + padRight(cell, widths[i]) + " │")
		}
		lines = append(lines, strings.TrimSuffix(line.String(), "│"))
	}

	status := fmt.Sprintf("(%d fila%s)", len(rows), plural(len(rows)))
	if len(rows) > len(shown) {
		status = fmt.Sprintf("(%d de %d filas)", len(shown), len(rows))
	}
	return append(lines, StyleDimmed.Render(status))
}

func truncateRunes(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func padRight(s string, n int) string {
	if pad := n - utf8.RuneCountInString(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return StatusMsg(text) }
}
