package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipoapa2-hub/autopic/assistant"
)

type fakeAssistant struct {
	result   *assistant.TurnResult
	err      error
	messages []string
	sessions []string
	cleared  []string
}

func (f *fakeAssistant) HandleMessage(_ context.Context, message, sessionID string) (*assistant.TurnResult, error) {
	f.messages = append(f.messages, message)
	f.sessions = append(f.sessions, sessionID)
	return f.result, f.err
}

func (f *fakeAssistant) ClearSession(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func typeText(v View, text string) View {
	for _, r := range text {
		if r == ' ' {
			v, _ = v.Update(tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return v
}

func newChat(f *fakeAssistant) *ChatView {
	v := NewChatView(context.Background(), f, "s1", "Placeholder")
	v.SetSize(100, 30)
	v.Init()
	return v
}

func TestChatView_SendTurn(t *testing.T) {
	f := &fakeAssistant{result: &assistant.TurnResult{
		UsedDatabase: true,
		AnswerText:   "Hay 2 vehículos disponibles.",
		Query:        `SELECT COUNT(*) AS count FROM "Vehicles"`,
		Rows:         []map[string]any{{"count": 2}},
	}}
	v := newChat(f)

	typeText(v, "¿Cuántos vehículos?")
	assert.Equal(t, "¿Cuántos vehículos?", v.input)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.loading)
	assert.Empty(t, v.input)

	// A second Enter while waiting does nothing.
	_, again := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	msg := cmd()
	assert.Equal(t, []string{"¿Cuántos vehículos?"}, f.messages)
	assert.Equal(t, []string{"s1"}, f.sessions)

	v.Update(msg)
	assert.False(t, v.loading)
	assert.Contains(t, v.View(), "Hay 2 vehículos disponibles.")
	assert.NotContains(t, v.View(), "SELECT COUNT")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Contains(t, v.View(), `SELECT COUNT(*) AS count FROM "Vehicles"`)
	assert.Contains(t, v.View(), "(1 fila)")
}

func TestChatView_ErrorTurn(t *testing.T) {
	f := &fakeAssistant{err: errors.New("oracle error [narrate]: timeout")}
	v := newChat(f)

	typeText(v, "hola")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v.Update(cmd())

	assert.Contains(t, v.View(), "Error: oracle error [narrate]: timeout")
}

func TestChatView_ClearContext(t *testing.T) {
	f := &fakeAssistant{result: &assistant.TurnResult{AnswerText: "¡Hola!"}}
	v := newChat(f)

	typeText(v, "hola")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v.Update(cmd())
	require.Len(t, v.entries, 2)

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	_, status := v.Update(cmd())

	assert.Equal(t, []string{"s1"}, f.cleared)
	assert.Empty(t, v.entries)
	assert.Nil(t, v.last)
	require.NotNil(t, status)
	assert.Equal(t, StatusMsg("Contexto limpiado correctamente"), status())
}

func TestChatView_BackspaceIsRuneAware(t *testing.T) {
	v := newChat(&fakeAssistant{})
	typeText(v, "año")
	v.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	v.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "a", v.input)
}

func TestFormatRows(t *testing.T) {
	lines := formatRows([]map[string]any{
		{"plate": "ABC-123", "brand": "Toyota"},
		{"plate": "XYZ-789", "brand": nil},
	})
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "brand")
	assert.Less(t, strings.Index(lines[0], "brand"), strings.Index(lines[0], "plate"))
	assert.Contains(t, lines[3], "NULL")
	assert.Contains(t, lines[4], "(2 filas)")

	assert.Contains(t, formatRows(nil)[0], "(0 filas)")

	many := make([]map[string]any, maxDebugRows+5)
	for i := range many {
		many[i] = map[string]any{"id": i}
	}
	lines = formatRows(many)
	assert.Len(t, lines, maxDebugRows+3)
	assert.Contains(t, lines[len(lines)-1], "(10 de 15 filas)")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "corto", truncateRunes("corto", 10))
	assert.Equal(t, "mantenimi…", truncateRunes("mantenimiento", 10))
	assert.Equal(t, "a b", truncateRunes("a\nb", 10))
}

func TestViewport_Scrolling(t *testing.T) {
	vp := NewViewport(20, 3)
	vp.SetContentLines([]string{"1", "2", "3", "4", "5"})

	assert.True(t, strings.HasPrefix(vp.Render(), "1\n2\n3"))
	vp.End()
	assert.True(t, vp.AtBottom())
	assert.True(t, strings.HasPrefix(vp.Render(), "3\n4\n5"))
	vp.ScrollDown(10)
	assert.True(t, strings.HasPrefix(vp.Render(), "3\n4\n5"))
	vp.Home()
	vp.ScrollUp(1)
	assert.True(t, strings.HasPrefix(vp.Render(), "1\n2\n3"))
}

func TestViewport_Wraps(t *testing.T) {
	vp := NewViewport(10, 10)
	vp.SetContentLines([]string{"uno dos tres cuatro cinco"})
	assert.Greater(t, len(vp.wrapped), 1)
	for _, line := range vp.wrapped {
		assert.LessOrEqual(t, len([]rune(strings.TrimRight(line, " "))), 10)
	}
}

func TestSchemaView_Verify(t *testing.T) {
	calls := 0
	v := NewSchemaView(context.Background(), nil, func(context.Context) (string, error) {
		calls++
		return "schema matches the database", nil
	})
	v.SetSize(100, 200)
	v.Init()
	assert.Contains(t, v.View(), "Vehicles")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	require.NotNil(t, cmd)
	v.Update(cmd())
	assert.Equal(t, 1, calls)
	assert.Contains(t, v.View(), "schema matches the database")

	noVerify := NewSchemaView(context.Background(), nil, nil)
	_, cmd = noVerify.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	assert.Nil(t, cmd)
}

func TestApp_TabsAndResults(t *testing.T) {
	f := &fakeAssistant{result: &assistant.TurnResult{AnswerText: "listo"}}
	app := NewApp(context.Background(), f, Options{Provider: "Placeholder"})
	app.Init()
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	chat := app.views[TabChat].(*ChatView)
	assert.Equal(t, assistant.DefaultSessionID, chat.sessionID)

	typeText(chat, "hola")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	result := cmd()

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabSchema, app.activeTab)

	// The turn finishes while the schema tab is active.
	app.Update(result)
	assert.False(t, chat.loading)

	app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabChat, app.activeTab)
	assert.Contains(t, app.View(), "listo")

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Contains(t, app.View(), "Keyboard Shortcuts")
	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, app.showHelp)

	app.Update(StatusMsg("hecho"))
	assert.Contains(t, app.View(), "hecho")

	_, quit := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
}
