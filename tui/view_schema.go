package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/equipoapa2-hub/autopic/schema"
)

// SchemaView shows the descriptor the assistant prompts with and, on
// request, how it compares with the live database.
type SchemaView struct {
	ctx      context.Context
	desc     *schema.Descriptor
	verify   func(ctx context.Context) (string, error)
	viewport *Viewport
	report   []string
	loading  bool
}

// NewSchemaView creates the schema panel. verify may be nil.
func NewSchemaView(ctx context.Context, desc *schema.Descriptor, verify func(context.Context) (string, error)) *SchemaView {
	if desc == nil {
		desc = schema.Fleet()
	}
	return &SchemaView{
		ctx:      ctx,
		desc:     desc,
		verify:   verify,
		viewport: NewViewport(80, 20),
	}
}

func (v *SchemaView) Name() string { return "Schema" }

func (v *SchemaView) SetSize(width, height int) {
	v.viewport.SetSize(width, height)
}

func (v *SchemaView) ShortHelp() []KeyBinding {
	keys := []KeyBinding{{Key: "↑/↓", Desc: "scroll"}}
	if v.verify != nil {
		keys = append(keys, KeyBinding{Key: "v", Desc: "verify against database"})
	}
	return keys
}

func (v *SchemaView) Init() tea.Cmd {
	v.render()
	return nil
}

func (v *SchemaView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			v.viewport.ScrollUp(1)
		case "down", "j":
			v.viewport.ScrollDown(1)
		case "pgup":
			v.viewport.PageUp()
		case "pgdown":
			v.viewport.PageDown()
		case "home", "g":
			v.viewport.Home()
		case "end", "G":
			v.viewport.End()
		case "v":
			return v, v.runVerify()
		}

	case VerifyResultMsg:
		v.loading = false
		if msg.Err != nil {
			v.report = []string{StyleError.Render("Verification failed: " + msg.Err.Error())}
		} else {
			v.report = strings.Split(msg.Report, "\n")
		}
		v.render()
		v.viewport.End()
	}
	return v, nil
}

func (v *SchemaView) runVerify() tea.Cmd {
	if v.verify == nil || v.loading {
		return nil
	}
	v.loading = true
	v.report = []string{StyleDimmed.Render("Verifying...")}
	v.render()

	ctx, verify := v.ctx, v.verify
	return func() tea.Msg {
		report, err := verify(ctx)
		return VerifyResultMsg{Report: report, Err: err}
	}
}

func (v *SchemaView) render() {
	lines := []string{StyleTitle.Render("Fleet schema")}
	lines = append(lines, strings.Split(v.desc.String(), "\n")...)
	if len(v.report) > 0 {
		lines = append(lines, "", StyleBold.Render("Live database"))
		lines = append(lines, v.report...)
	}
	v.viewport.SetContentLines(lines)
}

func (v *SchemaView) View() string {
	return v.viewport.Render()
}
