// Package tui is the interactive terminal front end over a session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mohammed-shakir/layer-report-client/internal/catalog"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/resolver"
	"github.com/mohammed-shakir/layer-report-client/internal/session"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
	"github.com/mohammed-shakir/layer-report-client/internal/upload"
)

type Pane int

const (
	PaneLayers Pane = iota
	PaneSearch
	PaneGroups
	PaneFilter
	PaneLocality
	paneCount
)

type (
	statusMsg   status.Status
	resolvedMsg resolver.Outcome
	groupsMsg   struct{ err error }
	uploadMsg   struct{ err error }
	reportMsg   struct {
		res model.ReportResult
		err error
	}
)

type Model struct {
	ctx    context.Context
	sess   *session.Session
	styles Styles

	sub    <-chan status.Status
	cancel func()

	focus       Pane
	layerCursor int
	groupCursor int
	search      textinput.Model
	filterPath  textinput.Model
	locality    textinput.Model
	spin        spinner.Model
	busy        bool
	width       int
}

func New(ctx context.Context, sess *session.Session) Model {
	search := textinput.New()
	search.Placeholder = "Buscar grupo"
	filterPath := textinput.New()
	filterPath.Placeholder = "ruta/al/filtro.csv"
	locality := textinput.New()
	locality.Placeholder = "Localidad"

	sub, cancel := sess.Status.Subscribe(64)
	return Model{
		ctx:        ctx,
		sess:       sess,
		styles:     DefaultStyles(),
		sub:        sub,
		cancel:     cancel,
		search:     search,
		filterPath: filterPath,
		locality:   locality,
		spin:       spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m Model) Focus() Pane { return m.focus }

// Close releases the status subscription.
func (m Model) Close() { m.cancel() }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.resolveCmd(), waitStatus(m.sub), m.spin.Tick)
}

func waitStatus(sub <-chan status.Status) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-sub
		if !ok {
			return nil
		}
		return statusMsg(s)
	}
}

func (m Model) resolveCmd() tea.Cmd {
	return func() tea.Msg { return resolvedMsg(m.sess.ResolveLayers(m.ctx)) }
}

func (m Model) selectLayerCmd(name string) tea.Cmd {
	return func() tea.Msg { return groupsMsg{err: m.sess.SelectLayer(m.ctx, name)} }
}

func (m Model) uploadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := upload.ReadFile(path)
		if err != nil {
			m.sess.Status.Set(status.Error(upload.MetaReadFailed, err.Error()))
			return uploadMsg{err: err}
		}
		return uploadMsg{err: m.sess.UploadFilter(m.ctx, f)}
	}
}

func (m Model) submitCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.sess.Submit(m.ctx)
		return reportMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case statusMsg:
		s := status.Status(msg)
		m.busy = s.Kind == status.KindBusy
		cmds := []tea.Cmd{waitStatus(m.sub)}
		if p, ok := paneFor(s.Focus); ok {
			cmds = append(cmds, m.setFocus(p))
		}
		return m, tea.Batch(cmds...)

	case resolvedMsg, groupsMsg, uploadMsg, reportMsg:
		m.busy = false
		m.clampCursors()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func paneFor(f status.Focus) (Pane, bool) {
	switch f {
	case status.FocusLayer:
		return PaneLayers, true
	case status.FocusGroups:
		return PaneGroups, true
	case status.FocusFilter:
		return PaneFilter, true
	case status.FocusLocality:
		return PaneLocality, true
	}
	return 0, false
}

func (m *Model) setFocus(p Pane) tea.Cmd {
	m.focus = p
	m.search.Blur()
	m.filterPath.Blur()
	m.locality.Blur()
	switch p {
	case PaneSearch:
		return m.search.Focus()
	case PaneFilter:
		return m.filterPath.Focus()
	case PaneLocality:
		return m.locality.Focus()
	}
	return nil
}

func (m Model) typing() bool {
	return m.focus == PaneSearch || m.focus == PaneFilter || m.focus == PaneLocality
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		cmd := m.setFocus((m.focus + 1) % paneCount)
		return m, cmd
	case "shift+tab":
		cmd := m.setFocus((m.focus + paneCount - 1) % paneCount)
		return m, cmd
	case "ctrl+r":
		return m, m.submitCmd()
	case "ctrl+l":
		return m, m.resolveCmd()
	}

	if m.typing() {
		return m.updateInput(k)
	}

	switch k.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "enter":
		if m.focus == PaneLayers {
			opts := m.sess.Selector.Options()
			if m.layerCursor < len(opts) && !opts[m.layerCursor].Disabled {
				return m, m.selectLayerCmd(opts[m.layerCursor].Name)
			}
		}
	case " ", "x":
		if m.focus == PaneGroups {
			if vis := m.visibleGroups(); m.groupCursor < len(vis) {
				m.sess.Catalog.Toggle(vis[m.groupCursor].Group)
			}
		}
	case "a":
		if m.focus == PaneGroups {
			m.sess.Catalog.SelectAll(m.search.Value())
		}
	case "c":
		if m.focus == PaneGroups {
			m.sess.Catalog.ClearAll()
		}
	}
	return m, nil
}

func (m Model) updateInput(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case PaneSearch:
		m.search, cmd = m.search.Update(k)
		m.groupCursor = 0
	case PaneFilter:
		if k.Type == tea.KeyEnter {
			if p := strings.TrimSpace(m.filterPath.Value()); p != "" {
				return m, m.uploadCmd(p)
			}
			return m, nil
		}
		m.filterPath, cmd = m.filterPath.Update(k)
	case PaneLocality:
		if k.Type == tea.KeyEnter {
			return m, m.submitCmd()
		}
		m.locality, cmd = m.locality.Update(k)
		m.sess.SetLocality(m.locality.Value())
	}
	return m, cmd
}

func (m *Model) move(d int) {
	switch m.focus {
	case PaneLayers:
		m.layerCursor += d
	case PaneGroups:
		m.groupCursor += d
	}
	m.clampCursors()
}

func (m *Model) clampCursors() {
	m.layerCursor = clamp(m.layerCursor, len(m.sess.Selector.Options()))
	m.groupCursor = clamp(m.groupCursor, len(m.visibleGroups()))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m Model) visibleGroups() []model.VariableGroup {
	return m.sess.Catalog.Filtered(m.search.Value())
}

func (m Model) View() string {
	st := m.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Generador de reportes"))
	b.WriteString("\n")

	var layers strings.Builder
	selected := m.sess.Selector.Selected()
	for i, o := range m.sess.Selector.Options() {
		line := o.Name
		switch {
		case o.Disabled:
			line = st.Disabled.Render(line)
		case o.Name == selected:
			line = "● " + line
		default:
			line = "  " + line
		}
		if i == m.layerCursor && m.focus == PaneLayers {
			line = st.Cursor.Render("> ") + line
		}
		layers.WriteString(line + "\n")
	}

	var groups strings.Builder
	groups.WriteString(m.search.View() + "\n")
	for i, g := range m.visibleGroups() {
		box := "[ ]"
		if m.sess.Catalog.IsSelected(g.Group) {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s %s", box, g.Group, st.Dim.Render(catalog.ColumnsLabel(g)))
		if i == m.groupCursor && m.focus == PaneGroups {
			line = st.Cursor.Render("> ") + line
		}
		groups.WriteString(line + "\n")
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		st.pane(m.focus == PaneLayers).Render("Capas\n"+layers.String()),
		st.pane(m.focus == PaneSearch || m.focus == PaneGroups).Render("Grupos\n"+groups.String()),
	)
	b.WriteString(top + "\n")

	inputs := fmt.Sprintf("Filtro:    %s  %s\nLocalidad: %s",
		m.filterPath.View(), st.Dim.Render(m.sess.Filter.Meta()), m.locality.View())
	b.WriteString(st.pane(m.focus == PaneFilter || m.focus == PaneLocality).Render(inputs) + "\n")

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(m.resultsView())
	b.WriteString(st.Dim.Render("tab: mover  enter: elegir/subir  espacio: marcar  a/c: todos/ninguno  ctrl+r: generar  ctrl+l: recargar capas  q: salir"))
	return b.String()
}

func (m Model) statusLine() string {
	s := m.sess.Status.Current()
	if s.Text == "" {
		return ""
	}
	line := s.Text
	if s.Detail != "" {
		line += ": " + s.Detail
	}
	if m.busy {
		line = m.spin.View() + " " + line
	}
	style, ok := m.styles.Kinds[s.Kind]
	if !ok {
		return line
	}
	return style.Render(line)
}

func (m Model) resultsView() string {
	res, _, ok := m.sess.Board.Current()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Resultados (%d entidades)", res.EntitiesCount)) + "\n")
	for _, a := range res.Artifacts {
		fmt.Fprintf(&b, "  %-5s %s\n", strings.ToUpper(string(a.Kind)), a.Path)
	}
	for _, r := range res.Reports {
		fmt.Fprintf(&b, "  %s: %d filas", r.Title(), r.RowsCount)
		if r.CSVPath != "" {
			fmt.Fprintf(&b, "  %s", r.CSVPath)
		}
		b.WriteString("\n")
	}
	return b.String()
}
