package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hiroki-koketsu/todo-service/internal/client"
	"github.com/hiroki-koketsu/todo-service/internal/model"
	"github.com/hiroki-koketsu/todo-service/internal/ui"
)

// listItem adapts a client.Todo to bubbles/list.Item.
type listItem struct {
	todo    client.Todo
	overdue bool
}

func (i listItem) Title() string       { return i.todo.Text }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Text }

// itemDelegate renders one todo per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.SelectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+ui.Line(it.todo, it.overdue))
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeAdd
	modeEdit
	modeDeadline
)

// refreshMsg is sent when a Store action finishes.
type refreshMsg struct{ err error }

// Model is the interactive view. All state lives in the Store; the model only
// keeps what is being typed.
type Model struct {
	ctx   context.Context
	store *client.Store
	now   func() time.Time

	list list.Model
	ti   textinput.Model

	mode     inputMode
	targetID string
	inputErr string
	width    int
	height   int
}

// New builds the view over store. Init loads the list.
func New(ctx context.Context, store *client.Store) Model {
	l := list.New(nil, itemDelegate{}, 80, 20)
	l.Title = ui.Header(store.Stats())
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.TitleStyle
	l.Styles.HelpStyle = ui.HelpStyle
	l.Styles.PaginationStyle = ui.HelpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")

	bindings := []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "deadline")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return bindings[:4] }
	l.AdditionalFullHelpKeys = func() []key.Binding { return bindings }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500

	return Model{
		ctx:    ctx,
		store:  store,
		now:    time.Now,
		list:   l,
		ti:     ti,
		width:  80,
		height: 24,
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(ctx context.Context, store *client.Store) error {
	p := tea.NewProgram(New(ctx, store), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return m.run(m.store.Load)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case refreshMsg:
		cmd := m.refresh()
		return m, cmd
	}

	if m.mode != modeBrowse {
		return m.updateInput(msg)
	}

	// Let the filter prompt have every key while it is open.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.run(m.store.Load)
		case "a":
			cmd := m.openInput(modeAdd, "", "", "New todo...")
			return m, cmd
		case "c":
			return m, m.run(func(ctx context.Context) error {
				_, err := m.store.ClearCompleted(ctx)
				return err
			})
		}

		if it, ok := m.list.SelectedItem().(listItem); ok {
			id := it.todo.ID
			switch k.String() {
			case " ":
				return m, m.run(func(ctx context.Context) error { return m.store.Toggle(ctx, id) })
			case "d":
				return m, m.run(func(ctx context.Context) error { return m.store.Delete(ctx, id) })
			case "e":
				cmd := m.openInput(modeEdit, id, it.todo.Text, "Edit todo...")
				return m, cmd
			case "t":
				value := ""
				if it.todo.Deadline != nil {
					value = it.todo.Deadline.UTC().Format(ui.DateLayout)
				}
				cmd := m.openInput(modeDeadline, id, value, "YYYY-MM-DD, empty to clear")
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.closeInput()
			return *m, nil
		case "enter":
			cmd, problem := m.submit(m.ti.Value())
			if problem != "" {
				m.inputErr = problem
				return *m, nil
			}
			m.closeInput()
			return *m, cmd
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return *m, cmd
}

// submit validates the typed value and returns the Store action to run, or
// a message to show under the input.
func (m *Model) submit(value string) (tea.Cmd, string) {
	value = strings.TrimSpace(value)
	id := m.targetID

	switch m.mode {
	case modeAdd:
		if value == "" {
			return nil, "Text cannot be empty"
		}
		return m.run(func(ctx context.Context) error { return m.store.Add(ctx, value, nil) }), ""

	case modeEdit:
		if value == "" {
			return nil, "Text cannot be empty"
		}
		current, ok := m.find(id)
		if !ok {
			return nil, "Todo no longer exists"
		}
		return m.run(func(ctx context.Context) error {
			return m.store.Edit(ctx, id, value, current.Deadline)
		}), ""

	case modeDeadline:
		deadline, err := model.ParseDeadline(value)
		if err != nil {
			return nil, "Invalid date, use YYYY-MM-DD"
		}
		current, ok := m.find(id)
		if !ok {
			return nil, "Todo no longer exists"
		}
		return m.run(func(ctx context.Context) error {
			return m.store.Edit(ctx, id, current.Text, deadline)
		}), ""
	}
	return nil, ""
}

func (m Model) View() string {
	var b strings.Builder
	if msg := m.store.LastError(); msg != "" {
		b.WriteString(ui.ErrorStyle.Render("✖ "+msg) + "\n")
	}
	b.WriteString(m.list.View())

	if m.mode != modeBrowse {
		title := "Add todo"
		switch m.mode {
		case modeEdit:
			title = "Edit todo"
		case modeDeadline:
			title = "Set deadline"
		}
		if m.inputErr != "" {
			title += "  " + ui.ErrorStyle.Render(m.inputErr)
		}
		b.WriteString("\n" + ui.PanelStyle.Render(title+"\n"+m.ti.View()))
	}
	return ui.PanelStyle.Render(b.String())
}

// run executes fn off the update loop. The Store records any failure, so the
// message only triggers a redraw.
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return refreshMsg{err: fn(ctx)}
	}
}

// refresh rebuilds the list from the Store.
func (m *Model) refresh() tea.Cmd {
	todos := m.store.Todos()
	now := m.now()

	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, listItem{todo: t, overdue: t.Overdue(now)})
	}
	m.list.Title = ui.Header(client.ComputeStats(todos))
	cmd := m.list.SetItems(items)
	m.resize()
	if n := len(items); n > 0 && m.list.Index() >= n {
		m.list.Select(n - 1)
	}
	return cmd
}

func (m *Model) openInput(mode inputMode, id, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.targetID = id
	m.inputErr = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.resize()
	return m.ti.Focus()
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.targetID = ""
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m *Model) resize() {
	h := m.height - 4
	if m.store.LastError() != "" {
		h--
	}
	if m.mode != modeBrowse {
		h -= 4
	}
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.width-4, h)
}

func (m *Model) find(id string) (client.Todo, bool) {
	for _, t := range m.store.Todos() {
		if t.ID == id {
			return t, true
		}
	}
	return client.Todo{}, false
}
