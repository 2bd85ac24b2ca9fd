package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/callforge/callforge/emitter"
	"github.com/callforge/callforge/naming"
	"github.com/callforge/callforge/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	methodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	programStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
)

type interactiveModel struct {
	err      error
	target   demoTarget
	table    *registry.Table
	scope    *naming.Scope
	methods  []methodInfo
	inputs   []textinput.Model
	result   string
	program  string
	typeName string
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(targetName string) (*interactiveModel, error) {
	target, err := lookupTarget(targetName)
	if err != nil {
		return nil, err
	}
	return &interactiveModel{
		target:  target,
		table:   registry.NewTable(),
		scope:   naming.NewScope(),
		methods: targetMethods(target.value),
		state:   stateSelectMethod,
	}, nil
}

type callResultMsg struct {
	err      error
	result   string
	program  string
	typeName string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				m.table.Close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectMethod && m.selected < len(m.methods)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectMethod:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.program = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.program = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.program = msg.program
		m.typeName = msg.typeName
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	mi := m.methods[m.selected]
	m.inputs = make([]textinput.Model, len(mi.method.Params))
	for i, p := range mi.method.Params {
		ti := textinput.New()
		if pt, err := p.Type.Resolve(nil); err == nil {
			ti.Placeholder = pt.String()
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		ti.Prompt = name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callMethod() tea.Msg {
	mi := m.methods[m.selected]

	gt, err := ensureType(m.table, m.scope, m.target.value, &mi, false)
	if err != nil {
		return callResultMsg{err: err}
	}

	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		pt, err := mi.method.Params[i].Type.Resolve(nil)
		if err != nil {
			return callResultMsg{err: err}
		}
		if pt.Kind() == reflect.Slice {
			rest := strings.Split(input.Value(), ",")
			slice := reflect.MakeSlice(pt, 0, len(rest))
			for _, r := range rest {
				v, err := parseScalar(strings.TrimSpace(r), pt.Elem())
				if err != nil {
					return callResultMsg{err: err}
				}
				slice = reflect.Append(slice, reflect.ValueOf(v))
			}
			args[i] = slice.Interface()
			continue
		}
		v, err := parseScalar(strings.TrimSpace(input.Value()), pt)
		if err != nil {
			return callResultMsg{err: err}
		}
		args[i] = v
	}

	inv, err := gt.New(m.target.value, nil, args)
	if err != nil {
		return callResultMsg{err: err}
	}

	program := emitter.Disassemble(gt.Program())
	if err := gt.Forward(inv); err != nil {
		return callResultMsg{err: err, program: program, typeName: gt.Name()}
	}

	result := "ok"
	if mi.method.Result != nil {
		result = fmt.Sprintf("%v", inv.ReturnValue())
	}
	return callResultMsg{result: result, program: program, typeName: gt.Name()}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Callforge"))
	b.WriteString(" ")
	b.WriteString(m.target.name)
	b.WriteString(fmt.Sprintf(" (%d generated)", m.table.Len()))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMethod:
		b.WriteString("Select a method to forward:\n\n")
		for i, mi := range m.methods {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatMethod(mi)))
			} else {
				b.WriteString(cursor + m.formatMethod(mi))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter forward • q quit"))

	case stateInputArgs:
		mi := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Forwarding %s\n\n", methodStyle.Render(mi.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter forward • esc back"))

	case stateShowResult:
		mi := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s via %s:\n\n", methodStyle.Render(mi.name), typeStyle.Render(m.typeName)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		if m.program != "" {
			b.WriteString("\n\n")
			b.WriteString(programStyle.Render(m.program))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatMethod(mi methodInfo) string {
	var params []string
	for i, p := range mi.method.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		if pt, err := p.Type.Resolve(nil); err == nil {
			name += ": " + typeStyle.Render(pt.String())
		}
		params = append(params, name)
	}
	result := ""
	if mi.method.Result != nil {
		if rt, err := mi.method.Result.Resolve(nil); err == nil {
			result = " -> " + typeStyle.Render(rt.String())
		}
	}
	return methodStyle.Render(mi.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(targetName string) error {
	model, err := newInteractiveModel(targetName)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
