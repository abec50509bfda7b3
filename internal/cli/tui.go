package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// LayerTableModel - Interactive layer browser
// =============================================================================

// LayerTableModel is the bubbletea model of the inspect command. It shows
// one network at a time as a table of layers; the diagnostics of the
// selected layer's line are listed below the table.
type LayerTableModel struct {
	Networks    []*validate.Result
	Diagnostics []dsl.Diagnostic

	Network int // index into Networks
	Cursor  int
	Offset  int
	Height  int
}

// NewLayerTableModel creates a model positioned on the first layer of the
// first network.
func NewLayerTableModel(networks []*validate.Result, diags []dsl.Diagnostic) LayerTableModel {
	return LayerTableModel{
		Networks:    networks,
		Diagnostics: diags,
		Height:      15,
	}
}

func (m LayerTableModel) layers() []dsl.LayerSpec {
	if len(m.Networks) == 0 {
		return nil
	}
	return m.Networks[m.Network].Network.Layers
}

func (m LayerTableModel) Init() tea.Cmd {
	return nil
}

func (m LayerTableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.layers())-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n := len(m.layers()); n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		case "tab", "right", "l":
			if len(m.Networks) > 0 {
				m.Network = (m.Network + 1) % len(m.Networks)
				m.Cursor, m.Offset = 0, 0
			}
		case "shift+tab", "left", "h":
			if len(m.Networks) > 0 {
				m.Network = (m.Network + len(m.Networks) - 1) % len(m.Networks)
				m.Cursor, m.Offset = 0, 0
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m LayerTableModel) View() string {
	var b strings.Builder

	if len(m.Networks) == 0 {
		b.WriteString(StyleTitle.Render("No networks"))
		b.WriteString("\n")
		return b.String()
	}

	res := m.Networks[m.Network]
	b.WriteString(StyleTitle.Render(res.Network.Name))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  input %s  ·  %s  ·  network %d/%d",
		shapeOrUnknown(res.Network.InputShape), paramsText(res.TotalParams, res.ParamsExact), m.Network+1, len(m.Networks))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab next network  q quit"))
	b.WriteString("\n\n")

	layers := m.layers()
	end := min(m.Offset+m.Height, len(layers))

	errLines := m.errorLines()
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		l := layers[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", l.Pos.Line),
			l.Signature(),
			shapeOrUnknown(l.InputShape),
			shapeOrUnknown(l.OutputShape),
			paramsCell(l.Params),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Line", "Layer", "Input", "Output", "Params").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(layers) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 1 || col == 5 {
				base = base.Foreground(colorGray)
			}
			if errLines[layers[idx].Pos.Line] {
				base = base.Foreground(colorRed)
			}
			if idx == m.Cursor {
				if col == 0 {
					return listSelectedStyle
				}
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(layers)), len(layers))))
	b.WriteString("\n\n")

	for _, d := range m.selectedDiagnostics() {
		line := fmt.Sprintf("%s %s: %s", d.Pos, d.Severity, d.Message)
		if d.IsError() {
			b.WriteString(listErrorStyle.Render(line))
		} else {
			b.WriteString(StyleWarning.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// errorLines returns the source lines carrying an error.
func (m LayerTableModel) errorLines() map[int]bool {
	lines := make(map[int]bool)
	for _, d := range m.Diagnostics {
		if d.IsError() {
			lines[d.Pos.Line] = true
		}
	}
	return lines
}

// selectedDiagnostics returns the diagnostics on the selected layer's line.
func (m LayerTableModel) selectedDiagnostics() []dsl.Diagnostic {
	layers := m.layers()
	if m.Cursor >= len(layers) {
		return nil
	}
	line := layers[m.Cursor].Pos.Line
	var out []dsl.Diagnostic
	for _, d := range m.Diagnostics {
		if d.Pos.Line == line {
			out = append(out, d)
		}
	}
	return out
}
