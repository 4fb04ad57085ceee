package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ============================================================
// View
// ============================================================

var (
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("71"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("244")).
			Padding(0, 1).
			Width(panelWidth - 4)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const (
	glyphPlant    = '✿'
	glyphArea     = '·'
	glyphCursor   = '+'
	glyphDelete   = '×'
	glyphSelected = '❀'
)

func (m Model) View() string {
	board := boardStyle.Render(m.renderBoard())
	panel := panelStyle.Render(m.renderPanel())
	body := lipgloss.JoinHorizontal(lipgloss.Top, board, panel)

	help := dimStyle.Render("arrows cursor · 1-9 plant · tab select · hjkl move · r/R rotate · d delete · esc deselect · s save · y copy id · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, body, help)
}

type cell struct {
	r     rune
	style *lipgloss.Style
}

func (m Model) renderBoard() string {
	cols, rows := m.cols, m.rows
	if cols <= 0 || rows <= 0 {
		return ""
	}
	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, cols)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}
	put := func(px, py float64, r rune, style *lipgloss.Style) {
		x, y := int(px/m.cellW()), int(py/m.cellH())
		if x < 0 || y < 0 || x >= cols || y >= rows {
			return
		}
		grid[y][x] = cell{r: r, style: style}
	}

	active := m.scene.Active()
	for _, obj := range m.scene.Objects() {
		bb := obj.BoundingBox()
		for py := bb.MinY; py < bb.MaxY; py += m.cellH() {
			for px := bb.MinX; px < bb.MaxX; px += m.cellW() {
				put(px, py, glyphArea, nil)
			}
		}
	}
	for _, obj := range m.scene.Objects() {
		p := obj.Pose()
		if obj == active {
			put(p.X, p.Y, glyphSelected, &selectedStyle)
			continue
		}
		put(p.X, p.Y, glyphPlant, nil)
	}
	if !m.selection.Empty() {
		put(m.selection.AnchorX, m.selection.AnchorY, glyphDelete, &noticeStyle)
	}
	put(m.cursorX, m.cursorY, glyphCursor, &cursorStyle)

	var b strings.Builder
	for y, row := range grid {
		for _, c := range row {
			if c.style != nil {
				b.WriteString(c.style.Render(string(c.r)))
				continue
			}
			b.WriteRune(c.r)
		}
		if y < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) renderPanel() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Garden"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Plants: %d\n", m.counts.Total())
	for _, label := range m.counts.Labels() {
		fmt.Fprintf(&b, "  %s: %d\n", label, m.counts[label])
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Palette"))
	b.WriteString("\n")
	for i, p := range m.opts.Palette {
		if i >= 9 {
			break
		}
		fmt.Fprintf(&b, "  %d %s\n", i+1, p.Name)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Planter: %s\n", m.opts.Planter)
	if m.opts.Admin {
		b.WriteString(dimStyle.Render("admin · C clears garden"))
		b.WriteString("\n")
	}
	if !m.selection.Empty() {
		fmt.Fprintf(&b, "Selected: %s\n", selectedStyle.Render(m.selection.Label))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
	}
	return b.String()
}
