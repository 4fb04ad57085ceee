// Package tui: терминальная доска: курсор посадки, палитра, выделение,
// перемещение и поворот растений, карточка со счётчиками.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/palette"
	"garden-board/internal/board/reconcile"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// Board: операции контроллера, которые вызывает UI.
type Board interface {
	Add(ctx context.Context, p reconcile.Placement) (string, error)
	DeleteSelected(ctx context.Context) error
	ClearLocal(ctx context.Context) error
	ClearRemote(ctx context.Context) (int, error)
	Export(ctx context.Context, path string) error
}

const (
	BoardHeight  = 480
	cellWidth    = 8
	panelWidth   = 30
	moveStep     = 8.0
	rotateStep   = 15.0
	opTimeout    = 10 * time.Second
	exportPath   = "garden.png"
	maxNoticeLen = 60
)

type Options struct {
	Planter string
	Admin   bool
	Palette []palette.Plant
}

type Model struct {
	board   Board
	scene   *canvas.Scene
	updates *Updates
	opts    Options

	width, height int
	cols, rows    int
	cursorX       float64
	cursorY       float64

	counts    reconcile.Counts
	selection reconcile.Selection
	notice    string

	copyToClipboard func(string) error
}

func New(board Board, scene *canvas.Scene, updates *Updates, opts Options) Model {
	if opts.Planter == "" {
		opts.Planter = "Guest"
	}
	if len(opts.Palette) == 0 {
		opts.Palette = palette.Default()
	}
	w, _ := scene.Size()
	return Model{
		board:           board,
		scene:           scene,
		updates:         updates,
		opts:            opts,
		cols:            w / cellWidth,
		rows:            24,
		cursorX:         float64(w) / 2,
		cursorY:         120,
		counts:          reconcile.Counts{},
		copyToClipboard: clipboard.WriteAll,
	}
}

func (m Model) Init() tea.Cmd {
	return m.updates.wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		if msg.counts != nil {
			m.counts = *msg.counts
		}
		if msg.selection != nil {
			m.selection = *msg.selection
		}
		return m, m.updates.wait()
	case noticeMsg:
		m.setNotice(string(msg))
		return m, m.updates.wait()
	case addedMsg:
		m.setNotice(fmt.Sprintf("%s planted something", msg.Label))
		return m, m.updates.wait()
	case removedMsg:
		m.setNotice(fmt.Sprintf("A plant by %s was removed", msg.Label))
		return m, m.updates.wait()

	case opDoneMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, reconcile.ErrNoSelection) {
				m.setNotice(fmt.Sprintf("%s failed: %v", msg.what, msg.err))
			}
			return m, nil
		}
		if msg.notice != "" {
			m.setNotice(msg.notice)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.cols = width - panelWidth - 2
	if m.cols < 10 {
		m.cols = 10
	}
	m.rows = height - 4
	if m.rows < 5 {
		m.rows = 5
	}
	m.scene.Resize(m.cols*cellWidth, BoardHeight)
	m.clampCursor()
}

func (m *Model) clampCursor() {
	w, h := m.scene.Size()
	m.cursorX = clamp(m.cursorX, 0, float64(w-1))
	m.cursorY = clamp(m.cursorY, 0, float64(h-1))
}

func (m *Model) setNotice(msg string) {
	if r := []rune(msg); len(r) > maxNoticeLen {
		msg = string(r[:maxNoticeLen-1]) + "…"
	}
	m.notice = msg
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "down", "left", "right":
		dx, dy := direction(key)
		m.cursorX += dx * m.cellW()
		m.cursorY += dy * m.cellH()
		m.clampCursor()
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0] - '1')
		if idx >= len(m.opts.Palette) {
			return m, nil
		}
		return m, m.place(m.opts.Palette[idx])

	case "tab":
		m.cycleSelection()
		return m, nil

	case "esc":
		m.scene.ClearActive()
		return m, nil

	case "h", "j", "k", "l":
		if obj := m.scene.Active(); obj != nil {
			dx, dy := direction(key)
			p := obj.Pose()
			if m.scene.Drag(obj, p.X+dx*moveStep, p.Y+dy*moveStep) {
				m.scene.Release(obj)
			}
		}
		return m, nil

	case "r", "R":
		if obj := m.scene.Active(); obj != nil {
			step := rotateStep
			if key == "R" {
				step = -rotateStep
			}
			if m.scene.Rotate(obj, normalizeAngle(obj.Pose().Angle+step)) {
				m.scene.Release(obj)
			}
		}
		return m, nil

	case "d", "delete", "backspace":
		return m, m.run("Delete", "", m.board.DeleteSelected)

	case "c":
		return m, m.run("Clear", "Board cleared locally", m.board.ClearLocal)

	case "C":
		if !m.opts.Admin {
			m.setNotice("Only the admin can clear the garden")
			return m, nil
		}
		return m, m.run("Clear", "Garden cleared", func(ctx context.Context) error {
			_, err := m.board.ClearRemote(ctx)
			return err
		})

	case "s":
		return m, m.run("Export", "Saved "+exportPath, func(ctx context.Context) error {
			return m.board.Export(ctx, exportPath)
		})

	case "y":
		if m.selection.Empty() {
			return m, nil
		}
		if err := m.copyToClipboard(m.selection.ID); err != nil {
			m.setNotice("Clipboard unavailable")
			return m, nil
		}
		m.setNotice("Copied " + m.selection.ID)
		return m, nil
	}
	return m, nil
}

func (m Model) place(p palette.Plant) tea.Cmd {
	at := &reconcile.Point{X: m.cursorX, Y: m.cursorY}
	placement := reconcile.Placement{Label: m.opts.Planter, URL: p.URL, At: at}
	return m.run("Planting", "", func(ctx context.Context) error {
		_, err := m.board.Add(ctx, placement)
		return err
	})
}

// run выполняет операцию контроллера вне цикла bubbletea.
// done: текст уведомления об успехе (пустой: без уведомления).
func (m Model) run(what, done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return opDoneMsg{what: what, err: err}
		}
		return opDoneMsg{notice: done}
	}
}

func (m Model) cycleSelection() {
	objects := m.scene.Objects()
	if len(objects) == 0 {
		return
	}
	next := 0
	if active := m.scene.Active(); active != nil {
		for i, o := range objects {
			if o == active {
				next = (i + 1) % len(objects)
				break
			}
		}
	}
	for i := 0; i < len(objects); i++ {
		obj := objects[(next+i)%len(objects)]
		if m.scene.SetActive(obj) {
			return
		}
	}
}

func (m Model) cellW() float64 {
	return cellWidth
}

func (m Model) cellH() float64 {
	return float64(BoardHeight) / float64(m.rows)
}

func direction(key string) (float64, float64) {
	switch key {
	case "up", "k":
		return 0, -1
	case "down", "j":
		return 0, 1
	case "left", "h":
		return -1, 0
	case "right", "l":
		return 1, 0
	}
	return 0, 0
}

func normalizeAngle(a float64) float64 {
	for a >= 360 {
		a -= 360
	}
	for a < 0 {
		a += 360
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
