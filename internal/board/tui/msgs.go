package tui

import (
	"fmt"
	"sync"

	"garden-board/internal/board/reconcile"
	"garden-board/internal/board/registry"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

type (
	noticeMsg  string
	addedMsg   registry.Meta
	removedMsg registry.Meta
	opDoneMsg  struct {
		what   string
		notice string
		err    error
	}

	// stateMsg несёт последние счётчики и выделение; nil поле не менялось.
	stateMsg struct {
		counts    *reconcile.Counts
		selection *reconcile.Selection
	}
)

const queueSize = 256

// Updates: очередь сообщений от контроллера и сцены в программу bubbletea.
// Отправка не блокирует: хуки вызываются из цикла контроллера. Счётчики и
// выделение не теряются при полной очереди: хранится последнее значение, а
// сигнал о нём занимает одно место в отдельном канале.
type Updates struct {
	msgs  chan tea.Msg
	state chan struct{}
	log   zerolog.Logger

	mu        sync.Mutex
	counts    *reconcile.Counts
	selection *reconcile.Selection
}

func NewUpdates(logger zerolog.Logger) *Updates {
	return newUpdates(queueSize, logger)
}

func newUpdates(size int, logger zerolog.Logger) *Updates {
	return &Updates{
		msgs:  make(chan tea.Msg, size),
		state: make(chan struct{}, 1),
		log:   logger.With().Str("component", "tui").Logger(),
	}
}

func (u *Updates) push(msg tea.Msg) {
	select {
	case u.msgs <- msg:
	default:
		u.log.Debug().Str("msg", fmt.Sprintf("%T", msg)).Msg("ui queue full, message dropped")
	}
}

func (u *Updates) signal() {
	select {
	case u.state <- struct{}{}:
	default:
	}
}

func (u *Updates) setCounts(c reconcile.Counts) {
	u.mu.Lock()
	u.counts = &c
	u.mu.Unlock()
	u.signal()
}

func (u *Updates) setSelection(s reconcile.Selection) {
	u.mu.Lock()
	u.selection = &s
	u.mu.Unlock()
	u.signal()
}

func (u *Updates) takeState() stateMsg {
	u.mu.Lock()
	defer u.mu.Unlock()
	msg := stateMsg{counts: u.counts, selection: u.selection}
	u.counts, u.selection = nil, nil
	return msg
}

// Hooks: хуки контроллера, пишущие в очередь.
func (u *Updates) Hooks() reconcile.Hooks {
	return reconcile.Hooks{
		OnItemAdded:   func(m registry.Meta) { u.push(addedMsg(m)) },
		OnItemRemoved: func(m registry.Meta) { u.push(removedMsg(m)) },
		OnCounts:      u.setCounts,
		OnSelection:   u.setSelection,
		OnNotice:      func(msg string) { u.push(noticeMsg(msg)) },
	}
}

// Render: колбэк для Scene.OnRender. Перерисовки сливаются в одну.
func (u *Updates) Render() {
	u.signal()
}

func (u *Updates) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-u.msgs:
			return msg
		case <-u.state:
			return u.takeState()
		}
	}
}
