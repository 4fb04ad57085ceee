// Package reconcile держит объекты сцены в согласии со строками garden_items:
// начальная загрузка, realtime события, оптимистичные локальные записи и выделение.
//
// Всё состояние (реестр, ожидающие вставки, выделение, счётчики) принадлежит одной
// горутине Run. Публичные методы отправляют ей команды; медленная работа (запросы к
// хранилищу, загрузка картинок) идёт во вспомогательных горутинах и возвращается в
// цикл новой командой.
package reconcile

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/registry"
	"garden-board/internal/board/store"
	"garden-board/internal/garden/models"

	"github.com/rs/zerolog"
)

var (
	ErrStopped          = errors.New("reconcile: controller stopped")
	ErrNoSelection      = errors.New("reconcile: nothing selected")
	ErrInvalidPlacement = errors.New("reconcile: placement has no image url")
	ErrUnknownItem      = errors.New("reconcile: item is not on the board")
	errAlreadyRunning   = errors.New("reconcile: controller already running")
)

// ============================================================
// Collaborators
// ============================================================

// Surface: сцена, на которой живут объекты. Цикл контроллера вызывает только
// методы без событий (Add, Remove, Clear, RequestRender): слушатели сцены
// отправляют события обратно в этот же цикл.
type Surface interface {
	Add(obj *canvas.Object)
	Remove(obj *canvas.Object) bool
	Clear()
	Size() (int, int)
	Subscribe(fn func(canvas.Event)) func()
	RequestRender()
	Snapshot(legend []string) (image.Image, error)
}

// Images готовит картинку для объекта. Process убирает белый фон, Original
// отдаёт исходник.
type Images interface {
	Process(ctx context.Context, url string) (image.Image, error)
	Original(ctx context.Context, url string) (image.Image, error)
}

// Hooks вызываются из цикла контроллера. Обратно в Controller из них
// синхронно обращаться нельзя.
type Hooks struct {
	OnItemAdded   func(meta registry.Meta)
	OnItemRemoved func(meta registry.Meta)
	OnCounts      func(counts Counts)
	OnSelection   func(sel Selection)
	OnNotice      func(msg string)
}

type Options struct {
	TargetWidth   float64
	DropY         float64
	AnchorMargin  float64
	PendingTTL    time.Duration
	EvictInterval time.Duration
	WriteTimeout  time.Duration
	LoadWorkers   int
}

func DefaultOptions() Options {
	return Options{
		TargetWidth:   96,
		DropY:         120,
		AnchorMargin:  8,
		PendingTTL:    registry.DefaultPendingTTL,
		EvictInterval: 5 * time.Second,
		WriteTimeout:  10 * time.Second,
		LoadWorkers:   4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TargetWidth <= 0 {
		o.TargetWidth = d.TargetWidth
	}
	if o.DropY <= 0 {
		o.DropY = d.DropY
	}
	if o.AnchorMargin <= 0 {
		o.AnchorMargin = d.AnchorMargin
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = d.PendingTTL
	}
	if o.EvictInterval <= 0 {
		o.EvictInterval = d.EvictInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.LoadWorkers <= 0 {
		o.LoadWorkers = d.LoadWorkers
	}
	return o
}

// ============================================================
// Controller
// ============================================================

type Controller struct {
	store   store.ItemStore
	feed    store.Feed
	surface Surface
	images  Images
	hooks   Hooks
	opts    Options
	log     zerolog.Logger

	cmds    chan func()
	ui      chan canvas.Event
	stopped chan struct{}
	running atomic.Bool
	helpers sync.WaitGroup

	// Поля ниже трогает только горутина Run.
	runCtx   context.Context
	reg      *registry.Registry[*canvas.Object]
	pending  *registry.Pending // свои вставки, эхо которых ещё не пришло
	gone     *registry.Pending // недавно удалённые id
	inflight map[string]models.Item
	waiters  map[string][]chan struct{}
	writes   map[string]*poseWrite
	loads    int
	born     map[string]struct{} // id, появившиеся во время загрузки
	counts   Counts
	sel      Selection
}

func New(backend store.Backend, surface Surface, images Images, hooks Hooks, opts Options, logger zerolog.Logger) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		store:    backend,
		feed:     backend,
		surface:  surface,
		images:   images,
		hooks:    hooks,
		opts:     opts,
		log:      logger.With().Str("component", "reconcile").Logger(),
		cmds:     make(chan func()),
		ui:       make(chan canvas.Event, 256),
		stopped:  make(chan struct{}),
		reg:      registry.New[*canvas.Object](),
		pending:  registry.NewPending(opts.PendingTTL),
		gone:     registry.NewPending(opts.PendingTTL),
		inflight: make(map[string]models.Item),
		waiters:  make(map[string][]chan struct{}),
		writes:   make(map[string]*poseWrite),
		counts:   Counts{},
	}
}

// Run открывает realtime подписку и обслуживает цикл до отмены ctx.
// Вызывается один раз на смонтированную доску.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer func() {
		close(c.stopped)
		c.helpers.Wait()
	}()

	c.runCtx = ctx
	events, err := c.feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	unsubscribe := c.surface.Subscribe(c.onSurfaceEvent)
	defer unsubscribe()

	ticker := time.NewTicker(c.opts.EvictInterval)
	defer ticker.Stop()

	c.log.Debug().Msg("controller started")
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case fn := <-c.cmds:
			fn()
		case ev, ok := <-events:
			if !ok {
				c.log.Warn().Msg("realtime feed closed")
				events = nil
				continue
			}
			c.apply(ev)
		case ev := <-c.ui:
			c.handleSurface(ev)
		case <-ticker.C:
			if n := c.pending.EvictExpired(); n > 0 {
				c.log.Debug().Int("evicted", n).Msg("pending inserts expired")
			}
			c.gone.EvictExpired()
		}
	}
}

// Done закрывается после выхода из Run.
func (c *Controller) Done() <-chan struct{} {
	return c.stopped
}

func (c *Controller) shutdown() {
	for id := range c.waiters {
		c.settle(id)
	}
	c.log.Debug().Int("objects", c.reg.Len()).Msg("controller stopped")
}

// call выполняет fn в цикле и ждёт завершения.
func (c *Controller) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(done) }:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post ставит fn в очередь цикла без ожидания результата.
// Из самого цикла не вызывать.
func (c *Controller) post(fn func()) bool {
	select {
	case c.cmds <- fn:
		return true
	case <-c.stopped:
		return false
	}
}

// spawn запускает вспомогательную горутину, которую Run дождётся при выходе.
func (c *Controller) spawn(fn func(ctx context.Context)) {
	ctx := c.runCtx
	c.helpers.Add(1)
	go func() {
		defer c.helpers.Done()
		fn(ctx)
	}()
}

func (c *Controller) onSurfaceEvent(ev canvas.Event) {
	select {
	case c.ui <- ev:
	case <-c.stopped:
	}
}

// settle будит всех, кто ждёт появления объекта id.
func (c *Controller) settle(id string) {
	for _, ch := range c.waiters[id] {
		close(ch)
	}
	delete(c.waiters, id)
}

func (c *Controller) notice(msg string) {
	c.log.Info().Str("notice", msg).Msg("user notice")
	if c.hooks.OnNotice != nil {
		c.hooks.OnNotice(msg)
	}
}

// noticeAsync: notice из горутины вне цикла.
func (c *Controller) noticeAsync(msg string) {
	c.post(func() { c.notice(msg) })
}
