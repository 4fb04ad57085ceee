package reconcile

import (
	"context"
	"fmt"
	"image"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/registry"
	"garden-board/internal/garden/models"

	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Initial load
// ============================================================

// Load читает все строки (по created_at, id) и приводит доску к ним: новые строки
// получают объекты, известные обновляют позу, исчезнувшие снимаются. Счётчики
// пересчитываются и публикуются один раз в конце. Повторный вызов после
// переподключения ленты догоняет пропущенные события.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.call(ctx, c.beginLoad); err != nil {
		return err
	}

	rows, err := c.store.List(ctx)
	if err != nil {
		_ = c.call(context.Background(), c.endLoad)
		c.noticeAsync("Could not load the garden")
		return fmt.Errorf("list items: %w", err)
	}

	var fresh []models.Item
	if err := c.call(ctx, func() { fresh = c.planLoad(rows) }); err != nil {
		_ = c.call(context.Background(), c.endLoad)
		return err
	}

	imgs := make([]image.Image, len(fresh))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.LoadWorkers)
	for i, row := range fresh {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			imgs[i] = c.loadImage(gctx, row.URL)
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	if err := c.call(context.Background(), func() { c.finishLoad(fresh, imgs, waitErr == nil) }); err != nil {
		return err
	}
	if waitErr != nil {
		return fmt.Errorf("prepare images: %w", waitErr)
	}
	c.log.Debug().Int("rows", len(rows)).Int("new", len(fresh)).Msg("garden loaded")
	return nil
}

func (c *Controller) beginLoad() {
	if c.loads == 0 {
		c.born = make(map[string]struct{})
	}
	c.loads++
}

func (c *Controller) endLoad() {
	c.loads--
	if c.loads <= 0 {
		c.loads = 0
		c.born = nil
	}
}

// planLoad отмечает строки, которым нужен объект, и возвращает их по порядку.
func (c *Controller) planLoad(rows []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(rows))
	var fresh []models.Item
	for _, row := range rows {
		seen[row.ID] = struct{}{}
		switch {
		case c.gone.Has(row.ID):
		case c.reg.Has(row.ID):
			obj, _, _ := c.reg.Get(row.ID)
			obj.SetPose(canvas.Pose{X: row.X, Y: row.Y, Angle: row.Angle})
			c.refreshSelection(row.ID)
		case c.inflightHas(row.ID):
			c.inflight[row.ID] = row
		default:
			c.inflight[row.ID] = row
			fresh = append(fresh, row)
		}
	}

	// строки, пропавшие из хранилища, пока лента молчала
	for _, id := range c.reg.IDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := c.born[id]; ok || c.pending.Has(id) {
			continue
		}
		c.removeEntry(id, false)
	}
	return fresh
}

func (c *Controller) finishLoad(fresh []models.Item, imgs []image.Image, ok bool) {
	defer c.endLoad()

	for i, row := range fresh {
		cur, still := c.inflight[row.ID]
		if !still {
			continue
		}
		delete(c.inflight, row.ID)
		if ok {
			c.attach(cur, imgs[i])
		}
		c.settle(row.ID)
	}
	if !ok {
		return
	}

	counts := Counts{}
	for _, meta := range c.reg.Metas() {
		counts.add(meta.Label)
	}
	c.counts = counts
	c.publishCounts()
	c.surface.RequestRender()
}

func (c *Controller) inflightHas(id string) bool {
	_, ok := c.inflight[id]
	return ok
}

// ============================================================
// Local writes
// ============================================================

type Point struct {
	X, Y float64
}

// Placement: новое растение. At == nil ставит его в точку по умолчанию
// (центр по ширине, DropY сверху).
type Placement struct {
	Label string
	URL   string
	At    *Point
}

// Add пишет строку и сразу рисует объект, не дожидаясь эха. Возвращает id,
// назначенный хранилищем, когда объект уже на доске. Если объект сняли до
// появления (удаление, ClearLocal), строка остаётся в хранилище, а Add
// возвращает её id и ErrUnknownItem.
func (c *Controller) Add(ctx context.Context, p Placement) (string, error) {
	if p.URL == "" {
		return "", ErrInvalidPlacement
	}
	at := p.At
	if at == nil {
		w, _ := c.surface.Size()
		at = &Point{X: float64(w) / 2, Y: c.opts.DropY}
	}

	row, err := c.store.Insert(ctx, models.NewItem{
		Label: p.Label,
		URL:   p.URL,
		X:     at.X,
		Y:     at.Y,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("label", p.Label).Msg("insert failed")
		c.noticeAsync("Could not place the plant")
		return "", fmt.Errorf("insert item: %w", err)
	}

	ready := make(chan struct{})
	err = c.call(ctx, func() {
		if c.reg.Has(row.ID) || c.gone.Has(row.ID) {
			close(ready)
			return
		}
		c.waiters[row.ID] = append(c.waiters[row.ID], ready)
		if c.inflightHas(row.ID) {
			// эхо пришло раньше ответа и уже готовит объект
			return
		}
		c.pending.Mark(row.ID)
		c.inflight[row.ID] = row
		c.prepare(row, true)
	})
	if err != nil {
		return row.ID, err
	}

	select {
	case <-ready:
		// ожидание снимается и при отмене подготовки (удаление, очистка доски)
		var placed bool
		if err := c.call(ctx, func() { placed = c.reg.Has(row.ID) }); err != nil {
			return row.ID, err
		}
		if !placed {
			return row.ID, ErrUnknownItem
		}
		return row.ID, nil
	case <-c.stopped:
		return row.ID, ErrStopped
	case <-ctx.Done():
		return row.ID, ctx.Err()
	}
}

// Commit записывает текущую позу объекта в его строку. Запись не ждёт ответа;
// ошибка показывается уведомлением. Записи одного id идут по очереди, после
// записи в пути уходит только последняя поза.
func (c *Controller) Commit(ctx context.Context, id string) error {
	var known bool
	if err := c.call(ctx, func() { known = c.commit(id) }); err != nil {
		return err
	}
	if !known {
		return ErrUnknownItem
	}
	return nil
}

// poseWrite: запись позы в пути и поза, ждущая своей очереди.
type poseWrite struct {
	next *canvas.Pose
}

func (c *Controller) commit(id string) bool {
	obj, _, ok := c.reg.Get(id)
	if !ok {
		return false
	}
	pose := obj.Pose()
	if w, busy := c.writes[id]; busy {
		w.next = &pose
		return true
	}
	c.writes[id] = &poseWrite{}
	c.sendPose(id, pose)
	return true
}

func (c *Controller) sendPose(id string, pose canvas.Pose) {
	c.spawn(func(ctx context.Context) {
		wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
		err := c.store.Update(wctx, id, models.PosePatch(pose.X, pose.Y, pose.Angle))
		cancel()
		if ctx.Err() != nil {
			return
		}
		c.post(func() { c.poseWritten(id, err) })
	})
}

func (c *Controller) poseWritten(id string, err error) {
	if err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("pose update failed")
		c.notice("Could not save the plant position")
	}
	w, ok := c.writes[id]
	if !ok || w.next == nil || !c.reg.Has(id) {
		delete(c.writes, id)
		return
	}
	next := *w.next
	w.next = nil
	c.sendPose(id, next)
}

// Delete удаляет строку и сразу снимает объект, не дожидаясь эха.
// При ошибке хранилища доска не меняется.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("delete failed")
		c.noticeAsync("Could not remove the plant")
		return fmt.Errorf("delete item: %w", err)
	}
	return c.call(ctx, func() {
		c.gone.Mark(id)
		if !c.removeEntry(id, true) {
			c.dropInflight(id)
		}
	})
}

// DeleteSelected удаляет выделенный объект.
func (c *Controller) DeleteSelected(ctx context.Context) error {
	sel, err := c.Selected(ctx)
	if err != nil {
		return err
	}
	if sel.Empty() {
		return ErrNoSelection
	}
	return c.Delete(ctx, sel.ID)
}

// ============================================================
// Clear
// ============================================================

// ClearLocal очищает только эту доску: сцену, реестр, ожидающие вставки и
// счётчики. Хранилище не трогается.
func (c *Controller) ClearLocal(ctx context.Context) error {
	return c.call(ctx, c.clearLocal)
}

func (c *Controller) clearLocal() {
	changed := c.reg.Len() > 0 || len(c.counts) > 0 || len(c.inflight) > 0

	for id := range c.inflight {
		c.dropInflight(id)
	}
	c.reg.Clear()
	c.surface.Clear()
	c.pending.Clear()
	c.setSelection(Selection{})
	c.counts = Counts{}

	if changed {
		c.publishCounts()
		c.surface.RequestRender()
	}
}

// ClearRemote удаляет все строки в хранилище (нужны права администратора) и
// очищает доску. Остальные клиенты сходятся через события удаления.
func (c *Controller) ClearRemote(ctx context.Context) (int, error) {
	n, err := c.store.DeleteAll(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("clear failed")
		c.noticeAsync("Could not clear the garden")
		return 0, fmt.Errorf("delete all items: %w", err)
	}
	if err := c.ClearLocal(ctx); err != nil {
		return n, err
	}
	c.log.Info().Int("deleted", n).Msg("garden cleared")
	return n, nil
}

// ============================================================
// Queries
// ============================================================

// ItemView: объект на доске глазами UI.
type ItemView struct {
	registry.Meta
	Pose canvas.Pose
}

func (c *Controller) Items(ctx context.Context) ([]ItemView, error) {
	var out []ItemView
	err := c.call(ctx, func() {
		for _, meta := range c.reg.Metas() {
			obj, _, _ := c.reg.Get(meta.ID)
			out = append(out, ItemView{Meta: meta, Pose: obj.Pose()})
		}
	})
	return out, err
}

// Object возвращает объект сцены для id.
func (c *Controller) Object(ctx context.Context, id string) (*canvas.Object, error) {
	var obj *canvas.Object
	var ok bool
	if err := c.call(ctx, func() { obj, _, ok = c.reg.Get(id) }); err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownItem
	}
	return obj, nil
}

func (c *Controller) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	err := c.call(ctx, func() { out = c.counts.Clone() })
	return out, err
}

func (c *Controller) Selected(ctx context.Context) (Selection, error) {
	var sel Selection
	err := c.call(ctx, func() { sel = c.sel })
	return sel, err
}

// Snapshot рисует доску с подписью счётчиков.
func (c *Controller) Snapshot(ctx context.Context) (image.Image, error) {
	counts, err := c.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return c.surface.Snapshot(counts.Legend())
}

// Export сохраняет снимок доски в PNG.
func (c *Controller) Export(ctx context.Context, path string) error {
	img, err := c.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
