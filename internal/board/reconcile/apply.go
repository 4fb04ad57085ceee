package reconcile

import (
	"context"
	"image"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/imaging"
	"garden-board/internal/board/registry"
	"garden-board/internal/garden/models"
)

// ============================================================
// Realtime events
// ============================================================

// apply применяет событие ленты в порядке доставки.
func (c *Controller) apply(ev models.Event) {
	switch ev.Type {
	case models.EventInsert:
		c.applyInsert(ev.Row)
	case models.EventUpdate:
		c.applyUpdate(ev.Row)
	case models.EventDelete:
		c.applyDelete(ev.Row.ID)
	default:
		c.log.Debug().Str("type", string(ev.Type)).Msg("unknown event type")
	}
}

func (c *Controller) applyInsert(row models.Item) {
	// Consume первым: эхо своей вставки снимает id из ожидающих в любом случае.
	if c.pending.Consume(row.ID) {
		c.log.Debug().Str("id", row.ID).Msg("echo of local insert")
		return
	}
	if c.reg.Has(row.ID) || c.gone.Has(row.ID) {
		return
	}
	if _, ok := c.inflight[row.ID]; ok {
		c.inflight[row.ID] = row
		return
	}
	c.inflight[row.ID] = row
	c.prepare(row, true)
}

func (c *Controller) applyUpdate(row models.Item) {
	if obj, _, ok := c.reg.Get(row.ID); ok {
		obj.SetPose(canvas.Pose{X: row.X, Y: row.Y, Angle: row.Angle})
		c.refreshSelection(row.ID)
		c.surface.RequestRender()
		return
	}
	if _, ok := c.inflight[row.ID]; ok {
		// объект ещё готовится: возьмёт позу из последней строки
		c.inflight[row.ID] = row
		return
	}
	c.log.Debug().Str("id", row.ID).Msg("update for unknown id ignored")
}

func (c *Controller) applyDelete(id string) {
	c.gone.Mark(id)
	if c.reg.Has(id) {
		c.removeEntry(id, true)
		return
	}
	if c.dropInflight(id) {
		c.log.Debug().Str("id", id).Msg("delete while preparing")
		return
	}
	c.log.Debug().Str("id", id).Msg("delete for unknown id ignored")
}

// dropInflight отменяет подготовку объекта: materialize станет no-op.
func (c *Controller) dropInflight(id string) bool {
	if _, ok := c.inflight[id]; !ok {
		return false
	}
	delete(c.inflight, id)
	c.settle(id)
	return true
}

// ============================================================
// Object lifecycle
// ============================================================

// prepare загружает картинку вне цикла и возвращается командой materialize.
// row уже лежит в inflight.
func (c *Controller) prepare(row models.Item, announce bool) {
	c.spawn(func(ctx context.Context) {
		img := c.loadImage(ctx, row.URL)
		c.post(func() { c.materialize(row.ID, img, announce) })
	})
}

// loadImage: обработанная картинка, иначе исходная, иначе заглушка.
func (c *Controller) loadImage(ctx context.Context, url string) image.Image {
	if c.images != nil {
		img, err := c.images.Process(ctx, url)
		if err == nil {
			return img
		}
		c.log.Debug().Err(err).Str("url", url).Msg("preprocess failed, using original")

		img, err = c.images.Original(ctx, url)
		if err == nil {
			return img
		}
		c.log.Debug().Err(err).Str("url", url).Msg("original image unavailable, using placeholder")
	}
	return imaging.Placeholder(int(c.opts.TargetWidth))
}

// materialize создаёт объект для id, если тот всё ещё ожидается.
// Возвращает true, если объект добавлен на сцену.
func (c *Controller) materialize(id string, img image.Image, announce bool) bool {
	defer c.settle(id)

	row, ok := c.inflight[id]
	if !ok {
		c.log.Debug().Str("id", id).Msg("prepared object no longer wanted")
		return false
	}
	delete(c.inflight, id)

	meta, ok := c.attach(row, img)
	if !ok {
		return false
	}
	c.counts.add(meta.Label)
	if announce && c.hooks.OnItemAdded != nil {
		c.hooks.OnItemAdded(meta)
	}
	c.publishCounts()
	c.surface.RequestRender()
	return true
}

// attach кладёт объект в реестр и на сцену одной операцией.
func (c *Controller) attach(row models.Item, img image.Image) (registry.Meta, bool) {
	obj := canvas.NewObject(img, c.opts.TargetWidth)
	obj.SetPose(canvas.Pose{X: row.X, Y: row.Y, Angle: row.Angle})

	meta := registry.Meta{ID: row.ID, Label: row.Label}
	if err := c.reg.Put(meta, obj); err != nil {
		c.log.Warn().Err(err).Str("id", row.ID).Msg("object not registered")
		return meta, false
	}
	c.surface.Add(obj)
	if c.loads > 0 {
		c.born[row.ID] = struct{}{}
	}
	return meta, true
}

// removeEntry снимает объект со сцены и из реестра одной операцией.
// publish=false оставляет публикацию счётчиков вызывающему (загрузка).
func (c *Controller) removeEntry(id string, publish bool) bool {
	obj, meta, ok := c.reg.Remove(id)
	if !ok {
		return false
	}
	c.surface.Remove(obj)
	if c.sel.ID == id {
		c.setSelection(Selection{})
	}

	c.counts.remove(meta.Label)
	if c.hooks.OnItemRemoved != nil {
		c.hooks.OnItemRemoved(meta)
	}
	if c.reg.Len() == 0 {
		c.counts = Counts{}
	}
	if publish {
		c.publishCounts()
		c.surface.RequestRender()
	}
	return true
}

func (c *Controller) publishCounts() {
	if c.hooks.OnCounts != nil {
		c.hooks.OnCounts(c.counts.Clone())
	}
}
