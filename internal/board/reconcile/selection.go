package reconcile

import (
	"garden-board/internal/board/canvas"
)

// ============================================================
// Selection
// ============================================================

// Selection: выделенный объект и точка привязки кнопки удаления
// (справа сверху от рамки объекта). Нулевое значение: ничего не выделено.
type Selection struct {
	ID      string
	Label   string
	AnchorX float64
	AnchorY float64
}

func (s Selection) Empty() bool {
	return s.ID == ""
}

func (c *Controller) handleSurface(ev canvas.Event) {
	switch ev.Type {
	case canvas.SelectionCreated, canvas.SelectionUpdated:
		id, ok := c.reg.IDOf(ev.Object)
		if !ok {
			return
		}
		_, meta, _ := c.reg.Get(id)
		c.setSelection(c.selectionFor(id, meta.Label, ev.Object))
	case canvas.SelectionCleared:
		c.setSelection(Selection{})
	case canvas.ObjectMoving, canvas.ObjectRotating:
		if id, ok := c.reg.IDOf(ev.Object); ok {
			c.refreshSelection(id)
		}
	case canvas.ObjectModified:
		if id, ok := c.reg.IDOf(ev.Object); ok {
			c.commit(id)
		}
	}
}

func (c *Controller) selectionFor(id, label string, obj *canvas.Object) Selection {
	bb := obj.BoundingBox()
	return Selection{
		ID:      id,
		Label:   label,
		AnchorX: bb.MaxX + c.opts.AnchorMargin,
		AnchorY: bb.MinY - c.opts.AnchorMargin,
	}
}

// refreshSelection пересчитывает якорь, если id выделен.
func (c *Controller) refreshSelection(id string) {
	if c.sel.ID != id {
		return
	}
	obj, meta, ok := c.reg.Get(id)
	if !ok {
		return
	}
	c.setSelection(c.selectionFor(id, meta.Label, obj))
}

func (c *Controller) setSelection(sel Selection) {
	if sel == c.sel {
		return
	}
	c.sel = sel
	if c.hooks.OnSelection != nil {
		c.hooks.OnSelection(sel)
	}
}
