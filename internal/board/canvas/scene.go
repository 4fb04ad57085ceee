// Package canvas: 2D сцена доски: объекты-картинки, выделение, события
// перемещения/поворота и снимок в PNG.
package canvas

import (
	"sync"
)

// ============================================================
// Scene Events
// ============================================================

type EventType int

const (
	ObjectMoving EventType = iota
	ObjectRotating
	ObjectModified
	SelectionCreated
	SelectionUpdated
	SelectionCleared
)

func (t EventType) String() string {
	switch t {
	case ObjectMoving:
		return "object:moving"
	case ObjectRotating:
		return "object:rotating"
	case ObjectModified:
		return "object:modified"
	case SelectionCreated:
		return "selection:created"
	case SelectionUpdated:
		return "selection:updated"
	case SelectionCleared:
		return "selection:cleared"
	default:
		return "unknown"
	}
}

type Event struct {
	Type   EventType
	Object *Object
}

// ============================================================
// Scene
// ============================================================

// Scene безопасна для конкурентного доступа. События порождают только
// пользовательские действия (SetActive, Drag, Rotate, Release); Add, Remove,
// Clear и Dispose событий не шлют.
type Scene struct {
	mu         sync.RWMutex
	width      int
	height     int
	objects    []*Object
	active     *Object
	listeners  map[int]func(Event)
	nextListen int
	disposed   bool
	generation uint64
	onRender   func()
}

func NewScene(width, height int) *Scene {
	return &Scene{
		width:     width,
		height:    height,
		listeners: make(map[int]func(Event)),
	}
}

func (s *Scene) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *Scene) Resize(width, height int) {
	s.mu.Lock()
	if width > 0 {
		s.width = width
	}
	if height > 0 {
		s.height = height
	}
	s.mu.Unlock()
	s.RequestRender()
}

// OnRender задаёт колбэк перерисовки (TUI обновляет экран).
func (s *Scene) OnRender(fn func()) {
	s.mu.Lock()
	s.onRender = fn
	s.mu.Unlock()
}

// RequestRender помечает сцену изменённой.
func (s *Scene) RequestRender() {
	s.mu.Lock()
	s.generation++
	fn := s.onRender
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Generation растёт при каждой перерисовке.
func (s *Scene) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Scene) Add(obj *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || obj == nil {
		return
	}
	for _, o := range s.objects {
		if o == obj {
			return
		}
	}
	s.objects = append(s.objects, obj)
}

// Remove убирает объект; если он был выделен, выделение снимается без события.
func (s *Scene) Remove(obj *Object) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			if s.active == obj {
				s.active = nil
			}
			return true
		}
	}
	return false
}

func (s *Scene) Has(obj *Object) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		if o == obj {
			return true
		}
	}
	return false
}

// Objects возвращает объекты в порядке наложения (нижний первый).
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Object(nil), s.objects...)
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Clear удаляет все объекты и выделение.
func (s *Scene) Clear() {
	s.mu.Lock()
	s.objects = nil
	s.active = nil
	s.mu.Unlock()
}

// Dispose освобождает сцену: объекты и подписчики удаляются, Add становится no-op.
func (s *Scene) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.objects = nil
	s.active = nil
	s.listeners = make(map[int]func(Event))
	s.onRender = nil
}

// Subscribe подписывает fn на события сцены; возвращает функцию отписки.
func (s *Scene) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Scene) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ============================================================
// User Interaction
// ============================================================

func (s *Scene) Active() *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive выделяет объект (selection:created или selection:updated).
func (s *Scene) SetActive(obj *Object) bool {
	s.mu.Lock()
	if obj == nil || !obj.Selectable() || !s.hasLocked(obj) {
		s.mu.Unlock()
		return false
	}
	prev := s.active
	s.active = obj
	s.mu.Unlock()

	switch {
	case prev == nil:
		s.emit(Event{Type: SelectionCreated, Object: obj})
	case prev != obj:
		s.emit(Event{Type: SelectionUpdated, Object: obj})
	}
	return true
}

// ClearActive снимает выделение (selection:cleared).
func (s *Scene) ClearActive() {
	s.mu.Lock()
	prev := s.active
	s.active = nil
	s.mu.Unlock()

	if prev != nil {
		s.emit(Event{Type: SelectionCleared, Object: prev})
	}
}

// ObjectAt возвращает верхний выделяемый объект в точке.
func (s *Scene) ObjectAt(x, y float64) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.Selectable() && o.Contains(x, y) {
			return o
		}
	}
	return nil
}

// Drag переносит центр объекта в (x, y) и шлёт object:moving.
func (s *Scene) Drag(obj *Object, x, y float64) bool {
	if !s.Has(obj) || obj.Locked() {
		return false
	}
	obj.SetPosition(x, y)
	s.emit(Event{Type: ObjectMoving, Object: obj})
	s.RequestRender()
	return true
}

// Rotate задаёт угол объекта и шлёт object:rotating.
func (s *Scene) Rotate(obj *Object, angle float64) bool {
	if !s.Has(obj) || obj.Locked() {
		return false
	}
	obj.SetAngle(angle)
	s.emit(Event{Type: ObjectRotating, Object: obj})
	s.RequestRender()
	return true
}

// Release завершает перетаскивание/поворот: object:modified.
func (s *Scene) Release(obj *Object) {
	if !s.Has(obj) {
		return
	}
	s.emit(Event{Type: ObjectModified, Object: obj})
}

func (s *Scene) hasLocked(obj *Object) bool {
	for _, o := range s.objects {
		if o == obj {
			return true
		}
	}
	return false
}
