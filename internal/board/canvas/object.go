package canvas

import (
	"image"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// ============================================================
// Visual Object
// ============================================================

// Pose: позиция центра объекта и угол поворота в градусах.
type Pose struct {
	X     float64
	Y     float64
	Angle float64
}

// Rect: ось-ориентированный прямоугольник в пикселях сцены.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Object: отрисовываемая картинка на сцене. Идентификатор строки объект не хранит:
// соответствие id -> объект ведёт реестр.
type Object struct {
	mu         sync.RWMutex
	img        image.Image
	w, h       float64
	pose       Pose
	selectable bool
	locked     bool
}

// NewObject масштабирует img до targetWidth (с сохранением пропорций).
// targetWidth <= 0 оставляет исходный размер.
func NewObject(img image.Image, targetWidth float64) *Object {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	if targetWidth > 0 && w > 0 && math.Abs(targetWidth-w) >= 0.5 {
		scale := targetWidth / w
		dw := int(math.Round(targetWidth))
		dh := int(math.Max(1, math.Round(h*scale)))
		dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
		w, h = float64(dw), float64(dh)
	}

	return &Object{img: img, w: w, h: h, selectable: true}
}

func (o *Object) Image() image.Image {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.img
}

func (o *Object) Size() (float64, float64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.w, o.h
}

func (o *Object) Pose() Pose {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pose
}

func (o *Object) SetPose(p Pose) {
	o.mu.Lock()
	o.pose = p
	o.mu.Unlock()
}

func (o *Object) SetPosition(x, y float64) {
	o.mu.Lock()
	o.pose.X, o.pose.Y = x, y
	o.mu.Unlock()
}

func (o *Object) SetAngle(angle float64) {
	o.mu.Lock()
	o.pose.Angle = angle
	o.mu.Unlock()
}

func (o *Object) Selectable() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.selectable
}

func (o *Object) SetSelectable(v bool) {
	o.mu.Lock()
	o.selectable = v
	o.mu.Unlock()
}

// Locked запрещает перемещение и поворот пользователем.
func (o *Object) Locked() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.locked
}

func (o *Object) SetLocked(v bool) {
	o.mu.Lock()
	o.locked = v
	o.mu.Unlock()
}

// BoundingBox: габарит повёрнутого объекта.
func (o *Object) BoundingBox() Rect {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rad := o.pose.Angle * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	halfW := (o.w*cos + o.h*sin) / 2
	halfH := (o.w*sin + o.h*cos) / 2
	return Rect{
		MinX: o.pose.X - halfW,
		MinY: o.pose.Y - halfH,
		MaxX: o.pose.X + halfW,
		MaxY: o.pose.Y + halfH,
	}
}

// Contains проверяет попадание точки сцены в повёрнутый прямоугольник объекта.
func (o *Object) Contains(x, y float64) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rad := -o.pose.Angle * math.Pi / 180
	dx, dy := x-o.pose.X, y-o.pose.Y
	lx := dx*math.Cos(rad) - dy*math.Sin(rad)
	ly := dx*math.Sin(rad) + dy*math.Cos(rad)
	return math.Abs(lx) <= o.w/2 && math.Abs(ly) <= o.h/2
}
