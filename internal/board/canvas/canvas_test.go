package canvas

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 40, 40, 255
	}
	return img
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestNewObjectScalesToTargetWidth(t *testing.T) {
	obj := NewObject(solid(192, 96), 96)
	w, h := obj.Size()
	if w != 96 || h != 48 {
		t.Fatalf("unexpected size %vx%v", w, h)
	}
	if b := obj.Image().Bounds(); b.Dx() != 96 || b.Dy() != 48 {
		t.Fatalf("image not scaled: %v", b)
	}

	same := NewObject(solid(96, 40), 96)
	if w, h := same.Size(); w != 96 || h != 40 {
		t.Fatalf("no scaling expected, got %vx%v", w, h)
	}
}

func TestBoundingBoxRotation(t *testing.T) {
	obj := NewObject(solid(40, 20), 0)
	obj.SetPose(Pose{X: 100, Y: 50})

	bb := obj.BoundingBox()
	if !approx(bb.MinX, 80) || !approx(bb.MaxX, 120) || !approx(bb.MinY, 40) || !approx(bb.MaxY, 60) {
		t.Fatalf("unrotated bbox: %+v", bb)
	}

	obj.SetAngle(90)
	bb = obj.BoundingBox()
	if !approx(bb.Width(), 20) || !approx(bb.Height(), 40) {
		t.Fatalf("rotated bbox: %+v", bb)
	}
}

func TestContainsRespectsRotation(t *testing.T) {
	obj := NewObject(solid(40, 10), 0)
	obj.SetPose(Pose{X: 0, Y: 0})
	if !obj.Contains(18, 0) || obj.Contains(0, 18) {
		t.Fatalf("unrotated hit test wrong")
	}
	obj.SetAngle(90)
	if obj.Contains(18, 0) || !obj.Contains(0, 18) {
		t.Fatalf("rotated hit test wrong")
	}
}

func TestSceneSelectionEvents(t *testing.T) {
	s := NewScene(200, 100)
	a := NewObject(solid(10, 10), 0)
	b := NewObject(solid(10, 10), 0)
	s.Add(a)
	s.Add(b)
	s.Add(a)
	if s.Len() != 2 {
		t.Fatalf("duplicate add must be ignored, len=%d", s.Len())
	}

	var got []EventType
	unsubscribe := s.Subscribe(func(ev Event) { got = append(got, ev.Type) })

	s.SetActive(a)
	s.SetActive(b)
	s.SetActive(b)
	s.ClearActive()
	s.ClearActive()

	want := []EventType{SelectionCreated, SelectionUpdated, SelectionCleared}
	if len(got) != len(want) {
		t.Fatalf("events: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %v want %v", i, got[i], want[i])
		}
	}

	unsubscribe()
	s.SetActive(a)
	if len(got) != 3 {
		t.Fatalf("unsubscribed listener still called")
	}
}

func TestSceneDragRotateRelease(t *testing.T) {
	s := NewScene(200, 100)
	obj := NewObject(solid(10, 10), 0)
	s.Add(obj)

	var got []EventType
	s.Subscribe(func(ev Event) { got = append(got, ev.Type) })

	if !s.Drag(obj, 30, 40) || !s.Rotate(obj, 15) {
		t.Fatalf("drag/rotate rejected")
	}
	s.Release(obj)
	if p := obj.Pose(); p.X != 30 || p.Y != 40 || p.Angle != 15 {
		t.Fatalf("unexpected pose %+v", p)
	}
	if len(got) != 3 || got[0] != ObjectMoving || got[1] != ObjectRotating || got[2] != ObjectModified {
		t.Fatalf("unexpected events %v", got)
	}

	obj.SetLocked(true)
	if s.Drag(obj, 0, 0) {
		t.Fatalf("locked object must not move")
	}
}

func TestSceneRemoveClearsActiveSilently(t *testing.T) {
	s := NewScene(100, 100)
	obj := NewObject(solid(10, 10), 0)
	s.Add(obj)
	s.SetActive(obj)

	called := false
	s.Subscribe(func(Event) { called = true })
	if !s.Remove(obj) || s.Active() != nil {
		t.Fatalf("remove must drop active object")
	}
	if called {
		t.Fatalf("remove must not emit events")
	}
	if s.Remove(obj) {
		t.Fatalf("second remove must report false")
	}
}

func TestSceneDispose(t *testing.T) {
	s := NewScene(100, 100)
	s.Add(NewObject(solid(10, 10), 0))
	s.Dispose()
	s.Add(NewObject(solid(10, 10), 0))
	if s.Len() != 0 {
		t.Fatalf("disposed scene must stay empty")
	}
}

func TestObjectAtTopmostSelectable(t *testing.T) {
	s := NewScene(100, 100)
	bottom := NewObject(solid(20, 20), 0)
	top := NewObject(solid(20, 20), 0)
	bottom.SetPose(Pose{X: 50, Y: 50})
	top.SetPose(Pose{X: 50, Y: 50})
	s.Add(bottom)
	s.Add(top)

	if s.ObjectAt(50, 50) != top {
		t.Fatalf("expected topmost object")
	}
	top.SetSelectable(false)
	if s.ObjectAt(50, 50) != bottom {
		t.Fatalf("non-selectable object must be skipped")
	}
	if s.ObjectAt(5, 5) != nil {
		t.Fatalf("expected miss")
	}
}

func TestSnapshotAndSavePNG(t *testing.T) {
	s := NewScene(120, 80)
	obj := NewObject(solid(20, 20), 0)
	obj.SetPose(Pose{X: 20, Y: 60})
	s.Add(obj)

	img, err := s.Snapshot([]string{"Rose: 2"})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Fatalf("unexpected snapshot size %v", img.Bounds())
	}
	r, g, b, _ := img.At(20, 60).RGBA()
	if c := (color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}); c.R != 200 || c.G != 40 {
		t.Fatalf("object not drawn at its center: %v", c)
	}

	path := filepath.Join(t.TempDir(), "garden.png")
	if err := s.SavePNG(path, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}
}
