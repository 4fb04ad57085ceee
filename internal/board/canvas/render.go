package canvas

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// ============================================================
// Rendering
// ============================================================

var (
	background   = color.NRGBA{R: 244, G: 249, B: 239, A: 255}
	selectStroke = color.NRGBA{R: 46, G: 125, B: 50, A: 255}
	legendInk    = color.NRGBA{R: 33, G: 33, B: 33, A: 255}
	legendPanel  = color.NRGBA{R: 255, G: 255, B: 255, A: 220}

	faceOnce sync.Once
	faceErr  error
	legendFF *truetype.Font
)

const legendFontSize = 13

// Snapshot рисует сцену; legend: строки в правом верхнем углу (счётчики).
func (s *Scene) Snapshot(legend []string) (image.Image, error) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("scene has no area: %dx%d", w, h)
	}
	objects := s.Objects()
	active := s.Active()

	dc := gg.NewContext(w, h)
	dc.SetColor(background)
	dc.Clear()

	for _, obj := range objects {
		p := obj.Pose()
		dc.Push()
		dc.Translate(p.X, p.Y)
		dc.Rotate(gg.Radians(p.Angle))
		dc.DrawImageAnchored(obj.Image(), 0, 0, 0.5, 0.5)
		dc.Pop()
	}

	if active != nil {
		bb := active.BoundingBox()
		dc.SetColor(selectStroke)
		dc.SetLineWidth(1.5)
		dc.DrawRectangle(bb.MinX, bb.MinY, bb.Width(), bb.Height())
		dc.Stroke()
	}

	if len(legend) > 0 {
		face, err := legendFace()
		if err != nil {
			return nil, err
		}
		drawLegend(dc, face, legend)
	}
	return dc.Image(), nil
}

// SavePNG сохраняет снимок сцены в файл.
func (s *Scene) SavePNG(path string, legend []string) error {
	img, err := s.Snapshot(legend)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}

func drawLegend(dc *gg.Context, face font.Face, lines []string) {
	dc.SetFontFace(face)
	lineHeight := float64(legendFontSize) * 1.4
	width := 0.0
	for _, line := range lines {
		if lw, _ := dc.MeasureString(line); lw > width {
			width = lw
		}
	}

	pad := 8.0
	boxW := width + 2*pad
	boxH := float64(len(lines))*lineHeight + 2*pad
	x := float64(dc.Width()) - boxW - pad
	y := pad

	dc.SetColor(legendPanel)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 6)
	dc.Fill()

	dc.SetColor(legendInk)
	for i, line := range lines {
		dc.DrawStringAnchored(line, x+pad, y+pad+float64(i)*lineHeight+lineHeight/2, 0, 0.35)
	}
}

func legendFace() (font.Face, error) {
	faceOnce.Do(func() {
		legendFF, faceErr = truetype.Parse(goregular.TTF)
	})
	if faceErr != nil {
		return nil, fmt.Errorf("parse legend font: %w", faceErr)
	}
	return truetype.NewFace(legendFF, &truetype.Options{
		Size:    legendFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
