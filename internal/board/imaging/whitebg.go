// Package imaging готовит картинки растений для доски: загрузка по URL
// и удаление почти белого фона.
package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
)

var ErrEmptyImage = errors.New("image has no pixels")

// Порог почти белого пикселя.
const (
	whiteMaxThreshold = 235
	whiteMinThreshold = 210
)

// IsNearWhite: max(r,g,b) > 235 и min(r,g,b) > 210 (неумноженные каналы).
func IsNearWhite(c color.NRGBA) bool {
	hi, lo := c.R, c.R
	for _, v := range [...]uint8{c.G, c.B} {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	return hi > whiteMaxThreshold && lo > whiteMinThreshold
}

// RemoveWhiteBackground возвращает новую NRGBA копию src, в которой почти белые
// пиксели полностью прозрачны. Размеры сохраняются, src не изменяется.
func RemoveWhiteBackground(src image.Image) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	dst := toNRGBA(src)

	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			px := color.NRGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}
			if IsNearWhite(px) {
				row[i+3] = 0
			}
		}
	}
	return dst, nil
}

// Preprocessor загружает картинку и убирает белый фон.
type Preprocessor struct {
	loader *Loader
}

func NewPreprocessor(loader *Loader) *Preprocessor {
	return &Preprocessor{loader: loader}
}

// Process: ошибка загрузки или пустая картинка возвращаются вызывающему,
// который должен откатиться на исходное изображение.
func (p *Preprocessor) Process(ctx context.Context, url string) (image.Image, error) {
	img, err := p.loader.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	return RemoveWhiteBackground(img)
}

// Original загружает картинку без обработки.
func (p *Preprocessor) Original(ctx context.Context, url string) (image.Image, error) {
	return p.loader.Load(ctx, url)
}

// toNRGBA копирует src в NRGBA с началом в (0,0) без потери точности каналов.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if s, ok := src.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			off := s.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], s.Pix[off:off+b.Dx()*4])
		}
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}
