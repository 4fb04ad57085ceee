package imaging

import (
	"image"
	"image/color"
)

// Placeholder: зелёный круг на прозрачном фоне; используется, когда картинку
// не удалось загрузить вовсе, чтобы растение всё равно появилось на доске.
func Placeholder(size int) *image.NRGBA {
	if size <= 0 {
		size = 96
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	leaf := color.NRGBA{R: 76, G: 153, B: 76, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, leaf)
			}
		}
	}
	return img
}
