// Package render draws schedule matrices as PNG heat grids.
package render

import (
	"bytes"
	"fmt"
	"image/color"

	"power_schedule/internal/matrix"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	cellWidth   = 16
	cellHeight  = 24
	labelsWidth = 96
	titleHeight = 26
	hoursHeight = 20
	padding     = 8

	// Width and Height are the dimensions of every rendered image.
	Width  = labelsWidth + matrix.SlotsPerDay*cellWidth + padding
	Height = titleHeight + hoursHeight + matrix.Days*cellHeight + padding
)

var (
	bgColor    = color.RGBA{245, 246, 248, 255}
	textColor  = color.RGBA{80, 85, 90, 255}
	gridColor  = color.RGBA{200, 202, 206, 255}
	hourColor  = color.RGBA{150, 150, 150, 255}
	onColor    = color.RGBA{133, 193, 85, 255}
	offColor   = color.RGBA{230, 230, 230, 255}
	evenOffCol = color.RGBA{220, 220, 220, 255}
)

// CellOrigin returns the top-left pixel of cell (row, col).
func CellOrigin(row, col int) (x, y int) {
	return labelsWidth + col*cellWidth, titleHeight + hoursHeight + row*cellHeight
}

// PNG renders m with title above the grid.
func PNG(m matrix.Matrix, title string) ([]byte, error) {
	dc := gg.NewContext(Width, Height)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(textColor)
	dc.DrawString(title, padding, titleHeight-8)

	drawHourLabels(dc)
	if err := drawCells(dc, m); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHourLabels(dc *gg.Context) {
	dc.SetColor(hourColor)
	for hour := 0; hour < 24; hour += 3 {
		x, _ := CellOrigin(0, hour*2)
		dc.DrawString(fmt.Sprintf("%02d", hour), float64(x), titleHeight+hoursHeight-6)
	}
}

func drawCells(dc *gg.Context, m matrix.Matrix) error {
	rows := m.Rows()
	for r := 0; r < matrix.Days; r++ {
		day, err := matrix.DayName(r)
		if err != nil {
			return err
		}
		_, y := CellOrigin(r, 0)
		dc.SetColor(textColor)
		dc.DrawString(day, padding, float64(y+cellHeight-8))

		for c := 0; c < matrix.SlotsPerDay; c++ {
			x, y := CellOrigin(r, c)
			switch {
			case rows[r][c]:
				dc.SetColor(onColor)
			case (c/2)%2 == 0:
				dc.SetColor(evenOffCol)
			default:
				dc.SetColor(offColor)
			}
			dc.DrawRectangle(float64(x), float64(y), cellWidth, cellHeight)
			dc.Fill()

			dc.SetColor(gridColor)
			dc.SetLineWidth(1)
			dc.DrawRectangle(float64(x)+0.5, float64(y)+0.5, cellWidth-1, cellHeight-1)
			dc.Stroke()
		}
	}
	return nil
}
