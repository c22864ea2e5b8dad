package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-connect4/internal/board"
)

//go:embed assets/*.svg
var discFiles embed.FS

const (
	DefaultCellSize = 64
	minCellSize     = 16
	maxCellSize     = 256
	margin          = 12
	labelHeight     = 20
)

var (
	frameColor     = color.RGBA{21, 101, 192, 255}
	backdropColor  = color.RGBA{250, 250, 250, 255}
	lastMoveColor  = color.RGBA{255, 255, 255, 255}
	labelTextColor = color.RGBA{60, 60, 60, 255}
)

// Options tunes the snapshot. Zero values pick defaults.
type Options struct {
	CellSize int
	LastMove *board.Position
	// Width, when set, rescales the final image to this many pixels wide.
	Width int
}

// Renderer draws boards to PNG.
type Renderer interface {
	RenderPNG(ctx context.Context, b board.Board, opts Options) ([]byte, error)
}

type svgRenderer struct{}

func NewRenderer() Renderer { return svgRenderer{} }

func (svgRenderer) RenderPNG(ctx context.Context, b board.Board, opts Options) ([]byte, error) {
	cell := opts.CellSize
	if cell == 0 {
		cell = DefaultCellSize
	}
	if cell < minCellSize || cell > maxCellSize {
		return nil, fmt.Errorf("cell size %d out of range", cell)
	}

	w := board.Cols*cell + 2*margin
	h := board.Rows*cell + 2*margin + labelHeight
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(backdropColor), image.Point{}, xdraw.Src)
	frame := image.Rect(margin, margin, margin+board.Cols*cell, margin+board.Rows*cell)
	xdraw.Draw(img, frame, image.NewUniform(frameColor), image.Point{}, xdraw.Src)

	for r := 0; r < board.Rows; r++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for c := 0; c < board.Cols; c++ {
			disc, err := discImage(b[r][c], cell)
			if err != nil {
				return nil, err
			}
			at := image.Pt(margin+c*cell, margin+r*cell)
			xdraw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(cell, cell))}, disc, image.Point{}, xdraw.Over)
		}
	}
	if lm := opts.LastMove; lm != nil && lm.Row >= 0 && lm.Row < board.Rows && lm.Col >= 0 && lm.Col < board.Cols {
		markCell(img, margin+lm.Col*cell, margin+lm.Row*cell, cell)
	}
	drawLabels(img, cell, margin+board.Rows*cell)

	var out image.Image = img
	if opts.Width > 0 && opts.Width != w {
		nh := h * opts.Width / w
		scaled := image.NewRGBA(image.Rect(0, 0, opts.Width, nh))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// markCell draws a small square in the centre of the cell.
func markCell(img *image.RGBA, x, y, cell int) {
	s := cell / 8
	if s < 2 {
		s = 2
	}
	cx, cy := x+cell/2, y+cell/2
	r := image.Rect(cx-s, cy-s, cx+s, cy+s)
	xdraw.Draw(img, r, image.NewUniform(lastMoveColor), image.Point{}, xdraw.Src)
}

func drawLabels(img *image.RGBA, cell, top int) {
	d := font.Drawer{Dst: img, Src: image.NewUniform(labelTextColor), Face: basicfont.Face7x13}
	for c := 0; c < board.Cols; c++ {
		label := strconv.Itoa(c)
		adv := d.MeasureString(label).Ceil()
		x := margin + c*cell + (cell-adv)/2
		d.Dot = fixed.P(x, top+labelHeight-4)
		d.DrawString(label)
	}
}

type discKey struct {
	side board.Side
	size int
}

var (
	discCache   = map[discKey]image.Image{}
	discCacheMu sync.RWMutex
)

func discImage(side board.Side, size int) (image.Image, error) {
	key := discKey{side: side, size: size}
	discCacheMu.RLock()
	if img, ok := discCache[key]; ok {
		discCacheMu.RUnlock()
		return img, nil
	}
	discCacheMu.RUnlock()

	name := "assets/hole.svg"
	switch side {
	case board.One:
		name = "assets/disc-1.svg"
	case board.Two:
		name = "assets/disc-2.svg"
	}
	data, err := discFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read disc asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse disc svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	discCacheMu.Lock()
	discCache[key] = img
	discCacheMu.Unlock()
	return img, nil
}
