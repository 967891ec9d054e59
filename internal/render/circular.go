package render

import (
	"fmt"
	"math"

	"github.com/biogo/biogo/feat"
	"github.com/fogleman/gg"

	"plasmap/internal/graphic"
)

func (r *Renderer) drawCircular(m graphic.Map) (*gg.Context, error) {
	dpi := r.opts.dpi
	px := func(pt float64) float64 { return pt * dpi / 72 }
	titleFace, err := loadFace(true, 14, dpi)
	if err != nil {
		return nil, err
	}
	labelFace, err := loadFace(false, 9, dpi)
	if err != nil {
		return nil, err
	}

	size := r.opts.circularSize * dpi
	cx, cy := size/2, size/2+px(10)
	radius := size * 0.28
	band := px(12)
	length := max(m.Length, 1)
	angle := func(pos int) float64 { return -math.Pi/2 + 2*math.Pi*float64(pos)/float64(length) }

	dc := gg.NewContext(int(size), int(size))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetFontFace(titleFace)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(m.Title, size/2, px(24), 0.5, 0.5)

	dc.SetRGB(0.25, 0.25, 0.25)
	dc.SetLineWidth(px(1.5))
	dc.DrawCircle(cx, cy, radius)
	dc.Stroke()

	dc.SetFontFace(labelFace)
	dc.DrawStringAnchored(fmt.Sprintf("%s bp", formatPosition(m.Length)), cx, cy, 0.5, 0.5)

	labelR := radius * r.opts.labelRadius
	for _, f := range m.Features {
		a1, a2 := angle(f.Start()), angle(f.End())
		arcBand(dc, cx, cy, radius-band/2, radius+band/2, a1, a2, f.Strand, px(6)/radius)
		dc.SetHexColor(f.Color)
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(px(0.5))
		dc.Stroke()

		mid := (a1 + a2) / 2
		cos, sin := math.Cos(mid), math.Sin(mid)
		dc.SetRGB(0.4, 0.4, 0.4)
		dc.DrawLine(cx+(radius+band/2)*cos, cy+(radius+band/2)*sin, cx+labelR*0.96*cos, cy+labelR*0.96*sin)
		dc.Stroke()
		ax := 0.0
		if cos < 0 {
			ax = 1
		}
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(f.Label, cx+labelR*cos, cy+labelR*sin, ax, 0.5)
	}
	return dc, nil
}

// arcBand outlines the ring segment between angles a1 and a2 (radians,
// clockwise on screen) with an arrow head of head radians along strand.
func arcBand(dc *gg.Context, cx, cy, rIn, rOut, a1, a2 float64, strand feat.Orientation, head float64) {
	head = math.Min(head, (a2-a1)/2)
	rMid := (rIn + rOut) / 2
	point := func(r, a float64) (float64, float64) { return cx + r*math.Cos(a), cy + r*math.Sin(a) }
	trace := func(r, from, to float64) {
		n := max(8, int(math.Ceil(math.Abs(to-from)/(math.Pi/180))))
		for i := 0; i <= n; i++ {
			dc.LineTo(point(r, from+(to-from)*float64(i)/float64(n)))
		}
	}

	start, end := a1, a2
	dc.NewSubPath()
	switch strand {
	case feat.Forward:
		end = a2 - head
	case feat.Reverse:
		start = a1 + head
		dc.MoveTo(point(rMid, a1))
	}
	trace(rOut, start, end)
	if strand == feat.Forward {
		dc.LineTo(point(rMid, a2))
	}
	trace(rIn, end, start)
	dc.ClosePath()
}
