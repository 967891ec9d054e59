package render

import (
	"math"
	"sort"

	"github.com/biogo/biogo/feat"
	"github.com/fogleman/gg"

	"plasmap/internal/graphic"
)

type interval struct{ lo, hi float64 }

// stackLevels assigns each interval the lowest level on which it does not
// overlap an earlier placed interval (with gap between neighbours). It
// returns the level per input index and the number of levels used.
func stackLevels(spans []interval, gap float64) ([]int, int) {
	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return spans[order[a]].lo < spans[order[b]].lo })

	levels := make([]int, len(spans))
	var ends []float64
	for _, i := range order {
		placed := false
		for l, end := range ends {
			if spans[i].lo >= end+gap {
				levels[i], ends[l] = l, spans[i].hi
				placed = true
				break
			}
		}
		if !placed {
			levels[i] = len(ends)
			ends = append(ends, spans[i].hi)
		}
	}
	return levels, len(ends)
}

// tickStep picks a 1/2/5 step giving roughly ten ticks over length.
func tickStep(length int) int {
	if length < 10 {
		return 1
	}
	raw := float64(length) / 10
	pow := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*pow >= raw {
			return int(m * pow)
		}
	}
	return int(10 * pow)
}

func (r *Renderer) drawLinear(m graphic.Map) (*gg.Context, error) {
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

	width := r.opts.linearWidth * dpi
	margin := 0.5 * dpi
	length := max(m.Length, 1)
	scale := (width - 2*margin) / float64(length)
	x := func(pos int) float64 { return margin + float64(pos)*scale }

	measure := gg.NewContext(1, 1)
	measure.SetFontFace(labelFace)
	spans := make([]interval, len(m.Features))
	for i, f := range m.Features {
		x1, x2 := x(f.Start()), x(f.End())
		w, _ := measure.MeasureString(f.Label)
		c := (x1 + x2) / 2
		spans[i] = interval{lo: math.Min(x1, c-w/2), hi: math.Max(x2, c+w/2)}
	}
	levels, n := stackLevels(spans, px(4))

	boxH := px(10)
	levelH := boxH + px(16)
	titleH := px(30)
	axisY := margin + titleH + float64(n)*levelH + px(6)
	height := axisY + px(30) + margin/2

	dc := gg.NewContext(int(width), int(math.Ceil(height)))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetFontFace(titleFace)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(m.Title, width/2, margin/2+titleH/2, 0.5, 0.5)

	dc.SetFontFace(labelFace)
	dc.SetLineWidth(px(1))
	dc.SetRGB(0.25, 0.25, 0.25)
	dc.DrawLine(x(0), axisY, x(m.Length), axisY)
	dc.Stroke()
	step := tickStep(m.Length)
	for pos := 0; pos <= m.Length; pos += step {
		tx := x(pos)
		dc.DrawLine(tx, axisY, tx, axisY+px(4))
		dc.Stroke()
		dc.DrawStringAnchored(formatPosition(pos), tx, axisY+px(6), 0.5, 1)
	}

	for i, f := range m.Features {
		bottom := axisY - px(6) - float64(levels[i])*levelH
		top := bottom - boxH
		x1, x2 := x(f.Start()), x(f.End())
		if x2-x1 < 1 {
			x2 = x1 + 1
		}
		arrow(dc, x1, x2, top, bottom, f.Strand, px(6))
		dc.SetHexColor(f.Color)
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(px(0.5))
		dc.Stroke()
		dc.DrawStringAnchored(f.Label, (x1+x2)/2, top-px(3), 0.5, 0)
	}
	return dc, nil
}

// arrow outlines a box between x1 and x2 pointing along strand.
func arrow(dc *gg.Context, x1, x2, top, bottom float64, strand feat.Orientation, head float64) {
	mid := (top + bottom) / 2
	head = math.Min(head, x2-x1)
	dc.NewSubPath()
	switch strand {
	case feat.Forward:
		dc.MoveTo(x1, top)
		dc.LineTo(x2-head, top)
		dc.LineTo(x2, mid)
		dc.LineTo(x2-head, bottom)
		dc.LineTo(x1, bottom)
	case feat.Reverse:
		dc.MoveTo(x1, mid)
		dc.LineTo(x1+head, top)
		dc.LineTo(x2, top)
		dc.LineTo(x2, bottom)
		dc.LineTo(x1+head, bottom)
	default:
		dc.MoveTo(x1, top)
		dc.LineTo(x2, top)
		dc.LineTo(x2, bottom)
		dc.LineTo(x1, bottom)
	}
	dc.ClosePath()
}
