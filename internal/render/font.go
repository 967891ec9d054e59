package render

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce          sync.Once
	regularFont, bold *truetype.Font
	fontErr           error
)

// loadFace returns a fresh face; truetype faces cache glyphs and must not be
// shared between goroutines.
func loadFace(strong bool, points, dpi float64) (font.Face, error) {
	fontOnce.Do(func() {
		regularFont, fontErr = truetype.Parse(goregular.TTF)
		if fontErr == nil {
			bold, fontErr = truetype.Parse(gobold.TTF)
		}
	})
	if fontErr != nil {
		return nil, fmt.Errorf("load font: %w", fontErr)
	}
	f := regularFont
	if strong {
		f = bold
	}
	return truetype.NewFace(f, &truetype.Options{Size: points, DPI: dpi, Hinting: font.HintingFull}), nil
}
