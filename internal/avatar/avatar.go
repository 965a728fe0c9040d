// Package avatar renders the default profile picture used when a user has
// not uploaded one: a grey square with the user's initial in the middle.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Size is the width and height of a default avatar in pixels.
const Size = 100

// ContentType is the MIME type of Default's output.
const ContentType = "image/png"

// Colours of the default avatar.
var (
	Background = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	Foreground = color.RGBA{A: 0xff}
)

const fontSize = 50

// Func renders an avatar for an initial. Default satisfies it.
type Func func(initial rune) ([]byte, error)

var (
	fontOnce sync.Once
	goFont   *opentype.Font
	fontErr  error
)

func parsedFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		goFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return goFont, fontErr
}

var upper = cases.Upper(language.Und)

// Default renders a Size×Size PNG with the upper-cased initial centred on
// the Background colour.
func Default(initial rune) ([]byte, error) {
	f, err := parsedFont()
	if err != nil {
		return nil, fmt.Errorf("avatar: parse font: %w", err)
	}
	// Faces are not safe for concurrent use, so each render gets its own.
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: fontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("avatar: new face: %w", err)
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	text := upper.String(string(initial))
	d := &font.Drawer{Dst: img, Src: image.NewUniform(Foreground), Face: face}
	m := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: (fixed.I(Size) - d.MeasureString(text)) / 2,
		Y: (fixed.I(Size) + m.Ascent - m.Descent) / 2,
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("avatar: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// InitialOf returns the first letter or digit of name, or '?' when there is none.
func InitialOf(name string) rune {
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
	}
	return '?'
}
