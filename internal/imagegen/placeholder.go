package imagegen

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder renders a deterministic substitute image for a scene whose
// generation failed, annotated with the failure text so the degrade is
// visible in the output rather than silent.
func Placeholder(width, height, sceneNumber int, errText string) []byte {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	seed := placeholderSeed(sceneNumber, errText)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := height / 12
	if stripeHeight < 32 {
		stripeHeight = 32
	}
	for y := 0; y < height; y += stripeHeight * 2 {
		bottom := y + stripeHeight
		if bottom > height {
			bottom = height
		}
		stripe := image.Rect(0, y, width, bottom)
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	lines := append([]string{fmt.Sprintf("Scene %d unavailable", sceneNumber)},
		wrapText(errText, (width-32)/7)...)
	drawLines(img, lines)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func placeholderSeed(sceneNumber int, errText string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s", sceneNumber, errText)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = seed + "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: hexByte(segment[0:2]),
		G: hexByte(segment[2:4]),
		B: hexByte(segment[4:6]),
		A: 255,
	}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func wrapText(text string, maxChars int) []string {
	if maxChars < 8 {
		maxChars = 8
	}
	var lines []string
	for len(text) > maxChars {
		lines = append(lines, text[:maxChars])
		text = text[maxChars:]
	}
	if text != "" {
		lines = append(lines, text)
	}
	return lines
}

func drawLines(img *image.RGBA, lines []string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	y := 24
	for _, line := range lines {
		d.Dot = fixed.P(16, y)
		d.DrawString(line)
		y += face.Height + 4
	}
}
