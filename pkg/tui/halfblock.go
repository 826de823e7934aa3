package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// RenderHalfBlock turns img into terminal lines using the lower half block
// (▄): each cell shows two vertically stacked pixels, the top one as the
// background color and the bottom one as the foreground. Transparent pixels
// are blended over bg. Escapes are only emitted when a color changes.
func RenderHalfBlock(img image.Image, bg color.Color) []string {
	b := img.Bounds()
	if b.Empty() {
		return nil
	}

	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)
	under := color.RGBAModel.Convert(bg).(color.RGBA)

	w, h := flat.Rect.Dx(), flat.Rect.Dy()
	lines := make([]string, 0, (h+1)/2)
	for y := 0; y < h; y += 2 {
		var sb strings.Builder
		var prevTop, prevBot color.RGBA
		for x := 0; x < w; x++ {
			top := flat.RGBAAt(x, y)
			bot := under
			if y+1 < h {
				bot = flat.RGBAAt(x, y+1)
			}
			if x == 0 || top != prevTop {
				fmt.Fprintf(&sb, "\x1b[48;2;%d;%d;%dm", top.R, top.G, top.B)
			}
			if x == 0 || bot != prevBot {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm", bot.R, bot.G, bot.B)
			}
			sb.WriteString("▄")
			prevTop, prevBot = top, bot
		}
		sb.WriteString("\x1b[0m")
		lines = append(lines, sb.String())
	}
	return lines
}
