// Package image renders inline images for the Markdown image reference
// ("![alt](url)") handled by the inline formatter (internal/inline). It is
// the narrow "image driver" collaborator described in spec.md §6: given a
// local path or remote URL it emits the image through the terminal's
// graphics protocol (Kitty, iTerm2 or Sixel) sized to a fixed row height,
// or reports failure so the caller can fall back to printing the URL as
// plain text. There is no character-cell (block glyph) rendering: a
// terminal without one of these protocols gets the URL.
package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	goimage "image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BourgeoisBear/rasterm"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// RowHeight is the fixed number of terminal rows an inline image is scaled
// to occupy, regardless of its native aspect ratio's effect on width.
const RowHeight = 12

// fetchTimeout bounds how long a remote image reference is given to load
// before Render reports failure and the caller substitutes the URL.
const fetchTimeout = 5 * time.Second

// rowColDiacritics contains Unicode combining characters used to encode
// row/column positions in Kitty Unicode placeholders.
// See: https://sw.kovidgoyal.net/kitty/_downloads/f0a0de9ec8d9ff4456206db8e0814937/rowcolumn-diacritics.txt
var rowColDiacritics = []rune{
	0x0305, 0x030D, 0x030E, 0x0310, 0x0312, 0x033D, 0x033E, 0x033F,
	0x0346, 0x034A, 0x034B, 0x034C, 0x0350, 0x0351, 0x0352, 0x0357,
	0x035B, 0x0363, 0x0364, 0x0365, 0x0366, 0x0367, 0x0368, 0x0369,
	0x036A, 0x036B, 0x036C, 0x036D, 0x036E, 0x036F, 0x0483, 0x0484,
	0x0485, 0x0486, 0x0487, 0x0592, 0x0593, 0x0594, 0x0595, 0x0597,
	0x0598, 0x0599, 0x059C, 0x059D, 0x059E, 0x059F, 0x05A0, 0x05A1,
	0x05A8, 0x05A9, 0x05AB, 0x05AC, 0x05AF, 0x05C4, 0x0610, 0x0611,
	0x0612, 0x0613, 0x0614, 0x0615, 0x0616, 0x0617, 0x0657, 0x0658,
	0x0659, 0x065A, 0x065B, 0x065D, 0x065E, 0x06D6, 0x06D7, 0x06D8,
	0x06D9, 0x06DA, 0x06DB, 0x06DC, 0x06DF, 0x06E0, 0x06E1, 0x06E2,
	0x06E4, 0x06E7, 0x06E8, 0x06EB, 0x06EC, 0x0730, 0x0732, 0x0733,
	0x0735, 0x0736, 0x073A, 0x073D, 0x073F, 0x0740, 0x0741, 0x0743,
	0x0745, 0x0747, 0x0749, 0x074A, 0x07EB, 0x07EC, 0x07ED, 0x07EE,
	0x07EF, 0x07F0, 0x07F1, 0x07F3, 0x0816, 0x0817, 0x0818, 0x0819,
	0x081B, 0x081C, 0x081D, 0x081E, 0x081F, 0x0820, 0x0821, 0x0822,
	0x0823, 0x0825, 0x0826, 0x0827, 0x0829, 0x082A, 0x082B, 0x082C,
	0x082D, 0x0951, 0x0953, 0x0954, 0x0F82, 0x0F83, 0x0F86, 0x0F87,
	0x135D, 0x135E, 0x135F, 0x17DD, 0x193A, 0x1A17, 0x1A75, 0x1A76,
	0x1A77, 0x1A78, 0x1A79, 0x1A7A, 0x1A7B, 0x1A7C, 0x1B6B, 0x1B6D,
	0x1B6E, 0x1B6F, 0x1B70, 0x1B71, 0x1B72, 0x1B73, 0x1CD0, 0x1CD1,
	0x1CD2, 0x1CDA, 0x1CDB, 0x1CE0, 0x1DC0, 0x1DC1, 0x1DC3, 0x1DC4,
	0x1DC5, 0x1DC6, 0x1DC7, 0x1DC8, 0x1DC9, 0x1DCB, 0x1DCC, 0x1DD1,
	0x1DD2, 0x1DD3, 0x1DD4, 0x1DD5, 0x1DD6, 0x1DD7, 0x1DD8, 0x1DD9,
	0x1DDA, 0x1DDB, 0x1DDC, 0x1DDD, 0x1DDE, 0x1DDF, 0x1DE0, 0x1DE1,
	0x1DE2, 0x1DE3, 0x1DE4, 0x1DE5, 0x1DE6, 0x1DFE, 0x20D0, 0x20D1,
	0x20D4, 0x20D5, 0x20D6, 0x20D7, 0x20DB, 0x20DC, 0x20E1, 0x20E7,
	0x20E9, 0x20F0, 0x2CEF, 0x2CF0, 0x2CF1, 0x2DE0, 0x2DE1, 0x2DE2,
	0x2DE3, 0x2DE4, 0x2DE5, 0x2DE6, 0x2DE7, 0x2DE8, 0x2DE9, 0x2DEA,
	0x2DEB, 0x2DEC, 0x2DED, 0x2DEE, 0x2DEF, 0x2DF0, 0x2DF1, 0x2DF2,
	0x2DF3, 0x2DF4, 0x2DF5, 0x2DF6, 0x2DF7, 0x2DF8, 0x2DF9, 0x2DFA,
	0x2DFB, 0x2DFC, 0x2DFD, 0x2DFE, 0x2DFF, 0xA66F, 0xA67C, 0xA67D,
	0xA6F0, 0xA6F1, 0xA8E0, 0xA8E1, 0xA8E2, 0xA8E3, 0xA8E4, 0xA8E5,
}

var imageIDCounter uint32

func nextImageID() uint32 {
	id := atomic.AddUint32(&imageIDCounter, 1)
	return (id % 16777215) + 1
}

// Capability represents the terminal's image rendering protocol.
type Capability int

const (
	CapNone Capability = iota
	CapKitty
	CapITerm
	CapSixel
)

func (c Capability) String() string {
	switch c {
	case CapKitty:
		return "kitty"
	case CapITerm:
		return "iterm"
	case CapSixel:
		return "sixel"
	default:
		return "none"
	}
}

// DetectCapability detects the terminal's image rendering capability from
// environment variables. Detection order: Kitty -> iTerm -> Sixel -> None.
func DetectCapability() Capability {
	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return CapKitty
	}
	if strings.Contains(os.Getenv("TERM"), "kitty") {
		return CapKitty
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	if termProgram == "iTerm.app" || termProgram == "WezTerm" {
		return CapITerm
	}
	if os.Getenv("LC_TERMINAL") == "iTerm2" {
		return CapITerm
	}

	if term := os.Getenv("TERM"); strings.Contains(term, "sixel") || os.Getenv("COLORTERM") == "sixel" {
		return CapSixel
	}

	return CapNone
}

// Render loads the image referenced by ref — a local file path or an
// http(s) URL — and renders it with the detected terminal capability at a
// fixed row height (RowHeight). ok is false if the terminal has no image
// capability, the reference could not be loaded, or rendering failed; the
// caller should then fall back to the literal ref per spec.md §6.
func Render(ref string) (out string, ok bool) {
	cap := DetectCapability()
	if cap == CapNone {
		return "", false
	}

	img, err := loadImage(ref)
	if err != nil {
		return "", false
	}

	img = scaleToRowHeight(img, RowHeight)

	var buf bytes.Buffer
	switch cap {
	case CapKitty:
		placeholder, err := kittyUploadWithPlaceholders(img)
		if err != nil {
			return "", false
		}
		return placeholder, true
	case CapITerm:
		if err := rasterm.ItermWriteImage(&buf, img); err != nil {
			return "", false
		}
	case CapSixel:
		paletted := convertToPaletted(img)
		if err := rasterm.SixelWriteImage(&buf, paletted); err != nil {
			return "", false
		}
	default:
		return "", false
	}
	return buf.String(), true
}

// kittyUploadWithPlaceholders uploads the image via the Kitty graphics
// protocol and returns Unicode placeholder cells encoding the image ID, so
// the returned string is safe to splice into ordinary line-buffered output.
func kittyUploadWithPlaceholders(img goimage.Image) (string, error) {
	imageID := nextImageID()

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	b64Data := base64.StdEncoding.EncodeToString(pngBuf.Bytes())

	bounds := img.Bounds()
	cols := (bounds.Dx() + 9) / 10
	rows := (bounds.Dy() + 19) / 20
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if cols > 80 {
		cols = 80
	}
	if rows > RowHeight {
		rows = RowHeight
	}

	var result strings.Builder

	const chunkSize = 4096
	for i := 0; i < len(b64Data); i += chunkSize {
		end := i + chunkSize
		more := 1
		if end >= len(b64Data) {
			end = len(b64Data)
			more = 0
		}
		chunk := b64Data[i:end]

		if i == 0 {
			fmt.Fprintf(&result, "\x1b_Ga=T,U=1,f=100,t=d,i=%d,c=%d,r=%d,q=2,m=%d;%s\x1b\\",
				imageID, cols, rows, more, chunk)
		} else {
			fmt.Fprintf(&result, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
	}

	r := (imageID >> 16) & 0xFF
	g := (imageID >> 8) & 0xFF
	b := imageID & 0xFF
	fmt.Fprintf(&result, "\x1b[38;2;%d;%d;%dm", r, g, b)

	placeholderRune := rune(0x10EEEE)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			result.WriteRune(placeholderRune)
			result.WriteRune(rowColDiacritics[row])
			result.WriteRune(rowColDiacritics[col])
		}
		if row < rows-1 {
			result.WriteByte('\n')
		}
	}

	result.WriteString("\x1b[39m")

	return result.String(), nil
}

// loadImage decodes an image from a local path or, if ref parses as an
// http(s) URL, fetches it first.
func loadImage(ref string) (goimage.Image, error) {
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetchImage(ref)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := goimage.Decode(f)
	return img, err
}

func fetchImage(ref string) (goimage.Image, error) {
	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Get(ref)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}
	img, _, err := goimage.Decode(bytes.NewReader(body))
	return img, err
}

// scaleToRowHeight scales img so it renders at exactly rows terminal rows
// tall, preserving aspect ratio, using the same ~10x20px cell approximation
// the Kitty placeholder sizing uses.
func scaleToRowHeight(img goimage.Image, rows int) goimage.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if height == 0 {
		return img
	}

	targetHeight := rows * 20
	if height == targetHeight {
		return img
	}

	targetWidth := (width * targetHeight) / height
	if targetWidth < 1 {
		targetWidth = 1
	}

	dst := goimage.NewRGBA(goimage.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// convertToPaletted converts an image to a paletted image for Sixel output
// using a fixed 6x6x6 color cube plus 40 grays.
func convertToPaletted(img goimage.Image) *goimage.Paletted {
	bounds := img.Bounds()

	palette := make(color.Palette, 256)
	idx := 0
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				palette[idx] = color.RGBA{R: uint8(r * 51), G: uint8(g * 51), B: uint8(b * 51), A: 255}
				idx++
			}
		}
	}
	for i := 0; i < 40; i++ {
		gray := uint8(i * 255 / 39)
		palette[idx] = color.RGBA{R: gray, G: gray, B: gray, A: 255}
		idx++
	}

	paletted := goimage.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(paletted, bounds, img, bounds.Min)
	return paletted
}
