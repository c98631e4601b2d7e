package display

import (
	"os"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

// boldFonts are drawn with the bold Go font when no TrueType file is set.
var boldFonts = map[string]bool{
	"hero_temp":   true,
	"medium_main": true,
	"small_main":  true,
}

// substitutes replace characters the bitmap font lacks and that do not
// decompose into ASCII.
var substitutes = map[rune]string{
	'°': "",
	'–': "-",
	'—': "-",
	'…': "...",
	'→': ">",
	'↑': "^",
	'↓': "v",
	'ß': "ss",
	'æ': "ae",
	'Æ': "AE",
	'ø': "o",
	'Ø': "O",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fonts holds the named faces used by the renderers.
type Fonts struct {
	faces  map[string]font.Face
	bitmap map[string]bool
}

// LoadFonts builds a face for every named size. path may name a TrueType or
// OpenType file; when it is empty or unreadable the Go fonts are used. A
// size that cannot be built falls back to the 7x13 bitmap font.
func LoadFonts(path string, sizes map[string]int) *Fonts {
	log := logger.Global().Module("display").Module("fonts")
	f := &Fonts{faces: make(map[string]font.Face, len(sizes)), bitmap: make(map[string]bool)}

	var custom *opentype.Font
	if path != "" {
		var err error
		custom, err = parseFontFile(path)
		if err != nil {
			log.Warn("font file unusable, using built-in fonts", logger.String("path", path), logger.Error(err))
		}
	}
	regular, errR := opentype.Parse(goregular.TTF)
	bold, errB := opentype.Parse(gobold.TTF)

	for name, size := range sizes {
		src := custom
		if src == nil {
			src = regular
			if boldFonts[name] {
				src = bold
			}
		}
		if src == nil || size <= 0 {
			f.setBitmap(name)
			continue
		}
		face, err := opentype.NewFace(src, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			log.Warn("font size unusable, using bitmap font", logger.String("name", name), logger.Error(err))
			f.setBitmap(name)
			continue
		}
		f.faces[name] = face
	}
	if errR != nil || errB != nil {
		log.Error("built-in fonts failed to parse", logger.Error(errors.Join(errR, errB)))
	}
	log.Debug("fonts loaded", logger.Int("count", len(f.faces)), logger.Int("bitmap", len(f.bitmap)))
	return f
}

// BitmapFonts returns a set where every name maps to the 7x13 bitmap font.
func BitmapFonts(names ...string) *Fonts {
	f := &Fonts{faces: make(map[string]font.Face), bitmap: make(map[string]bool)}
	for _, n := range names {
		f.setBitmap(n)
	}
	return f
}

func (f *Fonts) setBitmap(name string) {
	f.faces[name] = basicfont.Face7x13
	f.bitmap[name] = true
}

// Face returns the named face, or the bitmap font for unknown names.
func (f *Fonts) Face(name string) font.Face {
	if f != nil {
		if face, ok := f.faces[name]; ok {
			return face
		}
	}
	return basicfont.Face7x13
}

// First returns the first configured face of names.
func (f *Fonts) First(names ...string) font.Face {
	if f != nil {
		for _, n := range names {
			if face, ok := f.faces[n]; ok {
				return face
			}
		}
	}
	return basicfont.Face7x13
}

// Close releases the TrueType faces.
func (f *Fonts) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for name, face := range f.faces {
		if f.bitmap[name] {
			continue
		}
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fold rewrites text so the bitmap font can draw it: diacritics are
// stripped, a few symbols are replaced and anything else outside ASCII
// becomes '?'. Text for outline faces is returned unchanged.
func Fold(face font.Face, text string) string {
	if face != basicfont.Face7x13 || isASCII(text) {
		return text
	}
	var b strings.Builder
	for _, r := range text {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
			continue
		}
		if sub, ok := substitutes[r]; ok {
			b.WriteString(sub)
			continue
		}
		if folded, _, err := transform.String(stripMarks, string(r)); err == nil && folded != "" && isASCII(folded) {
			b.WriteString(folded)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("display").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, errors.New(err).
			Component("display").
			Category(errors.CategoryFileParsing).
			FileContext(path, int64(len(data))).
			Build()
	}
	return fnt, nil
}
