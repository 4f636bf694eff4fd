package render

// Glyphs is the character set used to draw the highway.
type Glyphs struct {
	Empty     rune
	Separator rune
	Tap       rune
	HoldHead  rune
	HoldTail  rune
	HitLine   rune
	HitFlash  rune
}

var (
	blockGlyphs = Glyphs{Empty: ' ', Separator: '│', Tap: '▀', HoldHead: '█', HoldTail: '┃', HitLine: '═', HitFlash: '▓'}
	asciiGlyphs = Glyphs{Empty: ' ', Separator: '|', Tap: '#', HoldHead: '#', HoldTail: '|', HitLine: '=', HitFlash: '*'}
	dotGlyphs   = Glyphs{Empty: ' ', Separator: '┆', Tap: '●', HoldHead: '◉', HoldTail: '│', HitLine: '─', HitFlash: '◎'}
)

// Palette returns the glyph set with the given name; unknown names get "blocks".
func Palette(name string) Glyphs {
	switch name {
	case "ascii":
		return asciiGlyphs
	case "dots":
		return dotGlyphs
	default:
		return blockGlyphs
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"ascii", "blocks", "dots"}
}
