package render

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/constraints"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/params"
)

type colorMode string

const (
	colorModeChromatic colorMode = "chromatic"
	colorModeFire      colorMode = "fire"
	colorModeAurora    colorMode = "aurora"
	colorModeMono      colorMode = "mono"
)

var colorModeNames = []string{
	string(colorModeChromatic),
	string(colorModeFire),
	string(colorModeAurora),
	string(colorModeMono),
}

// ColorModeNames returns the supported color modes.
func ColorModeNames() []string {
	out := make([]string, len(colorModeNames))
	copy(out, colorModeNames)
	sort.Strings(out)
	return out
}

func parseColorMode(name string) colorMode {
	switch strings.ToLower(name) {
	case "fire":
		return colorModeFire
	case "aurora", "cool":
		return colorModeAurora
	case "mono", "monochrome", "bw", "gray":
		return colorModeMono
	default:
		return colorModeChromatic
	}
}

type backend int

const (
	backendTerminal backend = iota
	backendSDL
)

// ErrRendererQuit is returned by Frame.Present when the window was closed.
var ErrRendererQuit = errors.New("renderer closed")

// Options configures a Renderer.
type Options struct {
	Palette   string
	ColorMode string
	// Lookahead is how many seconds of upcoming notes fit above the hit line.
	Lookahead float64
	UseANSI   bool
	// SDL opens a window instead of drawing to the terminal.
	SDL bool
}

// Renderer draws a chart as a four-lane highway scrolling down to a hit line.
type Renderer struct {
	width         int
	height        int
	lookahead     float64
	glyphs        Glyphs
	paletteName   string
	colorMode     colorMode
	useANSI       bool
	mode          backend
	sdl           *sdlState
	statusBuilder strings.Builder
}

// Frame contains the rendered lines and status text. Present, when set,
// displays the frame on a non-terminal backend.
type Frame struct {
	Lines   []string
	Status  string
	Present func(status string) error
}

// Status is the playback state shown under the highway.
type Status struct {
	Title    string
	Now      float64
	Duration float64
	Paused   bool
	FPS      float64
	Stats    chart.Stats
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

const defaultLookahead = 2.0

// New creates a Renderer.
func New(width, height int, opts Options) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", width, height)
	}

	r := &Renderer{
		width:   width,
		height:  height,
		useANSI: opts.UseANSI,
	}
	r.SetLookahead(opts.Lookahead)
	r.Configure(opts.Palette, opts.ColorMode)
	if opts.SDL {
		if err := r.initSDL(width, height); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Configure updates palette and color behaviour dynamically.
func (r *Renderer) Configure(paletteName, colorModeName string) {
	if paletteName == "" {
		paletteName = "blocks"
	}
	r.glyphs = Palette(paletteName)
	r.paletteName = paletteName
	r.colorMode = parseColorMode(colorModeName)
}

// SetLookahead changes the scroll speed. Non-positive values restore the default.
func (r *Renderer) SetLookahead(seconds float64) {
	if seconds <= 0 {
		seconds = defaultLookahead
	}
	r.lookahead = clamp(seconds, 0.25, 10)
}

// Lookahead returns the visible time window in seconds.
func (r *Renderer) Lookahead() float64 { return r.lookahead }

// Resize updates the framebuffer dimensions.
func (r *Renderer) Resize(width, height int) {
	changed := false
	if width > 0 && r.width != width {
		r.width = width
		changed = true
	}
	if height > 0 && r.height != height {
		r.height = height
		changed = true
	}
	if changed && r.mode == backendSDL {
		r.resizeSDL()
	}
}

// Windowed reports whether frames go to an SDL window.
func (r *Renderer) Windowed() bool { return r.mode == backendSDL && r.windowedSDL() }

// Close releases backend resources.
func (r *Renderer) Close() error {
	if r.mode == backendSDL {
		return r.closeSDL()
	}
	return nil
}

func (r *Renderer) PaletteName() string   { return r.paletteName }
func (r *Renderer) ColorModeName() string { return string(r.colorMode) }

// span is one note projected onto the highway, in rows counted from the top.
// tail is the row of the release time and is only meaningful for holds.
type span struct {
	lane   int
	head   int
	tail   int
	hold   bool
	active bool
}

// geometry maps times to rows: the hit line sits near the bottom and rows above
// it cover lookahead seconds of upcoming notes.
type geometry struct {
	rows    int
	hitRow  int
	rowTime float64
}

func newGeometry(rows int, lookahead float64) geometry {
	hit := rows - 2
	if rows < 3 {
		hit = rows - 1
	}
	hit = max(hit, 1)
	return geometry{rows: rows, hitRow: hit, rowTime: lookahead / float64(hit)}
}

func (g geometry) row(t, now float64) int {
	return g.hitRow - int(math.Round((t-now)/g.rowTime))
}

// layout projects the notes visible at time now. Notes must be sorted by timestamp.
func layout(notes []chart.Note, now float64, g geometry) []span {
	past := now - float64(g.rows-g.hitRow)*g.rowTime
	future := now + float64(g.hitRow+1)*g.rowTime
	first := sort.Search(len(notes), func(i int) bool {
		return notes[i].Timestamp >= past-maxHoldSeconds
	})

	var spans []span
	for _, n := range notes[first:] {
		if n.Timestamp > future {
			break
		}
		if n.Lane < 0 || n.Lane >= params.LaneCount {
			continue
		}
		end := n.End()
		if end < past {
			continue
		}
		s := span{lane: n.Lane, head: g.row(n.Timestamp, now), hold: n.Kind == chart.Hold}
		if s.hold {
			s.tail = g.row(end, now)
			s.active = n.Timestamp <= now && now <= end
		} else {
			s.tail = s.head
			s.active = math.Abs(n.Timestamp-now) <= g.rowTime/2
		}
		spans = append(spans, s)
	}
	return spans
}

// maxHoldSeconds bounds how far back layout searches for holds still on screen.
const maxHoldSeconds = 10.0

type lanePos struct {
	start int
	width int
}

// laneColumns splits the width into four lanes with a separator on each side.
func laneColumns(width int) [params.LaneCount]lanePos {
	var cols [params.LaneCount]lanePos
	lw := max((width-(params.LaneCount+1))/params.LaneCount, 1)
	for i := range cols {
		cols[i] = lanePos{start: 1 + i*(lw+1), width: lw}
	}
	return cols
}

type cell struct {
	ch    rune
	color int
}

// Render draws the highway at playback time now.
func (r *Renderer) Render(notes []chart.Note, now float64, st Status) Frame {
	status := r.buildStatus(st)
	if r.width <= 0 || r.height <= 0 {
		return Frame{Status: status}
	}

	g := newGeometry(r.height, r.lookahead)
	spans := layout(notes, now, g)
	if r.mode == backendSDL {
		return r.renderSDL(spans, g, status)
	}

	grid := r.paintGrid(spans, g)
	width := r.width
	lines := make([]string, r.height)

	numWorkers := runtime.GOMAXPROCS(0)
	numWorkers = clamp(numWorkers, 1, r.height)

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowJobs {
				var builder strings.Builder
				builder.Grow(width * 8)
				lastColor := -1
				for x := 0; x < width; x++ {
					c := grid[y*width+x]
					if r.useANSI && c.color != lastColor {
						builder.WriteString(colorCode(c.color))
						lastColor = c.color
					}
					builder.WriteRune(c.ch)
				}
				if r.useANSI {
					builder.WriteString(resetANSI)
				}
				lines[y] = builder.String()
			}
		}()
	}
	for y := 0; y < r.height; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()

	return Frame{Lines: lines, Status: status}
}

func (r *Renderer) paintGrid(spans []span, g geometry) []cell {
	width, height := r.width, r.height
	grid := make([]cell, width*height)
	dim := hsvToANSI(0, 0, 0.35)
	for i := range grid {
		grid[i] = cell{ch: r.glyphs.Empty, color: dim}
	}
	put := func(x, y int, ch rune, color int) {
		if x >= 0 && x < width && y >= 0 && y < height {
			grid[y*width+x] = cell{ch: ch, color: color}
		}
	}

	cols := laneColumns(width)
	for _, c := range cols {
		for y := 0; y < height; y++ {
			put(c.start-1, y, r.glyphs.Separator, dim)
			put(c.start+c.width, y, r.glyphs.Separator, dim)
		}
	}

	var active [params.LaneCount]bool
	for _, s := range spans {
		c := cols[s.lane]
		if s.active {
			active[s.lane] = true
		}
		if s.hold {
			tailColor := r.laneColor(s.lane, 0.55)
			for y := max(s.tail, 0); y < min(s.head, height); y++ {
				for x := c.start; x < c.start+c.width; x++ {
					put(x, y, r.glyphs.HoldTail, tailColor)
				}
			}
		}
		head := r.glyphs.Tap
		if s.hold {
			head = r.glyphs.HoldHead
		}
		for x := c.start; x < c.start+c.width; x++ {
			put(x, s.head, head, r.laneColor(s.lane, 1))
		}
	}

	for lane, c := range cols {
		ch, color := r.glyphs.HitLine, r.laneColor(lane, 0.45)
		if active[lane] {
			ch, color = r.glyphs.HitFlash, r.laneColor(lane, 1)
		}
		for x := c.start; x < c.start+c.width; x++ {
			put(x, g.hitRow, ch, color)
		}
	}
	return grid
}

// laneHSV returns the lane's color in the current mode, scaled by brightness.
func (r *Renderer) laneHSV(lane int, brightness float64) (float64, float64, float64) {
	pos := float64(lane) / float64(params.LaneCount)
	var h, s float64
	switch r.colorMode {
	case colorModeFire:
		h, s = 0.02+pos*0.12, 0.9
	case colorModeAurora:
		h, s = 0.42+pos*0.3, 0.7
	case colorModeMono:
		h, s = 0, 0
	default:
		h, s = pos*0.85, 0.8
	}
	return h, s, clamp01(0.25 + brightness*0.75)
}

func (r *Renderer) laneColor(lane int, brightness float64) int {
	return hsvToANSI(r.laneHSV(lane, brightness))
}

func colorCode(index int) string {
	return precomputedANSI[clamp(index, 0, len(precomputedANSI)-1)]
}

func hsvToANSI(h, s, v float64) int {
	r, g, b := hsvToRGB(h, s, v)
	return rgbToANSI(r, g, b)
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	h = clamp01(h)
	s = clamp01(s)
	v = clamp01(v)

	if s == 0 {
		return v, v, v
	}

	hv := h * 6.0
	i := math.Floor(hv)
	f := hv - i
	p := v * (1.0 - s)
	q := v * (1.0 - s*f)
	t := v * (1.0 - s*(1.0-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// grayscale ramp for unsaturated colors
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		return 232 + int(clamp(math.Round(r*23), 0, 23))
	}

	ri := int(clamp(r*5+0.5, 0, 5))
	gi := int(clamp(g*5+0.5, 0, 5))
	bi := int(clamp(b*5+0.5, 0, 5))
	return 16 + 36*ri + 6*gi + bi
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func (r *Renderer) buildStatus(st Status) string {
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(128)
	if st.Paused {
		builder.WriteString("PAUSED | ")
	}
	if st.Title != "" {
		builder.WriteString(st.Title)
		builder.WriteString(" | ")
	}
	appendClock(builder, st.Now)
	builder.WriteString(" / ")
	appendClock(builder, st.Duration)
	builder.WriteString(" | lanes ")
	for i, c := range st.Stats.Lanes {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(strconv.Itoa(c))
	}
	builder.WriteString(" taps ")
	builder.WriteString(strconv.Itoa(st.Stats.Taps))
	builder.WriteString(" holds ")
	builder.WriteString(strconv.Itoa(st.Stats.Holds))
	builder.WriteString(" | speed ")
	appendFloat(builder, r.lookahead, 2)
	builder.WriteString("s fps ")
	appendFloat(builder, st.FPS, 1)
	return builder.String()
}

func appendClock(builder *strings.Builder, seconds float64) {
	tenths := int(math.Round(math.Max(seconds, 0) * 10))
	fmt.Fprintf(builder, "%d:%02d.%d", tenths/600, tenths%600/10, tenths%10)
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}
