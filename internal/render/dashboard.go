package render

import (
	"image"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// Frame is one composed display image.
type Frame struct {
	Image        *image.Gray
	RunID        string
	RenderedAt   time.Time
	ActiveGroups map[string]string // group shown per section
	Modules      []string          // modules drawn, in layout order
	Failed       []string          // modules that drew their fallback
}

// Option customizes a Dashboard.
type Option func(*Dashboard)

func WithMetrics(m *metrics.DisplayMetrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// WithRenderer registers or replaces the renderer of a module name.
func WithRenderer(name string, r Renderer) Option {
	return func(d *Dashboard) { d.renderers[name] = r }
}

// Dashboard composes the configured modules into frames.
type Dashboard struct {
	width, height int
	modules       []conf.ModuleSlot
	triggers      []conf.TriggerSettings
	renderers     map[string]Renderer
	metrics       *metrics.DisplayMetrics
	log           logger.Logger
}

func NewDashboard(ds conf.DisplaySettings, layout conf.LayoutSettings, deps Deps, opts ...Option) *Dashboard {
	d := &Dashboard{
		width:    ds.Width,
		height:   ds.Height,
		modules:  slices.Clone(layout.Modules),
		triggers: slices.Clone(layout.Triggers),
		renderers: map[string]Renderer{
			"main_weather":         NewMainWeatherRenderer(deps),
			"barometer_module":     NewBarometerRenderer(deps),
			"tomorrow_forecast":    NewTomorrowRenderer(deps),
			"wind_module":          NewWindRenderer(deps),
			"clock_module":         NewClockRenderer(deps),
			"status_module":        NewStatusRenderer(deps),
			"precipitation_module": NewPrecipitationRenderer(deps),
		},
		log: logger.Global().Module("render"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sections returns the group shown in every section of the layout for the
// given trigger values.
func (d *Dashboard) Sections(values map[string]float64) map[string]string {
	active := ActiveGroups(d.triggers, values)
	sections := make(map[string]string)
	for _, m := range d.modules {
		if g, ok := active[m.Section]; ok {
			sections[m.Section] = g
		} else {
			sections[m.Section] = DefaultGroup
		}
	}
	return sections
}

// Render draws snap as seen at now, which should be in the display zone.
func (d *Dashboard) Render(snap *weather.WeatherSnapshot, now time.Time) *Frame {
	start := time.Now()
	runID := uuid.NewString()
	log := d.log.With(logger.String("run_id", runID))

	values := NewTriggerContext(snap, now)
	sections := d.Sections(values)
	ctx := Context{Now: now, Values: values, RunID: runID}

	canvas := display.NewCanvas(d.width, d.height)
	frame := &Frame{
		Image:        canvas.Image(),
		RunID:        runID,
		RenderedAt:   now,
		ActiveGroups: sections,
	}

	for _, slot := range d.modules {
		if !slot.Enabled || sections[slot.Section] != slot.Group {
			continue
		}
		r, ok := d.renderers[slot.Name]
		if !ok {
			log.Warn("no renderer for module", logger.String("module", slot.Name))
			frame.Failed = append(frame.Failed, slot.Name)
			d.metrics.RecordModuleFailure(slot.Name)
			continue
		}
		rect := image.Rect(slot.X, slot.Y, slot.X+slot.Width, slot.Y+slot.Height)
		drawBorder(canvas, rect)
		frame.Modules = append(frame.Modules, slot.Name)
		if !r.Render(canvas, rect, snap, ctx) {
			frame.Failed = append(frame.Failed, slot.Name)
			d.metrics.RecordModuleFailure(slot.Name)
		}
	}

	status := metrics.StatusSuccess
	if len(frame.Failed) > 0 {
		status = metrics.StatusError
	}
	d.metrics.RecordRender(status, time.Since(start))
	log.Info("frame rendered",
		logger.Any("sections", maps.Clone(sections)),
		logger.Int("modules", len(frame.Modules)),
		logger.Int("failed", len(frame.Failed)),
		logger.Duration("duration", time.Since(start)))
	return frame
}

// drawBorder draws the double frame and corner mark around a module.
func drawBorder(c *display.Canvas, r image.Rectangle) {
	c.Rect(r, 2)
	c.Rect(r.Inset(3), 1)
	x, y := r.Min.X, r.Min.Y
	c.Line(image.Pt(x+8, y+8), image.Pt(x+20, y+8))
	c.Line(image.Pt(x+8, y+8), image.Pt(x+8, y+20))
}
