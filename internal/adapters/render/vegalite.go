// Package render builds Vega-Lite chart specifications from the derived table.
package render

// SchemaURL is the Vega-Lite schema the specs are written against.
const SchemaURL = "https://vega.github.io/schema/vega-lite/v4.17.0.json"

// Spec is a layered Vega-Lite chart.
type Spec struct {
	Schema string  `json:"$schema"`
	Config *Config `json:"config,omitempty"`
	Data   *Data   `json:"data,omitempty"`
	Layer  []Layer `json:"layer"`
	Width  string  `json:"width,omitempty"`
	Height string  `json:"height,omitempty"`
}

// Config holds chart-wide styling.
type Config struct {
	Legend *LegendConfig `json:"legend,omitempty"`
	View   *ViewConfig   `json:"view,omitempty"`
}

// LegendConfig places the legend.
type LegendConfig struct {
	Orient  string `json:"orient,omitempty"`
	Columns int    `json:"columns,omitempty"`
}

// ViewConfig sets the fallback size when the container has none.
type ViewConfig struct {
	ContinuousWidth  int `json:"continuousWidth,omitempty"`
	ContinuousHeight int `json:"continuousHeight,omitempty"`
}

// Data carries inline rows.
type Data struct {
	Values []Datum `json:"values"`
}

// Datum is one row of the embedded dataset.
type Datum struct {
	Country                string  `json:"Country"`
	Date                   string  `json:"Date"`
	Deaths                 int     `json:"Deaths"`
	DailyDelta             int     `json:"DailyDelta"`
	WeeklySum              int     `json:"WeeklySum"`
	DailyRate              float64 `json:"DailyRate"`
	DaySinceDeathThreshold *int    `json:"DaySinceDeathThreshold"`
	DaySinceRateThreshold  *int    `json:"DaySinceRateThreshold"`
}

// Layer is one mark with its encoding.
type Layer struct {
	Mark      Mark                 `json:"mark"`
	Encoding  Encoding             `json:"encoding"`
	Selection map[string]Selection `json:"selection,omitempty"`
	Transform []Transform          `json:"transform,omitempty"`
}

// Mark describes the geometry.
type Mark struct {
	Type     string  `json:"type"`
	Size     float64 `json:"size,omitempty"`
	Align    string  `json:"align,omitempty"`
	Baseline string  `json:"baseline,omitempty"`
	Dx       int     `json:"dx,omitempty"`
}

// Encoding maps data fields to visual channels.
type Encoding struct {
	X       *Field       `json:"x,omitempty"`
	Y       *Field       `json:"y,omitempty"`
	Color   *Field       `json:"color,omitempty"`
	Text    *Field       `json:"text,omitempty"`
	Opacity *Conditional `json:"opacity,omitempty"`
	Tooltip []Field      `json:"tooltip,omitempty"`
}

// Field is a channel definition. Aggregate is either an operation name
// ("max") or an ArgAggregate.
type Field struct {
	Field     string `json:"field"`
	Type      string `json:"type"`
	Aggregate any    `json:"aggregate,omitempty"`
	Axis      *Axis  `json:"axis,omitempty"`
	Scale     *Scale `json:"scale,omitempty"`
}

// ArgAggregate selects the value at the row maximizing another field.
type ArgAggregate struct {
	Argmax string `json:"argmax"`
}

// Axis configures the axis of a positional channel.
type Axis struct {
	Title       string `json:"title,omitempty"`
	TickMinStep int    `json:"tickMinStep,omitempty"`
}

// Scale configures the scale of a channel.
type Scale struct {
	Type   string `json:"type,omitempty"`
	Domain []any  `json:"domain,omitempty"`
}

// Conditional switches a value on selection membership.
type Conditional struct {
	Condition ConditionalValue `json:"condition"`
	Value     float64          `json:"value"`
}

// ConditionalValue is the value used inside the selection.
type ConditionalValue struct {
	Selection string  `json:"selection"`
	Value     float64 `json:"value"`
}

// Selection is a Vega-Lite v4 selection definition.
type Selection struct {
	Type      string   `json:"type"`
	Fields    []string `json:"fields,omitempty"`
	Encodings []string `json:"encodings,omitempty"`
	Bind      string   `json:"bind,omitempty"`
}

// Transform is a filter transform; Filter is an expression string or a
// SelectionFilter.
type Transform struct {
	Filter any `json:"filter"`
}

// SelectionFilter keeps rows inside a named selection.
type SelectionFilter struct {
	Selection string `json:"selection"`
}

// Vega-Lite measurement types.
const (
	TypeQuantitative = "quantitative"
	TypeTemporal     = "temporal"
	TypeNominal      = "nominal"
)
