package ui

import "sync"

// chartData is the point series behind a chart object. Points are kept
// in shift mode: the series holds a fixed count and every push drops the
// oldest point, matching the display's scrolling behavior.
type chartData struct {
	mu       sync.Mutex
	points   []float64
	capacity int
	min, max float64
	last     float64
}

// chartDoc is the serialized form of a chart series.
type chartDoc struct {
	Points   []float64 `json:"points"`
	RangeMin float64   `json:"range_min"`
	RangeMax float64   `json:"range_max"`
}

// NewChart creates a chart under parent holding capacity points, all
// initialized to zero so the rendered line is connected from the start.
func NewChart(parent *Object, capacity int) *Object {
	if capacity < 1 {
		capacity = 1
	}
	obj := newChild(parent, KindChart)
	obj.chart = &chartData{
		points:   make([]float64, capacity),
		capacity: capacity,
		min:      0,
		max:      100,
	}
	return obj
}

// PushValue appends a point, shifting the oldest one out.
func (o *Object) PushValue(v float64) {
	c := o.chart
	if c == nil {
		return
	}
	c.mu.Lock()
	copy(c.points, c.points[1:])
	c.points[c.capacity-1] = v
	c.last = v
	c.mu.Unlock()
}

// RepeatLast pushes the most recent value again. Scroll timers call this
// between sensor updates so the trace keeps moving.
func (o *Object) RepeatLast() {
	c := o.chart
	if c == nil {
		return
	}
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	o.PushValue(last)
}

// SetLast records the value the scroll timer repeats without pushing a
// point immediately.
func (o *Object) SetLast(v float64) {
	c := o.chart
	if c == nil {
		return
	}
	c.mu.Lock()
	c.last = v
	c.mu.Unlock()
}

// SetRange sets the chart's y-axis range.
func (o *Object) SetRange(min, max float64) {
	c := o.chart
	if c == nil {
		return
	}
	c.mu.Lock()
	c.min, c.max = min, max
	c.mu.Unlock()
}

// Range returns the chart's y-axis range.
func (o *Object) Range() (float64, float64) {
	c := o.chart
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.min, c.max
}

// PointCount returns the fixed series capacity.
func (o *Object) PointCount() int {
	if o.chart == nil {
		return 0
	}
	return o.chart.capacity
}

// Points returns a copy of the series.
func (o *Object) Points() []float64 {
	c := o.chart
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.points))
	copy(out, c.points)
	return out
}

func (c *chartData) doc() *chartDoc {
	c.mu.Lock()
	defer c.mu.Unlock()
	pts := make([]float64, len(c.points))
	copy(pts, c.points)
	return &chartDoc{Points: pts, RangeMin: c.min, RangeMax: c.max}
}
