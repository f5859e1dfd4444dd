// Package ui is a retained-mode widget tree for small displays. Layouts
// build a tree of objects under a screen, mutate leaf content in place,
// and delete the screen to cascade-delete everything under it. The tree
// itself is only ever structurally modified by the owning layout; leaf
// content (label text, chart points) is additionally touched by timers
// and is locked per object.
package ui

import (
	"encoding/json"
	"sync"
)

// Kind identifies the widget type of an Object.
type Kind string

const (
	KindScreen    Kind = "screen"
	KindContainer Kind = "container"
	KindLabel     Kind = "label"
	KindChart     Kind = "chart"
)

// Style holds the visual parameters a snapshot carries per object.
type Style struct {
	Background  string `json:"background,omitempty"`
	TextColor   string `json:"text_color,omitempty"`
	BorderColor string `json:"border_color,omitempty"`
	BorderWidth int    `json:"border_width,omitempty"`
	FontSize    int    `json:"font_size,omitempty"`
	Align       string `json:"align,omitempty"`
}

// Object is one node in the widget tree.
type Object struct {
	kind Kind

	mu    sync.Mutex
	text  string
	style Style

	x, y, w, h int

	parent   *Object
	children []*Object
	chart    *chartData
	deleted  bool
}

// NewScreen creates a root screen object of the given size.
func NewScreen(w, h int) *Object {
	return &Object{kind: KindScreen, w: w, h: h}
}

// NewContainer creates a container under parent.
func NewContainer(parent *Object) *Object {
	return newChild(parent, KindContainer)
}

// NewLabel creates a text label under parent.
func NewLabel(parent *Object) *Object {
	return newChild(parent, KindLabel)
}

func newChild(parent *Object, kind Kind) *Object {
	obj := &Object{kind: kind, parent: parent}
	parent.children = append(parent.children, obj)
	return obj
}

// Kind returns the widget type.
func (o *Object) Kind() Kind { return o.kind }

// SetText replaces a label's content.
func (o *Object) SetText(text string) {
	o.mu.Lock()
	o.text = text
	o.mu.Unlock()
}

// Text returns a label's current content.
func (o *Object) Text() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

// SetStyle replaces the object's style.
func (o *Object) SetStyle(s Style) {
	o.mu.Lock()
	o.style = s
	o.mu.Unlock()
}

// SetGeometry positions the object relative to its parent.
func (o *Object) SetGeometry(x, y, w, h int) {
	o.x, o.y, o.w, o.h = x, y, w, h
}

// Size returns the object's width and height.
func (o *Object) Size() (int, int) { return o.w, o.h }

// Delete removes the object from its parent and marks the whole subtree
// deleted. Safe to call more than once.
func (o *Object) Delete() {
	if o.deleted {
		return
	}
	if o.parent != nil {
		siblings := o.parent.children
		for i, c := range siblings {
			if c == o {
				o.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		o.parent = nil
	}
	o.markDeleted()
}

func (o *Object) markDeleted() {
	o.deleted = true
	for _, c := range o.children {
		c.markDeleted()
	}
	o.children = nil
}

// Deleted reports whether the object has been removed from the tree.
func (o *Object) Deleted() bool { return o.deleted }

// ChildCount returns the number of direct children.
func (o *Object) ChildCount() int { return len(o.children) }

// Children returns a copy of the direct children.
func (o *Object) Children() []*Object {
	out := make([]*Object, len(o.children))
	copy(out, o.children)
	return out
}

// Find walks the subtree depth-first and returns all objects of kind.
func (o *Object) Find(kind Kind) []*Object {
	var out []*Object
	if o.kind == kind {
		out = append(out, o)
	}
	for _, c := range o.children {
		out = append(out, c.Find(kind)...)
	}
	return out
}

// node is the serialized form of an Object.
type node struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Style    Style     `json:"style"`
	X        int       `json:"x"`
	Y        int       `json:"y"`
	W        int       `json:"w"`
	H        int       `json:"h"`
	Chart    *chartDoc `json:"chart,omitempty"`
	Children []*node   `json:"children,omitempty"`
}

// MarshalJSON serializes the subtree for a render snapshot.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.toNode())
}

func (o *Object) toNode() *node {
	o.mu.Lock()
	n := &node{
		Kind:  o.kind,
		Text:  o.text,
		Style: o.style,
		X:     o.x, Y: o.y, W: o.w, H: o.h,
	}
	o.mu.Unlock()

	if o.chart != nil {
		n.Chart = o.chart.doc()
	}
	for _, c := range o.children {
		n.Children = append(n.Children, c.toNode())
	}
	return n
}
