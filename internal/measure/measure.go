// Package measure estimates where content lands inside a fixed-size box.
//
// It is a deliberately small layout model: block elements stack, inline content
// breaks into lines of a fixed height, words wrap at the box width using glyph
// advances from a font face. It answers the three questions the flow engine asks:
// where does a node start, how tall is it, and where is the bottom of the box.
package measure

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// ErrNoHeight is returned for boxes whose height cannot be determined.
var ErrNoHeight = errors.New("box has no height")

// Oracle measures the content of a box.
type Oracle interface {
	Measure(box *flowtree.Node) (Layout, error)
}

// Layout reports geometry relative to the top of the measured box.
type Layout interface {
	Top(n *flowtree.Node) float64
	Height(n *flowtree.Node) float64
	Bottom() float64
}

// Flow is the default Oracle.
type Flow struct {
	face       font.Face
	lineHeight float64
}

// Option configures a Flow oracle.
type Option func(*Flow)

// WithFace sets the face used for glyph advances.
func WithFace(face font.Face) Option {
	return func(f *Flow) { f.face = face }
}

// WithLineHeight overrides the line height taken from the face metrics.
func WithLineHeight(h float64) Option {
	return func(f *Flow) {
		if h > 0 {
			f.lineHeight = h
		}
	}
}

// New returns a Flow oracle. Without options it measures with basicfont.Face7x13.
func New(opts ...Option) *Flow {
	f := &Flow{face: basicfont.Face7x13}
	for _, opt := range opts {
		opt(f)
	}
	if f.lineHeight <= 0 {
		f.lineHeight = float64(f.face.Metrics().Height.Ceil())
	}
	return f
}

// LineHeight returns the height of one line of text.
func (f *Flow) LineHeight() float64 { return f.lineHeight }

// Measure lays out the content of box.
func (f *Flow) Measure(box *flowtree.Node) (Layout, error) {
	w, h := BoxSize(box)
	if h <= 0 {
		return nil, fmt.Errorf("measure <%s>: %w", box.Tag, ErrNoHeight)
	}
	return &layout{flow: f, box: box, width: w, height: h}, nil
}

// BoxSize reads a box's width and height from its style or attributes.
// Zero means unknown.
func BoxSize(n *flowtree.Node) (w, h float64) {
	w, _ = length(n, "width")
	h, _ = length(n, "height")
	return w, h
}

// length reads a CSS pixel length from the style attribute, falling back to the
// plain attribute of the same name.
func length(n *flowtree.Node, prop string) (float64, bool) {
	if px, ok := styleLength(n, prop); ok {
		return px, true
	}
	if v, ok := n.Attr(prop); ok {
		return parsePx(v)
	}
	return 0, false
}

func styleLength(n *flowtree.Node, prop string) (float64, bool) {
	style, ok := n.Attr("style")
	if !ok {
		return 0, false
	}
	for _, decl := range strings.Split(style, ";") {
		k, v, found := strings.Cut(decl, ":")
		if !found || strings.TrimSpace(strings.ToLower(k)) != prop {
			continue
		}
		return parsePx(v)
	}
	return 0, false
}

func parsePx(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
	px, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || px < 0 {
		return 0, false
	}
	return px, true
}
