package flow

import "fmt"

// Pagination selects where each content item starts.
type Pagination string

const (
	// Simplex starts every content item on a fresh first page.
	Simplex Pagination = "simplex"
	// Duplex is Simplex plus a blank or filler page so every item has an even page count.
	Duplex Pagination = "duplex"
	// Repeat starts every content item in the next free box, e.g. labels many-up on a sheet.
	Repeat Pagination = "repeat"
)

// Options names the directives the engine recognises. The defaults match the
// class names used by hand-written templates.
type Options struct {
	Box           string     `yaml:"box"`
	Pagination    Pagination `yaml:"pagination"`
	KeepTogether  string     `yaml:"keep_together"`
	AdvanceBefore string     `yaml:"advance_before"`
	PageNumber    string     `yaml:"page_number"`
	RepeatFrom    string     `yaml:"repeat_from"`
	FillerPage    string     `yaml:"filler_page"`
	ClassPrefix   string     `yaml:"class_prefix"`

	// MaxPagesPerItem bounds the pages one content item may produce. Content
	// that no box can hold hits this bound instead of looping forever.
	MaxPagesPerItem int `yaml:"max_pages_per_item"`
}

// DefaultOptions returns the stock directive names.
func DefaultOptions() Options {
	return Options{
		Box:             ".box",
		Pagination:      Simplex,
		KeepTogether:    "keep-together",
		AdvanceBefore:   "advance-before",
		PageNumber:      "page-number",
		RepeatFrom:      "repeat-from",
		FillerPage:      "filler-page",
		ClassPrefix:     "jf_",
		MaxPagesPerItem: 500,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Box == "" {
		o.Box = d.Box
	}
	if o.Pagination == "" {
		o.Pagination = d.Pagination
	}
	if o.KeepTogether == "" {
		o.KeepTogether = d.KeepTogether
	}
	if o.AdvanceBefore == "" {
		o.AdvanceBefore = d.AdvanceBefore
	}
	if o.PageNumber == "" {
		o.PageNumber = d.PageNumber
	}
	if o.RepeatFrom == "" {
		o.RepeatFrom = d.RepeatFrom
	}
	if o.FillerPage == "" {
		o.FillerPage = d.FillerPage
	}
	if o.ClassPrefix == "" {
		o.ClassPrefix = d.ClassPrefix
	}
	if o.MaxPagesPerItem <= 0 {
		o.MaxPagesPerItem = d.MaxPagesPerItem
	}
	return o
}

// Validate checks the pagination mode.
func (o Options) Validate() error {
	switch o.Pagination {
	case Simplex, Duplex, Repeat, "":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrBadPagination, o.Pagination)
}

// ParsePagination converts a user supplied mode name.
func ParsePagination(s string) (Pagination, error) {
	p := Pagination(s)
	if err := (Options{Pagination: p}).Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (o Options) textClass() string { return o.ClassPrefix + "text" }

func (o Options) wordClass() string { return o.ClassPrefix + "word" }
