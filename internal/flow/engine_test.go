package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/boxflow/internal/flowtree"
	"github.com/dgallion1/boxflow/internal/measure"
)

const onePage = `<div class="page"><div class="box" style="width:70px;height:100px"></div></div>`

func elements(t *testing.T, src string) []*flowtree.Node {
	t.Helper()
	nodes, err := flowtree.ParseFragment(strings.NewReader(src))
	require.NoError(t, err)
	var out []*flowtree.Node
	for _, n := range nodes {
		if n.Kind == flowtree.ElementNode {
			n.Detach()
			out = append(out, n)
		}
	}
	return out
}

func newEngine(t *testing.T, templates string, opts Options) *Engine {
	t.Helper()
	e, err := New(elements(t, templates), measure.New(measure.WithLineHeight(10)), opts, nil)
	require.NoError(t, err)
	return e
}

// images builds a content root holding n images of 30px; three fit in a 100px box.
func images(t *testing.T, n int) *flowtree.Node {
	t.Helper()
	return elements(t, "<div>"+strings.Repeat(`<img height="30">`, n)+"</div>")[0]
}

func countImages(n *flowtree.Node) int {
	return len(n.FindAll(flowtree.MustCompile("img")))
}

func TestFlowSimplex(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 9)})
	require.NoError(t, err)

	require.Len(t, run.Pages, 3)
	assert.Equal(t, 2, run.Splits)
	for i, p := range run.Pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, 0, p.Item)
		v, _ := p.Root.Attr("page-number")
		assert.Equal(t, []string{"1", "2", "3"}[i], v)
		require.Len(t, p.Boxes, 1)
		assert.Equal(t, 3, countImages(p.Boxes[0]), "page %d", p.Number)
	}
}

func TestFlowFitIsStrict(t *testing.T) {
	// The third image would end exactly on the bottom edge, so it moves.
	e := newEngine(t, `<div class="page"><div class="box" style="width:70px;height:90px"></div></div>`, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 3)})
	require.NoError(t, err)
	require.Len(t, run.Pages, 2)
	assert.Equal(t, 2, countImages(run.Pages[0].Boxes[0]))
	assert.Equal(t, 1, countImages(run.Pages[1].Boxes[0]))
}

func TestFlowEachItemStartsFresh(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 4), images(t, 1)})
	require.NoError(t, err)

	require.Len(t, run.Pages, 3)
	assert.Equal(t, []int{2, 1}, run.PagesPerItem(2))
	assert.Equal(t, 1, run.Pages[2].Number)
	assert.Equal(t, 1, run.Pages[2].Item)
}

func TestFlowDuplexPadsWithEmptyPage(t *testing.T) {
	e := newEngine(t, onePage, Options{Pagination: Duplex})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 9), images(t, 3)})
	require.NoError(t, err)

	require.Len(t, run.Pages, 6)
	assert.Equal(t, []int{4, 2}, run.PagesPerItem(2))
	pad := run.Pages[3]
	assert.Equal(t, 4, pad.Number)
	assert.False(t, pad.Filler)
	assert.Empty(t, pad.Boxes[0].Children)
	assert.Empty(t, run.Pages[5].Boxes[0].Children)
}

func TestFlowDuplexUsesFiller(t *testing.T) {
	tpl := onePage + `<div class="page filler-page"><p>intentionally blank</p></div>`
	e := newEngine(t, tpl, Options{Pagination: Duplex})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 1), images(t, 1)})
	require.NoError(t, err)

	require.Len(t, run.Pages, 4)
	for _, i := range []int{1, 3} {
		p := run.Pages[i]
		assert.True(t, p.Filler)
		assert.Equal(t, -1, p.Template)
		assert.Equal(t, 2, p.Number)
		assert.Equal(t, "intentionally blank", p.Root.TextContent())
	}
	// Each use is a separate copy.
	assert.NotSame(t, run.Pages[1].Root, run.Pages[3].Root)
}

func TestFlowRepeatFillsFreeBoxes(t *testing.T) {
	tpl := `<div class="sheet">` +
		`<div class="box" style="width:70px;height:100px"></div>` +
		`<div class="box" style="width:70px;height:100px"></div>` +
		`</div>`
	e := newEngine(t, tpl, Options{Pagination: Repeat})
	var items []*flowtree.Node
	for range 5 {
		items = append(items, images(t, 1))
	}
	run, err := e.Flow(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, run.Pages, 3)
	assert.Equal(t, []int{1, 0, 1, 0, 1}, run.PagesPerItem(5))
	for _, p := range run.Pages[:2] {
		assert.Equal(t, 1, countImages(p.Boxes[0]))
		assert.Equal(t, 1, countImages(p.Boxes[1]))
	}
	assert.Equal(t, 1, countImages(run.Pages[2].Boxes[0]))
	assert.Empty(t, run.Pages[2].Boxes[1].Children)
}

func TestFlowRepeatFromTemplate(t *testing.T) {
	box := `<div class="box" style="width:70px;height:100px"></div>`
	tests := []struct {
		name string
		tpl  string
		want []int
	}{
		{
			name: "marked",
			tpl:  `<div class="a">` + box + `</div><div class="b repeat-from">` + box + `</div><div class="c">` + box + `</div>`,
			want: []int{0, 1, 2, 1, 2},
		},
		{
			name: "last by default",
			tpl:  `<div class="a">` + box + `</div><div class="b">` + box + `</div><div class="c">` + box + `</div>`,
			want: []int{0, 1, 2, 2, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.tpl, Options{})
			run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 15)})
			require.NoError(t, err)
			var got []int
			for _, p := range run.Pages {
				got = append(got, p.Template)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlowTemplateWithoutBoxIsSkipped(t *testing.T) {
	tpl := `<div class="cover"><h1>Title</h1></div>` + onePage
	e := newEngine(t, tpl, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 3)})
	require.NoError(t, err)

	require.Len(t, run.Pages, 2)
	assert.Equal(t, 0, run.Pages[0].Template)
	assert.Empty(t, run.Pages[0].Boxes)
	assert.Equal(t, 1, run.Pages[1].Template)
	assert.Equal(t, 3, countImages(run.Pages[1].Boxes[0]))
}

func TestFlowSplitsTextAtWords(t *testing.T) {
	// 10 characters per line and three lines per box: the third line
	// would touch the bottom, so two lines fit.
	tpl := `<div class="page"><div class="box" style="width:70px;height:30px"></div></div>`
	text := "aaaa bbbb  cccc dddd\neeee ffff gggg"
	e := newEngine(t, tpl, Options{})
	content := elements(t, "<div><p>"+text+"</p></div>")[0]

	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.NoError(t, err)
	require.Len(t, run.Pages, 2)

	first := run.Pages[0].Boxes[0].TextContent()
	second := run.Pages[1].Boxes[0].TextContent()
	assert.Equal(t, "aaaa bbbb  cccc dddd\n", first)
	assert.Equal(t, "eeee ffff gggg", second)
	assert.Equal(t, text, first+second)

	// The continuation keeps the ancestors' identity.
	moved := run.Pages[1].Boxes[0].FirstElementChild()
	require.NotNil(t, moved)
	assert.Equal(t, "div", moved.Tag)
	p := moved.FirstElementChild()
	require.NotNil(t, p)
	assert.Equal(t, "p", p.Tag)
	assert.Len(t, p.FindAll(flowtree.Class("jf_word")), 3)
}

func TestFlowKeepTogetherMovesWhole(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	content := elements(t, `<div><img height="60"><div class="keep-together"><img height="20"><img height="20"></div></div>`)[0]

	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.NoError(t, err)
	require.Len(t, run.Pages, 2)

	assert.Equal(t, 1, countImages(run.Pages[0].Boxes[0]))
	kept := run.Pages[1].Boxes[0].FindAll(flowtree.Class("keep-together"))
	require.Len(t, kept, 1)
	assert.Equal(t, 2, countImages(kept[0]))
}

func TestFlowAdvanceBefore(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	content := elements(t, `<div><p>a</p><div class="advance-before" id="chapter"><p>b</p></div></div>`)[0]

	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.NoError(t, err)
	require.Len(t, run.Pages, 2)

	assert.Equal(t, "a", run.Pages[0].Boxes[0].TextContent())
	box := run.Pages[1].Boxes[0]
	chapter := box.FindAll(flowtree.MustCompile("#chapter"))
	require.Len(t, chapter, 1)
	assert.False(t, chapter[0].HasClass("advance-before"))

	lay, err := measure.New(measure.WithLineHeight(10)).Measure(box)
	require.NoError(t, err)
	assert.Zero(t, lay.Top(chapter[0]))
}

func TestFlowAdvanceBeforeAtTopStays(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	content := elements(t, `<div><div class="advance-before"><p>a</p></div><p>b</p></div>`)[0]

	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.NoError(t, err)
	require.Len(t, run.Pages, 1)
	assert.Equal(t, "ab", run.Pages[0].Boxes[0].TextContent())
}

func TestFlowPageNumbers(t *testing.T) {
	tpl := `<div class="page"><div class="box" style="width:70px;height:100px"></div><span class="page-number">#</span></div>`
	e := newEngine(t, tpl, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 6), images(t, 1)})
	require.NoError(t, err)

	var got []string
	for _, p := range run.Pages {
		for _, n := range p.Root.FindAll(flowtree.Class("page-number")) {
			got = append(got, n.TextContent())
		}
	}
	assert.Equal(t, []string{"1", "2", "1"}, got)
}

func TestFlowPageNumberDirectiveRenamed(t *testing.T) {
	tpl := `<div class="page"><div class="box" style="width:70px;height:100px"></div><b class="folio"></b></div>`
	e := newEngine(t, tpl, Options{PageNumber: "folio"})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 4)})
	require.NoError(t, err)

	require.Len(t, run.Pages, 2)
	v, ok := run.Pages[1].Root.Attr("folio")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, "2", run.Pages[1].Root.FindAll(flowtree.Class("folio"))[0].TextContent())
}

func TestFlowClearsMarkers(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	content := elements(t, `<div><p>`+strings.Repeat("word ", 60)+`</p><div class="keep-together"><img height="90"></div></div>`)[0]
	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.NoError(t, err)
	require.Greater(t, run.Splits, 0)

	for _, p := range run.Pages {
		p.Root.Walk(func(n *flowtree.Node) bool {
			assert.Zero(t, n.Marks(), "node %s", n)
			return true
		})
	}
}

func TestFlowLeavesTemplatesUntouched(t *testing.T) {
	tpls := elements(t, onePage)
	e, err := New(tpls, measure.New(), Options{}, nil)
	require.NoError(t, err)
	_, err = e.Flow(context.Background(), []*flowtree.Node{images(t, 5)})
	require.NoError(t, err)

	assert.Equal(t, onePage, tpls[0].String())
}

func TestFlowNilContentMakesEmptyPage(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{nil})
	require.NoError(t, err)
	require.Len(t, run.Pages, 1)
	assert.Empty(t, run.Pages[0].Boxes[0].Children)
}

func TestFlowUnknownNodeKindIsDiagnosed(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	content := elements(t, `<div><img height="60"><img height="60"></div>`)[0]
	content.InsertBefore(&flowtree.Node{Kind: flowtree.DoctypeNode, Data: "html"}, content.Children[1])

	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.NoError(t, err)
	require.Len(t, run.Pages, 2)
	require.Len(t, run.Diagnostics, 1)
	assert.Contains(t, run.Diagnostics[0], "doctype")
}

func TestFlowPageLimit(t *testing.T) {
	e := newEngine(t, onePage, Options{MaxPagesPerItem: 5})
	content := elements(t, `<div><div class="keep-together"><img height="200"></div></div>`)[0]

	run, err := e.Flow(context.Background(), []*flowtree.Node{content})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPageLimit))
	assert.Len(t, run.Pages, 5)
}

func TestFlowMeasureError(t *testing.T) {
	e := newEngine(t, `<div class="page"><div class="box"></div></div>`, Options{})
	_, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, measure.ErrNoHeight)
}

func TestFlowCanceled(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Flow(ctx, []*flowtree.Node{images(t, 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewErrors(t *testing.T) {
	box := `<div class="box" style="height:10px"></div>`
	tests := []struct {
		name string
		tpl  string
		opts Options
		want error
	}{
		{"no templates", "", Options{}, ErrNoTemplates},
		{"only filler", `<div class="filler-page">` + box + `</div>`, Options{}, ErrNoTemplates},
		{"no boxes", `<div class="page"><p>x</p></div>`, Options{}, ErrNoBoxes},
		{"box outside cycle", `<div>` + box + `</div><div><p>cover</p></div>`, Options{}, ErrNoBoxes},
		{"bad pagination", `<div>` + box + `</div>`, Options{Pagination: "triplex"}, ErrBadPagination},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(elements(t, tt.tpl), measure.New(), tt.opts, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewBadBoxSelector(t *testing.T) {
	_, err := New(elements(t, onePage), measure.New(), Options{Box: "div > .box"}, nil)
	assert.Error(t, err)
}

func TestRunItemsAndDocument(t *testing.T) {
	e := newEngine(t, onePage, Options{})
	run, err := e.Flow(context.Background(), []*flowtree.Node{images(t, 4), images(t, 2)})
	require.NoError(t, err)

	items := run.Items()
	require.Len(t, items, 2)
	assert.Len(t, items[0], 2)
	assert.Len(t, items[1], 1)

	doc := run.Document()
	assert.True(t, doc.HasClass("pages"))
	require.Len(t, doc.Children, 3)
	assert.Same(t, run.Pages[2].Root, doc.Children[2])
	assert.Equal(t, 6, countImages(doc))
}
