package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/boxflow/internal/config"
	"github.com/dgallion1/boxflow/internal/flow"
	"github.com/dgallion1/boxflow/internal/flowtree"
	"github.com/dgallion1/boxflow/internal/measure"
	"github.com/dgallion1/boxflow/internal/parser"
)

type renderOptions struct {
	templates       string
	pages           string
	optionsFile     string
	pagination      string
	box             string
	contentSelector string
	sectionLevel    int
	lineHeight      float64
	maxPages        int
	output          string
	tree            bool
}

var renderFlags renderOptions

var renderCmd = &cobra.Command{
	Use:   "render [flags] FILE...",
	Short: "Paginate content files into a template document",
	Long: `Parses every FILE into content items, flows them into the page templates
found in --templates and writes the host document, pages in place, to stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd, cmd.ErrOrStderr())
		return runRender(cmd.Context(), renderFlags, args, cmd.OutOrStdout(), cmd.ErrOrStderr(), log)
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderFlags.templates, "templates", "t", "", "HTML document holding the page templates (required)")
	f.StringVar(&renderFlags.pages, "pages", "", "Selector for the page templates (default: every element in <body>)")
	f.StringVarP(&renderFlags.optionsFile, "config", "c", "", "YAML file of flow options")
	f.StringVar(&renderFlags.pagination, "pagination", "", "simplex, duplex or repeat")
	f.StringVar(&renderFlags.box, "box", "", "Selector for the boxes content flows into")
	f.StringVar(&renderFlags.contentSelector, "content-selector", "", "Selector picking the content of HTML inputs")
	f.IntVar(&renderFlags.sectionLevel, "section-level", 0, "Start a content item at each heading of this level or above (0: one item per file)")
	f.Float64Var(&renderFlags.lineHeight, "line-height", 0, "Line height in pixels used for measuring")
	f.IntVar(&renderFlags.maxPages, "max-pages", 0, "Page limit per content item")
	f.StringVarP(&renderFlags.output, "output", "o", "", "Write to this file instead of stdout")
	f.BoolVar(&renderFlags.tree, "tree", false, "Print the tree of every page to stderr")
	_ = renderCmd.MarkFlagRequired("templates")

	rootCmd.AddCommand(renderCmd)
}

func (o renderOptions) flowOptions() (flow.Options, error) {
	opts := flow.DefaultOptions()
	if o.optionsFile != "" {
		var err error
		if opts, err = config.LoadOptionsFile(o.optionsFile); err != nil {
			return opts, err
		}
	}
	if o.pagination != "" {
		p, err := flow.ParsePagination(o.pagination)
		if err != nil {
			return opts, err
		}
		opts.Pagination = p
	}
	if o.box != "" {
		opts.Box = o.box
	}
	if o.maxPages > 0 {
		opts.MaxPagesPerItem = o.maxPages
	}
	return opts, nil
}

func runRender(ctx context.Context, o renderOptions, files []string, stdout, stderr io.Writer, log *slog.Logger) error {
	opts, err := o.flowOptions()
	if err != nil {
		return err
	}

	tf, err := os.Open(o.templates)
	if err != nil {
		return err
	}
	td, err := parser.LoadTemplates(tf, o.pages)
	tf.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", o.templates, err)
	}

	parseOpts := parser.Options{ContentSelector: o.contentSelector, SectionLevel: o.sectionLevel, PDFFallback: true}
	var contents []*flowtree.Node
	for _, name := range files {
		items, err := parseFile(name, parseOpts)
		if err != nil {
			return err
		}
		log.Debug("parsed", "file", name, "items", len(items))
		contents = append(contents, items...)
	}

	var mopts []measure.Option
	if o.lineHeight > 0 {
		mopts = append(mopts, measure.WithLineHeight(o.lineHeight))
	}
	engine, err := flow.New(td.Templates(), measure.New(mopts...), opts, log)
	if err != nil {
		return err
	}
	run, err := engine.Flow(ctx, contents)
	if err != nil {
		return err
	}
	for _, d := range run.Diagnostics {
		log.Warn(d)
	}
	if o.tree {
		for _, p := range run.Pages {
			fmt.Fprintln(stderr, flowtree.Dump(p.Root))
		}
	}

	out := stdout
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := td.Render(out, run); err != nil {
		return err
	}
	log.Info("rendered", "items", len(contents), "pages", len(run.Pages), "splits", run.Splits)
	return nil
}

func parseFile(name string, opts parser.Options) ([]*flowtree.Node, error) {
	p, err := parser.ForFile(name, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := p.Parse(f, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return items, nil
}
