package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/pipeline"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output       string  // output file, base path for several formats, or "-"
	formats      string  // comma-separated output formats
	width        float64 // viewport width in pixels
	height       float64 // viewport height in pixels
	scale        float64 // PNG scale factor
	detailed     bool    // show entity type and availability in node labels
	refresh      bool    // bypass the snapshot and render caches
	noCache      bool    // disable caching entirely
	availability string  // visibility filter
	category     string  // visibility filter
	types        string  // comma-separated entity types to show
	search       string  // visibility filter
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		width:  pipeline.DefaultWidth,
		height: pipeline.DefaultHeight,
		scale:  pipeline.DefaultScale,
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the board to DOT, SVG, PNG, PDF or JSON",
		Long: `Render the selected restaurant's board as it would appear on screen:
the same bounds, positions and filters. Several formats can be produced at
once; -o is then used as the base path.`,
		Example: `  kitchenboard render -r r1                      # r1.svg
  kitchenboard render -r r1 -f svg,png -o menu    # menu.svg, menu.png
  kitchenboard render -r r1 -f dot -o -           # DOT to stdout
  kitchenboard render -r r1 --types dish --availability available`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", `output file, base path for several formats, or "-" for stdout`)
	f.StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), dot, png, pdf, json (comma-separated)")
	f.Float64Var(&opts.width, "width", opts.width, "frame width")
	f.Float64Var(&opts.height, "height", opts.height, "frame height")
	f.Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	f.BoolVar(&opts.detailed, "detailed", false, "show type and availability in labels")
	f.BoolVar(&opts.refresh, "refresh", false, "bypass cached snapshots and renders")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	f.StringVar(&opts.availability, "availability", "", "show all, available or unavailable nodes")
	f.StringVar(&opts.category, "category", "", "only show nodes of this category id")
	f.StringVar(&opts.types, "types", "", "entity types to show (comma-separated)")
	f.StringVar(&opts.search, "search", "", "only show nodes whose name or entity id matches")
	_ = cmd.RegisterFlagCompletionFunc("format", listCompletion(formatNames...))
	_ = cmd.RegisterFlagCompletionFunc("types", listCompletion(entityTypeNames()...))
	_ = cmd.RegisterFlagCompletionFunc("availability", fixedCompletion(availabilityNames...))
	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts *renderOpts) error {
	ctx := cmd.Context()
	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	if opts.output == "-" && len(formats) != 1 {
		return fmt.Errorf("stdout output needs exactly one format, got %d", len(formats))
	}
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	be, err := c.newBackend(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer be.Close()
	b, err := c.newBoard(ctx, be, opts.refresh)
	if err != nil {
		return err
	}
	b.SetFilter(filter)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	finish := timed(c.Logger, "render")
	var res *pipeline.Result
	err = withSpinner(ctx, "Rendering "+b.RestaurantID(), func() error {
		var err error
		res, err = runner.Execute(ctx, b, pipeline.Options{
			Formats:  formats,
			Width:    opts.width,
			Height:   opts.height,
			Scale:    opts.scale,
			Detailed: opts.detailed,
			Refresh:  opts.refresh,
		})
		return err
	})
	if err != nil {
		finish(err, "formats", formats)
		return err
	}
	finish(nil, "formats", formats, "hash", res.SceneHash)

	if opts.output == "-" {
		_, err := defaultOut.Write(res.Artifacts[formats[0]])
		return err
	}
	paths, err := writeArtifacts(res.Artifacts, formats, outputBase(opts.output, b.RestaurantID()))
	if err != nil {
		return err
	}
	printSuccess("Rendered %s", StyleHighlight.Render(b.RestaurantID()))
	printStats(b.Snapshot().Stats(), res.CacheInfo.RenderHit)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// filter builds the visibility filter from the flags.
func (o *renderOpts) filter() (visibility.Filter, error) {
	f := visibility.DefaultFilter()
	a, err := visibility.ParseAvailability(o.availability)
	if err != nil {
		return f, err
	}
	f.Availability = a
	f.CategoryID = o.category
	f.Search = o.search
	if o.types != "" {
		f.EntityTypes = map[kitchen.EntityType]bool{}
		for _, name := range strings.Split(o.types, ",") {
			t, err := kitchen.ParseEntityType(name)
			if err != nil {
				return f, err
			}
			f.EntityTypes[t] = true
		}
	}
	return f, nil
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputBase strips a known format extension from output, or falls back to
// the restaurant id.
func outputBase(output, restaurantID string) string {
	if output == "" {
		return restaurantID
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if pipeline.ValidateFormat(ext) == nil {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}

// writeArtifacts writes base.<format> for every format and returns the paths.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return paths, fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
