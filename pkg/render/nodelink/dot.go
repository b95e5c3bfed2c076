package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/render"
)

// Default canvas size in points.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
)

// Options configures diagram generation.
type Options struct {
	// Width and Height of the canvas in points. Scene percentages are
	// scaled onto it.
	Width  float64
	Height float64

	// Detailed adds entity reference and metadata to node labels.
	Detailed bool

	// Colors maps category id to a fill colour.
	Colors map[string]string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// CategoryColors collects the colours declared on categories.
func CategoryColors(categories []kitchen.Category) map[string]string {
	colors := make(map[string]string, len(categories))
	for _, c := range categories {
		if c.Color != "" {
			colors[c.ID] = c.Color
		}
	}
	return colors
}

// ToDOT converts a scene to Graphviz DOT with pinned node positions.
func ToDOT(s board.Scene, opts Options) string {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  bb=\"0,0,%.2f,%.2f\";\n", opts.Width, opts.Height)
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  edge [fontsize=10, color=\"#666666\", fontcolor=\"#666666\"];\n")
	buf.WriteString("\n")

	for _, n := range s.Nodes {
		attrs := fmtAttrs(n, opts)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Node.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		if e.Edge.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Edge.SourceNodeID, e.Edge.TargetNodeID, e.Edge.Label)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Edge.SourceNodeID, e.Edge.TargetNodeID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// Position converts a scene projection into canvas points. Graphviz puts
// the origin bottom-left, so the vertical axis is flipped.
func Position(left, top float64, opts Options) (x, y float64) {
	opts = opts.withDefaults()
	return left / 100 * opts.Width, (100 - top) / 100 * opts.Height
}

func fmtLabel(n kitchen.Node, detailed bool) string {
	if !detailed {
		return n.Label()
	}
	parts := []string{fmt.Sprintf("%s #%s", n.EntityType, n.EntityID)}
	for _, k := range slices.Sorted(maps.Keys(n.Metadata)) {
		if k == kitchen.MetaLabel {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Metadata[k]))
	}
	return n.Label() + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(sn board.SceneNode, opts Options) []string {
	n := sn.Node
	x, y := Position(sn.Projection.Left, sn.Projection.Top, opts)
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
		fmt.Sprintf("pos=\"%.2f,%.2f!\"", x, y),
	}
	switch n.EntityType {
	case kitchen.EntityModification:
		attrs = append(attrs, "shape=ellipse")
	case kitchen.EntityCategory:
		attrs = append(attrs, "shape=folder")
	}

	style := "rounded,filled"
	if !n.Available {
		style += ",dashed"
		attrs = append(attrs, "fontcolor=grey40")
	}
	attrs = append(attrs, fmt.Sprintf("style=%q", style))
	if c, ok := opts.Colors[n.CategoryID]; ok {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
	}
	return attrs
}

// RenderSVG lays out a DOT graph with neato and renders it to SVG.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's svg header with one that scales.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
