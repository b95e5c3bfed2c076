// Package render turns board scenes into static images.
//
// The [nodelink] subpackage converts a scene into Graphviz DOT with every
// node pinned at its projected position, and renders it to SVG in-process.
// This package holds the format conversion shared by all renderers:
// [ToPDF] and [ToPNG] convert an SVG with the external rsvg-convert tool
// (from librsvg).
//
//	dot := nodelink.ToDOT(scene, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//	png, err := render.ToPNG(svg, 2.0) // 2x scale
//
// [nodelink]: github.com/matzehuels/kitchenboard/pkg/render/nodelink
package render
