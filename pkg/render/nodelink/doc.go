// Package nodelink renders board scenes as pinned node-link diagrams.
//
// # Overview
//
// [ToDOT] writes a Graphviz graph for the neato engine in which every node
// carries a fixed position (pos="x,y!") taken from its scene projection.
// Graphviz only draws: it never moves a node, so the image matches what
// the board shows. Edges are splined between the pinned endpoints.
//
// # Usage
//
//	dot := nodelink.ToDOT(scene, nodelink.Options{Width: 1200, Height: 800})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(dot)
//	png, err := nodelink.RenderPNG(dot, 2.0) // 2x scale
//
// # Styling
//
// Dishes are rounded boxes, modifications ellipses and category nodes
// folders. A node is filled with its category colour when one is given in
// [Options.Colors]. Unavailable nodes are dashed with grey text.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
