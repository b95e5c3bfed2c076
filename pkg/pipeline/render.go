package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/render/nodelink"
)

// DOT returns the Graphviz source for a scene.
func DOT(s board.Scene, opts Options) string {
	return nodelink.ToDOT(s, nodelink.Options{
		Width:    opts.Width,
		Height:   opts.Height,
		Detailed: opts.Detailed,
		Colors:   opts.Colors,
	})
}

// Render generates output artifacts in the requested formats. SVG is
// rendered at most once and reused for PNG and PDF.
func Render(s board.Scene, dot string, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var svg []byte
	needSVG := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = nodelink.RenderSVG(dot)
		return svg, err
	}

	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatJSON:
			data, err = json.MarshalIndent(s, "", "  ")
		case FormatSVG:
			data, err = needSVG()
		case FormatPNG:
			if data, err = needSVG(); err == nil {
				data, err = toPNG(data, opts.Scale)
			}
		case FormatPDF:
			if data, err = needSVG(); err == nil {
				data, err = toPDF(data)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
