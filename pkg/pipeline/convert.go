package pipeline

import "github.com/matzehuels/kitchenboard/pkg/render"

var (
	renderToPNG = render.ToPNG
	renderToPDF = render.ToPDF
)

// Swapped out in tests that have no librsvg.
var (
	toPNG = renderToPNG
	toPDF = renderToPDF
)
