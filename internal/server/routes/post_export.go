package routes

import (
	"net/http"

	"github.com/urbanair/aqkg/pkg/graph"

	"github.com/labstack/echo/v4"
)

// ExportHandler renders a fragment as the vis-network graph document.
func ExportHandler(c echo.Context) error {
	f, err := readFragment(c, false)
	if err != nil {
		return badFragment(c, err)
	}
	return c.JSON(http.StatusOK, graph.ExportVis(f))
}
