package routes

import (
	"net/http"

	"github.com/urbanair/aqkg/pkg/graph"
	"github.com/urbanair/aqkg/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ImportHandler writes a fragment into the graph database.
func ImportHandler(c echo.Context) error {
	type importResponse struct {
		Nodes int `json:"nodes"`
		Edges int `json:"edges"`
	}

	storage := app(c).Storage
	if storage == nil {
		return jsonError(c, http.StatusServiceUnavailable, "Graph storage is not configured")
	}

	f, err := readFragment(c, false)
	if err != nil {
		return badFragment(c, err)
	}

	if err := graph.ImportFragment(c.Request().Context(), storage, f); err != nil {
		logger.Error("[Server] Import failed", "err", err)
		return jsonError(c, http.StatusInternalServerError, "Internal server error")
	}

	nodes, edges := graph.BuildGraph(f)
	return c.JSON(http.StatusOK, importResponse{Nodes: len(nodes), Edges: len(edges)})
}
