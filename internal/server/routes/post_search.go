package routes

import (
	"net/http"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"

	"github.com/labstack/echo/v4"
)

// SearchHandler returns the nodes most similar to a free-text query.
func SearchHandler(c echo.Context) error {
	type searchBody struct {
		Query string `json:"query" validate:"required"`
		Label string `json:"label" validate:"omitempty,oneof=Pollutant Source MitigationMeasure MeteorologicalFactor StreetCanyon"`
		TopK  int    `json:"top_k" validate:"min=0,max=100"`
	}

	type searchResponse struct {
		Nodes []common.ScoredNode `json:"nodes"`
	}

	data := new(searchBody)
	if err := c.Bind(data); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	a := app(c)
	if a.Storage == nil || a.AiClient == nil {
		return jsonError(c, http.StatusServiceUnavailable, "Search is not configured")
	}

	nodes, err := store.Search(c.Request().Context(), a.Storage, a.AiClient, data.Query, data.Label, data.TopK)
	if err != nil {
		logger.Error("[Server] Search failed", "err", err)
		return jsonError(c, http.StatusInternalServerError, "Internal server error")
	}
	if nodes == nil {
		nodes = []common.ScoredNode{}
	}
	return c.JSON(http.StatusOK, searchResponse{Nodes: nodes})
}
