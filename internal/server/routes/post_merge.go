package routes

import (
	"encoding/json"
	"net/http"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/graph"

	"github.com/labstack/echo/v4"
)

// MergeHandler merges an incoming fragment into a base fragment. A missing
// base is an empty fragment. Without a threshold the server default is used.
func MergeHandler(c echo.Context) error {
	type mergeBody struct {
		Base      json.RawMessage `json:"base"`
		Incoming  json.RawMessage `json:"incoming" validate:"required"`
		Threshold *int            `json:"threshold" validate:"omitempty,min=0,max=100"`
	}

	type mergeResponse struct {
		Merged *common.Fragment `json:"merged"`
		Stats  graph.MergeStats `json:"stats"`
	}

	data := new(mergeBody)
	if err := c.Bind(data); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	base := common.NewFragment()
	if len(data.Base) > 0 {
		f, err := common.Decode(data.Base)
		if err != nil {
			return badFragment(c, err)
		}
		base = f
	}
	incoming, err := common.Decode(data.Incoming)
	if err != nil {
		return badFragment(c, err)
	}

	threshold := app(c).Threshold
	if data.Threshold != nil {
		threshold = *data.Threshold
	}
	stats := graph.Merge(base, incoming, threshold)

	return c.JSON(http.StatusOK, mergeResponse{Merged: base, Stats: stats})
}
