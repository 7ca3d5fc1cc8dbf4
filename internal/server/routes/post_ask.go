package routes

import (
	"net/http"

	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/query"

	"github.com/labstack/echo/v4"
)

// AskHandler answers a question from the graph. The response carries the
// labels searched and the nodes retrieved next to the answer.
func AskHandler(c echo.Context) error {
	type askBody struct {
		Question string `json:"question" validate:"required"`
		Label    string `json:"label" validate:"omitempty,oneof=Pollutant Source MitigationMeasure MeteorologicalFactor StreetCanyon"`
		TopK     int    `json:"top_k" validate:"min=0,max=100"`
	}

	data := new(askBody)
	if err := c.Bind(data); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	a := app(c)
	if a.Storage == nil || a.AiClient == nil {
		return jsonError(c, http.StatusServiceUnavailable, "Question answering is not configured")
	}

	type askResponse struct {
		query.Answer
		Trace query.QueryTraceSnapshot `json:"trace"`
	}

	trace := query.NewQueryTrace()
	client := query.NewQueryClient(a.AiClient, a.Storage, query.QueryOptions{
		Model:    a.AskModel,
		Thinking: a.Thinking,
		Label:    data.Label,
		TopK:     data.TopK,
		Tracer:   trace,
	})
	answer, err := client.Ask(c.Request().Context(), data.Question)
	if err != nil {
		logger.Error("[Server] Ask failed", "err", err)
		return jsonError(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, askResponse{Answer: answer, Trace: trace.Snapshot()})
}
