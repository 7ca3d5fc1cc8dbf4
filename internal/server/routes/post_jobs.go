package routes

import (
	"io"
	"net/http"

	"github.com/urbanair/aqkg/internal/queue"
	"github.com/urbanair/aqkg/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EnqueueMergeHandler checks a merge job and publishes it to the merge
// queue for the worker.
func EnqueueMergeHandler(c echo.Context) error {
	type enqueueResponse struct {
		Message string `json:"message"`
		Queue   string `json:"queue"`
	}

	publisher := app(c).Queue
	if publisher == nil {
		return jsonError(c, http.StatusServiceUnavailable, "Queue is not configured")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if _, err := queue.DecodeMergeMsg(body); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	if err := queue.PublishFIFO(c.Request().Context(), publisher, queue.MergeQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue merge job", "err", err)
		return jsonError(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusAccepted, enqueueResponse{Message: "Merge job queued", Queue: queue.MergeQueue})
}
