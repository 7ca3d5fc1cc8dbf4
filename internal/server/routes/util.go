package routes

import (
	"fmt"
	"io"
	"net/http"

	"github.com/urbanair/aqkg/internal/server/middleware"
	"github.com/urbanair/aqkg/pkg/common"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

// readFragment decodes the request body as a fragment document. Every
// top-level key must be present when strict is set or the request carries
// ?strict=true; ?lenient=true tolerates missing keys.
func readFragment(c echo.Context, strict bool) (*common.Fragment, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	switch {
	case c.QueryParam("strict") == "true":
		strict = true
	case c.QueryParam("lenient") == "true":
		strict = false
	}
	if strict {
		return common.DecodeStrict(body)
	}
	return common.Decode(body)
}

func badFragment(c echo.Context, err error) error {
	return jsonError(c, http.StatusBadRequest, "Invalid fragment: "+err.Error())
}
