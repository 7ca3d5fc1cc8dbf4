package routes

import (
	"net/http"

	"github.com/urbanair/aqkg/pkg/graph"

	"github.com/labstack/echo/v4"
)

// ValidateHandler reports relation members that do not name a defined
// entity. A document missing a top-level key is rejected with 400 unless
// ?lenient=true is given.
func ValidateHandler(c echo.Context) error {
	type validateResponse struct {
		Valid  bool                    `json:"valid"`
		Issues []graph.ValidationIssue `json:"issues"`
		Report string                  `json:"report"`
	}

	f, err := readFragment(c, true)
	if err != nil {
		return badFragment(c, err)
	}

	issues := graph.Validate(f)
	return c.JSON(http.StatusOK, validateResponse{
		Valid:  len(issues) == 0,
		Issues: issues,
		Report: graph.ValidationReport(issues),
	})
}
