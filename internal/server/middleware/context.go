package middleware

import (
	"github.com/urbanair/aqkg/internal/queue"
	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/store"

	"github.com/labstack/echo/v4"
)

// App holds the shared clients of the API. Storage, AiClient and Queue are
// optional; routes that need a missing client answer 503.
type App struct {
	Storage      store.GraphStorage
	AiClient     ai.GraphAIClient
	Queue        queue.Publisher
	Threshold    int
	AskModel     string
	Thinking     string
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
