package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all route groups into the app. Construction can fail on
// missing payment configuration; we refuse to start rather than serve a
// storefront that cannot sell.
func InstallRouter(app *fiber.App) error {
	apiRouter, err := NewApiRouter()
	if err != nil {
		return err
	}
	setup(app, apiRouter)
	return nil
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
