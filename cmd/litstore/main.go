package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/thamyind/litstore/internal/pkg/cache"
	"github.com/thamyind/litstore/internal/pkg/database"
	"github.com/thamyind/litstore/internal/pkg/env"
	"github.com/thamyind/litstore/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "litstore",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	if err := router.InstallRouter(app); err != nil {
		log.Fatalf("router setup failed: %v", err)
	}

	return app
}
