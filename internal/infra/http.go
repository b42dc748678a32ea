package infra

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/adapter/http"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/usecase"
)

func InitRoutes(server *fiber.App, listener *usecase.ListenerService) {
	server.Get("/health", http.Health)
	server.Get("/status", http.Status(listener))
}
