package http

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/usecase"
)

func Health(ctx fiber.Ctx) error {
	ctx.Status(fiber.StatusOK)
	_ = ctx.JSON("UP!")
	return nil
}

// Status exposes the relay position so operators can see how far behind the
// source chain head the listener is.
func Status(l *usecase.ListenerService) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		ctx.Status(fiber.StatusOK)
		return ctx.JSON(fiber.Map{
			"last_processed_block": l.LastProcessedBlock(),
		})
	}
}
