package controller

import (
	"ai-medchat-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type HealthResponse struct {
	Status         string   `json:"status"`
	Stages         []string `json:"stages"`
	FollowupPolicy string   `json:"followup_policy"`
}

// PipelineInfo is satisfied by the turn executor
type PipelineInfo interface {
	Stages() []string
	FollowupPolicy() string
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	pipeline PipelineInfo
}

func NewHealthController(pipeline PipelineInfo) IHealthController {
	return &healthController{pipeline: pipeline}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", HealthResponse{
		Status:         "ok",
		Stages:         c.pipeline.Stages(),
		FollowupPolicy: c.pipeline.FollowupPolicy(),
	}))
}
