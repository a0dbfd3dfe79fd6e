package rest

import (
	"github.com/AzielCF/az-crm/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
)

var pipelinePool *msgworker.EventWorkerPool

// SetPipelinePool wires the ingestion pool into the monitoring endpoint.
func SetPipelinePool(pool *msgworker.EventWorkerPool) {
	pipelinePool = pool
}

// GetPipelineStats returns real-time ingestion worker pool statistics
func GetPipelineStats(c *fiber.Ctx) error {
	if pipelinePool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Pipeline worker pool not initialized",
		})
	}
	return c.JSON(pipelinePool.GetStats())
}
