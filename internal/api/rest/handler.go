package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-asset-syncer/internal/reconcile"
)

const serviceName = "ff-asset-syncer"

// HeadReader reads the chain head; the gateway satisfies it
type HeadReader interface {
	LatestBlock(ctx context.Context) (uint64, error)
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// Validate diffs the cache against the chain without writing
	// POST /validate
	Validate(c *gin.Context)

	// Repair overwrites cached fields that differ from the chain
	// POST /repair
	Repair(c *gin.Context)

	// HealthCheck reports whether the chain is reachable
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	engine reconcile.Engine
	head   HeadReader
}

// NewHandler creates a new REST API handler
func NewHandler(engine reconcile.Engine, head HeadReader) Handler {
	return &handler{
		engine: engine,
		head:   head,
	}
}

// Validate runs a validation pass
func (h *handler) Validate(c *gin.Context) {
	report, err := h.engine.Validate(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to validate assets")
		return
	}

	c.JSON(http.StatusOK, toValidateResponse(report))
}

// Repair runs a repair pass
func (h *handler) Repair(c *gin.Context) {
	report, err := h.engine.Repair(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to repair assets")
		return
	}

	c.JSON(http.StatusOK, toRepairResponse(report))
}

// HealthCheck returns the health status of the service
func (h *handler) HealthCheck(c *gin.Context) {
	if h.head == nil {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: serviceName})
		return
	}

	block, err := h.head.LatestBlock(c.Request.Context())
	if err != nil {
		respondServiceUnavailable(c, "Chain endpoint unreachable", err.Error())
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Service:     serviceName,
		LatestBlock: block,
	})
}
