package handler

import (
	"signal-relay/internal/service"
	"signal-relay/internal/ws"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer        trace.Tracer
	signalService *service.SignalService
	wsHandler     *ws.Handler
	ingestKey     string
}

func New(
	tracer trace.Tracer,
	signalService *service.SignalService,
	wsHandler *ws.Handler,
	ingestKey string,
) *Handler {
	return &Handler{
		tracer:        tracer,
		signalService: signalService,
		wsHandler:     wsHandler,
		ingestKey:     ingestKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.GET("/api/signals/active", h.GetActiveSignals)
	r.GET("/api/signals/history", h.GetSignalHistory)
	r.GET("/api/signals/stats/summary", h.GetSignalStats)
	r.GET("/api/signals/:id", h.GetSignal)

	authed := r.Group("/api/signals", RequireIngestKey(h.ingestKey))
	authed.POST("/ingest", h.IngestSignal)
	authed.PATCH("/:id/status", h.UpdateSignalStatus)
	authed.DELETE("/:id", h.DeleteSignal)

	if h.wsHandler != nil {
		r.GET("/ws/signals", h.wsHandler.Serve)
	}
}

// Health godoc
// @Summary      Service liveness
// @Tags         ops
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
