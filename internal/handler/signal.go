package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"signal-relay/internal/domain"
	"signal-relay/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// IngestSignal godoc
// @Summary      Ingest a new trading signal
// @Description  Accepts a signal from a trusted external producer, persists it and broadcasts it to connected viewers
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        signal  body  service.IngestInput  true  "Signal payload"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/signals/ingest [post]
func (h *Handler) IngestSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.ingest-signal")
	defer span.End()

	var input service.IngestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error(), "code": "invalid_request"})
		return
	}

	signal, err := h.signalService.Ingest(ctx, input)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "code": "invalid_" + vErr.Field})
			return
		}
		log.Printf("signal ingestion failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store signal", "code": "internal_error"})
		return
	}

	span.SetAttributes(attribute.String("signal.id", signal.ID))
	c.JSON(http.StatusCreated, gin.H{"signalId": signal.ID, "signal": signal})
}

// GetActiveSignals godoc
// @Summary      List open signals
// @Tags         signals
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/signals/active [get]
func (h *Handler) GetActiveSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-active-signals")
	defer span.End()

	signals, err := h.signalService.ListActive(ctx)
	if err != nil {
		log.Printf("list active signals failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list signals", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(signals), "signals": signals})
}

// GetSignalHistory godoc
// @Summary      List historical signals
// @Tags         signals
// @Produce      json
// @Param        limit   query  int     false  "Page size (default 50)"
// @Param        offset  query  int     false  "Page offset"
// @Param        status  query  string  false  "Filter by status"
// @Param        pair    query  string  false  "Filter by instrument pair"
// @Param        action  query  string  false  "Filter by direction (LONG or SHORT)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/signals/history [get]
func (h *Handler) GetSignalHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal-history")
	defer span.End()

	filter := domain.HistoryFilter{
		Pair: strings.ToUpper(strings.TrimSpace(c.Query("pair"))),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + raw, "code": "invalid_status"})
			return
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(c.Query("action")); raw != "" {
		action, ok := domain.ParseAction(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be LONG or SHORT", "code": "invalid_action"})
			return
		}
		filter.Action = action
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": "invalid_limit"})
			return
		}
		filter.Limit = n
	}

	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer", "code": "invalid_offset"})
			return
		}
		filter.Offset = n
	}

	signals, err := h.signalService.History(ctx, filter)
	if err != nil {
		log.Printf("signal history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list signals", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(signals),
		"limit":   h.signalService.HistoryLimit(filter.Limit),
		"offset":  filter.Offset,
		"signals": signals,
	})
}

// GetSignal godoc
// @Summary      Get a signal by id
// @Tags         signals
// @Produce      json
// @Param        id  path  string  true  "Signal ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{id} [get]
func (h *Handler) GetSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal")
	defer span.End()

	id := strings.TrimSpace(c.Param("id"))
	signal, err := h.signalService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSignalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found", "code": "not_found"})
			return
		}
		log.Printf("get signal %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signal": signal})
}

// UpdateSignalStatus godoc
// @Summary      Apply a lifecycle transition to a signal
// @Description  Closes or cancels a signal; profit is computed server-side from closePrice unless overridden
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        id     path  string               true  "Signal ID"
// @Param        patch  body  service.UpdateInput  true  "Lifecycle patch"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/signals/{id}/status [patch]
func (h *Handler) UpdateSignalStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.update-signal-status")
	defer span.End()

	id := strings.TrimSpace(c.Param("id"))
	span.SetAttributes(attribute.String("signal.id", id))

	var input service.UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error(), "code": "invalid_request"})
		return
	}

	signal, err := h.signalService.UpdateStatus(ctx, id, input)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "code": "invalid_" + vErr.Field})
			return
		}
		if errors.Is(err, domain.ErrSignalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found", "code": "not_found"})
			return
		}
		log.Printf("update signal %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update signal", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signal": signal})
}

// DeleteSignal godoc
// @Summary      Delete a signal
// @Tags         signals
// @Produce      json
// @Param        id  path  string  true  "Signal ID"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/signals/{id} [delete]
func (h *Handler) DeleteSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.delete-signal")
	defer span.End()

	id := strings.TrimSpace(c.Param("id"))
	if err := h.signalService.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrSignalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found", "code": "not_found"})
			return
		}
		log.Printf("delete signal %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete signal", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetSignalStats godoc
// @Summary      Aggregate signal statistics
// @Tags         signals
// @Produce      json
// @Param        timeframe  query  string  false  "today, week, month or all (default all)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/signals/stats/summary [get]
func (h *Handler) GetSignalStats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal-stats")
	defer span.End()

	timeframe, ok := domain.ParseTimeframe(c.Query("timeframe"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeframe must be today, week, month or all", "code": "invalid_timeframe"})
		return
	}

	stats, err := h.signalService.Stats(ctx, timeframe)
	if err != nil {
		log.Printf("signal stats failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute statistics", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}
