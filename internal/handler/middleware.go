package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireIngestKey guards the producer-facing mutation endpoints with a
// pre-shared bearer credential. An unconfigured key fails closed: every
// request is rejected rather than falling back to a default.
func RequireIngestKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "signal ingestion is not configured on this server",
				"code":  "ingest_disabled",
			})
			return
		}

		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authz, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
				"code":  "unauthorized",
			})
			return
		}

		provided := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if provided == "" || provided != key {
			log.Printf("rejected ingest credential from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid bearer token",
				"code":  "forbidden",
			})
			return
		}

		c.Next()
	}
}
