package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"social-graph/internal/apperror"
	"social-graph/internal/auth"
)

const (
	requestIDKey = "request_id"
	callerIDKey  = "caller_id"
)

// requestID tags every request with an id, reusing X-Request-ID when sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
		})
		if caller := c.GetString(callerIDKey); caller != "" {
			entry = entry.WithField("caller_id", caller)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

// recovery turns a panic into the 500 envelope.
func recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		}).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   apperror.PublicMessage(nil),
		})
	})
}

// requireAuth verifies the bearer token and stores the caller id on the context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) == "" {
			h.abort(c, apperror.Unauthorized("Access denied. No token provided."))
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			h.abort(c, apperror.BadRequest("Invalid token format. Expected 'Bearer <token>'."))
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				h.abort(c, apperror.Wrap(err, apperror.CodeUnauthorized, "Token has expired."))
				return
			}
			h.abort(c, apperror.Wrap(err, apperror.CodeUnauthorized, "Invalid token."))
			return
		}

		c.Set(callerIDKey, userID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func callerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}
