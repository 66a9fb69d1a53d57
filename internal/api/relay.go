package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRelayRoutes proxies upstream payloads so browsers stay same-origin
// and credentials stay server-side.
func RegisterRelayRoutes(r *gin.Engine, naver NaverRelay, feed FeedRelay, log *slog.Logger) {
	if naver != nil {
		r.GET("/api/naver", handleNaver(naver, log))
	}
	if feed != nil {
		h := handleFeed(feed, log)
		r.GET("/api/news", h)
		r.GET("/api/google", h)
	}
}

func handleNaver(naver NaverRelay, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
			return
		}

		body, status, err := naver.Raw(c.Request.Context(), query)
		switch {
		case err == nil:
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		case status != 0:
			log.Warn("naver relay upstream error", "status", status, "error", err)
			c.JSON(status, gin.H{"error": "Naver API Error"})
		default:
			log.Error("naver relay failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server Error"})
		}
	}
}

func handleFeed(feed FeedRelay, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
			return
		}

		body, err := feed.Raw(c.Request.Context(), query)
		if err != nil {
			log.Error("feed relay failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch news"})
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
	}
}
