// Package api exposes the dashboard and the same-origin upstream relay over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/nrfinsight/internal/article"
	"github.com/deusflow/nrfinsight/internal/dashboard"
	"github.com/deusflow/nrfinsight/internal/metrics"
)

// Dashboard is the view-layer service; *dashboard.Service satisfies it.
type Dashboard interface {
	Status(ctx context.Context) ([]dashboard.TopicStatus, error)
	Load(ctx context.Context, topicID string) (dashboard.Result, error)
	Refresh(ctx context.Context, topicID string) (dashboard.Result, error)
}

// NaverRelay returns the keyword-search payload untouched.
type NaverRelay interface {
	Raw(ctx context.Context, query string) ([]byte, int, error)
}

// FeedRelay returns the RSS markup untouched.
type FeedRelay interface {
	Raw(ctx context.Context, query string) ([]byte, error)
}

// Deps are the collaborators the router serves. Nil relays leave their routes unregistered.
type Deps struct {
	Dashboard Dashboard
	Naver     NaverRelay
	Feed      FeedRelay
	Metrics   *metrics.Metrics
	// Stats adds extra sections to /metrics, e.g. the generative budget.
	Stats  map[string]func() map[string]interface{}
	Logger *slog.Logger
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Metrics == nil {
		d.Metrics = metrics.Global
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	RegisterHealthRoutes(r, d.Metrics, d.Stats)
	RegisterTopicRoutes(r, d.Dashboard, d.Logger)
	RegisterRelayRoutes(r, d.Naver, d.Feed, d.Logger)
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status())
	}
}

// RegisterHealthRoutes serves liveness and counters.
func RegisterHealthRoutes(r *gin.Engine, m *metrics.Metrics, extra map[string]func() map[string]interface{}) {
	r.GET("/health", func(c *gin.Context) {
		stats := m.GetStats()
		status, code := "ok", http.StatusOK
		if !m.Healthy() {
			status, code = "error", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})
	r.GET("/metrics", func(c *gin.Context) {
		stats := m.GetStats()
		for name, fn := range extra {
			stats[name] = fn()
		}
		c.JSON(http.StatusOK, stats)
	})
}

// ArticleView is the card payload. Date is the short display form.
type ArticleView struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Source        string `json:"source"`
	Date          string `json:"date"`
	PublishedDate string `json:"publishedDate"`
	Snippet       string `json:"snippet"`
}

type articlesResponse struct {
	Topic    interface{}   `json:"topic"`
	Articles []ArticleView `json:"articles"`
	Cached   bool          `json:"cached"`
	Error    string        `json:"error,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// RegisterTopicRoutes serves the tab list and per-tab articles.
func RegisterTopicRoutes(r *gin.Engine, d Dashboard, log *slog.Logger) {
	g := r.Group("/api/topics")
	g.GET("", func(c *gin.Context) {
		status, err := d.Status(c.Request.Context())
		if err != nil {
			log.Error("topic status failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server Error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": status})
	})
	g.GET("/:id/articles", func(c *gin.Context) {
		load := d.Load
		if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
			load = d.Refresh
		}
		respondArticles(c, log, load)
	})
	g.POST("/:id/refresh", func(c *gin.Context) {
		respondArticles(c, log, d.Refresh)
	})
}

func respondArticles(c *gin.Context, log *slog.Logger, load func(context.Context, string) (dashboard.Result, error)) {
	id := c.Param("id")
	res, err := load(c.Request.Context(), id)
	switch {
	case errors.Is(err, dashboard.ErrUnknownTopic):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown topic"})
		return
	case err != nil:
		log.Error("load topic failed", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server Error"})
		return
	}

	views := make([]ArticleView, 0, len(res.Articles))
	for _, a := range res.Articles {
		views = append(views, toView(a))
	}
	body := articlesResponse{
		Topic:    res.Topic,
		Articles: views,
		Cached:   res.Cached,
		Message:  res.Message,
	}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func toView(a article.Article) ArticleView {
	return ArticleView{
		Title:         a.Title,
		URL:           a.URL,
		Source:        a.Source,
		Date:          article.DisplayDate(a.Date),
		PublishedDate: a.Date,
		Snippet:       a.Snippet,
	}
}
