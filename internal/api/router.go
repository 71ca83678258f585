package api

import (
	"net/http"
	"regexp"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/curatehub/curatehub/config"
	"github.com/curatehub/curatehub/internal/api/handler"
	"github.com/curatehub/curatehub/internal/api/middleware"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// NewRouter 组装路由与中间件链
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// feed id 即 slug，进库前先卡住坏值
		_ = v.RegisterValidation("feedslug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("curatehub"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/feeds/:id/rss.xml", h.FeedRSS)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/feeds", h.ListFeeds)
		v1.GET("/feeds/:id", h.GetFeed)
		v1.GET("/feeds/:id/submissions", h.ListFeedSubmissions)
		v1.GET("/submissions/:id", h.GetSubmission)
		v1.GET("/submissions/:id/history", h.SubmissionHistory)

		admin := v1.Group("", middleware.Auth(cfg.Auth.JWTSecret))
		{
			admin.POST("/feeds", h.CreateFeed)
			admin.PUT("/feeds/:id", h.UpdateFeed)
			admin.DELETE("/feeds/:id", h.DeleteFeed)
			admin.POST("/moderate", h.Moderate)
		}
	}
	return r
}
