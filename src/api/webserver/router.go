package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stake-plus/civic-proposals/src/api/config"
	"github.com/stake-plus/civic-proposals/src/metrics"
	"github.com/stake-plus/civic-proposals/src/verifications"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Proposals ProposalService
	Registry  *verifications.Registry
	Metrics   *metrics.Metrics
	Limiter   *RateLimiter
}

func New(cfg config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	service := cfg.ServiceName
	if service == "" {
		service = "proposals-api"
	}
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(service), RequestID())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	attachRoutes(r, cfg, d)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, d Deps) {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{"Content-Length", headerRequestID},
	}
	if len(cfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	var counters Counters = noCounters{}
	if d.Metrics != nil {
		counters = d.Metrics
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	limit := func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limit = RateLimitMiddleware(d.Limiter)
	}

	proposalsH := NewProposals(d.Proposals, counters)
	votesH := NewVotes(d.Proposals, counters)
	verificationsH := NewVerifications(d.Registry)
	auth := JWTMiddleware([]byte(cfg.JWTSecret))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	v1 := r.Group("/v1")
	{
		v1.GET("/verifications", verificationsH.List)
		v1.GET("/features/:feature/proposals", proposalsH.List)
		v1.GET("/proposals/:id", proposalsH.Show)

		secured := v1.Group("", auth)
		secured.GET("/features/:feature/proposals/new", proposalsH.New)
		secured.POST("/features/:feature/proposals", limit, proposalsH.Create)
		secured.POST("/proposals/:id/votes", limit, votesH.Cast)
	}

	admin := v1.Group("/admin", auth, AdminMiddleware())
	{
		adminH := NewAdmin(d.Proposals, counters)
		admin.PUT("/proposals/:id/answer", adminH.Answer)
	}
}
