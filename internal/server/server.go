package server

import (
	"context"
	"net/http"
	"time"

	"discovery_engine/internal/blend"
	"discovery_engine/internal/diversity"
	"discovery_engine/internal/logger"
	"discovery_engine/internal/prefs"
	"discovery_engine/internal/resolver"
	"discovery_engine/internal/sampler"
	"discovery_engine/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Options 服务器行为参数
type Options struct {
	DefaultLimit   int           // 未指定 limit 时的默认值
	MaxLimit       int           // limit 上限，超出截断
	RequestTimeout time.Duration // 单个请求的外部调用总预算
}

// Server 代表 HTTP API 服务器
type Server struct {
	router   *gin.Engine
	opts     Options
	resolver *resolver.Resolver
	sampler  *sampler.Sampler
	blender  *blend.Engine
	reranker *diversity.Reranker
	ladder   *search.Ladder
	machine  *prefs.Machine
}

// NewServer 创建新的 HTTP 服务器
func NewServer(opts Options, res *resolver.Resolver, smp *sampler.Sampler, blender *blend.Engine, reranker *diversity.Reranker, ladder *search.Ladder, machine *prefs.Machine) *Server {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 9
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		router:   gin.Default(),
		opts:     opts,
		resolver: res,
		sampler:  smp,
		blender:  blender,
		reranker: reranker,
		ladder:   ladder,
		machine:  machine,
	}
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.requestIDMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware 给每个请求分配 ID，贯穿日志和响应头
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.New().String()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		logger.Debug("[%s] %s %s", reqID, c.Request.Method, c.Request.URL.Path)
		c.Next()
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")

	v1.POST("/discovery/games", s.handleDiscoveryGames)
	v1.POST("/discovery/preferences", s.handleDiscoveryPreferences)
	v1.GET("/discovery/context/:game_id", s.handleDiscoveryContext)
	v1.POST("/recommend/enhanced", s.handleEnhancedRecommend)
	v1.GET("/recommend/diverse/:game_id", s.handleDiverseRecommend)
	v1.GET("/random-games", s.handleRandomGames)
	v1.GET("/games/:game_id", s.handleGame)
	v1.POST("/search", s.handleSearch)
}

// requestContext 给外部调用加统一超时
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
}
