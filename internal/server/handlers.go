package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"
	"discovery_engine/internal/prefs"
	"discovery_engine/internal/resolver"
	"discovery_engine/internal/sampler"

	"github.com/gin-gonic/gin"
)

// DiscoveryRequest 偏好驱动发现的请求体
// 集合随请求携带、随响应回传，服务端不保存任何会话状态
type DiscoveryRequest struct {
	PositiveIDs []string `json:"positive_ids"`
	NegativeIDs []string `json:"negative_ids"`
	ExcludedIDs []string `json:"excluded_ids"`
	Limit       int      `json:"limit"`
	Randomize   *int64   `json:"randomize"`
	Action      string   `json:"action"`
	GameID      string   `json:"game_id"`
}

// EnhancedRequest 多信号混合推荐的请求体
type EnhancedRequest struct {
	PositiveIDs []string `json:"positive_ids"`
	NegativeIDs []string `json:"negative_ids"`
	Query       string   `json:"query"`
	Limit       int      `json:"limit"`
	Randomize   *int64   `json:"randomize"`
}

// SearchRequest 文本检索的请求体
type SearchRequest struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
	Randomize *int64 `json:"randomize"`
}

// normalizeLimit 应用默认值和上限；显式负值是校验错误
func (s *Server) normalizeLimit(limit int) (int, bool) {
	if limit < 0 {
		return 0, false
	}
	if limit == 0 {
		return s.opts.DefaultLimit, true
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit, true
	}
	return limit, true
}

func (s *Server) seedOf(randomize *int64) int64 {
	if randomize != nil {
		return *randomize
	}
	return sampler.NewSeed()
}

// respond 读路径的统一出口：内部失败降级为空列表，绝不把原始错误抛给调用方
func respond(c *gin.Context, results []*model.Candidate, err error) {
	if err != nil {
		if errors.Is(err, prefs.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Request degraded to empty result: %v", err)
		c.JSON(http.StatusOK, []*model.Candidate{})
		return
	}
	if results == nil {
		results = []*model.Candidate{}
	}
	c.JSON(http.StatusOK, results)
}

// handleDiscoveryGames 偏好驱动发现
// POST /api/v1/discovery/games
func (s *Server) handleDiscoveryGames(c *gin.Context) {
	var req DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	limit, ok := s.normalizeLimit(req.Limit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	set := prefs.NewPreferenceSet(req.PositiveIDs, req.NegativeIDs)
	results, err := s.machine.Discover(ctx, set.Liked, set.Disliked, set.Excluded(req.ExcludedIDs), limit, s.seedOf(req.Randomize))
	respond(c, results, err)
}

// handleDiscoveryPreferences 偏好动作端点：先变换集合，再重新发现
// POST /api/v1/discovery/preferences
func (s *Server) handleDiscoveryPreferences(c *gin.Context) {
	// 前端附加的 t 参数仅用于防缓存，记录后忽略
	if t := c.Query("t"); t != "" {
		logger.Debug("Cache-busting timestamp in URL: %s", t)
	}

	var req DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	limit, ok := s.normalizeLimit(req.Limit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	action := prefs.Action(strings.TrimSpace(req.Action))
	if action == "" {
		action = prefs.ActionRefresh
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	set := prefs.NewPreferenceSet(req.PositiveIDs, req.NegativeIDs)
	results, err := s.machine.Step(ctx, set, action, req.GameID, req.ExcludedIDs, limit, s.seedOf(req.Randomize))
	if err != nil {
		if errors.Is(err, prefs.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Preference discovery degraded to empty result: %v", err)
		results = nil
	}
	if results == nil {
		results = []*model.Candidate{}
	}

	c.JSON(http.StatusOK, gin.H{
		"liked":    emptyIfNil(set.Liked),
		"disliked": emptyIfNil(set.Disliked),
		"games":    results,
	})
}

// handleDiscoveryContext 以单个游戏为上下文的发现
// GET /api/v1/discovery/context/:game_id
func (s *Server) handleDiscoveryContext(c *gin.Context) {
	gameID := c.Param("game_id")
	limit, ok := s.normalizeLimit(queryInt(c, "limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	excluded := make(map[string]struct{})
	for _, id := range model.NormalizeIDs(strings.Split(c.Query("excluded_ids"), ",")) {
		excluded[id] = struct{}{}
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	results, err := s.reranker.Similar(ctx, gameID, limit, excluded, sampler.NewSeed())
	respond(c, results, err)
}

// handleEnhancedRecommend 喜欢/不喜欢/文本三路加权混合
// POST /api/v1/recommend/enhanced
func (s *Server) handleEnhancedRecommend(c *gin.Context) {
	var req EnhancedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	limit, ok := s.normalizeLimit(req.Limit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	results, err := s.blender.Blend(ctx, req.PositiveIDs, req.NegativeIDs, req.Query, limit, s.seedOf(req.Randomize))
	respond(c, results, err)
}

// handleDiverseRecommend 多样性重排推荐
// GET /api/v1/recommend/diverse/:game_id
func (s *Server) handleDiverseRecommend(c *gin.Context) {
	gameID := c.Param("game_id")
	limit, ok := s.normalizeLimit(queryInt(c, "limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	// 越界值截断而不是拒绝
	factor := 0.5
	if raw := c.Query("diversity_factor"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			factor = f
		}
	}

	seed := sampler.NewSeed()
	if raw := c.Query("randomize"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			seed = n
		}
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	results, err := s.reranker.Recommend(ctx, gameID, factor, limit, seed)
	respond(c, results, err)
}

// handleRandomGames 随机发现
// GET /api/v1/random-games
func (s *Server) handleRandomGames(c *gin.Context) {
	limit, ok := s.normalizeLimit(queryInt(c, "limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	results, err := s.sampler.Sample(ctx, limit, nil, sampler.NewSeed())
	respond(c, results, err)
}

// handleGame 单个游戏详情
// GET /api/v1/games/:game_id
func (s *Server) handleGame(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	game, err := s.resolver.ResolveOne(ctx, c.Param("game_id"), false)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Game lookup failed: %v", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      game.ID,
		"score":   1.0,
		"payload": game.Payload,
	})
}

// handleSearch 文本检索，走降级梯子
// POST /api/v1/search
func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	limit, ok := s.normalizeLimit(req.Limit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	results, err := s.ladder.SearchGames(ctx, req.Query, limit, s.seedOf(req.Randomize))
	respond(c, results, err)
}

func queryInt(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
