package main

import (
	"log"

	"discovery_engine/internal/blend"
	"discovery_engine/internal/diversity"
	"discovery_engine/internal/logger"
	"discovery_engine/internal/prefs"
	"discovery_engine/internal/resolver"
	"discovery_engine/internal/sampler"
	"discovery_engine/internal/search"
	"discovery_engine/internal/server"
	"discovery_engine/pkg/embed"
	"discovery_engine/pkg/vectordb"
)

func main() {
	cfg := InitServerConfig()
	logger.SetDebug(cfg.Server.Debug)

	// 1. 初始化向量索引客户端
	index := vectordb.NewClient(vectordb.Config{
		URL:              cfg.Qdrant.URL,
		APIKey:           cfg.Qdrant.APIKey,
		Collection:       cfg.Qdrant.Collection,
		DenseVectorName:  cfg.Qdrant.DenseVectorName,
		SparseVectorName: cfg.Qdrant.SparseVectorName,
		Timeout:          cfg.qdrantTimeout(),
	})

	// 2. 初始化向量化服务客户端
	embedder := embed.NewClient(embed.Config{
		Endpoint:       cfg.Embedding.Endpoint,
		APIKey:         cfg.Embedding.APIKey,
		Model:          cfg.Embedding.Model,
		SparseEndpoint: cfg.Embedding.SparseEndpoint,
		SparseModel:    cfg.Embedding.SparseModel,
		Timeout:        cfg.embeddingTimeout(),
	})

	// 3. 组装各个推荐组件
	res := resolver.NewResolver(index)
	smp := sampler.NewSampler(index)
	blender := blend.NewEngine(index, res, embedder, smp)
	reranker := diversity.NewReranker(index, res, smp)
	ladder := search.NewLadder(index, embedder, smp)
	machine := prefs.NewMachine(blender, smp)

	// 4. 启动 HTTP Server
	srv := server.NewServer(server.Options{
		DefaultLimit:   cfg.Server.DefaultLimit,
		MaxLimit:       cfg.Server.MaxLimit,
		RequestTimeout: cfg.requestTimeout(),
	}, res, smp, blender, reranker, ladder, machine)

	log.Printf("Starting HTTP server on port %s...", cfg.Server.Port)
	if err := srv.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
