package main

import (
	"flag"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig 对应 configs/server.yaml
type ServerConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		Debug          bool   `yaml:"debug"`
		DefaultLimit   int    `yaml:"default_limit"`
		MaxLimit       int    `yaml:"max_limit"`
		RequestTimeout int    `yaml:"request_timeout_seconds"`
	} `yaml:"server"`
	Qdrant struct {
		URL              string `yaml:"url"`
		APIKey           string `yaml:"api_key"`
		Collection       string `yaml:"collection"`
		DenseVectorName  string `yaml:"dense_vector_name"`
		SparseVectorName string `yaml:"sparse_vector_name"`
		TimeoutSeconds   int    `yaml:"timeout_seconds"`
	} `yaml:"qdrant"`
	Embedding struct {
		Endpoint       string `yaml:"endpoint"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		SparseEndpoint string `yaml:"sparse_endpoint"`
		SparseModel    string `yaml:"sparse_model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"embedding"`
}

func loadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitServerConfig 初始化服务器配置，优先级：命令行参数 > 配置文件 > 默认值
func InitServerConfig() *ServerConfig {
	// 命令行参数
	// 将默认值设置为空字符串，以便优先使用配置文件中的值
	configPath := flag.String("config", "configs/server.yaml", "Path to server config file")
	portFlag := flag.String("port", "", "Server port")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	qdrantURLFlag := flag.String("qdrant", "", "Qdrant base URL")
	collectionFlag := flag.String("collection", "", "Qdrant collection name")
	embedEndpointFlag := flag.String("embedding", "", "Embedding API endpoint")
	flag.Parse()

	// 1. 初始化默认值
	serverCfg := &ServerConfig{}
	serverCfg.Server.Port = "8080"
	serverCfg.Server.Debug = false
	serverCfg.Server.DefaultLimit = 9
	serverCfg.Server.MaxLimit = 50
	serverCfg.Server.RequestTimeout = 30
	serverCfg.Qdrant.URL = "http://localhost:6333"
	serverCfg.Qdrant.Collection = "games"
	serverCfg.Qdrant.DenseVectorName = "dense"
	serverCfg.Qdrant.SparseVectorName = "sparse"
	serverCfg.Qdrant.TimeoutSeconds = 15
	serverCfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
	serverCfg.Embedding.TimeoutSeconds = 30

	// 2. 尝试加载配置文件
	if loadedCfg, err := loadServerConfig(*configPath); err == nil {
		// 如果文件存在且加载成功，覆盖默认值
		if loadedCfg.Server.Port != "" {
			serverCfg.Server.Port = loadedCfg.Server.Port
		}
		if loadedCfg.Server.Debug {
			serverCfg.Server.Debug = true
		}
		if loadedCfg.Server.DefaultLimit > 0 {
			serverCfg.Server.DefaultLimit = loadedCfg.Server.DefaultLimit
		}
		if loadedCfg.Server.MaxLimit > 0 {
			serverCfg.Server.MaxLimit = loadedCfg.Server.MaxLimit
		}
		if loadedCfg.Server.RequestTimeout > 0 {
			serverCfg.Server.RequestTimeout = loadedCfg.Server.RequestTimeout
		}
		if loadedCfg.Qdrant.URL != "" {
			serverCfg.Qdrant.URL = loadedCfg.Qdrant.URL
		}
		if loadedCfg.Qdrant.APIKey != "" {
			serverCfg.Qdrant.APIKey = loadedCfg.Qdrant.APIKey
		}
		if loadedCfg.Qdrant.Collection != "" {
			serverCfg.Qdrant.Collection = loadedCfg.Qdrant.Collection
		}
		if loadedCfg.Qdrant.DenseVectorName != "" {
			serverCfg.Qdrant.DenseVectorName = loadedCfg.Qdrant.DenseVectorName
		}
		if loadedCfg.Qdrant.SparseVectorName != "" {
			serverCfg.Qdrant.SparseVectorName = loadedCfg.Qdrant.SparseVectorName
		}
		if loadedCfg.Qdrant.TimeoutSeconds > 0 {
			serverCfg.Qdrant.TimeoutSeconds = loadedCfg.Qdrant.TimeoutSeconds
		}
		if loadedCfg.Embedding.Endpoint != "" {
			serverCfg.Embedding.Endpoint = loadedCfg.Embedding.Endpoint
		}
		if loadedCfg.Embedding.APIKey != "" {
			serverCfg.Embedding.APIKey = loadedCfg.Embedding.APIKey
		}
		if loadedCfg.Embedding.Model != "" {
			serverCfg.Embedding.Model = loadedCfg.Embedding.Model
		}
		if loadedCfg.Embedding.SparseEndpoint != "" {
			serverCfg.Embedding.SparseEndpoint = loadedCfg.Embedding.SparseEndpoint
		}
		if loadedCfg.Embedding.SparseModel != "" {
			serverCfg.Embedding.SparseModel = loadedCfg.Embedding.SparseModel
		}
		if loadedCfg.Embedding.TimeoutSeconds > 0 {
			serverCfg.Embedding.TimeoutSeconds = loadedCfg.Embedding.TimeoutSeconds
		}
	} else {
		// 配置文件不存在时不报错，直接使用硬编码默认值
		log.Printf("Info: Could not load config file '%s': %v. Using defaults or flags.", *configPath, err)
	}

	// 3. 应用命令行参数 (优先级最高)
	if *portFlag != "" {
		serverCfg.Server.Port = *portFlag
	}
	if *debugFlag {
		serverCfg.Server.Debug = true
	}
	if *qdrantURLFlag != "" {
		serverCfg.Qdrant.URL = *qdrantURLFlag
	}
	if *collectionFlag != "" {
		serverCfg.Qdrant.Collection = *collectionFlag
	}
	if *embedEndpointFlag != "" {
		serverCfg.Embedding.Endpoint = *embedEndpointFlag
	}

	return serverCfg
}

func (c *ServerConfig) qdrantTimeout() time.Duration {
	return time.Duration(c.Qdrant.TimeoutSeconds) * time.Second
}

func (c *ServerConfig) embeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

func (c *ServerConfig) requestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}
