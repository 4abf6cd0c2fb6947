package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultYAMLConfig 代码默认值
func defaultYAMLConfig() YAMLConfig {
	return YAMLConfig{
		APIServer: APIServerConfig{Host: "0.0.0.0", Port: "8080", URL: "http://localhost:8080"},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "blog",
			Name:            "blog",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Loader:  LoaderConfig{MaxBatch: 100, Wait: 2 * time.Millisecond},
		GraphQL: GraphQLConfig{MaxParallelism: 100, MaxDepth: 10},
		Hashing: HashingConfig{Cost: 12},
		Log:     LogConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// Load 加载配置
//  1. 加载 .env.{env}（dev/test 凭据）
//  2. 根据 APP_ENV 加载 {env}.yaml
//  3. 环境变量覆盖
func Load() (*Config, error) {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yamlCfg, err := loadYAMLConfig(env)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(&yamlCfg.YAMLConfig)

	databaseURL := os.Getenv("DATABASE_URL")
	driver := detectDatabaseDriver(yamlCfg.Database.Driver, databaseURL)
	if databaseURL == "" {
		yamlCfg.Database.Driver = driver
		databaseURL = buildDatabaseURL(yamlCfg.Database, yamlCfg.Database.Password)
	}

	return &Config{
		Env:            env,
		DatabaseDriver: driver,
		DatabaseURL:    normalizeDSN(driver, databaseURL),
		APIServer:      yamlCfg.APIServer,
		Database:       yamlCfg.Database,
		Loader:         yamlCfg.Loader,
		GraphQL:        yamlCfg.GraphQL,
		Hashing:        yamlCfg.Hashing,
		Log:            yamlCfg.Log,
		ConfigFilePath: yamlCfg.loadedFrom,
	}, nil
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml；文件不存在时使用默认值
func loadYAMLConfig(env Environment) (*yamlConfigInternal, error) {
	cfg := &yamlConfigInternal{YAMLConfig: defaultYAMLConfig()}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range effectiveConfigPaths() {
		path := filepath.Join(base, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.loadedFrom = path
		break
	}
	return cfg, nil
}

// applyEnvOverrides 环境变量覆盖 YAML 配置
func applyEnvOverrides(cfg *YAMLConfig) {
	cfg.Database.Password = firstEnv("DB_PASSWORD", "POSTGRES_PASSWORD", "MYSQL_PASSWORD")
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := firstEnv("API_SERVER_HOST", "SERVER_HOST"); v != "" {
		cfg.APIServer.Host = v
	}
	if v := firstEnv("API_SERVER_PORT", "SERVER_PORT", "PORT"); v != "" {
		cfg.APIServer.Port = v
	}
	if v := firstEnv("API_SERVER_URL", "SERVER_URL"); v != "" {
		cfg.APIServer.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Driver: %s, DB: %s, Addr: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), c.APIServer.Addr())
}
