// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	数据库密码只存在环境变量（DB_PASSWORD）或 DATABASE_URL 中，YAML 中不存储任何密码。
//
// 配置路径确定策略：
//  1. --config 命令行参数（显式路径）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径：
//     - prod → /etc/blog-graphql/
//     - dev/test → ./configs/
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	APIServer APIServerConfig `yaml:"api_server"` // HTTP 服务（地址 + 对外 URL）
	Database  DatabaseConfig  `yaml:"database"`   // 数据库
	Loader    LoaderConfig    `yaml:"loader"`     // 请求级批量加载器
	GraphQL   GraphQLConfig   `yaml:"graphql"`    // GraphQL 执行限制
	Hashing   HashingConfig   `yaml:"hashing"`    // 密码哈希
	Log       LogConfig       `yaml:"log"`        // 日志
}

// APIServerConfig API Server 配置
type APIServerConfig struct {
	Host string `yaml:"host"` // 监听地址
	Port string `yaml:"port"` // 监听端口
	URL  string `yaml:"url"`  // 对外 URL，同时作为 CORS 允许的来源
}

// Addr 返回监听地址
func (c APIServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "postgres", "sqlite" 或 "mysql"（默认 postgres）
	Path            string        `yaml:"path"`   // SQLite 文件路径
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"-"` // 只从 DB_PASSWORD 环境变量读取
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// LoaderConfig 批量加载器配置
type LoaderConfig struct {
	MaxBatch int           `yaml:"max_batch"` // 单批最大 key 数
	Wait     time.Duration `yaml:"wait"`      // 去抖窗口，<=0 使用默认值（2ms）
}

// GraphQLConfig GraphQL 执行配置
type GraphQLConfig struct {
	MaxParallelism int `yaml:"max_parallelism"`
	MaxDepth       int `yaml:"max_depth"`
}

// HashingConfig 密码哈希配置
type HashingConfig struct {
	Cost int `yaml:"cost"` // bcrypt cost
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr 或文件路径
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseDriver string // "postgres", "sqlite" 或 "mysql"
	DatabaseURL    string
	APIServer      APIServerConfig
	Database       DatabaseConfig // 连接池参数
	Loader         LoaderConfig
	GraphQL        GraphQLConfig
	Hashing        HashingConfig
	Log            LogConfig
	ConfigFilePath string // 实际加载的配置文件路径
}

// yamlConfigInternal 内部包装，记录配置文件来源（不参与 YAML 序列化）
type yamlConfigInternal struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}
