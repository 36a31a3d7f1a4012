// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
// access token 与 refresh token 使用各自独立的签名密钥。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	RefreshSecret          string `mapstructure:"refresh_secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// AIConfig 存储上游 AI 服务的配置。
type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout 返回上游调用的超时时间，未配置时默认 30 秒。
func (c AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig 存储限流相关的配置。
// store 可选 memory（单进程）或 redis（多进程共享计数）。
type RateLimitConfig struct {
	Store  string       `mapstructure:"store"`
	Global WindowConfig `mapstructure:"global"`
	Auth   WindowConfig `mapstructure:"auth"`
	Chat   WindowConfig `mapstructure:"chat"`
}

// WindowConfig 描述一个固定窗口限流器：窗口长度与窗口内最大请求数。
type WindowConfig struct {
	Max           int64 `mapstructure:"max"`
	WindowSeconds int   `mapstructure:"window_seconds"`
}

// Window 返回窗口时长。
func (w WindowConfig) Window() time.Duration {
	return time.Duration(w.WindowSeconds) * time.Second
}

// CORSConfig 存储跨域相关的配置。
type CORSConfig struct {
	FrontendURL string `mapstructure:"frontend_url"`
}

// ChatConfig 存储聊天管线相关的开关。
// LegacySessionFallback 打开时，未携带 sessionId 的请求会复用该用户已有的任意会话
// （对齐旧版行为）；关闭时则总是开启新会话。
type ChatConfig struct {
	LegacySessionFallback bool `mapstructure:"legacy_session_fallback"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 合理的默认值，配置文件可覆盖
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("jwt.access_token_expire_hours", 168)
	viper.SetDefault("jwt.refresh_token_expire_days", 30)
	viper.SetDefault("ai.timeout_seconds", 30)
	viper.SetDefault("ratelimit.store", "memory")
	viper.SetDefault("ratelimit.global.max", 100)
	viper.SetDefault("ratelimit.global.window_seconds", 900)
	viper.SetDefault("ratelimit.auth.max", 5)
	viper.SetDefault("ratelimit.auth.window_seconds", 900)
	viper.SetDefault("ratelimit.chat.max", 30)
	viper.SetDefault("ratelimit.chat.window_seconds", 60)
	viper.SetDefault("chat.legacy_session_fallback", true)

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
