package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"inkboard/internal/geom"
)

// Config 保存从环境变量（或 .env 文件）加载的配置。
type Config struct {
	ServerPort string
	DBPath     string // 空串表示内存库
	LogLevel   string
	AppEnv     string // development / production

	RateLimitMax       int
	RateLimitWindow    time.Duration
	CheckpointInterval time.Duration

	// 渲染换算的初始尺寸（客户端 hello 后更新）
	Screen   geom.Size
	Viewport geom.Size

	// 新连接的笔画简化开关缺省值
	SimplifyDefault bool
}

// LoadConfig 从环境变量加载配置。.env 文件存在时优先加载。
func LoadConfig() (*Config, error) {
	// 忽略错误，允许只使用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "inkboard.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AppEnv:             getEnv("APP_ENV", "development"),
		RateLimitMax:       getEnvAsInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:    getEnvAsDuration("RATE_LIMIT_WINDOW", time.Second),
		CheckpointInterval: getEnvAsDuration("CHECKPOINT_INTERVAL", 30*time.Second),
		Screen: geom.Size{
			Width:  getEnvAsFloat("SCREEN_WIDTH", 800),
			Height: getEnvAsFloat("SCREEN_HEIGHT", 600),
		},
		Viewport: geom.Size{
			Width:  getEnvAsFloat("VIEWPORT_WIDTH", 8),
			Height: getEnvAsFloat("VIEWPORT_HEIGHT", 6),
		},
		SimplifyDefault: getEnvAsBool("SIMPLIFY_DEFAULT", true),
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	if !cfg.Screen.Valid() || !cfg.Viewport.Valid() {
		logrus.Warn("Invalid screen/viewport dimensions, using defaults")
		cfg.Screen = geom.Size{Width: 800, Height: 600}
		cfg.Viewport = geom.Size{Width: 8, Height: 6}
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
