package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the process configuration.
type Config struct {
	SettingsRoot string // 每个声音域一个子目录，外加每个域一个 JSON 配置文件
	ModulesDir   string // 外部内容包目录，每个子目录一个 soundswap.json

	CacheCapacity   int
	DecodeTimeout   time.Duration
	FailureCooldown time.Duration
	LogCooldown     time.Duration

	TickInterval   time.Duration
	RescanInterval time.Duration
	WatchDebounce  time.Duration

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	// Redis配置，用于发布扫描状态
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	StatusTTL     time.Duration // 状态键过期时间

	HTTPAddr string // 为空时不启动状态接口
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool accepts the strconv.ParseBool spellings.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("250ms") or plain seconds ("10").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

const modulesDirEnv = "SOUNDSWAP_MODULES_DIR"

func defaultModulesDir(root string) string {
	return filepath.Join(root, "modules")
}

// OverrideSettingsRoot 替换设置根目录；内容包目录未通过环境变量指定时随之更新
func (c *Config) OverrideSettingsRoot(root string) {
	c.SettingsRoot = root
	if _, set := os.LookupEnv(modulesDirEnv); !set {
		c.ModulesDir = defaultModulesDir(root)
	}
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	root := getEnv("SOUNDSWAP_SETTINGS_ROOT", "settings")

	return &Config{
		SettingsRoot: root,
		ModulesDir:   getEnv(modulesDirEnv, defaultModulesDir(root)),

		CacheCapacity:   getEnvInt("SOUNDSWAP_CACHE_CAPACITY", 32),
		DecodeTimeout:   getEnvDuration("SOUNDSWAP_DECODE_TIMEOUT", 10*time.Second),
		FailureCooldown: getEnvDuration("SOUNDSWAP_FAILURE_COOLDOWN", 10*time.Second),
		LogCooldown:     getEnvDuration("SOUNDSWAP_LOG_COOLDOWN", 30*time.Second),

		TickInterval:   getEnvDuration("SOUNDSWAP_TICK_INTERVAL", 100*time.Millisecond),
		RescanInterval: getEnvDuration("SOUNDSWAP_RESCAN_INTERVAL", 5*time.Second),
		WatchDebounce:  getEnvDuration("SOUNDSWAP_WATCH_DEBOUNCE", 500*time.Millisecond),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 20),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库
		StatusTTL:     getEnvDuration("REDIS_STATUS_TTL", 24*time.Hour),

		HTTPAddr: getEnv("HTTP_ADDR", ""),
	}
}
