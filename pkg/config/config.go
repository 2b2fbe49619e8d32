/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2026-01-15
 * @Description: 环境变量配置
 */

// Package config 从.env和环境变量读取服务配置
package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"whoiskit/pkg/logger"
)

// Config 服务运行配置
type Config struct {
	Port                string
	Env                 string
	LogFile             string
	RedisAddr           string
	RedisPassword       string
	WhoisTimeout        time.Duration
	DefaultWhoisServer  string
	AllowedServers      []string // 允许调用方通过server参数指定的WHOIS主机
	WorkerPoolSize      int
	CORSOrigins         string
	JWTSecret           string
	AuthEnabled         bool
	RateLimitPerMinute  int
	LenientDates        bool
	HealthCheckInterval time.Duration
}

// Load 加载.env文件（不存在时忽略）后读取环境变量
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv 只读取当前进程环境变量
func FromEnv() Config {
	cfg := Config{
		Port:                getString("PORT", "8080"),
		Env:                 logger.DeriveEnvironment(),
		LogFile:             os.Getenv("LOG_FILE"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		WhoisTimeout:        getDuration("WHOIS_TIMEOUT", 10*time.Second),
		DefaultWhoisServer:  getString("WHOIS_DEFAULT_SERVER", "whois.iana.org:43"),
		AllowedServers:      getList("WHOIS_ALLOWED_SERVERS"),
		WorkerPoolSize:      getInt("WORKER_POOL_SIZE", runtime.NumCPU()*2),
		CORSOrigins:         os.Getenv("CORS_ORIGINS"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AuthEnabled:         getBool("API_AUTH_ENABLED", false),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 60),
		LenientDates:        getBool("LENIENT_DATES", false),
		HealthCheckInterval: getDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
	}

	if cfg.LogFile == "" && cfg.IsProduction() {
		cfg.LogFile = "logs/server.log"
	}
	return cfg
}

// IsProduction 是否生产环境
func (c Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// Addr 监听地址，端口缺少冒号前缀时补齐
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Validate 检查互相依赖的配置项
func (c Config) Validate() error {
	if c.AuthEnabled && c.JWTSecret == "" {
		return errors.New("config: API_AUTH_ENABLED requires JWT_SECRET")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

// getList 逗号分隔的列表，忽略空项
func getList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// getDuration 接受Go时长格式（10s）或纯秒数
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
