package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像里可能没有时区数据库

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Log          LogConfig `mapstructure:"log"`
	Database     DatabaseConfig
	JWT          JWTConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Leaderboard  LeaderboardConfig  `mapstructure:"leaderboard"`
	Gamification GamificationConfig `mapstructure:"gamification"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
	// 每个用户每分钟允许的测验提交次数
	SubmissionsPerMinute int `mapstructure:"submissions_per_minute"`
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	Charset      string
	ParseTime    bool
	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// EngineConfig 学习进度引擎的可调参数
type EngineConfig struct {
	Timezone         string `mapstructure:"timezone"`
	PointsPerCorrect int    `mapstructure:"points_per_correct"`
	MasteryThreshold int    `mapstructure:"mastery_threshold"`
	ReviewMaxRetries int    `mapstructure:"review_max_retries"`
}

// Location 日历日计算使用的时区，非法值回退到本地时区
func (e EngineConfig) Location() *time.Location {
	if e.Timezone == "" || strings.EqualFold(e.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type LeaderboardConfig struct {
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type GamificationConfig struct {
	DailyTasks []DailyTaskConfig `mapstructure:"daily_tasks"`
}

type DailyTaskConfig struct {
	Type         string `mapstructure:"type"`
	Title        string `mapstructure:"title"`
	Target       int    `mapstructure:"target"`
	XPReward     int    `mapstructure:"xp_reward"`
	AutoComplete bool   `mapstructure:"auto_complete"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("tracing.service_name", "learning-progress")
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.submissions_per_minute", 30)

	v.SetDefault("engine.timezone", "Local")
	v.SetDefault("engine.points_per_correct", 10)
	v.SetDefault("engine.mastery_threshold", 3)
	v.SetDefault("engine.review_max_retries", 5)

	v.SetDefault("leaderboard.default_limit", 100)
	v.SetDefault("leaderboard.max_limit", 500)
	v.SetDefault("leaderboard.cache_ttl", 30*time.Second)

	v.SetDefault("gamification.daily_tasks", []map[string]interface{}{
		{"type": "LOGIN", "title": "每日登录", "target": 1, "xp_reward": 50, "auto_complete": true},
		{"type": "COMPLETE_LESSON", "title": "完成 1 节课程", "target": 1, "xp_reward": 100},
		{"type": "QUIZ_SCORE", "title": "完成 1 次测验", "target": 1, "xp_reward": 80},
	})
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PROGRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Engine.PointsPerCorrect < 0 {
		return fmt.Errorf("engine.points_per_correct must not be negative, got %d", c.Engine.PointsPerCorrect)
	}
	if c.Engine.MasteryThreshold < 1 {
		return fmt.Errorf("engine.mastery_threshold must be at least 1, got %d", c.Engine.MasteryThreshold)
	}
	seen := make(map[string]bool, len(c.Gamification.DailyTasks))
	for _, t := range c.Gamification.DailyTasks {
		key := strings.ToUpper(t.Type)
		if seen[key] {
			return fmt.Errorf("duplicate daily task type %q", t.Type)
		}
		seen[key] = true
		if t.Target < 1 {
			return fmt.Errorf("daily task %q: target must be at least 1", t.Type)
		}
	}
	return nil
}
