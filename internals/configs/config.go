package configs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	JWTSecret string
	App       AppConfig
)

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string

	JWTTTL           time.Duration
	BlacklistTTLDays int
	SuperAdminEmail  string
	SuperAdminPass   string
	SuperAdminName   string
	AllowedOrigins   []string

	UploadDir          string
	ImageMaxBytes      int
	ImageMaxDimension  int
	ImageDecodeTimeout time.Duration

	SyncBatchTimeout time.Duration
	SyncMaxBatch     int

	AnalyticsCacheTTL time.Duration
	RedisURL          string

	KafkaBrokers   []string
	KafkaSyncTopic string

	MidtransServerKey string
	MidtransUseProd   bool
	MonthlyPrice      int64
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	envLoaded := false
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		envLoaded = godotenv.Load() == nil
	}

	JWTSecret = GetEnv("JWT_SECRET")
	App = AppConfig{
		Port:     GetEnv("PORT", "3000"),
		Env:      GetEnv("APP_ENV", "development"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),

		JWTTTL:           time.Duration(GetEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
		BlacklistTTLDays: GetEnvInt("TOKEN_BLACKLIST_TTL_DAYS", 7),
		SuperAdminEmail:  GetEnv("SUPER_ADMIN_EMAIL", "super@callmanager.com"),
		SuperAdminPass:   GetEnv("SUPER_ADMIN_PASSWORD"),
		SuperAdminName:   GetEnv("SUPER_ADMIN_NAME", "Super Admin"),
		AllowedOrigins:   GetEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		UploadDir:          GetEnv("UPLOAD_DIR", "./uploads"),
		ImageMaxBytes:      GetEnvInt("IMAGE_MAX_BYTES", 2<<20),
		ImageMaxDimension:  GetEnvInt("IMAGE_MAX_DIMENSION", 1600),
		ImageDecodeTimeout: GetEnvDuration("IMAGE_DECODE_TIMEOUT", 5*time.Second),

		SyncBatchTimeout: GetEnvDuration("SYNC_BATCH_TIMEOUT", 25*time.Second),
		SyncMaxBatch:     GetEnvInt("SYNC_MAX_BATCH", 1000),

		AnalyticsCacheTTL: GetEnvDuration("ANALYTICS_CACHE_TTL", time.Minute),
		RedisURL:          GetEnv("REDIS_URL"),

		KafkaBrokers:   GetEnvList("KAFKA_BROKERS", ""),
		KafkaSyncTopic: GetEnv("KAFKA_SYNC_TOPIC", "callmanager.sync"),

		MidtransServerKey: GetEnv("MIDTRANS_SERVER_KEY"),
		MidtransUseProd:   GetEnvBool("MIDTRANS_USE_PROD", false),
		MonthlyPrice:      int64(GetEnvInt("SUBSCRIPTION_MONTHLY_PRICE", 150000)),
	}

	InitLogger(App.LogLevel, App.Env)
	log := zap.L()
	if envLoaded {
		log.Info(".env file loaded")
	} else {
		log.Info("using environment from the host")
	}
	if JWTSecret == "" {
		log.Warn("JWT_SECRET is not set")
	}
	if App.SuperAdminPass == "" {
		log.Warn("SUPER_ADMIN_PASSWORD is not set, super admin bootstrap is skipped")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func GetEnvBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func GetEnvDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// GetEnvList splits a comma separated value, dropping blanks.
func GetEnvList(key, def string) []string {
	raw := GetEnv(key, def)
	out := make([]string, 0, 4)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
