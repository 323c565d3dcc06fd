package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Env             string
	Port            int
	DBDSN           string
	DBAutoMigrate   bool
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	JWTSecret       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Location        *time.Location
	StrictPipeline  bool
	Mirror          MirrorConfig
	Storage         StorageConfig
	Notifications   NotificationConfig
	Calendar        CalendarConfig
	Reports         ReportConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// MirrorConfig descreve o espelho relacional e a fila de reenvio.
type MirrorConfig struct {
	SQLitePath        string
	Queue             string
	MaxRetry          int
	WorkerConcurrency int
}

// StorageConfig descreve o armazenamento de fotos e documentos.
type StorageConfig struct {
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// NotificationConfig descreve onde as notificações são entregues.
type NotificationConfig struct {
	Store           string
	DynamoEndpoint  string
	DynamoRegion    string
	DynamoTable     string
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPFrom        string
	SMTPFromName    string
	SlackWebhookURL string
}

// CalendarConfig descreve a integração com o Google Calendar.
type CalendarConfig struct {
	CredentialsFile string
	CalendarID      string
}

// ReportConfig descreve a geração periódica de snapshots.
type ReportConfig struct {
	SnapshotCron string
}

// Production indica ambiente de produção.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Env = strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "development")))

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}
	cfg.DBAutoMigrate = parseBoolEnv("DB_AUTO_MIGRATE", false)

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 5, Burst: 10}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Europe/Lisbon"))
	if err != nil {
		return nil, errors.New("TIMEZONE inválido")
	}
	cfg.Location = loc

	cfg.StrictPipeline = parseBoolEnv("PIPELINE_STRICT_TRANSITIONS", false)

	maxRetry, err := parseIntEnv("MIRROR_MAX_RETRY", 10)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseIntEnv("MIRROR_WORKER_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}
	cfg.Mirror = MirrorConfig{
		SQLitePath:        strings.TrimSpace(getEnv("MIRROR_SQLITE_PATH", "data/espelho.db")),
		Queue:             strings.TrimSpace(getEnv("MIRROR_QUEUE", "espelho")),
		MaxRetry:          maxRetry,
		WorkerConcurrency: concurrency,
	}

	cfg.Storage = StorageConfig{
		Provider:  strings.ToLower(strings.TrimSpace(getEnv("STORAGE_PROVIDER", "noop"))),
		Endpoint:  strings.TrimSpace(getEnv("STORAGE_ENDPOINT", "")),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:    strings.TrimSpace(getEnv("STORAGE_BUCKET", "recrutamento")),
		UseSSL:    parseBoolEnv("STORAGE_USE_SSL", true),
		PublicURL: strings.TrimRight(strings.TrimSpace(getEnv("STORAGE_PUBLIC_URL", "")), "/"),
	}
	if cfg.Storage.Provider == "minio" && (cfg.Storage.Endpoint == "" || cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "") {
		return nil, errors.New("STORAGE_ENDPOINT, STORAGE_ACCESS_KEY e STORAGE_SECRET_KEY obrigatórios para minio")
	}

	smtpPort, err := parseIntEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.Notifications = NotificationConfig{
		Store:           strings.ToLower(strings.TrimSpace(getEnv("NOTIFICATIONS_STORE", "postgres"))),
		DynamoEndpoint:  strings.TrimSpace(getEnv("DYNAMODB_ENDPOINT", "")),
		DynamoRegion:    strings.TrimSpace(getEnv("AWS_REGION", "eu-west-1")),
		DynamoTable:     strings.TrimSpace(getEnv("DYNAMODB_NOTIFICATIONS_TABLE", "notificacoes")),
		SMTPHost:        strings.TrimSpace(getEnv("SMTP_HOST", "")),
		SMTPPort:        smtpPort,
		SMTPUser:        getEnv("SMTP_USER", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:        strings.TrimSpace(getEnv("SMTP_FROM", "")),
		SMTPFromName:    strings.TrimSpace(getEnv("SMTP_FROM_NAME", "Recrutamento")),
		SlackWebhookURL: strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", "")),
	}
	switch cfg.Notifications.Store {
	case "postgres", "dynamodb":
	default:
		return nil, errors.New("NOTIFICATIONS_STORE deve ser postgres ou dynamodb")
	}

	cfg.Calendar = CalendarConfig{
		CredentialsFile: strings.TrimSpace(getEnv("GOOGLE_CALENDAR_CREDENTIALS", "")),
		CalendarID:      strings.TrimSpace(getEnv("GOOGLE_CALENDAR_ID", "primary")),
	}

	cfg.Reports = ReportConfig{
		SnapshotCron: strings.TrimSpace(getEnv("REPORT_SNAPSHOT_CRON", "0 3 * * 1")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) bool {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
