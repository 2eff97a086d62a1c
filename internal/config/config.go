package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/riskibarqy/goldstats-live/internal/platform/resilience"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	CORSAllowedOrigins []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	SwaggerEnabled     bool
	LogLevel           logging.Level

	GoldstatsBaseURL      string
	GoldstatsAPIKey       string
	GoldstatsTimeout      time.Duration
	GoldstatsMaxRetries   int
	GoldstatsRetryBackoff time.Duration
	GoldstatsCircuit      resilience.CircuitBreakerConfig

	LiveSocketURL               string
	LiveSocketNamespace         string
	LiveSocketReconnectAttempts int
	LiveSocketReconnectDelay    time.Duration
	LiveSocketPingInterval      time.Duration
	LiveStreamPingInterval      time.Duration
	LiveStreamQueueSize         int

	AssistantBaseURL string
	AssistantTimeout time.Duration
	AssistantCircuit resilience.CircuitBreakerConfig

	SnapshotWorkers int
	CacheEnabled    bool
	CacheTTL        time.Duration

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	BetterStackEnabled         bool
	BetterStackEndpoint        string
	BetterStackToken           string
	BetterStackTimeout         time.Duration
	BetterStackMinLevel        logging.Level
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	cfg := Config{
		AppEnv:              appEnv,
		ServiceName:         getEnv("APP_SERVICE_NAME", "goldstats-live-api"),
		ServiceVersion:      getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:            getEnv("APP_HTTP_ADDR", ":8080"),
		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:            parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		GoldstatsBaseURL:    strings.TrimSpace(getEnv("GOLDSTATS_BASE_URL", "http://127.0.0.1:3333/api")),
		GoldstatsAPIKey:     strings.TrimSpace(getEnv("GOLDSTATS_API_KEY", "")),
		LiveSocketURL:       strings.TrimSpace(getEnv("LIVE_SOCKET_URL", "ws://127.0.0.1:3333")),
		LiveSocketNamespace: strings.TrimSpace(getEnv("LIVE_SOCKET_NAMESPACE", "/goldstats")),
		AssistantBaseURL:    strings.TrimSpace(getEnv("ASSISTANT_BASE_URL", "http://127.0.0.1:3333/api")),
		UptraceDSN:          strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		BetterStackEndpoint: strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", "")),
		BetterStackToken:    strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackMinLevel: parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error")),
		PprofAddr:           strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),

		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}

	p := parser{}
	cfg.SwaggerEnabled = p.boolean("SWAGGER_ENABLED", swaggerDefault)
	cfg.ReadTimeout = p.duration("APP_READ_TIMEOUT", "10s")
	// Live streams outlive the write timeout; it only bounds plain JSON responses.
	cfg.WriteTimeout = p.duration("APP_WRITE_TIMEOUT", "15s")
	cfg.ShutdownTimeout = p.duration("APP_SHUTDOWN_TIMEOUT", "10s")

	cfg.GoldstatsTimeout = p.duration("GOLDSTATS_TIMEOUT", "10s")
	cfg.GoldstatsMaxRetries = p.integer("GOLDSTATS_MAX_RETRIES", 1, 0)
	cfg.GoldstatsRetryBackoff = p.duration("GOLDSTATS_RETRY_BACKOFF", "250ms")
	cfg.GoldstatsCircuit = p.circuit("GOLDSTATS")

	cfg.LiveSocketReconnectAttempts = p.integer("LIVE_SOCKET_RECONNECT_ATTEMPTS", 5, 0)
	cfg.LiveSocketReconnectDelay = p.duration("LIVE_SOCKET_RECONNECT_DELAY", "1s")
	cfg.LiveSocketPingInterval = p.duration("LIVE_SOCKET_PING_INTERVAL", "25s")
	cfg.LiveStreamPingInterval = p.duration("LIVE_STREAM_PING_INTERVAL", "30s")
	cfg.LiveStreamQueueSize = p.integer("LIVE_STREAM_QUEUE_SIZE", 64, 1)

	cfg.AssistantTimeout = p.duration("ASSISTANT_TIMEOUT", "30s")
	cfg.AssistantCircuit = p.circuit("ASSISTANT")

	cfg.SnapshotWorkers = p.integer("SNAPSHOT_WORKERS", 64, 1)
	cfg.CacheEnabled = p.boolean("CACHE_ENABLED", "true")
	cfg.CacheTTL = p.duration("CACHE_TTL", "60s")

	cfg.PprofEnabled = p.boolean("PPROF_ENABLED", "false")
	cfg.UptraceEnabled = p.boolean("UPTRACE_ENABLED", "false")
	cfg.UptraceLogsEnabled = p.boolean("UPTRACE_LOGS_ENABLED", "true")
	cfg.BetterStackEnabled = p.boolean("BETTERSTACK_ENABLED", "false")
	cfg.BetterStackTimeout = p.duration("BETTERSTACK_TIMEOUT", "3s")
	cfg.PyroscopeEnabled = p.boolean("PYROSCOPE_ENABLED", "false")
	cfg.PyroscopeUploadRate = p.duration("PYROSCOPE_UPLOAD_RATE", "15s")

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case len(c.CORSAllowedOrigins) == 0:
		return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	case c.GoldstatsBaseURL == "":
		return fmt.Errorf("GOLDSTATS_BASE_URL cannot be empty")
	case c.LiveSocketURL == "":
		return fmt.Errorf("LIVE_SOCKET_URL cannot be empty")
	case !strings.HasPrefix(c.LiveSocketNamespace, "/"):
		return fmt.Errorf("LIVE_SOCKET_NAMESPACE must start with /")
	case c.AssistantBaseURL == "":
		return fmt.Errorf("ASSISTANT_BASE_URL cannot be empty")
	case c.UptraceEnabled && c.UptraceDSN == "":
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	case c.BetterStackEnabled && c.BetterStackEndpoint == "":
		return fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	case c.PprofEnabled && c.PprofAddr == "":
		return fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	case c.PyroscopeEnabled && c.PyroscopeServerAddress == "":
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	case c.PyroscopeEnabled && c.PyroscopeAppName == "":
		return fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	return nil
}

// parser keeps the first parse error so Load reads as a flat list of settings.
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
}

func (p *parser) boolean(key, fallback string) bool {
	out, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		p.fail(key, err)
	}
	return out
}

// duration rejects zero and negative values.
func (p *parser) duration(key, fallback string) time.Duration {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if out <= 0 {
		p.fail(key, fmt.Errorf("must be > 0"))
	}
	return out
}

func (p *parser) integer(key string, fallback, min int) int {
	out, err := getEnvAsInt(key, fallback)
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if out < min {
		p.fail(key, fmt.Errorf("must be >= %d", min))
	}
	return out
}

// circuit reads <PREFIX>_CIRCUIT_ENABLED, _FAILURE_COUNT, _OPEN_TIMEOUT and
// _HALF_OPEN_MAX_REQ.
func (p *parser) circuit(prefix string) resilience.CircuitBreakerConfig {
	defaults := resilience.DefaultCircuitBreakerConfig()
	return resilience.CircuitBreakerConfig{
		Enabled:          p.boolean(prefix+"_CIRCUIT_ENABLED", strconv.FormatBool(defaults.Enabled)),
		FailureThreshold: p.integer(prefix+"_CIRCUIT_FAILURE_COUNT", defaults.FailureThreshold, 1),
		OpenTimeout:      p.duration(prefix+"_CIRCUIT_OPEN_TIMEOUT", defaults.OpenTimeout.String()),
		HalfOpenMaxReq:   p.integer(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", defaults.HalfOpenMaxReq, 1),
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.Atoi(value)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		}
	}
	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
