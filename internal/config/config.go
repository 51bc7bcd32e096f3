package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const (
	envVarListenAddr      = "WEBLINK_LISTEN_ADDR"
	envVarMode            = "WEBLINK_MODE"
	envVarLogFormat       = "WEBLINK_LOG_FORMAT"
	envVarLogLevel        = "WEBLINK_LOG_LEVEL"
	envVarShutdownTimeout = "WEBLINK_SHUTDOWN_TIMEOUT"
	envVarAllowedOrigins  = "ALLOWED_ORIGINS"

	// Upgrade-time credential verification.
	envVarAuthMode    = "WEBLINK_AUTH_MODE"
	envVarBearerToken = "WEBLINK_BEARER_TOKEN"

	// WebSocket transport keepalive. These are transport-level knobs; the
	// signaling protocol itself has no heartbeat.
	envVarWSPingInterval = "WEBLINK_WS_PING_INTERVAL"
	envVarWSIdleTimeout  = "WEBLINK_WS_IDLE_TIMEOUT"
	envVarWSSendQueue    = "WEBLINK_WS_SEND_QUEUE"
)

const (
	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultShutdownTimeout = 15 * time.Second

	DefaultWSPingInterval = 20 * time.Second
	DefaultWSIdleTimeout  = 60 * time.Second
	DefaultWSSendQueue    = 32

	DefaultMode     Mode     = ModeDev
	DefaultAuthMode AuthMode = AuthModeNone
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
)

type Config struct {
	ListenAddr      string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        zerolog.Level
	ShutdownTimeout time.Duration

	// AllowedOrigins controls both the CORS allow-origin header and the
	// upgrade-time Origin check. "*" admits any origin.
	AllowedOrigins []string

	AuthMode    AuthMode
	BearerToken string

	WSPingInterval time.Duration
	WSIdleTimeout  time.Duration
	WSSendQueue    int

	// ICEServers is the list served to clients at the ICE endpoint. A parse
	// error does not fail startup; it is recorded here and reported by the
	// endpoint instead.
	ICEServers   []webrtc.ICEServer
	iceConfigErr error
}

func (c Config) ICEConfigError() error {
	return c.iceConfigErr
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	mode, err := parseMode(envOrDefault(lookup, envVarMode, string(DefaultMode)))
	if err != nil {
		return Config{}, err
	}

	logFormat, err := parseLogFormat(envOrDefault(lookup, envVarLogFormat, defaultLogFormatForMode(mode)))
	if err != nil {
		return Config{}, err
	}
	logLevel, err := parseLogLevel(envOrDefault(lookup, envVarLogLevel, defaultLogLevelForMode(mode)))
	if err != nil {
		return Config{}, err
	}

	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	authMode, err := parseAuthMode(envOrDefault(lookup, envVarAuthMode, string(DefaultAuthMode)))
	if err != nil {
		return Config{}, err
	}
	bearerToken := envOrDefault(lookup, envVarBearerToken, "")
	if authMode == AuthModeBearer && strings.TrimSpace(bearerToken) == "" {
		return Config{}, fmt.Errorf("%s is required when %s=%s", envVarBearerToken, envVarAuthMode, AuthModeBearer)
	}

	pingInterval, err := envDurationOrDefault(lookup, envVarWSPingInterval, DefaultWSPingInterval)
	if err != nil {
		return Config{}, err
	}
	idleTimeout, err := envDurationOrDefault(lookup, envVarWSIdleTimeout, DefaultWSIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	if pingInterval >= idleTimeout {
		return Config{}, fmt.Errorf("%s (%s) must be shorter than %s (%s)", envVarWSPingInterval, pingInterval, envVarWSIdleTimeout, idleTimeout)
	}
	sendQueue, err := envIntOrDefault(lookup, envVarWSSendQueue, DefaultWSSendQueue)
	if err != nil {
		return Config{}, err
	}
	if sendQueue < 1 {
		return Config{}, fmt.Errorf("invalid %s %d: must be >= 1", envVarWSSendQueue, sendQueue)
	}

	cfg := Config{
		ListenAddr:      envOrDefault(lookup, envVarListenAddr, DefaultListenAddr),
		Mode:            mode,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ShutdownTimeout: shutdownTimeout,
		AllowedOrigins:  splitCommaSeparated(envOrDefault(lookup, envVarAllowedOrigins, "*")),
		AuthMode:        authMode,
		BearerToken:     bearerToken,
		WSPingInterval:  pingInterval,
		WSIdleTimeout:   idleTimeout,
		WSSendQueue:     sendQueue,
	}

	iceServers, err := parseICEServersFromValues(
		envOrDefault(lookup, envVarICEServersJSON, ""),
		envOrDefault(lookup, envVarStunURLs, ""),
		envOrDefault(lookup, envVarTurnURLs, ""),
		envOrDefault(lookup, envVarTurnUsername, ""),
		envOrDefault(lookup, envVarTurnCredential, ""),
	)
	if err != nil {
		cfg.iceConfigErr = err
	} else {
		cfg.ICEServers = iceServers
	}

	fs := flag.NewFlagSet("weblink-signaling", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "host:port the HTTP server listens on")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// NewLogger builds the root logger from the configured format and level.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	var l zerolog.Logger
	switch cfg.LogFormat {
	case LogFormatConsole:
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	case LogFormatJSON:
		l = zerolog.New(os.Stdout)
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}
	return l.Level(cfg.LogLevel).With().Timestamp().Logger(), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func defaultLogFormatForMode(mode Mode) string {
	if mode == ModeProd {
		return string(LogFormatJSON)
	}
	return string(LogFormatConsole)
}

func defaultLogLevelForMode(mode Mode) string {
	if mode == ModeProd {
		return "info"
	}
	return "debug"
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid %s %q (expected dev or prod)", envVarMode, raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatConsole), "text":
		return LogFormatConsole, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid %s %q (expected console or json)", envVarLogFormat, raw)
	}
}

func parseLogLevel(raw string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid %s %q: %w", envVarLogLevel, raw, err)
	}
	return lvl, nil
}

func parseAuthMode(raw string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(AuthModeNone):
		return AuthModeNone, nil
	case string(AuthModeBearer):
		return AuthModeBearer, nil
	default:
		return "", fmt.Errorf("invalid %s %q (expected %s or %s)", envVarAuthMode, raw, AuthModeNone, AuthModeBearer)
	}
}

func splitCommaSeparated(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
