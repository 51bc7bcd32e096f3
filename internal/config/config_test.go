package config

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envMap(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Mode != ModeDev {
		t.Errorf("Mode = %q, want dev", cfg.Mode)
	}
	if cfg.LogFormat != LogFormatConsole {
		t.Errorf("LogFormat = %q, want console", cfg.LogFormat)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
	if cfg.AuthMode != AuthModeNone {
		t.Errorf("AuthMode = %q, want none", cfg.AuthMode)
	}
	if cfg.WSPingInterval != DefaultWSPingInterval || cfg.WSIdleTimeout != DefaultWSIdleTimeout {
		t.Errorf("keepalive = %v/%v, want defaults", cfg.WSPingInterval, cfg.WSIdleTimeout)
	}
	if cfg.WSSendQueue != DefaultWSSendQueue {
		t.Errorf("WSSendQueue = %d, want %d", cfg.WSSendQueue, DefaultWSSendQueue)
	}
	if len(cfg.ICEServers) != 0 || cfg.ICEConfigError() != nil {
		t.Errorf("ICE = %v / %v, want none", cfg.ICEServers, cfg.ICEConfigError())
	}
}

func TestLoad_ProdModeSwitchesLogDefaults(t *testing.T) {
	cfg, err := load(envMap(map[string]string{"WEBLINK_MODE": "prod"}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.LogLevel != zerolog.InfoLevel {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"WEBLINK_LISTEN_ADDR":      "0.0.0.0:9000",
		"WEBLINK_MODE":             "production",
		"WEBLINK_LOG_FORMAT":       "console",
		"WEBLINK_LOG_LEVEL":        "warn",
		"WEBLINK_SHUTDOWN_TIMEOUT": "5s",
		"ALLOWED_ORIGINS":          "https://a.example.com, https://b.example.com",
		"WEBLINK_WS_PING_INTERVAL": "10s",
		"WEBLINK_WS_IDLE_TIMEOUT":  "30s",
		"WEBLINK_WS_SEND_QUEUE":    "64",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Mode != ModeProd || cfg.LogFormat != LogFormatConsole || cfg.LogLevel != zerolog.WarnLevel {
		t.Errorf("mode/log = %q/%q/%v", cfg.Mode, cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != want[0] || cfg.AllowedOrigins[1] != want[1] {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.WSPingInterval != 10*time.Second || cfg.WSIdleTimeout != 30*time.Second || cfg.WSSendQueue != 64 {
		t.Errorf("ws transport = %v/%v/%d", cfg.WSPingInterval, cfg.WSIdleTimeout, cfg.WSSendQueue)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	cfg, err := load(envMap(map[string]string{"WEBLINK_LISTEN_ADDR": "127.0.0.1:1111"}), []string{"-listen-addr", "127.0.0.1:2222"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:2222" {
		t.Errorf("ListenAddr = %q, want flag value", cfg.ListenAddr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mode", map[string]string{"WEBLINK_MODE": "staging"}, "WEBLINK_MODE"},
		{"log format", map[string]string{"WEBLINK_LOG_FORMAT": "xml"}, "WEBLINK_LOG_FORMAT"},
		{"log level", map[string]string{"WEBLINK_LOG_LEVEL": "loud"}, "WEBLINK_LOG_LEVEL"},
		{"shutdown timeout", map[string]string{"WEBLINK_SHUTDOWN_TIMEOUT": "fast"}, "WEBLINK_SHUTDOWN_TIMEOUT"},
		{"auth mode", map[string]string{"WEBLINK_AUTH_MODE": "mtls"}, "WEBLINK_AUTH_MODE"},
		{"bearer without token", map[string]string{"WEBLINK_AUTH_MODE": "bearer"}, "WEBLINK_BEARER_TOKEN"},
		{"send queue", map[string]string{"WEBLINK_WS_SEND_QUEUE": "0"}, "WEBLINK_WS_SEND_QUEUE"},
		{"ping not below idle", map[string]string{
			"WEBLINK_WS_PING_INTERVAL": "30s",
			"WEBLINK_WS_IDLE_TIMEOUT":  "30s",
		}, "WEBLINK_WS_PING_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envMap(tt.env), nil)
			if err == nil {
				t.Fatalf("load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestLoad_ICEErrorIsDeferred(t *testing.T) {
	cfg, err := load(envMap(map[string]string{"WEBLINK_STUN_URLS": "https://not-stun.example.com"}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ICEConfigError() == nil {
		t.Fatalf("expected deferred ICE config error")
	}
	if len(cfg.ICEServers) != 0 {
		t.Fatalf("ICEServers = %v, want none", cfg.ICEServers)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []LogFormat{LogFormatConsole, LogFormatJSON} {
		if _, err := NewLogger(Config{LogFormat: format, LogLevel: zerolog.InfoLevel}); err != nil {
			t.Errorf("NewLogger(%s): %v", format, err)
		}
	}
	if _, err := NewLogger(Config{LogFormat: "xml"}); err == nil {
		t.Errorf("NewLogger accepted unknown format")
	}
}
