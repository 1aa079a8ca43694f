package internal

import (
	"log/slog"
	"os"
	"time"

	"github.com/tinyland-inc/parlor/pkg/broker"
	"github.com/tinyland-inc/parlor/pkg/config"
)

const Logo = "🛋️"

var version = "0.3.0"

func GetVersion() string {
	return version
}

// LoadConfig reads the config file (default location when path is
// empty) with env overrides applied.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.ConfigPath()
	}
	return config.Load(path)
}

// NewLogger builds the process logger, JSON to stdout.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// BrokerOptions maps config onto broker client options for the given
// local identity.
func BrokerOptions(cfg *config.Config, agentID string, logger *slog.Logger) broker.Options {
	return broker.Options{
		BrokerURL:         cfg.Broker.URL,
		ClientID:          cfg.Broker.ClientID,
		AgentID:           agentID,
		Username:          cfg.Broker.Username,
		AutoSubscribe:     cfg.Broker.AutoSubscribe,
		HeartbeatInterval: time.Duration(cfg.Broker.HeartbeatIntervalMS) * time.Millisecond,
		Logger:            logger,
	}
}
