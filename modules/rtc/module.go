package rtc

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
)

// Module wraps the token builder in the application lifecycle.
type Module struct {
	builder *TokenBuilder
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new rtc Module from environment configuration.
func NewModule() *Module {
	return &Module{
		builder: NewTokenBuilder(loadConfig()),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rtc"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	if m.builder.config.AppCertificate == "" {
		log.Println("[rtc] Module started (no certificate - issuing empty dev tokens)")
	} else {
		log.Println("[rtc] Module started")
	}
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[rtc] Module stopped")
	return nil
}

// Builder exposes the token builder to the API module.
func (m *Module) Builder() *TokenBuilder {
	return m.builder
}

// loadConfig loads media-network credentials from environment variables.
func loadConfig() Config {
	config := DefaultConfig()

	config.AppID = os.Getenv("RTC_APP_ID")
	config.AppCertificate = os.Getenv("RTC_APP_CERTIFICATE")
	if v := os.Getenv("RTC_TOKEN_EXPIRATION"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.TokenExpiry = time.Duration(secs) * time.Second
		}
	}
	return config
}
