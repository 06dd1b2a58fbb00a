// Package rtc issues join tokens for the external real-time media network.
// The media pipeline itself (capture, codecs, transport) is entirely owned
// by that network; this module only signs the credentials a client presents
// when joining a channel.
package rtc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Role of the token holder inside a media channel.
type Role int

const (
	RolePublisher  Role = 1
	RoleSubscriber Role = 2
)

// ErrNoAppID is returned when token issuance is attempted without an app id.
var ErrNoAppID = errors.New("rtc app id not configured")

// Config holds the media-network credentials.
type Config struct {
	AppID          string
	AppCertificate string
	TokenExpiry    time.Duration
}

// DefaultConfig returns the default token settings.
func DefaultConfig() Config {
	return Config{
		TokenExpiry: time.Hour,
	}
}

// TokenBuilder signs channel-join tokens with the app certificate.
type TokenBuilder struct {
	config Config
	now    func() time.Time
}

// NewTokenBuilder creates a new TokenBuilder.
func NewTokenBuilder(config Config) *TokenBuilder {
	return &TokenBuilder{
		config: config,
		now:    time.Now,
	}
}

// AppID returns the configured media app id.
func (b *TokenBuilder) AppID() string {
	return b.config.AppID
}

// BuildToken signs a token binding channel, uid and role to an expiry.
// Without an app certificate it returns an empty token: development setups
// run the media network in insecure mode and join with the app id alone.
func (b *TokenBuilder) BuildToken(channel string, uid uint, role Role) (string, error) {
	if b.config.AppID == "" {
		return "", ErrNoAppID
	}
	if b.config.AppCertificate == "" {
		return "", nil
	}

	expireAt := b.now().Add(b.config.TokenExpiry).Unix()
	payload := fmt.Sprintf("%s:%s:%d:%d:%d", b.config.AppID, channel, uid, role, expireAt)

	mac := hmac.New(sha256.New, []byte(b.config.AppCertificate))
	mac.Write([]byte(payload))
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(sig), nil
}

// ExpirySeconds returns the token lifetime in seconds, for the client.
func (b *TokenBuilder) ExpirySeconds() int64 {
	return int64(b.config.TokenExpiry.Seconds())
}
