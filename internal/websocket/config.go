package websocket

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/cdpnet"
)

// RateLimitConfig defines rate limiting for outbound frames
type RateLimitConfig struct {
	// MessagesPerSecond defines how many frames may be written per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns a conservative outbound limit
// Allows 100 messages per second with burst of 200
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

func (c *RateLimitConfig) limiter() *rate.Limiter {
	if c == nil || !c.Enabled {
		return nil
	}
	return rate.NewLimiter(c.MessagesPerSecond, c.Burst)
}

// TransportConfig configures a Transport.
type TransportConfig struct {
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// PingInterval is the keepalive period; zero disables pings.
	PingInterval time.Duration
	// PongWait is the read deadline extended by every pong; zero disables it.
	PongWait time.Duration
	// ReadLimit is the largest inbound frame accepted.
	ReadLimit int64
	// SendBuffer is the capacity of the outbound queue.
	SendBuffer int

	RateLimitConfig *RateLimitConfig
	Header          http.Header
	TLSConfig       *tls.Config
	Logger          zerolog.Logger

	// OnMessage receives every inbound text frame, in arrival order, from
	// the read goroutine.
	OnMessage func(data []byte)
	// OnClose runs exactly once after the connection is fully closed. err is
	// the read error that ended the connection (nil for a local close).
	OnClose func(err error)
}

// DefaultTransportConfig returns the defaults used for debugger connections:
// a 256 MiB read limit, no compression and no outbound rate limit.
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     54 * time.Second,
		ReadLimit:        cdpnet.MaxMessageSize,
		SendBuffer:       256,
		RateLimitConfig:  NoRateLimit(),
		Logger:           zerolog.Nop(),
	}
}
