package sockjs

import "time"

// Settings configures one Endpoint. DefaultSettings produces the
// library's recommended defaults.
type Settings struct {
	// SessionCheckInterval is the GC tick period.
	SessionCheckInterval time.Duration
	// HeartbeatDelay is the period of the pool's heartbeat pass, which
	// writes an "h" frame to every registered session's send transport.
	// The WebSocket transport sends no ping control frames; it only
	// refreshes the session TTL when a pong arrives.
	HeartbeatDelay time.Duration
	// HeartbeatTimeout is added to a session's ttl on top of
	// HeartbeatDelay.
	HeartbeatTimeout time.Duration
	// DisconnectDelay is the TTL applied after a transport detaches.
	DisconnectDelay time.Duration
	// DisabledTransports lists transport names to omit from the route
	// table and /info.
	DisabledTransports map[string]bool
	// SockJSURL is interpolated into the iframe bootstrap HTML.
	SockJSURL string
	// ResponseLimit is the byte budget for streaming transports.
	ResponseLimit int64
	// CookieAffinity enables JSESSIONID echo and /info.cookie_needed.
	CookieAffinity bool
	// ImmediateFlush makes Session.Send attempt a write on every call;
	// false means every Send buffers and a later Flush call is required.
	ImmediateFlush bool
	// DisableNagle sets TCP_NODELAY on WebSocket connections. HTTP
	// streaming responses keep the socket options net/http gives them.
	DisableNagle bool
	// VerifyIP pins a session to its originating remote IP.
	VerifyIP bool
	// WebSocketAllowOrigin is the cross-origin policy for the WebSocket
	// transport; "*" accepts all origins.
	WebSocketAllowOrigin string
	// MaxOutboundBuffer bounds the number of pending encoded payloads a
	// session will buffer before Send starts failing with ErrQueueFull.
	// 0 (the default) means unbounded; operators embedding this library
	// in a memory constrained environment may want a real cap.
	MaxOutboundBuffer int
}

// DefaultSettings returns the library's recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		SessionCheckInterval: time.Second,
		HeartbeatDelay:       25 * time.Second,
		HeartbeatTimeout:     5 * time.Second,
		DisconnectDelay:      5 * time.Second,
		DisabledTransports:   map[string]bool{},
		SockJSURL:            "https://cdn.jsdelivr.net/npm/sockjs-client@1/dist/sockjs.min.js",
		ResponseLimit:        128 * 1024,
		CookieAffinity:       true,
		ImmediateFlush:       true,
		DisableNagle:         true,
		VerifyIP:             true,
		WebSocketAllowOrigin: "*",
	}
}

func (s Settings) transportDisabled(name string) bool {
	return s.DisabledTransports != nil && s.DisabledTransports[name]
}

func (s Settings) sessionTTL() time.Duration {
	return s.HeartbeatDelay + s.HeartbeatTimeout
}
