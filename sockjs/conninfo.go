package sockjs

import "net/http"

// ConnectionInfo is an immutable snapshot of the HTTP request that
// created or first bound a session. It is handed exactly once to the
// application's open callback and is otherwise read-only for the
// lifetime of the session.
type ConnectionInfo struct {
	IP        string
	Cookies   []*http.Cookie
	Arguments map[string][]string
	Headers   http.Header
	Path      string
}

// Argument returns the first value of a query string argument, or "" if
// it was not supplied.
func (c ConnectionInfo) Argument(name string) string {
	if v, ok := c.Arguments[name]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// Cookie returns the named cookie, or nil if it was not supplied.
func (c ConnectionInfo) Cookie(name string) *http.Cookie {
	for _, ck := range c.Cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// Header returns the first value of the named header, or "" if absent.
func (c ConnectionInfo) Header(name string) string {
	return c.Headers.Get(name)
}

func connInfoFromRequest(r *http.Request) ConnectionInfo {
	return ConnectionInfo{
		IP:        remoteIP(r),
		Cookies:   r.Cookies(),
		Arguments: map[string][]string(r.URL.Query()),
		Headers:   r.Header,
		Path:      r.URL.Path,
	}
}

// remoteIP strips the port from RemoteAddr; it does not consult
// X-Forwarded-For since IP pinning is meant to catch a different client
// reusing a session id, not to be authoritative behind arbitrary proxies.
func remoteIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
		if addr[i] == ']' {
			break
		}
	}
	return addr
}
