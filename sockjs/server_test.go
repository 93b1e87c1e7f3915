package sockjs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *Endpoint) {
	t.Helper()
	settings := DefaultSettings()
	settings.SessionCheckInterval = time.Hour
	settings.HeartbeatDelay = time.Hour

	e := NewEndpoint("/echo", func(ep *Endpoint, s *Session) Conn {
		return &echoTestConn{BaseConn: NewBaseConn(ep, s)}
	}, WithSettings(settings))

	srv := NewServer(nil)
	require.NoError(t, srv.AddEndpoint(e))
	return srv, e
}

type echoTestConn struct {
	BaseConn
}

func (c *echoTestConn) OnMessage(msg string) { _ = c.Send(msg) }

func TestServerGreeting(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/echo/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, greetingBody, rec.Body.String())
}

func TestServerInfo(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/echo/info", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, no-transform, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))

	var info infoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Websocket)
	assert.True(t, info.CookieNeeded)
}

func TestServerInfoOptionsPreflight(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/echo/info", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerIFrameCaching(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/echo/iframe.html", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req2 := httptest.NewRequest(http.MethodGet, "/echo/iframe.html", nil)
	req2.Header.Set("If-None-Match", etag)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req2)

	assert.Equal(t, http.StatusNotModified, rec2.Code)
}

func TestServerXHRRoundTrip(t *testing.T) {
	srv, e := testServer(t)

	open := httptest.NewRequest(http.MethodPost, "/echo/srv/sess1/xhr", nil)
	openRec := httptest.NewRecorder()
	srv.ServeHTTP(openRec, open)

	require.Equal(t, http.StatusOK, openRec.Code)
	assert.Equal(t, "o\n", openRec.Body.String())

	sess := e.GetSession("sess1")
	require.NotNil(t, sess)
	assert.Equal(t, SessionOpen, sess.State())

	send := httptest.NewRequest(http.MethodPost, "/echo/srv/sess1/xhr_send", strings.NewReader(`["hello"]`))
	sendRec := httptest.NewRecorder()
	srv.ServeHTTP(sendRec, send)
	assert.Equal(t, http.StatusNoContent, sendRec.Code)

	poll := httptest.NewRequest(http.MethodPost, "/echo/srv/sess1/xhr", nil)
	pollRec := httptest.NewRecorder()
	srv.ServeHTTP(pollRec, poll)

	require.Equal(t, http.StatusOK, pollRec.Code)
	assert.Equal(t, `a["hello"]`+"\n", pollRec.Body.String())
}

func TestServerXHRSendUnknownSession404(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/echo/srv/missing/xhr_send", strings.NewReader(`["hi"]`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerDuplicatePrefixRejected(t *testing.T) {
	srv, e := testServer(t)
	dup := NewEndpoint(e.Prefix(), func(ep *Endpoint, s *Session) Conn { return &BaseConn{} })
	assert.Error(t, srv.AddEndpoint(dup))
}
