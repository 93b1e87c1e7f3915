// Command echo runs a minimal SockJS endpoint that echoes every message
// back to its sender.
package main

import (
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sockjs/sockjs-go/sockjs"
)

type echoConn struct {
	sockjs.BaseConn
}

func (c *echoConn) OnMessage(msg string) {
	_ = c.Send(msg)
}

func newEchoConn(e *sockjs.Endpoint, s *sockjs.Session) sockjs.Conn {
	return &echoConn{BaseConn: sockjs.NewBaseConn(e, s)}
}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	endpoint := sockjs.NewEndpoint("/echo", newEchoConn, sockjs.WithLogger(log))

	srv := sockjs.NewServer(log)
	if err := srv.AddEndpoint(endpoint); err != nil {
		log.Fatal(err)
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8081"
	}

	log.WithField("addr", addr).Info("echo demo listening")
	if err := srv.Listen(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
