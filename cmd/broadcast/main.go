// Command broadcast runs a SockJS endpoint that fans every inbound
// message out to every other connected client.
package main

import (
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sockjs/sockjs-go/sockjs"
)

type chatConn struct {
	sockjs.BaseConn
}

func (c *chatConn) OnOpen(info sockjs.ConnectionInfo) {
	c.Broadcast("* someone joined")
}

func (c *chatConn) OnMessage(msg string) {
	c.Broadcast(msg)
}

func (c *chatConn) OnClose() {
	c.Broadcast("* someone left")
}

func newChatConn(e *sockjs.Endpoint, s *sockjs.Session) sockjs.Conn {
	return &chatConn{BaseConn: sockjs.NewBaseConn(e, s)}
}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	endpoint := sockjs.NewEndpoint("/broadcast", newChatConn, sockjs.WithLogger(log))

	srv := sockjs.NewServer(log)
	if err := srv.AddEndpoint(endpoint); err != nil {
		log.Fatal(err)
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8082"
	}

	log.WithField("addr", addr).Info("broadcast demo listening")
	if err := srv.Listen(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
