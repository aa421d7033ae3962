package nats

import (
	"github.com/nats-io/nats.go"
)

type Nats struct {
	Url   string
	Token string
	Conn  *nats.Conn
}

// Connect dials url. An empty url means events stay inside this process,
// reported as a nil *Nats.
func Connect(url, token, name string) (*Nats, error) {
	if url == "" {
		return nil, nil
	}

	n := &Nats{
		Url:   url,
		Token: token,
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
	}

	// if token provided
	if n.Token != "" {
		opts = append(opts, nats.Token(n.Token))
	}

	conn, err := nats.Connect(n.Url, opts...)
	if err != nil {
		return nil, err
	}

	n.Conn = conn

	return n, nil
}
