// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package wsl

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
)

// Dialer is a link.Activator connecting to a WebSocket URL, e.g.,
// ws://peer:8080/llcp.
type Dialer struct {
	url    string
	params link.Params
}

func NewDialer(url string, params link.Params) *Dialer {
	return &Dialer{url: url, params: params}
}

func (d *Dialer) Activate() (l link.Link, err error, retry bool) {
	conn, _, err := websocket.DefaultDialer.Dial(d.url, nil)
	if err != nil {
		return nil, err, true
	}

	l, err = link.Activate(newConn(conn), d.String(), d.params)
	return l, err, true
}

func (d *Dialer) Close() error {
	return nil
}

func (d *Dialer) String() string {
	return d.url
}

// Listener is a link.Activator and a http.Handler. Each upgraded request is
// handed to the next Activate call. The ServeHTTP function must be bound to a
// HTTP server, e.g., to /llcp of a mux.Router.
type Listener struct {
	name   string
	params link.Params

	upgrader websocket.Upgrader
	conns    chan *websocket.Conn

	stopSyn   chan struct{}
	closeOnce sync.Once
}

// NewListener creates a Listener; name describes it, e.g., its URL.
func NewListener(name string, params link.Params) *Listener {
	return &Listener{
		name:   name,
		params: params,

		upgrader: websocket.Upgrader{},
		conns:    make(chan *websocket.Conn),

		stopSyn: make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and waits for an Activate call to take it.
func (l *Listener) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	select {
	case <-l.stopSyn:
		http.Error(rw, "listener closed", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, connErr := l.upgrader.Upgrade(rw, r, nil)
	if connErr != nil {
		log.WithError(connErr).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	select {
	case l.conns <- conn:
	case <-l.stopSyn:
		_ = conn.Close()
	}
}

var errListenerClosed = errors.New("wsl: listener closed")

func (l *Listener) Activate() (lnk link.Link, err error, retry bool) {
	select {
	case conn := <-l.conns:
		lnk, err = link.Activate(newConn(conn), fmt.Sprintf("ws://%v", conn.RemoteAddr()), l.params)
		return lnk, err, true

	case <-l.stopSyn:
		return nil, errListenerClosed, false
	}
}

func (l *Listener) Close() error {
	l.closeOnce.Do(func() { close(l.stopSyn) })
	return nil
}

func (l *Listener) String() string {
	return l.name
}
