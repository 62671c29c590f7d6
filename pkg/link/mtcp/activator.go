// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mtcp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
)

// Dialer is a link.Activator connecting to a remote Listener.
type Dialer struct {
	address string
	params  link.Params
}

// NewDialer creates a Dialer for the given address, announcing params.
func NewDialer(address string, params link.Params) *Dialer {
	return &Dialer{address: address, params: params}
}

func (d *Dialer) Activate() (l link.Link, err error, retry bool) {
	retry = true

	conn, dialErr := dial(d.address)
	if dialErr != nil {
		err = dialErr
		return
	}

	l, err = link.Activate(NewConn(conn), d.String(), d.params)
	return
}

func (d *Dialer) Close() error {
	return nil
}

func (d *Dialer) String() string {
	return fmt.Sprintf("mtcp://%s", d.address)
}

// Listener is a link.Activator accepting one connection per activation.
type Listener struct {
	listenAddress string
	params        link.Params

	ln      net.Listener
	lnMutex sync.Mutex
}

// NewListener creates a Listener for the given listen address. The socket is
// bound on the first activation.
func NewListener(listenAddress string, params link.Params) *Listener {
	return &Listener{
		listenAddress: listenAddress,
		params:        params,
	}
}

func (l *Listener) listener() (net.Listener, error) {
	l.lnMutex.Lock()
	defer l.lnMutex.Unlock()

	if l.ln != nil {
		return l.ln, nil
	}

	ln, err := net.Listen("tcp", l.listenAddress)
	if err != nil {
		return nil, err
	}
	l.ln = ln
	return ln, nil
}

// Addr returns the bound address or nil, if not listening yet.
func (l *Listener) Addr() net.Addr {
	l.lnMutex.Lock()
	defer l.lnMutex.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) Activate() (lnk link.Link, err error, retry bool) {
	ln, lnErr := l.listener()
	if lnErr != nil {
		return nil, lnErr, true
	}

	conn, acceptErr := ln.Accept()
	if acceptErr != nil {
		return nil, acceptErr, !errors.Is(acceptErr, net.ErrClosed)
	}

	if kaErr := setKeepAlive(conn); kaErr != nil {
		log.WithFields(log.Fields{
			"listener": l,
			"error":    kaErr,
		}).Warn("MTCP listener failed to set keepalive")
	}

	lnk, err = link.Activate(NewConn(conn), fmt.Sprintf("mtcp://%v", conn.RemoteAddr()), l.params)
	return lnk, err, true
}

func (l *Listener) Close() error {
	l.lnMutex.Lock()
	defer l.lnMutex.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

func (l *Listener) String() string {
	return fmt.Sprintf("mtcp://%s", l.listenAddress)
}
