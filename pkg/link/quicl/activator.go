// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quicl

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/link/quicl/internal"
)

const handshakeTimeout = 2 * time.Second

// Dialer is a link.Activator opening a QUIC connection and its stream.
type Dialer struct {
	address string
	params  link.Params
}

func NewDialer(address string, params link.Params) *Dialer {
	return &Dialer{address: address, params: params}
}

func (d *Dialer) Activate() (l link.Link, err error, retry bool) {
	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	connection, err := quic.DialAddr(ctx, d.address, internal.GenerateDialerTLSConfig(), internal.GenerateQUICConfig())
	if err != nil {
		return nil, err, true
	}

	stream, err := connection.OpenStreamSync(ctx)
	if err != nil {
		_ = connection.CloseWithError(internal.LocalError, "opening stream failed")
		return nil, err, true
	}

	l, err = link.Activate(newStreamConn(connection, stream), d.String(), d.params)
	return l, err, true
}

func (d *Dialer) Close() error {
	return nil
}

func (d *Dialer) String() string {
	return fmt.Sprintf("quicl://%s", d.address)
}

// Listener is a link.Activator accepting one QUIC connection per activation.
type Listener struct {
	listenAddress string
	params        link.Params

	listener *quic.Listener
	tlsConf  *tls.Config
	mutex    sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewListener(listenAddress string, params link.Params) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		listenAddress: listenAddress,
		params:        params,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (l *Listener) quicListener() (*quic.Listener, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.listener != nil {
		return l.listener, nil
	}

	if l.tlsConf == nil {
		tlsConf, err := internal.GenerateListenerTLSConfig()
		if err != nil {
			return nil, err
		}
		l.tlsConf = tlsConf
	}

	listener, err := quic.ListenAddr(l.listenAddress, l.tlsConf, internal.GenerateQUICConfig())
	if err != nil {
		return nil, err
	}
	l.listener = listener
	return listener, nil
}

// Addr returns the bound address or nil, if not listening yet.
func (l *Listener) Addr() net.Addr {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

func (l *Listener) Activate() (lnk link.Link, err error, retry bool) {
	listener, err := l.quicListener()
	if err != nil {
		return nil, err, true
	}

	connection, err := listener.Accept(l.ctx)
	if err != nil {
		return nil, err, l.ctx.Err() == nil && !errors.Is(err, quic.ErrServerClosed)
	}

	streamCtx, cancel := context.WithTimeout(l.ctx, handshakeTimeout)
	defer cancel()

	stream, err := connection.AcceptStream(streamCtx)
	if err != nil {
		log.WithFields(log.Fields{
			"listener": l,
			"peer":     connection.RemoteAddr(),
			"error":    err,
		}).Debug("QUIC peer opened no stream")

		_ = connection.CloseWithError(internal.LocalError, "no stream opened")
		return nil, err, true
	}

	name := fmt.Sprintf("quicl://%v", connection.RemoteAddr())
	lnk, err = link.Activate(newStreamConn(connection, stream), name, l.params)
	return lnk, err, true
}

func (l *Listener) Close() error {
	l.cancel()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (l *Listener) String() string {
	return fmt.Sprintf("quicl://%s", l.listenAddress)
}
