// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// service echoes every received PDU back to its sender.
type service struct {
	name    string
	typ     llcp.SocketType
	options llcp.SocketOptions
}

func (svc service) String() string {
	return fmt.Sprintf("%s(%v)", svc.name, svc.typ)
}

// start binds this service on a Transport.
func (svc service) start(tr *llcp.Transport) error {
	h, err := tr.Socket(svc.typ, svc.options, func(err error) {
		log.WithError(err).WithField("service", svc).Info("Service socket was torn down")
	})
	if err != nil {
		return err
	}

	if err := tr.Bind(h, svc.name); err != nil {
		_ = tr.Close(h)
		return err
	}

	if svc.typ == llcp.Connectionless {
		svc.echoDatagrams(tr, h)
		return nil
	}

	if err := tr.Listen(h, func(child llcp.Handle, err error) { svc.accept(tr, child, err) }); err != nil {
		_ = tr.Close(h)
		return err
	}
	return nil
}

// accept an incoming connection and start echoing.
func (svc service) accept(tr *llcp.Transport, child llcp.Handle, err error) {
	if err != nil {
		log.WithError(err).WithField("service", svc).Debug("Service stopped listening")
		return
	}

	if err := tr.Accept(child, func(err error) {
		if err != nil {
			log.WithError(err).WithField("service", svc).Debug("Accepting connection failed")
			_ = tr.Close(child)
			return
		}

		log.WithFields(log.Fields{
			"service": svc,
			"socket":  child,
		}).Debug("Service accepted connection")
		svc.echo(tr, child)
	}); err != nil {
		log.WithError(err).WithField("service", svc).Warn("Accepting connection errored")
		_ = tr.Close(child)
	}
}

// echo received PDUs on a connection until it fails.
func (svc service) echo(tr *llcp.Transport, h llcp.Handle) {
	err := tr.Recv(h, func(data []byte, err error) {
		if err != nil {
			log.WithError(err).WithField("socket", h).Debug("Echo connection ended")
			_ = tr.Close(h)
			return
		}

		if err := tr.Send(h, data, func(err error) {
			if err == nil {
				svc.echo(tr, h)
			}
		}); err != nil {
			log.WithError(err).WithField("socket", h).Warn("Echoing PDU errored")
			_ = tr.Close(h)
		}
	})
	if err != nil {
		_ = tr.Close(h)
	}
}

// echoDatagrams answers each datagram with a datagram back to its source SAP.
func (svc service) echoDatagrams(tr *llcp.Transport, h llcp.Handle) {
	err := tr.RecvFrom(h, func(data []byte, ssap pdu.SAP, err error) {
		if err != nil {
			log.WithError(err).WithField("service", svc).Debug("Datagram service stopped")
			return
		}

		if err := tr.SendTo(h, ssap, data, func(error) { svc.echoDatagrams(tr, h) }); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"service": svc,
				"sap":     ssap,
			}).Warn("Echoing datagram errored")
			svc.echoDatagrams(tr, h)
		}
	})
	if err != nil {
		log.WithError(err).WithField("service", svc).Debug("Datagram service stopped")
	}
}
