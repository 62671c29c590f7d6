// SPDX-FileCopyrightText: 2021 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp"
)

// echoReply is a received PDU or a failure of the connection.
type echoReply struct {
	data []byte
	err  error
}

// pinger sends pings to an echo service and shows their replies.
type pinger struct {
	transport *llcp.Transport
	link      link.Link
	socket    llcp.Handle

	seq  uint
	sent map[string]time.Time

	closeChan chan os.Signal
	replyChan chan echoReply
}

// receive the next reply; each reply arms the next receive.
func (p *pinger) receive() {
	if err := p.transport.Recv(p.socket, func(data []byte, err error) {
		// Must not block the Transport after handle returned.
		select {
		case p.replyChan <- echoReply{data, err}:
		default:
		}
		if err == nil {
			p.receive()
		}
	}); err != nil {
		p.replyChan <- echoReply{err: err}
	}
}

// handle a pinger's task.
func (p *pinger) handle() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.closeChan:
			return

		case <-ticker.C:
			msg := fmt.Sprintf("ping %d", p.seq)
			p.seq++

			if err := p.transport.Send(p.socket, []byte(msg), nil); err != nil {
				log.WithError(err).Warn("Cannot send ping")
			} else {
				p.sent[msg] = time.Now()
			}

		case reply := <-p.replyChan:
			if reply.err != nil {
				log.WithError(reply.err).Error("Connection failed")
				return
			}

			msg := string(reply.data)
			if start, ok := p.sent[msg]; ok {
				delete(p.sent, msg)
				log.WithFields(log.Fields{
					"reply": msg,
					"rtt":   time.Since(start),
				}).Info("Received reply")
			} else {
				log.WithField("reply", msg).Warn("Received unexpected reply")
			}
		}
	}
}

// close disconnects and detaches the Transport.
func (p *pinger) close() {
	disconnected := make(chan error, 1)
	if err := p.transport.Disconnect(p.socket, func(err error) { disconnected <- err }); err == nil {
		select {
		case <-disconnected:
		case <-time.After(time.Second):
		}
	}

	_ = p.transport.Shutdown()
	_ = p.link.Close()
}

// ping an echo service of a remote llcpd
func ping(args []string) {
	if len(args) != 2 {
		printUsage()
	}

	p := &pinger{
		sent:      make(map[string]time.Time),
		closeChan: make(chan os.Signal, 1),
		replyChan: make(chan echoReply, 4),
	}
	p.transport, p.link = dialTransport(args[0])

	var err error
	if p.socket, err = p.transport.Socket(llcp.ConnectionOriented, llcp.SocketOptions{}, nil); err != nil {
		printFatal(err, "Creating socket errored")
	}

	connected := make(chan error, 1)
	if err := p.transport.ConnectByURI(p.socket, args[1], func(err error) { connected <- err }); err != nil {
		printFatal(err, "Connecting errored")
	}
	if err := <-connected; err != nil {
		printFatal(err, "Connecting failed")
	}
	log.WithField("service", args[1]).Info("Connected")

	signal.Notify(p.closeChan, os.Interrupt)

	p.receive()
	p.handle()
	p.close()
}
