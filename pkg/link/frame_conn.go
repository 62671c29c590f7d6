// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// FrameConn exchanges whole frames with a peer. ReadFrame and WriteFrame are
// blocking and might be called concurrently to each other.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// FrameLink is a Link on top of a FrameConn.
type FrameLink struct {
	conn   FrameConn
	name   string
	local  Params
	remote Params

	sending   int32
	receiving int32

	doneChan  chan struct{}
	closeOnce sync.Once
}

// Activate a FrameLink by exchanging PAX PDUs with the peer.
// The FrameConn is closed if the activation fails.
func Activate(conn FrameConn, name string, local Params) (*FrameLink, error) {
	fail := func(err error) (*FrameLink, error) {
		_ = conn.Close()
		return nil, err
	}

	params, err := local.Parameters()
	if err != nil {
		return fail(err)
	}
	payload, err := params.MarshalBinary()
	if err != nil {
		return fail(err)
	}
	pax, err := pdu.NewFrame(pdu.NewHeader(pdu.SAPLinkManagement, pdu.PAX, pdu.SAPLinkManagement), payload).MarshalBinary()
	if err != nil {
		return fail(err)
	}

	writeErr := make(chan error, 1)
	go func() { writeErr <- conn.WriteFrame(pax) }()

	var remote Params
	for {
		data, readErr := conn.ReadFrame()
		if readErr != nil {
			return fail(fmt.Errorf("reading PAX from %s: %w", name, readErr))
		}

		frame, frameErr := pdu.ParseFrame(data)
		if frameErr != nil {
			return fail(fmt.Errorf("parsing PAX from %s: %w", name, frameErr))
		} else if frame.Header.PType == pdu.SYMM {
			continue
		} else if frame.Header.PType != pdu.PAX {
			return fail(fmt.Errorf("expected PAX from %s, got %v", name, frame.Header))
		}

		remoteParams, paramsErr := pdu.ParseParameters(frame.Payload)
		if paramsErr != nil {
			return fail(fmt.Errorf("parsing PAX parameters from %s: %w", name, paramsErr))
		}
		remote = ParamsFrom(remoteParams)
		break
	}

	if err := <-writeErr; err != nil {
		return fail(fmt.Errorf("writing PAX to %s: %w", name, err))
	}

	if remote.Version>>4 != local.Version>>4 {
		return fail(fmt.Errorf("%s announced %v: %w", name, remote, ErrVersionMismatch))
	}

	log.WithFields(log.Fields{
		"link":   name,
		"local":  local,
		"remote": remote,
	}).Info("Link activated")

	return &FrameLink{
		conn:     conn,
		name:     name,
		local:    local,
		remote:   remote,
		doneChan: make(chan struct{}),
	}, nil
}

func (fl *FrameLink) Send(frame pdu.Frame, done func(error)) error {
	if len(frame.Payload) > fl.remote.MIU {
		return fmt.Errorf("%v with %d octets, MIU %d: %w", frame.Header, len(frame.Payload), fl.remote.MIU, ErrFrameTooLarge)
	}

	data, err := frame.MarshalBinary()
	if err != nil {
		return err
	}

	select {
	case <-fl.doneChan:
		return ErrClosed
	default:
	}

	if !atomic.CompareAndSwapInt32(&fl.sending, 0, 1) {
		return ErrBusy
	}

	go func() {
		writeErr := fl.conn.WriteFrame(data)
		if writeErr != nil {
			log.WithError(writeErr).WithFields(log.Fields{
				"link":  fl.name,
				"frame": frame,
			}).Debug("Writing frame errored")
		}

		atomic.StoreInt32(&fl.sending, 0)
		done(writeErr)
	}()

	return nil
}

func (fl *FrameLink) Receive(done func([]byte, error)) error {
	select {
	case <-fl.doneChan:
		return ErrClosed
	default:
	}

	if !atomic.CompareAndSwapInt32(&fl.receiving, 0, 1) {
		return ErrBusy
	}

	go func() {
		for {
			data, err := fl.conn.ReadFrame()
			if err != nil {
				log.WithError(err).WithField("link", fl.name).Debug("Reading frame errored, link is lost")
				fl.shutdown()

				atomic.StoreInt32(&fl.receiving, 0)
				done(nil, err)
				return
			}

			// Symmetry and parameter exchanges are link layer business.
			if h, hErr := pdu.ParseHeader(data); hErr == nil && (h.PType == pdu.SYMM || h.PType == pdu.PAX) {
				continue
			}

			atomic.StoreInt32(&fl.receiving, 0)
			done(data, nil)
			return
		}
	}()

	return nil
}

func (fl *FrameLink) LocalParams() Params {
	return fl.local
}

func (fl *FrameLink) RemoteParams() Params {
	return fl.remote
}

func (fl *FrameLink) Done() <-chan struct{} {
	return fl.doneChan
}

func (fl *FrameLink) shutdown() (err error) {
	fl.closeOnce.Do(func() {
		close(fl.doneChan)
		err = fl.conn.Close()
	})
	return
}

func (fl *FrameLink) Close() error {
	return fl.shutdown()
}

func (fl *FrameLink) String() string {
	return fl.name
}
