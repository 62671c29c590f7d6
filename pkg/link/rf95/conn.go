// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package rf95

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/howeyc/crc16"
	log "github.com/sirupsen/logrus"
)

// crcLen is the length of the CRC-16 trailer.
const crcLen = 2

var crc16table = crc16.MakeTable(crc16.CCITT)

// ErrPacketTooLarge is returned for frames exceeding the modem's MTU.
var ErrPacketTooLarge = errors.New("rf95: frame exceeds modem MTU")

// ModemConn is a link.FrameConn on a Modem.
type ModemConn struct {
	modem Modem
}

// NewModemConn wraps a Modem.
func NewModemConn(modem Modem) *ModemConn {
	return &ModemConn{modem: modem}
}

// MaxFrameLen is the longest frame fitting into one packet.
func (mc *ModemConn) MaxFrameLen() int {
	return mc.modem.Mtu() - crcLen
}

// ReadFrame returns the next packet with a valid checksum.
func (mc *ModemConn) ReadFrame() ([]byte, error) {
	buf := make([]byte, mc.modem.Mtu())
	for {
		n, err := mc.modem.Read(buf)
		if err != nil {
			return nil, err
		}

		if n <= crcLen {
			continue
		}

		frame, trailer := buf[:n-crcLen], buf[n-crcLen:n]
		if binary.BigEndian.Uint16(trailer) != crc16.Checksum(frame, crc16table) {
			log.WithField("modem", mc.modem).Debug("Dropping packet with invalid CRC")
			continue
		}

		return append([]byte(nil), frame...), nil
	}
}

func (mc *ModemConn) WriteFrame(frame []byte) error {
	if len(frame) > mc.MaxFrameLen() {
		return fmt.Errorf("%d octets, MTU %d: %w", len(frame)+crcLen, mc.modem.Mtu(), ErrPacketTooLarge)
	}

	packet := make([]byte, len(frame)+crcLen)
	copy(packet, frame)
	binary.BigEndian.PutUint16(packet[len(frame):], crc16.Checksum(frame, crc16table))

	_, err := mc.modem.Write(packet)
	return err
}

func (mc *ModemConn) Close() error {
	return mc.modem.Close()
}
