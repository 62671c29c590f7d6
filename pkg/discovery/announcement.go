// SPDX-FileCopyrightText: 2020 Markus Sommer
// SPDX-FileCopyrightText: 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// LinkKind identifies how an announced link endpoint is reached.
type LinkKind uint64

const (
	// MTCP is a TCP endpoint exchanging CBOR byte strings.
	MTCP LinkKind = 0

	// QUICL is a QUIC endpoint with one bidirectional stream.
	QUICL LinkKind = 1

	// WSL is a WebSocket endpoint at the /llcp path.
	WSL LinkKind = 2
)

// CheckValid returns an error for unknown kinds.
func (kind LinkKind) CheckValid() error {
	if kind > WSL {
		return fmt.Errorf("unknown link kind %d", uint64(kind))
	}
	return nil
}

func (kind LinkKind) String() string {
	switch kind {
	case MTCP:
		return "mtcp"
	case QUICL:
		return "quicl"
	case WSL:
		return "wsl"
	default:
		return fmt.Sprintf("unknown(%d)", uint64(kind))
	}
}

// Announcement of some node's link endpoint.
type Announcement struct {
	Kind LinkKind
	Node string
	Port uint
}

// UnmarshalAnnouncements creates a new array of Announcement based on a CBOR byte string.
func UnmarshalAnnouncements(data []byte) (announcements []Announcement, err error) {
	buff := bytes.NewBuffer(data)

	if l, cErr := cboring.ReadArrayLength(buff); cErr != nil {
		err = cErr
		return
	} else {
		announcements = make([]Announcement, l)
	}

	for i := 0; i < len(announcements); i++ {
		if cErr := cboring.Unmarshal(&announcements[i], buff); cErr != nil {
			err = fmt.Errorf("unmarshalling Announcement %d failed: %w", i, cErr)
			return
		}
	}

	return
}

// MarshalAnnouncements into a CBOR byte string.
func MarshalAnnouncements(announcements []Announcement) (data []byte, err error) {
	buff := new(bytes.Buffer)

	if cErr := cboring.WriteArrayLength(uint64(len(announcements)), buff); cErr != nil {
		err = cErr
		return
	}

	for i := range announcements {
		if cErr := cboring.Marshal(&announcements[i], buff); cErr != nil {
			err = fmt.Errorf("marshalling Announcement %d (%v) failed: %w", i, announcements[i], cErr)
			return
		}
	}

	data = buff.Bytes()
	return
}

// MarshalCbor creates a CBOR representation for an Announcement.
func (announcement *Announcement) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}

	if err := cboring.WriteUInt(uint64(announcement.Kind), w); err != nil {
		return err
	}
	if err := cboring.WriteTextString(announcement.Node, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(announcement.Port), w); err != nil {
		return err
	}

	return nil
}

// UnmarshalCbor creates an Announcement from its CBOR representation.
func (announcement *Announcement) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 3 {
		return fmt.Errorf("wrong array length: %d instead of 3", l)
	}

	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if kind := LinkKind(n); kind.CheckValid() != nil {
		return kind.CheckValid()
	} else {
		announcement.Kind = kind
	}
	if node, err := cboring.ReadTextString(r); err != nil {
		return fmt.Errorf("unmarshalling node name failed: %w", err)
	} else {
		announcement.Node = node
	}
	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if n > 0xFFFF {
		return fmt.Errorf("port %d out of range", n)
	} else {
		announcement.Port = uint(n)
	}

	return nil
}

func (announcement Announcement) String() string {
	return fmt.Sprintf("Announcement(%v,%s,%d)", announcement.Kind, announcement.Node, announcement.Port)
}
