// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import "fmt"

// StatusType indicates the kind of a Status.
type StatusType uint

const (
	_ StatusType = iota

	// LinkUp shows a newly activated Link.
	LinkUp

	// LinkDown shows a lost or closed Link.
	LinkDown
)

func (st StatusType) String() string {
	switch st {
	case LinkUp:
		return "Link Up"
	case LinkDown:
		return "Link Down"
	default:
		return "Unknown Type"
	}
}

// Status is reported by a Manager for each Link going up or down.
type Status struct {
	Activator Activator
	Type      StatusType
	Link      Link
}

func (s Status) String() string {
	return fmt.Sprintf("%v from %v", s.Type, s.Activator)
}
