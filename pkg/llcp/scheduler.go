// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

// schedule hands a free link to the next pending operation. SDP traffic goes
// first, followed by orphaned DISC PDUs. Then, starting after the socket which
// sent last, each socket is asked once for pending work until one sends.
func (t *Transport) schedule() {
	if t.link == nil || t.serializer.Pending() {
		return
	}

	if len(t.sdpResponses) > 0 {
		if t.sendSDPResponses() {
			return
		}
	} else if t.sendSDPRequests() {
		return
	}

	if len(t.orphans) > 0 {
		if err := t.linkSend(t.orphans[0], nil, nil); err == nil {
			t.orphans = t.orphans[1:]
			return
		}
	}

	n := len(t.sockets)
	start := t.lastSender
	for i := 1; i <= n; i++ {
		s := &t.sockets[(start+i)%n]
		if t.handlePendingOperations(s) {
			return
		}
	}
}

// kick tries to send pending work of s right away, if the link is free.
func (t *Transport) kick(s *Socket) {
	if t.link == nil || t.serializer.Pending() {
		return
	}
	t.handlePendingOperations(s)
}

func (t *Transport) handlePendingOperations(s *Socket) bool {
	switch {
	case s.state == StateDefault || s.state == StateCreated:
		return false
	case s.typ == ConnectionOriented:
		return t.co.HandlePendingOperations(s)
	case s.typ == Connectionless:
		return t.cl.HandlePendingOperations(s)
	default:
		return false
	}
}
