// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import "sync"

type eventKind int

const (
	// eventReceived carries a frame or a receive error from the link.
	eventReceived eventKind = iota
	// eventSent carries a link send completion.
	eventSent
	// eventCallback runs a user callback outside of any lock.
	eventCallback
)

type event struct {
	kind    eventKind
	session uint64

	frame []byte
	err   error

	fn func()
}

// eventQueue is an unbounded FIFO. Pushing never blocks, which allows link
// completions to be delivered from within Link.Send or Link.Receive.
type eventQueue struct {
	mutex  sync.Mutex
	events []event
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev event) {
	q.mutex.Lock()
	q.events = append(q.events, ev)
	q.mutex.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop removes the oldest event.
func (q *eventQueue) pop() (ev event, ok bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.events) == 0 {
		return
	}

	ev, ok = q.events[0], true
	q.events[0] = event{}
	q.events = q.events[1:]
	return
}

func (q *eventQueue) len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.events)
}
