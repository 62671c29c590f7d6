// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Activator establishes Links, e.g., by dialing a peer or by accepting the
// next incoming connection.
type Activator interface {
	// Activate blocks until a Link is established. On failure, retry
	// indicates if a later attempt might succeed.
	Activate() (l Link, err error, retry bool)

	// Close this Activator, interrupting a pending Activate.
	Close() error

	// String describes this Activator and must be unique within a Manager.
	String() string
}

// activatorState is the lifecycle of one supervised Activator.
type activatorState int

const (
	activatorIdle activatorState = iota
	activatorActivating
	activatorActive
)

// activatorElem wraps an Activator and its state.
type activatorElem struct {
	activator Activator
	state     activatorState
	link      Link
	ttl       int
}

// Manager supervises Activators. Each Activator is kept activated: once its
// Link is lost, it will be activated again after the retry time. Every change
// is reported as a Status on the Channel, which must always be read.
type Manager struct {
	// queueTtl is the amount of failed activations before an Activator is dropped.
	queueTtl int

	// retryTime is the duration between two activation attempts.
	retryTime time.Duration

	elems      map[string]*activatorElem
	elemsMutex sync.Mutex

	inChnl  chan Status
	outChnl chan Status

	// activationChnl receives the results of activation goroutines.
	activationChnl chan activationResult

	stopSyn chan struct{}
	stopAck chan struct{}

	stopFlag      bool
	stopFlagMutex sync.Mutex
}

type activationResult struct {
	elem  *activatorElem
	link  Link
	err   error
	retry bool
}

// NewManager creates and starts a Manager.
func NewManager(retryTime time.Duration) *Manager {
	manager := &Manager{
		queueTtl:  10,
		retryTime: retryTime,

		elems: make(map[string]*activatorElem),

		inChnl:         make(chan Status, 16),
		outChnl:        make(chan Status),
		activationChnl: make(chan activationResult, 16),

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	go manager.handler()

	return manager
}

// handler is the internal goroutine for management.
func (manager *Manager) handler() {
	activateTicker := time.NewTicker(manager.retryTime)
	defer activateTicker.Stop()

	for {
		select {
		case <-manager.stopSyn:
			log.Debug("Link Manager received closing signal")

			close(manager.outChnl)
			close(manager.stopAck)
			return

		case res := <-manager.activationChnl:
			manager.handleActivation(res)

		case status := <-manager.inChnl:
			log.WithFields(log.Fields{
				"type":      status.Type,
				"activator": status.Activator,
			}).Debug("Link Manager received Status")

			manager.forward(status)

		case <-activateTicker.C:
			manager.elemsMutex.Lock()
			for _, elem := range manager.elems {
				if elem.state == activatorIdle {
					manager.startActivation(elem)
				}
			}
			manager.elemsMutex.Unlock()
		}
	}
}

// forward a Status unless the Manager is closing.
func (manager *Manager) forward(status Status) {
	select {
	case manager.outChnl <- status:
	case <-manager.stopSyn:
	}
}

// startActivation spawns an activation goroutine; elemsMutex must be held.
func (manager *Manager) startActivation(elem *activatorElem) {
	elem.state = activatorActivating

	go func() {
		l, err, retry := elem.activator.Activate()
		select {
		case manager.activationChnl <- activationResult{elem: elem, link: l, err: err, retry: retry}:
		case <-manager.stopSyn:
			if l != nil {
				_ = l.Close()
			}
		}
	}()
}

func (manager *Manager) handleActivation(res activationResult) {
	if !manager.applyActivation(res) {
		return
	}

	// Forwarded from the handler itself, so a LinkDown cannot overtake it.
	manager.forward(Status{Activator: res.elem.activator, Type: LinkUp, Link: res.link})
	go manager.watch(res.elem, res.link)
}

// applyActivation updates the activatorElem and reports if a new Link is up.
func (manager *Manager) applyActivation(res activationResult) bool {
	manager.elemsMutex.Lock()
	defer manager.elemsMutex.Unlock()

	logger := log.WithField("activator", res.elem.activator)

	if known, ok := manager.elems[res.elem.activator.String()]; !ok || known != res.elem {
		if res.link != nil {
			_ = res.link.Close()
		}
		return false
	}

	if res.err != nil {
		res.elem.state = activatorIdle
		res.elem.ttl--

		if !res.retry || res.elem.ttl <= 0 {
			logger.WithError(res.err).Warn("Activation failed, a retry should not be made")
			delete(manager.elems, res.elem.activator.String())
		} else {
			logger.WithError(res.err).Info("Activation failed, retrying later")
		}
		return false
	}

	logger.WithField("link", res.link).Info("Link is up")

	res.elem.state = activatorActive
	res.elem.link = res.link
	res.elem.ttl = manager.queueTtl
	return true
}

// watch a Link until it is lost and mark its Activator as idle again.
func (manager *Manager) watch(elem *activatorElem, l Link) {
	select {
	case <-l.Done():
	case <-manager.stopSyn:
		return
	}

	manager.elemsMutex.Lock()
	if elem.link == l {
		elem.state = activatorIdle
		elem.link = nil
	}
	manager.elemsMutex.Unlock()

	log.WithFields(log.Fields{
		"activator": elem.activator,
		"link":      l,
	}).Info("Link is down")

	select {
	case manager.inChnl <- Status{Activator: elem.activator, Type: LinkDown, Link: l}:
	case <-manager.stopSyn:
	}
}

// Channel references the outgoing channel for Status messages.
func (manager *Manager) Channel() <-chan Status {
	return manager.outChnl
}

// isStopped signals if the Manager should be stopped.
func (manager *Manager) isStopped() bool {
	manager.stopFlagMutex.Lock()
	defer manager.stopFlagMutex.Unlock()

	return manager.stopFlag
}

// Register an Activator and start its first activation.
func (manager *Manager) Register(activator Activator) {
	if manager.isStopped() {
		return
	}

	manager.elemsMutex.Lock()
	defer manager.elemsMutex.Unlock()

	if _, exists := manager.elems[activator.String()]; exists {
		log.WithField("activator", activator).Debug("Activator registration aborted, already known")
		return
	}

	elem := &activatorElem{activator: activator, ttl: manager.queueTtl}
	manager.elems[activator.String()] = elem
	manager.startActivation(elem)
}

// Unregister an Activator, closing it and its Link.
func (manager *Manager) Unregister(activator Activator) error {
	manager.elemsMutex.Lock()
	elem, exists := manager.elems[activator.String()]
	delete(manager.elems, activator.String())
	manager.elemsMutex.Unlock()

	if !exists {
		return fmt.Errorf("activator %v is unknown", activator)
	}

	var errs error
	if elem.link != nil {
		if err := elem.link.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := elem.activator.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// Activators returns all supervised Activators.
func (manager *Manager) Activators() (activators []Activator) {
	manager.elemsMutex.Lock()
	defer manager.elemsMutex.Unlock()

	for _, elem := range manager.elems {
		activators = append(activators, elem.activator)
	}
	return
}

// Close the Manager, all Activators and their Links.
func (manager *Manager) Close() error {
	manager.stopFlagMutex.Lock()
	if manager.stopFlag {
		manager.stopFlagMutex.Unlock()
		return nil
	}
	manager.stopFlag = true
	manager.stopFlagMutex.Unlock()

	close(manager.stopSyn)
	<-manager.stopAck

	var errs error
	for _, activator := range manager.Activators() {
		if err := manager.Unregister(activator); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
