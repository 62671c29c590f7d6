// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/discovery"
	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/link/wsl"
	"github.com/dtn7/llcp-go/pkg/llcp"
	"github.com/dtn7/llcp-go/pkg/rest"
)

const (
	// wsPath is where a ws-listen link accepts WebSocket connections.
	wsPath = "/llcp"

	// restPath prefixes the REST API.
	restPath = "/rest"

	// linkRetryTime between two activation attempts of a link.
	linkRetryTime = 5 * time.Second
)

// daemon runs one Transport with the configured services on each active link.
type daemon struct {
	node     string
	config   llcp.Config
	services []service

	manager    *link.Manager
	discovery  *discovery.Manager
	httpServer *http.Server

	transports      map[string]*llcp.Transport
	transportsMutex sync.Mutex

	stopAck chan struct{}
}

func newDaemon(node string, config llcp.Config, services []service) *daemon {
	d := &daemon{
		node:     node,
		config:   config,
		services: services,

		manager: link.NewManager(linkRetryTime),

		transports: make(map[string]*llcp.Transport),

		stopAck: make(chan struct{}),
	}

	go d.handler()

	return d
}

// linkName identifies a link by its Activator. It is escaped to be usable as
// a single REST path segment.
func linkName(activator link.Activator) string {
	return url.PathEscape(activator.String())
}

// handler processes the Link Manager's Status messages until it is closed.
func (d *daemon) handler() {
	defer close(d.stopAck)

	for status := range d.manager.Channel() {
		switch status.Type {
		case link.LinkUp:
			d.linkUp(status)
		case link.LinkDown:
			d.linkDown(status)
		}
	}
}

func (d *daemon) linkUp(status link.Status) {
	name := linkName(status.Activator)
	logger := log.WithFields(log.Fields{
		"link":      name,
		"activator": status.Activator,
	})

	tr, err := llcp.New(d.config)
	if err != nil {
		logger.WithError(err).Error("Creating Transport errored")
		_ = status.Link.Close()
		return
	}
	if err := tr.Reset(status.Link); err != nil {
		logger.WithError(err).Error("Attaching Transport errored")
		_ = tr.Shutdown()
		_ = status.Link.Close()
		return
	}

	for _, svc := range d.services {
		if err := svc.start(tr); err != nil {
			logger.WithError(err).WithField("service", svc).Warn("Starting service errored")
		}
	}

	d.transportsMutex.Lock()
	old := d.transports[name]
	d.transports[name] = tr
	d.transportsMutex.Unlock()

	if old != nil {
		_ = old.Shutdown()
	}

	logger.Info("Transport is up")
}

func (d *daemon) linkDown(status link.Status) {
	name := linkName(status.Activator)

	d.transportsMutex.Lock()
	tr := d.transports[name]
	delete(d.transports, name)
	d.transportsMutex.Unlock()

	if tr == nil {
		return
	}

	if err := tr.Shutdown(); err != nil {
		log.WithError(err).WithField("link", name).Warn("Shutting down Transport errored")
	}
	log.WithField("link", name).Info("Transport is down")
}

// links lists the names of all active links.
func (d *daemon) links() (names []string) {
	d.transportsMutex.Lock()
	defer d.transportsMutex.Unlock()

	for name := range d.transports {
		names = append(names, name)
	}
	return
}

// transport of an active link.
func (d *daemon) transport(name string) (*llcp.Transport, bool) {
	d.transportsMutex.Lock()
	defer d.transportsMutex.Unlock()

	tr, ok := d.transports[name]
	return tr, ok
}

// startREST serves the REST API and an optional WebSocket link listener.
func (d *daemon) startREST(listenAddress string, wsListener *wsl.Listener) {
	router := mux.NewRouter().UseEncodedPath()
	rest.NewServer(router.PathPrefix(restPath).Subrouter(), d.links, d.transport)
	if wsListener != nil {
		router.Handle(wsPath, wsListener)
	}

	d.httpServer = &http.Server{
		Addr:              listenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := d.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("listen", listenAddress).Error("REST server errored")
		}
	}()

	log.WithField("listen", listenAddress).Info("Started REST server")
}

// Close the daemon with all of its links and Transports.
func (d *daemon) Close() (errs error) {
	if d.discovery != nil {
		d.discovery.Close()
	}

	if d.httpServer != nil {
		if err := d.httpServer.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("REST server: %w", err))
		}
	}

	if err := d.manager.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("link manager: %w", err))
	}
	<-d.stopAck

	d.transportsMutex.Lock()
	defer d.transportsMutex.Unlock()

	for name, tr := range d.transports {
		if err := tr.Shutdown(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("transport %s: %w", name, err))
		}
		delete(d.transports, name)
	}

	return
}

func (d *daemon) String() string {
	return fmt.Sprintf("llcpd(%s)", d.node)
}
