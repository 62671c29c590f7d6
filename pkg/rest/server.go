// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rest provides a JSON API to inspect the LLCP transports of llcpd and
// to run service discovery on them.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// DiscoverTimeout bounds a /discover request.
const DiscoverTimeout = 5 * time.Second

// TransportFunc looks up the Transport of an active link by its name.
type TransportFunc func(link string) (*llcp.Transport, bool)

// LinksFunc lists all active links.
type LinksFunc func() []string

// Server serves the REST API on a mux.Router.
type Server struct {
	router    *mux.Router
	transport TransportFunc
	links     LinksFunc
}

// NewServer registers its routes on the router, e.g., a /rest Subrouter.
func NewServer(router *mux.Router, links LinksFunc, transport TransportFunc) *Server {
	s := &Server{
		router:    router,
		transport: transport,
		links:     links,
	}

	s.router.HandleFunc("/links", s.handleLinks).Methods(http.MethodGet)
	s.router.HandleFunc("/links/{link}/sockets", s.handleSockets).Methods(http.MethodGet)
	s.router.HandleFunc("/links/{link}/names", s.handleNames).Methods(http.MethodGet)
	s.router.HandleFunc("/links/{link}/discover", s.handleDiscover).Methods(http.MethodPost)

	return s
}

// ServeHTTP is a http.Handler to be bound to a HTTP endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write REST response")
	}
}

func (s *Server) lookup(r *http.Request) (*llcp.Transport, string, error) {
	name := mux.Vars(r)["link"]
	tr, ok := s.transport(name)
	if !ok {
		return nil, name, fmt.Errorf("no active link %q", name)
	}
	return tr, name, nil
}

// handleLinks processes /links GET requests.
func (s *Server) handleLinks(w http.ResponseWriter, _ *http.Request) {
	links := s.links()
	sort.Strings(links)

	if links == nil {
		links = []string{}
	}
	s.writeJSON(w, http.StatusOK, LinksResponse{Links: links})
}

// handleSockets processes /links/{link}/sockets GET requests.
func (s *Server) handleSockets(w http.ResponseWriter, r *http.Request) {
	tr, _, err := s.lookup(r)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, SocketsResponse{Error: err.Error()})
		return
	}

	sockets := tr.Sockets()
	if sockets == nil {
		sockets = []llcp.SocketInfo{}
	}
	s.writeJSON(w, http.StatusOK, SocketsResponse{Sockets: sockets})
}

// handleNames processes /links/{link}/names GET requests.
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	tr, _, err := s.lookup(r)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, NamesResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, NamesResponse{Names: tr.Names()})
}

// handleDiscover processes /links/{link}/discover POST requests.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	tr, name, err := s.lookup(r)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, DiscoverResponse{Error: err.Error()})
		return
	}

	var request DiscoverRequest
	if jsonErr := json.NewDecoder(r.Body).Decode(&request); jsonErr != nil {
		s.writeJSON(w, http.StatusBadRequest, DiscoverResponse{Error: jsonErr.Error()})
		return
	}

	type result struct {
		saps []pdu.SAP
		err  error
	}
	results := make(chan result, 1)

	if err := tr.DiscoverServices(request.Names, func(saps []pdu.SAP, err error) {
		results <- result{saps, err}
	}); err != nil {
		s.writeJSON(w, http.StatusBadRequest, DiscoverResponse{Error: err.Error()})
		return
	}

	log.WithFields(log.Fields{
		"link":  name,
		"names": request.Names,
	}).Info("Processing REST service discovery")

	select {
	case res := <-results:
		if res.err != nil {
			s.writeJSON(w, http.StatusBadGateway, DiscoverResponse{Error: res.err.Error()})
			return
		}

		saps := make(map[string]uint8, len(request.Names))
		for i, sap := range res.saps {
			saps[request.Names[i]] = uint8(sap)
		}
		s.writeJSON(w, http.StatusOK, DiscoverResponse{SAPs: saps})

	case <-time.After(DiscoverTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, DiscoverResponse{Error: "service discovery timed out"})

	case <-r.Context().Done():
	}
}
