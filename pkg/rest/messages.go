// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package rest

import "github.com/dtn7/llcp-go/pkg/llcp"

// LinksResponse describes a JSON response for /links.
type LinksResponse struct {
	Links []string `json:"links"`
}

// SocketsResponse describes a JSON response for /links/{link}/sockets.
type SocketsResponse struct {
	Error   string            `json:"error,omitempty"`
	Sockets []llcp.SocketInfo `json:"sockets"`
}

// NamesResponse describes a JSON response for /links/{link}/names.
type NamesResponse struct {
	Error string           `json:"error,omitempty"`
	Names []llcp.NameEntry `json:"names"`
}

// DiscoverRequest describes a JSON to be POSTed to /links/{link}/discover.
type DiscoverRequest struct {
	Names []string `json:"names"`
}

// DiscoverResponse describes a JSON response for /links/{link}/discover. Each
// name maps to its SAP, zero for unknown services.
type DiscoverResponse struct {
	Error string           `json:"error,omitempty"`
	SAPs  map[string]uint8 `json:"saps"`
}
