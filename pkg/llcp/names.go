// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// maxServiceNameLen is limited by the SN TLV's length octet.
const maxServiceNameLen = 0xFF

type cachedName struct {
	name string
	sap  pdu.SAP
}

// NameEntry is an entry of the service name cache.
type NameEntry struct {
	Name string `json:"name"`
	SAP  uint8  `json:"sap"`
}

func (t *Transport) cachedSAP(name string) (pdu.SAP, bool) {
	for _, cn := range t.names {
		if cn.name == name {
			return cn.sap, true
		}
	}
	return 0, false
}

func (t *Transport) cachedNameOf(sap pdu.SAP) (string, bool) {
	for _, cn := range t.names {
		if cn.sap == sap {
			return cn.name, true
		}
	}
	return "", false
}

// cacheName appends a resolved name. Entries are never replaced; a full
// cache stays as it is until the link is reset.
func (t *Transport) cacheName(name string, sap pdu.SAP) {
	if _, ok := t.cachedSAP(name); ok {
		return
	}
	if len(t.names) >= t.config.NameCacheSize {
		t.logger.WithField("name", name).Debug("Service name cache is full")
		return
	}

	t.names = append(t.names, cachedName{name: name, sap: sap})
	t.logger.WithFields(log.Fields{
		"name": name,
		"sap":  sap,
	}).Debug("Cached service name")
}

// registerName binds name to s, which will use sap. The cache must agree
// with this binding and the name must be unique among bound and listening
// sockets. An empty name removes the socket's name.
func (t *Transport) registerName(s *Socket, sap pdu.SAP, name string) error {
	for _, cn := range t.names {
		if cn.name == name && cn.sap != sap {
			return fmt.Errorf("%q is cached for SAP %d: %w", name, cn.sap, ErrInvalidParameter)
		} else if cn.sap == sap && cn.name != name {
			return fmt.Errorf("SAP %d is cached for %q: %w", sap, cn.name, ErrInvalidParameter)
		}
	}

	if name == "" {
		s.name = ""
		return nil
	}

	if len(name) > maxServiceNameLen {
		return fmt.Errorf("service name of %d octets: %w", len(name), ErrInvalidParameter)
	}
	if other := t.sockets.byName(name); other != nil && other != s {
		return fmt.Errorf("%q is bound by %v: %w", name, other.Handle(), ErrInvalidParameter)
	}

	s.name = name
	return nil
}
