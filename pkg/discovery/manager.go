// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2020 Markus Sommer
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/schollz/peerdiscovery"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/link/mtcp"
	"github.com/dtn7/llcp-go/pkg/link/quicl"
	"github.com/dtn7/llcp-go/pkg/link/wsl"
)

// Manager publishes and receives Announcements.
type Manager struct {
	// Node is this node's name; own Announcements are ignored.
	Node string

	// Params are used for dial Activators of discovered endpoints.
	Params link.Params

	// RegisterFunc receives an Activator for each discovered endpoint.
	RegisterFunc func(link.Activator)

	stopChan4 chan struct{}
	stopChan6 chan struct{}
}

// NewManager for Announcements will be created and started.
func NewManager(
	node string, params link.Params, registerFunc func(link.Activator),
	announcements []Announcement, announcementInterval time.Duration,
	ipv4, ipv6 bool) (*Manager, error) {

	var manager = &Manager{
		Node:         node,
		Params:       params,
		RegisterFunc: registerFunc,
	}
	if ipv4 {
		manager.stopChan4 = make(chan struct{})
	}
	if ipv6 {
		manager.stopChan6 = make(chan struct{})
	}

	log.WithFields(log.Fields{
		"interval":      announcementInterval,
		"IPv4":          ipv4,
		"IPv6":          ipv6,
		"announcements": announcements,
	}).Info("Starting discovery Manager")

	msg, err := MarshalAnnouncements(announcements)
	if err != nil {
		return nil, err
	}

	sets := []struct {
		active           bool
		multicastAddress string
		stopChan         chan struct{}
		ipVersion        peerdiscovery.IPVersion
	}{
		{ipv4, address4, manager.stopChan4, peerdiscovery.IPv4},
		{ipv6, address6, manager.stopChan6, peerdiscovery.IPv6},
	}

	for _, set := range sets {
		if !set.active {
			continue
		}

		settings := peerdiscovery.Settings{
			Limit:            -1,
			Port:             strconv.Itoa(port),
			MulticastAddress: set.multicastAddress,
			Payload:          msg,
			Delay:            announcementInterval,
			TimeLimit:        -1,
			StopChan:         set.stopChan,
			AllowSelf:        true,
			IPVersion:        set.ipVersion,
			Notify:           manager.notify,
		}

		discoverErrChan := make(chan error)
		go func() {
			_, discoverErr := peerdiscovery.Discover(settings)
			discoverErrChan <- discoverErr
		}()

		select {
		case discoverErr := <-discoverErrChan:
			if discoverErr != nil {
				return nil, discoverErr
			}

		case <-time.After(time.Second):
		}
	}

	return manager, nil
}

func (manager *Manager) notify(discovered peerdiscovery.Discovered) {
	announcements, err := UnmarshalAnnouncements(discovered.Payload)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"discovery": manager,
			"peer":      discovered.Address,
		}).Warn("Peer discovery failed to parse incoming package")

		return
	}

	for _, announcement := range announcements {
		if activator := manager.activator(announcement, discovered.Address); activator != nil {
			manager.RegisterFunc(activator)
		}
	}
}

// activator creates a dial Activator for an announced endpoint. Nil is
// returned for own or unsupported Announcements.
func (manager *Manager) activator(announcement Announcement, addr string) link.Activator {
	logger := log.WithFields(log.Fields{
		"discovery":    manager,
		"peer":         addr,
		"announcement": announcement,
	})
	logger.Debug("Peer discovery received an announcement")

	if announcement.Node == manager.Node {
		return nil
	}

	hostPort := net.JoinHostPort(addr, strconv.FormatUint(uint64(announcement.Port), 10))

	switch announcement.Kind {
	case MTCP:
		return mtcp.NewDialer(hostPort, manager.Params)

	case QUICL:
		return quicl.NewDialer(hostPort, manager.Params)

	case WSL:
		return wsl.NewDialer(fmt.Sprintf("ws://%s/llcp", hostPort), manager.Params)

	default:
		logger.Warn("Announcement's link kind is unknown or unsupported")
		return nil
	}
}

// Close this Manager.
func (manager *Manager) Close() {
	for _, c := range []chan struct{}{manager.stopChan4, manager.stopChan6} {
		if c != nil {
			c <- struct{}{}
		}
	}
}

func (manager *Manager) String() string {
	return fmt.Sprintf("discovery(%s)", manager.Node)
}
