// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/discovery"
	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/link/mtcp"
	"github.com/dtn7/llcp-go/pkg/link/quicl"
	"github.com/dtn7/llcp-go/pkg/link/rf95"
	"github.com/dtn7/llcp-go/pkg/link/wsl"
	"github.com/dtn7/llcp-go/pkg/llcp"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Node      string
	Logging   logConf
	Transport transportConf
	Link      []linkConf
	Discovery discoveryConf
	Rest      restConf
	Service   []serviceConf
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// transportConf describes the Transport-configuration block. Zero values are
// replaced by the defaults.
type transportConf struct {
	MaxSockets       int `toml:"max-sockets"`
	NameCacheSize    int `toml:"name-cache-size"`
	SDPResponseMax   int `toml:"sdp-response-max"`
	DatagramQueueLen int `toml:"datagram-queue-len"`
	MaxBufferSize    int `toml:"max-buffer-size"`
	MIU              int
	RW               uint8

	LinkMIU int    `toml:"link-miu"`
	LTO     string `toml:"lto"`
}

// linkConf describes one Link-configuration block.
type linkConf struct {
	Kind     string
	Endpoint string

	// Frequency in MHz, only used for rf95.
	Frequency float64
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval uint
}

// restConf describes the REST-configuration block. WebSocket links are served
// by the same HTTP server.
type restConf struct {
	Listen string
}

// serviceConf describes an echo service, registered on each Transport.
type serviceConf struct {
	Name string
	Type string
	MIU  int
	RW   uint8
}

// applyLogging configures logrus as defined in the Logging-configuration block.
func applyLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.WithField("format", conf.Format).Warn("Unknown logging format")
	}
}

// transportConfig merges the Transport-configuration block into the defaults.
func transportConfig(conf transportConf) (config llcp.Config, err error) {
	config = llcp.DefaultConfig()

	if conf.MaxSockets != 0 {
		config.MaxSockets = conf.MaxSockets
	}
	if conf.NameCacheSize != 0 {
		config.NameCacheSize = conf.NameCacheSize
	}
	if conf.SDPResponseMax != 0 {
		config.SDPResponseMax = conf.SDPResponseMax
	}
	if conf.DatagramQueueLen != 0 {
		config.DatagramQueueLen = conf.DatagramQueueLen
	}
	if conf.MaxBufferSize != 0 {
		config.MaxBufferSize = conf.MaxBufferSize
	}
	if conf.MIU != 0 {
		config.DefaultOptions.MIU = conf.MIU
	}
	if conf.RW != 0 {
		config.DefaultOptions.RW = conf.RW
	}

	err = config.Validate()
	return
}

// linkParams derives the PAX parameters from the Transport-configuration block.
func linkParams(conf transportConf) (params link.Params, err error) {
	params = link.DefaultParams()

	if conf.LinkMIU != 0 {
		params.MIU = conf.LinkMIU
	}
	if conf.LTO != "" {
		if params.LTO, err = time.ParseDuration(conf.LTO); err != nil {
			err = fmt.Errorf("transport.lto: %w", err)
			return
		}
	}

	// Validated by building the PAX parameter list.
	if _, pErr := params.Parameters(); pErr != nil {
		err = fmt.Errorf("transport: %w", pErr)
	}
	return
}

// parseServices checks all Service-configuration blocks. Missing socket
// options are taken from defaults.
func parseServices(confs []serviceConf, defaults llcp.SocketOptions) (services []service, err error) {
	for _, conf := range confs {
		var typ llcp.SocketType
		switch conf.Type {
		case "", "connection-oriented":
			typ = llcp.ConnectionOriented
		case "connectionless":
			typ = llcp.Connectionless
		default:
			err = multierror.Append(err, fmt.Errorf("service %q: unknown type %q", conf.Name, conf.Type))
			continue
		}

		if conf.Name == "" {
			err = multierror.Append(err, fmt.Errorf("service without name"))
			continue
		}

		options := defaults
		if conf.MIU != 0 {
			options.MIU = conf.MIU
		}
		if conf.RW != 0 {
			options.RW = conf.RW
		}

		services = append(services, service{
			name:    conf.Name,
			typ:     typ,
			options: options,
		})
	}
	return
}

func parseListenPort(endpoint string) (port int, err error) {
	var portStr string
	_, portStr, err = net.SplitHostPort(endpoint)
	if err != nil {
		return
	}
	port, err = strconv.Atoi(portStr)
	return
}

// parseLink inspects a Link-configuration block and returns its Activator. If
// it might be announced, a non-nil Announcement is returned. WebSocket
// listeners must be bound to the REST server by the caller.
func parseLink(conf linkConf, node string, params link.Params, restListen string) (link.Activator, *discovery.Announcement, error) {
	switch conf.Kind {
	case "mtcp-dial":
		return mtcp.NewDialer(conf.Endpoint, params), nil, nil

	case "mtcp-listen":
		port, err := parseListenPort(conf.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return mtcp.NewListener(conf.Endpoint, params), &discovery.Announcement{Kind: discovery.MTCP, Node: node, Port: uint(port)}, nil

	case "quic-dial":
		return quicl.NewDialer(conf.Endpoint, params), nil, nil

	case "quic-listen":
		port, err := parseListenPort(conf.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return quicl.NewListener(conf.Endpoint, params), &discovery.Announcement{Kind: discovery.QUICL, Node: node, Port: uint(port)}, nil

	case "ws-dial":
		return wsl.NewDialer(conf.Endpoint, params), nil, nil

	case "ws-listen":
		if restListen == "" {
			return nil, nil, fmt.Errorf("ws-listen requires rest.listen")
		}
		port, err := parseListenPort(restListen)
		if err != nil {
			return nil, nil, err
		}
		return wsl.NewListener(fmt.Sprintf("ws://%s%s", restListen, wsPath), params), &discovery.Announcement{Kind: discovery.WSL, Node: node, Port: uint(port)}, nil

	case "rf95":
		if conf.Frequency == 0 {
			return nil, nil, fmt.Errorf("rf95 link %q requires a frequency", conf.Endpoint)
		}
		return rf95.NewSerialActivator(conf.Endpoint, conf.Frequency, params), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown link.kind %q", conf.Kind)
	}
}

// parseDaemon creates and starts the daemon based on the given TOML configuration.
func parseDaemon(filename string) (d *daemon, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	applyLogging(conf.Logging)

	if conf.Node == "" {
		err = fmt.Errorf("node is empty")
		return
	}

	config, configErr := transportConfig(conf.Transport)
	if configErr != nil {
		err = fmt.Errorf("transport: %w", configErr)
		return
	}

	params, paramsErr := linkParams(conf.Transport)
	if paramsErr != nil {
		err = paramsErr
		return
	}

	services, servicesErr := parseServices(conf.Service, config.DefaultOptions)
	if servicesErr != nil {
		err = servicesErr
		return
	}

	var (
		activators    []link.Activator
		announcements []discovery.Announcement
		wsListeners   []*wsl.Listener
	)
	for _, lc := range conf.Link {
		activator, announcement, linkErr := parseLink(lc, conf.Node, params, conf.Rest.Listen)
		if linkErr != nil {
			err = multierror.Append(err, fmt.Errorf("link %s %q: %w", lc.Kind, lc.Endpoint, linkErr))
			continue
		}

		activators = append(activators, activator)
		if announcement != nil {
			announcements = append(announcements, *announcement)
		}
		if wsListener, ok := activator.(*wsl.Listener); ok {
			wsListeners = append(wsListeners, wsListener)
		}
	}
	if err != nil {
		return
	}
	if len(wsListeners) > 1 {
		err = fmt.Errorf("only one ws-listen link is supported")
		return
	}

	d = newDaemon(conf.Node, config, services)

	if conf.Rest.Listen != "" {
		var wsListener *wsl.Listener
		if len(wsListeners) == 1 {
			wsListener = wsListeners[0]
		}
		d.startREST(conf.Rest.Listen, wsListener)
	}

	for _, activator := range activators {
		d.manager.Register(activator)
	}

	if conf.Discovery.IPv4 || conf.Discovery.IPv6 {
		if conf.Discovery.Interval == 0 {
			conf.Discovery.Interval = 10
		}

		d.discovery, err = discovery.NewManager(
			conf.Node, params, d.manager.Register, announcements,
			time.Duration(conf.Discovery.Interval)*time.Second,
			conf.Discovery.IPv4, conf.Discovery.IPv6)
		if err != nil {
			_ = d.Close()
			d = nil
			return
		}
	}

	return
}
