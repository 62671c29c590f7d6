// SPDX-FileCopyrightText: 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// llcp-tool connects to a llcpd over an mtcp link to discover or ping services.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/link/mtcp"
	"github.com/dtn7/llcp-go/pkg/llcp"
)

// printUsage of llcp-tool and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s discover|ping:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s discover address name...\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Connects to the mtcp link at address and resolves each service name,\n")
	_, _ = fmt.Fprintf(os.Stderr, "  e.g., urn:nfc:sn:echo, to its SAP.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s ping address name\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Connects to the echo service name over the mtcp link at address and sends\n")
	_, _ = fmt.Fprintf(os.Stderr, "  a ping each second until interrupted.\n\n")

	os.Exit(1)
}

// printFatal logs the error and exits.
func printFatal(err error, msg string) {
	log.WithError(err).Fatal(msg)
}

// dialTransport activates an mtcp link and attaches a new Transport.
func dialTransport(address string) (*llcp.Transport, link.Link) {
	l, err, _ := mtcp.NewDialer(address, link.DefaultParams()).Activate()
	if err != nil {
		printFatal(err, "Dialing link errored")
	}

	tr, err := llcp.New(llcp.DefaultConfig())
	if err != nil {
		printFatal(err, "Creating Transport errored")
	}
	if err := tr.Reset(l); err != nil {
		printFatal(err, "Attaching Transport errored")
	}

	return tr, l
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
	}

	switch os.Args[1] {
	case "discover":
		discover(os.Args[2:])

	case "ping":
		ping(os.Args[2:])

	default:
		printUsage()
	}
}
