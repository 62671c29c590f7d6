// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// discover resolves service names on a remote llcpd.
func discover(args []string) {
	if len(args) < 2 {
		printUsage()
	}

	tr, l := dialTransport(args[0])
	defer func() {
		_ = tr.Shutdown()
		_ = l.Close()
	}()

	names := args[1:]

	type result struct {
		saps []pdu.SAP
		err  error
	}
	results := make(chan result, 1)

	if err := tr.DiscoverServices(names, func(saps []pdu.SAP, err error) {
		results <- result{saps, err}
	}); err != nil {
		printFatal(err, "Service discovery errored")
	}

	select {
	case res := <-results:
		if res.err != nil {
			printFatal(res.err, "Service discovery failed")
		}

		for i, sap := range res.saps {
			if sap == 0 {
				fmt.Printf("%s\tunknown\n", names[i])
			} else {
				fmt.Printf("%s\t%#02x\n", names[i], uint8(sap))
			}
		}

	case <-time.After(5 * time.Second):
		printFatal(errors.New("no SNL PDU received"), "Service discovery timed out")
	}
}
