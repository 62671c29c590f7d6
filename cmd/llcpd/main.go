// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// llcpd runs LLCP echo services over the configured links.
package main

import (
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	d, err := parseDaemon(os.Args[1])
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Failed to parse config")
	}

	watcher, err := newConfigWatcher(os.Args[1])
	if err != nil {
		log.WithError(err).Warn("Watching the configuration failed; logging changes require a restart")
	}

	log.WithField("daemon", d).Info("Started")

	waitSigint()
	log.Info("Shutting down..")

	if watcher != nil {
		_ = watcher.Close()
	}
	if err := d.Close(); err != nil {
		log.WithError(err).Warn("Shutting down errored")
	}
}
