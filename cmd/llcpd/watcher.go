// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// configWatcher re-applies the Logging-configuration block after the
// configuration file was changed. Other blocks require a restart.
type configWatcher struct {
	filename string
	watcher  *fsnotify.Watcher

	stopSyn chan struct{}
	stopAck chan struct{}
}

// newConfigWatcher watches the configuration file's directory, as editors
// tend to replace files instead of writing them.
func newConfigWatcher(filename string) (cw *configWatcher, err error) {
	cw = &configWatcher{
		filename: filepath.Clean(filename),
		stopSyn:  make(chan struct{}),
		stopAck:  make(chan struct{}),
	}

	if cw.watcher, err = fsnotify.NewWatcher(); err != nil {
		return nil, err
	}
	if err = cw.watcher.Add(filepath.Dir(cw.filename)); err != nil {
		_ = cw.watcher.Close()
		return nil, err
	}

	go cw.handler()
	return cw, nil
}

func (cw *configWatcher) handler() {
	defer close(cw.stopAck)

	for {
		select {
		case <-cw.stopSyn:
			return

		case e, ok := <-cw.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if filepath.Clean(e.Name) != cw.filename || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cw.reload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Warn("fsnotify errored")
		}
	}
}

func (cw *configWatcher) reload() {
	var conf tomlConfig
	if _, err := toml.DecodeFile(cw.filename, &conf); err != nil {
		log.WithError(err).WithField("file", cw.filename).Warn("Reloading configuration errored")
		return
	}

	applyLogging(conf.Logging)
	log.WithField("file", cw.filename).Info("Reloaded logging configuration")
}

// Close the watcher.
func (cw *configWatcher) Close() error {
	close(cw.stopSyn)
	<-cw.stopAck
	return cw.watcher.Close()
}
