// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtnme-go/pkg/agent"
	"github.com/dtn7/dtnme-go/pkg/block"
	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/cla/udpdisc"
	"github.com/dtn7/dtnme-go/pkg/forwarding"
	"github.com/dtn7/dtnme-go/pkg/routing"
	"github.com/dtn7/dtnme-go/pkg/storage"
)

// tomlConfig describes the TOML configuration file, mirroring the teacher's
// cmd/dtnd/configuration.go shape (Core/Logging/Discovery/Agents blocks)
// generalized to this engine's storage/routing/discovery components.
type tomlConfig struct {
	Core      coreConf
	Logging   logConf
	Discovery discoveryConf
	Agents    agentsConf
	Routes    []routeConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	Store  string
	NodeId string `toml:"node-id"`
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// discoveryConf describes the Discovery-configuration block. ListenPort is
// the UDP port this node's own bundle-receiving Link listens on and
// announces in its discovery beacon.
type discoveryConf struct {
	Enable     bool
	ListenPort uint16 `toml:"listen-port"`
	Interval   uint   `toml:"interval"`
}

// agentsConf describes the Agents-configuration block, mirroring the
// teacher's nested "Webserver" shape for the REST/WS inspection surface.
type agentsConf struct {
	Webserver webserverConf
}

type webserverConf struct {
	Address string
	Prefix  string
}

// routeConf describes one static [[routes]] entry of the configuration file,
// reloaded whenever that same configuration file changes on disk.
type routeConf struct {
	Dest       string
	NextHop    string `toml:"next-hop"`
	RouteTo    string `toml:"route-to"`
	Priority   int
	CustodyMin uint32 `toml:"custody-min"`
}

// daemon bundles every long-lived component parseCore starts, so main can
// shut them down in reverse order on SIGINT.
type daemon struct {
	store      *storage.Store
	routing    *routing.Daemon
	discovery  *udpdisc.Discovery
	httpServer *http.Server
	watcher    *fsnotify.Watcher
}

// Close shuts down every component started by parseCore, logging but not
// failing on individual errors, mirroring the teacher's main.go's best-effort
// shutdown sequence.
func (d *daemon) Close() {
	if d.watcher != nil {
		d.watcher.Close()
	}
	if d.httpServer != nil {
		if err := d.httpServer.Close(); err != nil {
			log.WithError(err).Warn("Failed to close HTTP server")
		}
	}
	if d.discovery != nil {
		d.discovery.Close()
	}
	if err := d.routing.Close(); err != nil {
		log.WithError(err).Warn("Failed to close routing daemon")
	}
	if err := d.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close store")
	}
}

// daemonActions implements routing.Actions for a live daemon, recording
// every router decision in the bundle's ForwardingLog before acting on it,
// the production counterpart of the test-only fakeActions scattered across
// the routing/cla/agent test suites.
type daemonActions struct {
	rd *routing.Daemon
}

func (a *daemonActions) OpenLink(name string) error {
	link, ok := a.rd.Link(name)
	if !ok {
		return fmt.Errorf("dtnd: unknown link %q", name)
	}
	return link.Open()
}

func (a *daemonActions) QueueBundle(b *bundle.Bundle, link routing.Link, action bundle.Action, custody bundle.CustodyTimerSpec) error {
	b.ForwardingLog.AddEntry(link.Name(), action, bundle.StateQueued, custody, time.Now().Unix())
	if err := link.Send(b); err != nil {
		b.ForwardingLog.Update(link.Name(), bundle.StateTransmitFailed, time.Now().Unix())
		return err
	}
	return nil
}

func (a *daemonActions) CancelBundle(b *bundle.Bundle, link routing.Link) error {
	b.ForwardingLog.Update(link.Name(), bundle.StateCancelled, time.Now().Unix())
	return nil
}

// newBlockRegistry builds the process-wide block.Registry with every
// required handler registered: Primary Block, Payload Block, Previous-Hop
// Block, Custody-Transfer-Enhancement Block and Bundle Age Block, plus the
// fallback Unknown Block processor for every other type code.
func newBlockRegistry() *block.Registry {
	registry := block.NewRegistry()
	registry.Register(block.PrimaryTypeCode, block.PrimaryProcessor{})
	registry.Register(block.PayloadTypeCode, block.PayloadProcessor{})
	registry.Register(block.PreviousHopTypeCode, block.PreviousHopProcessor{})
	registry.Register(block.CTEBTypeCode, block.CTEBProcessor{})
	registry.Register(block.BundleAgeTypeCode, block.BundleAgeProcessor{})
	registry.SetUnknownProcessor(block.UnknownProcessor{})
	return registry
}

// setupLogging applies conf's Logging block, mirroring the teacher's
// parseCore logging setup verbatim (level, caller reporting, text/json
// formatter selection).
func setupLogging(conf logConf) {
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
		log.Warn("Unknown logging format")
	}
}

// routeEntryFromConf turns a routeConf into a routing.RouteEntry, parsing
// its endpoint patterns.
func routeEntryFromConf(rc routeConf) (routing.RouteEntry, error) {
	dest, err := bundle.NewEndpointIDPattern(rc.Dest)
	if err != nil {
		return routing.RouteEntry{}, fmt.Errorf("routes: invalid dest %q: %w", rc.Dest, err)
	}

	entry := routing.RouteEntry{
		Dest:     dest,
		Priority: rc.Priority,
		Action:   bundle.ForwardAction,
		Custody:  bundle.DefaultCustodyTimerSpec(),
	}
	if rc.CustodyMin > 0 {
		entry.Custody.Min = rc.CustodyMin
	}

	if rc.RouteTo != "" {
		routeTo, err := bundle.NewEndpointIDPattern(rc.RouteTo)
		if err != nil {
			return routing.RouteEntry{}, fmt.Errorf("routes: invalid route-to %q: %w", rc.RouteTo, err)
		}
		entry.RouteTo = routeTo
		entry.HasRouteTo = true
	} else {
		entry.NextHop = rc.NextHop
	}

	return entry, nil
}

// loadRoutes replaces table's entries with the ones described by confs,
// logging and skipping any entry that fails to parse rather than aborting
// the whole reload.
func loadRoutes(table *routing.RouteTable, confs []routeConf) {
	table.Clear()
	for _, rc := range confs {
		entry, err := routeEntryFromConf(rc)
		if err != nil {
			log.WithError(err).Warn("Skipping invalid route entry")
			continue
		}
		table.AddEntry(entry)
	}
}

// watchRoutes re-parses filename and reloads table whenever fsnotify
// reports it changed (parseCore passes its own configuration file, whose
// [[routes]] entries are re-read), grounded in the
// teacher's own use of fsnotify for config watching (see DESIGN.md).
func watchRoutes(filename string, table *routing.RouteTable) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filename); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				var conf tomlConfig
				if _, err := toml.DecodeFile(filename, &conf); err != nil {
					log.WithError(err).Warn("Failed to reload routes file")
					continue
				}
				loadRoutes(table, conf.Routes)
				log.WithField("routes", len(conf.Routes)).Info("Reloaded route table")

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("Route file watcher error")
			}
		}
	}()

	return watcher, nil
}

// restoreRegistrations re-registers every persisted RegistrationRecord with
// an always-accept-and-drop Deliver callback, so bundles addressed to an
// application that has not yet reconnected are still pulled out of the
// forwarding path and left queued in the store for later collection.
// Pending bundles in the store are not replayed to the router on startup.
func restoreRegistrations(rd *routing.Daemon, store *storage.Store) error {
	recs, err := store.Registrations()
	if err != nil {
		return err
	}

	for _, rec := range recs {
		eid, err := bundle.NewEndpointID(rec.EID)
		if err != nil {
			log.WithError(err).WithField("eid", rec.EID).Warn("Skipping invalid persisted registration")
			continue
		}

		if err := rd.Register(routing.Registration{
			ID:      rec.RegID,
			EID:     eid,
			Deliver: func(*bundle.Bundle) {},
		}); err != nil {
			log.WithError(err).WithField("eid", rec.EID).Warn("Failed to restore registration")
		}
	}

	return nil
}

// parseCore builds every long-lived component from a TOML configuration
// file, mirroring the shape of the teacher's parseCore (logging, store,
// routing daemon, discovery, webserver) adapted to this engine's component
// set.
func parseCore(filename string) (*daemon, error) {
	var conf tomlConfig
	if _, err := toml.DecodeFile(filename, &conf); err != nil {
		return nil, err
	}

	setupLogging(conf.Logging)

	if conf.Core.Store == "" {
		return nil, fmt.Errorf("core.store is empty")
	}
	if conf.Core.NodeId == "" {
		return nil, fmt.Errorf("core.node-id is empty")
	}

	nodeId, err := bundle.NewEndpointID(conf.Core.NodeId)
	if err != nil {
		return nil, fmt.Errorf("core.node-id: %w", err)
	}

	store, err := storage.NewStore(conf.Core.Store)
	if err != nil {
		return nil, err
	}
	if store.Recovered {
		log.Warn("Store directory was not cleanly closed on last run, recovering")
	}

	actions := &daemonActions{}
	rd := routing.NewDaemon(actions)
	actions.rd = rd
	rd.SetBlockRegistry(newBlockRegistry())
	rd.SetACSQueue(forwarding.NewACSQueue())

	if err := restoreRegistrations(rd, store); err != nil {
		log.WithError(err).Warn("Failed to restore persisted registrations")
	}
	loadRoutes(rd.Table(), conf.Routes)

	d := &daemon{store: store, routing: rd}

	var watcher *fsnotify.Watcher
	if strings.HasSuffix(filename, ".toml") {
		if w, err := watchRoutes(filename, rd.Table()); err != nil {
			log.WithError(err).Warn("Failed to watch routes file for changes")
		} else {
			watcher = w
		}
	}
	d.watcher = watcher

	if conf.Discovery.Enable {
		interval := time.Duration(conf.Discovery.Interval) * time.Second
		if interval == 0 {
			interval = 10 * time.Second
		}
		disco, err := udpdisc.NewDiscovery(rd, nodeId, conf.Discovery.ListenPort, interval)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.discovery = disco
	}

	if conf.Agents.Webserver.Address != "" {
		prefix := conf.Agents.Webserver.Prefix
		if prefix == "" {
			prefix = "/rest"
		}

		srv := agent.NewServer(rd, store)
		httpServer := &http.Server{
			Addr:    conf.Agents.Webserver.Address,
			Handler: srv.Router(prefix),
		}

		errChan := make(chan error, 1)
		go func() { errChan <- httpServer.ListenAndServe() }()

		select {
		case err := <-errChan:
			d.Close()
			return nil, err
		case <-time.After(100 * time.Millisecond):
		}

		d.httpServer = httpServer
	}

	return d, nil
}
