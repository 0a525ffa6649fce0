// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent exposes a read-only REST and WebSocket surface over a
// routing.Daemon and storage.Store: the route table, registered Links,
// local Registrations, pending bundles and their forwarding logs, plus a
// live feed of routing.Event as they're dispatched.
//
// The teacher's pkg/agent wires application agents into the bundle data
// plane itself (WebSocketAgent/RestAgent send and receive Bundles). This
// engine's agent tree is narrower by design: it's an inspection surface
// for operators, not a delivery path, so only GET/HTTP endpoints and an
// event WebSocket exist, reusing the teacher's exact dependency choice
// (github.com/gorilla/mux, github.com/gorilla/websocket) for the same
// concern.
package agent
