// Package udpdisc implements UDP multicast peer discovery and a minimal
// datagram-backed routing.Link, grounded in the teacher's
// pkg/discovery.Manager (same github.com/schollz/peerdiscovery broadcast
// loop) but re-targeted from the teacher's multi-CLA Convergable registry
// onto this module's single routing.Link abstraction: discovering a peer
// opens one UDP-backed Link and fires ContactUpEvent, and a reaper goroutine
// fires ContactDownEvent once a peer stops announcing itself.
package udpdisc
