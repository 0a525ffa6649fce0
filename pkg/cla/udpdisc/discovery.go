package udpdisc

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/schollz/peerdiscovery"

	"github.com/dtn7/dtnme-go/pkg/bundle"
	"github.com/dtn7/dtnme-go/pkg/routing"
)

const (
	// multicastAddress4 is this package's IPv4 discovery multicast group.
	multicastAddress4 = "224.23.23.23"

	// multicastPort is the UDP port discovery announcements are exchanged on.
	// Bundle traffic itself uses a separate, per-node ephemeral port
	// (announced in the payload), so discovery and data never share a socket.
	multicastPort = 35039

	// potentialDowntimeSeconds is reported by every Link dialed from this
	// package. It is a fixed value, independent of peerReapFactor and of the
	// announcement interval.
	potentialDowntimeSeconds = uint32(30)

	// peerReapFactor is how many missed announcement intervals a peer may go
	// silent for before Discovery declares it gone.
	peerReapFactor = 3
)

// Discovery periodically broadcasts this node's presence over UDP multicast
// and, on hearing from a peer, opens a Link to it and registers that Link
// with a routing.Daemon, posting ContactUpEvent/ContactDownEvent as peers
// come and go.
type Discovery struct {
	daemon   *routing.Daemon
	self     bundle.EndpointID
	interval time.Duration

	mu    sync.Mutex
	peers map[string]*peerState

	stopChan chan struct{}
}

type peerState struct {
	link     *Link
	lastSeen time.Time
}

// NewDiscovery creates and starts a Discovery for self, registering and
// removing Links on daemon as peers are discovered and go silent.
func NewDiscovery(daemon *routing.Daemon, self bundle.EndpointID, listenPort uint16, interval time.Duration) (*Discovery, error) {
	d := &Discovery{
		daemon:   daemon,
		self:     self,
		interval: interval,
		peers:    make(map[string]*peerState),
		stopChan: make(chan struct{}),
	}

	msg, err := marshalAnnouncement(announcement{Endpoint: self, Port: listenPort})
	if err != nil {
		return nil, fmt.Errorf("udpdisc: marshaling announcement: %w", err)
	}

	settings := peerdiscovery.Settings{
		Limit:            -1,
		Port:             fmt.Sprintf("%d", multicastPort),
		MulticastAddress: multicastAddress4,
		Payload:          msg,
		Delay:            interval,
		TimeLimit:        -1,
		StopChan:         d.stopChan,
		AllowSelf:        false,
		IPVersion:        peerdiscovery.IPv4,
		Notify:           d.notify,
	}

	errCh := make(chan error, 1)
	go func() {
		_, discoverErr := peerdiscovery.Discover(settings)
		errCh <- discoverErr
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-time.After(time.Second):
	}

	go d.reapLoop()

	return d, nil
}

func (d *Discovery) notify(discovered peerdiscovery.Discovered) {
	a, err := unmarshalAnnouncement(discovered.Payload)
	if err != nil {
		log.WithError(err).WithField("peer", discovered.Address).
			Warn("udpdisc: failed to parse discovery payload")
		return
	}

	if d.self.Equal(a.Endpoint) {
		return
	}

	addr := fmt.Sprintf("%s:%d", discovered.Address, a.Port)

	d.mu.Lock()
	defer d.mu.Unlock()

	if ps, ok := d.peers[addr]; ok {
		ps.lastSeen = time.Now()
		return
	}

	link, err := dialLink(d.daemon, addr, a.Endpoint)
	if err != nil {
		log.WithError(err).WithField("peer", addr).Warn("udpdisc: failed to open link")
		return
	}

	d.peers[addr] = &peerState{link: link, lastSeen: time.Now()}
	d.daemon.RegisterLink(link)
	d.daemon.Post(routing.ContactUpEvent{Link: link.Name()})
}

func (d *Discovery) reapLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.reapSilentPeers()
		case <-d.stopChan:
			return
		}
	}
}

func (d *Discovery) reapSilentPeers() {
	deadline := time.Duration(peerReapFactor) * d.interval

	d.mu.Lock()
	var gone []string
	for addr, ps := range d.peers {
		if time.Since(ps.lastSeen) > deadline {
			gone = append(gone, addr)
		}
	}
	for _, addr := range gone {
		delete(d.peers, addr)
	}
	d.mu.Unlock()

	for _, addr := range gone {
		d.daemon.RemoveLink(addr)
		d.daemon.Post(routing.ContactDownEvent{Link: addr})
	}
}

// Close stops announcing this node and tears down every discovered Link.
func (d *Discovery) Close() {
	close(d.stopChan)

	d.mu.Lock()
	defer d.mu.Unlock()
	for addr, ps := range d.peers {
		_ = ps.link.Close()
		delete(d.peers, addr)
	}
}
