package network

import (
	"sort"
	"sync"
	"time"

	peerstore "github.com/libp2p/go-libp2p/core/peer"
	multiaddr "github.com/multiformats/go-multiaddr"
)

// Tracker counts open connections per peer. A peer is reported connected on
// its first connection and disconnected when its last one closes.
type Tracker struct {
	mu    sync.RWMutex
	peers map[peerstore.ID]*trackedPeer
}

type trackedPeer struct {
	addrs []multiaddr.Multiaddr
	conns int
	since time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		peers: make(map[peerstore.ID]*trackedPeer),
	}
}

// Connected records a new connection and reports whether it is the peer's
// first one.
func (t *Tracker) Connected(peerID peerstore.ID, addr multiaddr.Multiaddr, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[peerID]
	if !ok {
		p = &trackedPeer{since: at}
		t.peers[peerID] = p
	}
	p.conns++
	if addr != nil && !containsAddr(p.addrs, addr) {
		p.addrs = append(p.addrs, addr)
	}
	return !ok
}

// Disconnected drops one connection and reports whether the peer has none
// left. Unknown peers report false.
func (t *Tracker) Disconnected(peerID peerstore.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[peerID]
	if !ok {
		return false
	}
	p.conns--
	if p.conns > 0 {
		return false
	}
	delete(t.peers, peerID)
	return true
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// Since reports when the peer's current connection streak began.
func (t *Tracker) Since(peerID peerstore.ID) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[peerID]
	if !ok {
		return time.Time{}, false
	}
	return p.since, true
}

// GetAll returns the connected peers ordered by ID.
func (t *Tracker) GetAll() []peerstore.AddrInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]peerstore.AddrInfo, 0, len(t.peers))
	for id, p := range t.peers {
		result = append(result, peerstore.AddrInfo{
			ID:    id,
			Addrs: append([]multiaddr.Multiaddr(nil), p.addrs...),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func containsAddr(addrs []multiaddr.Multiaddr, addr multiaddr.Multiaddr) bool {
	for _, a := range addrs {
		if a.Equal(addr) {
			return true
		}
	}
	return false
}
