package network

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"warp/internal/events"
	"warp/internal/logging"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	libp2pnet "github.com/libp2p/go-libp2p/core/network"
	peerstore "github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	libp2ptcp "github.com/libp2p/go-libp2p/p2p/transport/tcp"
)

// Node is the libp2p host whose connection lifecycle is published on the
// application hub.
type Node struct {
	Host        host.Host
	PingService *ping.PingService
	Tracker     *Tracker
	bus         *events.Hub[events.Event]
	closeOnce   sync.Once
	closeErr    error
	closed      chan struct{}
}

type ListenProvider interface {
	ListenAddresses() []string
}

func NewNode(cfg ListenProvider, privKey crypto.PrivKey, bus *events.Hub[events.Event]) (*Node, error) {
	if privKey == nil {
		return nil, fmt.Errorf("node private key is not initialized")
	}

	listenAddrs, err := buildListenMultiaddrs(cfg.ListenAddresses())
	if err != nil {
		return nil, err
	}

	hostNode, err := libp2p.New(
		libp2p.ListenAddrStrings(listenAddrs...),
		libp2p.Identity(privKey),
		libp2p.Ping(true),
		libp2p.Transport(libp2ptcp.NewTCPTransport),
		libp2p.Transport(libp2pquic.NewTransport),
	)
	if err != nil {
		return nil, err
	}

	n := &Node{
		Host:        hostNode,
		PingService: &ping.PingService{Host: hostNode},
		Tracker:     NewTracker(),
		bus:         bus,
		closed:      make(chan struct{}),
	}
	n.registerConnectionNotifications()
	return n, nil
}

func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		n.closeErr = n.Host.Close()
		close(n.closed)
	})
	return n.closeErr
}

// Done is closed once the host has been closed.
func (n *Node) Done() <-chan struct{} {
	return n.closed
}

func (n *Node) LogLocalAddrs() error {
	peerInfo := peerstore.AddrInfo{
		ID:    n.Host.ID(),
		Addrs: n.Host.Addrs(),
	}

	addrs, err := peerstore.AddrInfoToP2pAddrs(&peerInfo)
	if err != nil {
		return err
	}

	logging.Log("NODE", "local_addrs", map[string]string{
		"addrs": fmt.Sprintf("%v", addrs),
	})
	return nil
}

func (n *Node) Connect(ctx context.Context, peerInfo peerstore.AddrInfo) error {
	return n.Host.Connect(ctx, peerInfo)
}

// StartBootstrap dials resolver candidates every interval until a peer
// connection exists.
func (n *Node) StartBootstrap(ctx context.Context, resolver Resolver, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	run := func() bool {
		if len(n.Host.Network().Peers()) > 0 {
			logging.Log("BOOTSTRAP", "stop", map[string]string{
				"reason": "peer_connected",
			})
			return false
		}

		candidates, err := resolver.Resolve(ctx)
		if err != nil {
			logging.Log("BOOTSTRAP", "resolve_warning", map[string]string{
				"reason": err.Error(),
			})
		}
		if len(candidates) == 0 {
			logging.Log("BOOTSTRAP", "no_candidates", nil)
			return true
		}

		for _, candidate := range candidates {
			if candidate.ID == n.Host.ID() {
				continue
			}
			if err := n.Connect(ctx, candidate); err != nil {
				logging.Log("BOOTSTRAP", "connect_failed", map[string]string{
					"peer_id": candidate.ID.String(),
					"reason":  err.Error(),
				})
				continue
			}
			logging.Log("BOOTSTRAP", "connected", map[string]string{
				"peer_id": candidate.ID.String(),
			})
			return false
		}

		return true
	}

	go func() {
		if !run() {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !run() {
					return
				}
			}
		}
	}()
}

// StartShutdownHandler closes the host when a ShutdownRequested event is
// published or ctx ends. The event is an early signal; a subscriber that
// misses it still closes the host once ctx is cancelled.
func (n *Node) StartShutdownHandler(ctx context.Context) error {
	if n.bus == nil {
		go func() {
			<-ctx.Done()
			n.shutdown("context_done")
		}()
		return nil
	}

	sub, err := n.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer sub.Close()
		for evt := range sub.All(ctx) {
			if req, ok := evt.(events.ShutdownRequested); ok {
				n.shutdown(req.Reason)
				return
			}
		}
		n.shutdown("context_done")
	}()
	return nil
}

func (n *Node) shutdown(reason string) {
	logging.Log("NODE", "shutdown", map[string]string{
		"reason": reason,
	})
	if err := n.Close(); err != nil {
		logging.Log("NODE", "shutdown_failed", map[string]string{
			"reason": err.Error(),
		})
	}
}

// Notifiee callbacks run on libp2p's goroutines and must not block, so
// events are handed over with TryEmit. Only a peer's first connection and
// its last disconnection are published.
func (n *Node) registerConnectionNotifications() {
	n.Host.Network().Notify(&libp2pnet.NotifyBundle{
		ConnectedF: func(_ libp2pnet.Network, conn libp2pnet.Conn) {
			now := time.Now().UTC()
			if !n.Tracker.Connected(conn.RemotePeer(), conn.RemoteMultiaddr(), now) || n.bus == nil {
				return
			}
			n.bus.TryEmit(events.PeerConnected{
				PeerID:     conn.RemotePeer().String(),
				RemoteAddr: conn.RemoteMultiaddr().String(),
				At:         now,
			})
		},
		DisconnectedF: func(_ libp2pnet.Network, conn libp2pnet.Conn) {
			if !n.Tracker.Disconnected(conn.RemotePeer()) || n.bus == nil {
				return
			}
			n.bus.TryEmit(events.PeerDisconnected{
				PeerID:     conn.RemotePeer().String(),
				RemoteAddr: conn.RemoteMultiaddr().String(),
				At:         time.Now().UTC(),
			})
		},
	})
}

func buildListenMultiaddrs(listens []string) ([]string, error) {
	addrs := make([]string, 0, len(listens))
	seen := make(map[string]struct{}, len(listens))

	for _, raw := range listens {
		listen := strings.TrimSpace(raw)
		if listen == "" {
			continue
		}

		hosts := []string{}
		port := ""

		if strings.Contains(listen, ":") {
			host, p, err := net.SplitHostPort(listen)
			if err != nil {
				return nil, fmt.Errorf("invalid listen address %q, expected host:port (IPv6 like [::]:4100)", listen)
			}
			port = p
			if host == "" {
				hosts = []string{"0.0.0.0", "::"}
			} else {
				hosts = []string{host}
			}
		} else {
			port = listen
			hosts = []string{"0.0.0.0", "::"}
		}

		for _, host := range hosts {
			ip := net.ParseIP(host)
			if ip == nil {
				return nil, fmt.Errorf("invalid listen host %q", host)
			}

			var tcpAddr string
			var quicAddr string
			if ip.To4() != nil {
				tcpAddr = fmt.Sprintf("/ip4/%s/tcp/%s", host, port)
				quicAddr = fmt.Sprintf("/ip4/%s/udp/%s/quic-v1", host, port)
			} else {
				tcpAddr = fmt.Sprintf("/ip6/%s/tcp/%s", host, port)
				quicAddr = fmt.Sprintf("/ip6/%s/udp/%s/quic-v1", host, port)
			}

			for _, addr := range []string{tcpAddr, quicAddr} {
				if _, ok := seen[addr]; ok {
					continue
				}
				seen[addr] = struct{}{}
				addrs = append(addrs, addr)
			}
		}
	}

	if len(addrs) == 0 {
		return nil, fmt.Errorf("no valid listen addresses configured")
	}

	return addrs, nil
}
