package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"warp/internal/config"
	"warp/internal/events"

	peerstore "github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListenMultiaddrs(t *testing.T) {
	tests := []struct {
		name    string
		listens []string
		want    []string
		wantErr bool
	}{
		{"PortOnly", []string{"4100"}, []string{
			"/ip4/0.0.0.0/tcp/4100", "/ip4/0.0.0.0/udp/4100/quic-v1",
			"/ip6/::/tcp/4100", "/ip6/::/udp/4100/quic-v1",
		}, false},
		{"IPv4", []string{"127.0.0.1:0"}, []string{
			"/ip4/127.0.0.1/tcp/0", "/ip4/127.0.0.1/udp/0/quic-v1",
		}, false},
		{"Dedup", []string{"[::1]:9", "[::1]:9"}, []string{
			"/ip6/::1/tcp/9", "/ip6/::1/udp/9/quic-v1",
		}, false},
		{"BadHost", []string{"example.org:1"}, nil, true},
		{"Empty", []string{" "}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildListenMultiaddrs(tt.listens)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeDNS map[string][]string

func (f fakeDNS) LookupTXT(_ context.Context, domain string) ([]string, error) {
	records, ok := f[domain]
	if !ok {
		return nil, errors.New("no such host")
	}
	return records, nil
}

type memKeyStore struct{ value string }

func (m *memKeyStore) LoadNodePrivateKey() (string, error) { return m.value, nil }
func (m *memKeyStore) SaveNodePrivateKey(v string) error  { m.value = v; return nil }

func newPeerAddr(t *testing.T) (peerstore.ID, string) {
	t.Helper()
	priv, _, err := GenerateNodeKey()
	require.NoError(t, err)
	id, err := PeerIDFromKey(priv)
	require.NoError(t, err)
	return id, "/ip4/127.0.0.1/tcp/4001/p2p/" + id.String()
}

func TestConfigResolver(t *testing.T) {
	selfID, selfAddr := newPeerAddr(t)
	peerA, addrA := newPeerAddr(t)
	peerB, addrB := newPeerAddr(t)

	resolver := NewConfigResolver(selfID, []config.Connection{
		{Type: "dns", Address: "init.example.org"},
		{Type: "dns", Address: "missing.example.org"},
		{Type: "multiaddr", Address: addrB},
		{Type: "multiaddr", Address: addrA},
		{Type: "multiaddr", Address: selfAddr},
		{Type: "multiaddr", Address: "/ip4/127.0.0.1/tcp/4001"},
		{Type: "carrier", Address: "ignored"},
	}, fakeDNS{"init.example.org": {addrA}})

	peers, err := resolver.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.example.org")
	assert.Contains(t, err.Error(), "parse failed")

	ids := []peerstore.ID{}
	for _, p := range peers {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []peerstore.ID{peerA, peerB}, ids)
}

func TestLoadOrCreatePrivateKey(t *testing.T) {
	store := &memKeyStore{}

	first, err := LoadOrCreatePrivateKey(store)
	require.NoError(t, err)
	require.NotEmpty(t, store.value)

	second, err := LoadOrCreatePrivateKey(store)
	require.NoError(t, err)
	assert.True(t, first.Equals(second))

	store.value = "not base64!"
	third, err := LoadOrCreatePrivateKey(store)
	require.NoError(t, err)
	assert.False(t, first.Equals(third))
}

func TestNodePublishesPeerEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bus := events.New[events.Event]()
	defer bus.Close()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	newNode := func(b *events.Hub[events.Event]) *Node {
		priv, _, err := GenerateNodeKey()
		require.NoError(t, err)
		n, err := NewNode(&config.Config{Listen: config.ListenConfig{"127.0.0.1:0"}}, priv, b)
		require.NoError(t, err)
		t.Cleanup(func() { n.Close() })
		return n
	}

	local := newNode(bus)
	remote := newNode(nil)

	require.NoError(t, local.Connect(ctx, peerstore.AddrInfo{
		ID:    remote.Host.ID(),
		Addrs: remote.Host.Addrs(),
	}))

	evt, err := sub.Next(ctx)
	require.NoError(t, err)
	connected, ok := evt.(events.PeerConnected)
	require.True(t, ok, "got %T", evt)
	assert.Equal(t, remote.Host.ID().String(), connected.PeerID)
	assert.Equal(t, 1, local.Tracker.Len())

	require.NoError(t, remote.Close())

	evt, err = sub.Next(ctx)
	require.NoError(t, err)
	disconnected, ok := evt.(events.PeerDisconnected)
	require.True(t, ok, "got %T", evt)
	assert.Equal(t, remote.Host.ID().String(), disconnected.PeerID)
	assert.Eventually(t, func() bool { return local.Tracker.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func newShutdownTestNode(t *testing.T, bus *events.Hub[events.Event]) *Node {
	t.Helper()
	priv, _, err := GenerateNodeKey()
	require.NoError(t, err)
	n, err := NewNode(&config.Config{Listen: config.ListenConfig{"127.0.0.1:0"}}, priv, bus)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n
}

func TestShutdownHandlerClosesOnEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.New[events.Event]()
	defer bus.Close()
	n := newShutdownTestNode(t, bus)
	require.NoError(t, n.StartShutdownHandler(ctx))

	bus.Emit(ctx, events.ShutdownRequested{Reason: "test", At: time.Now().UTC()})

	select {
	case <-n.Done():
	case <-ctx.Done():
		t.Fatal("host was not closed after ShutdownRequested")
	}
}

func TestShutdownHandlerClosesOnContextEnd(t *testing.T) {
	bus := events.New[events.Event]()
	defer bus.Close()
	n := newShutdownTestNode(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.StartShutdownHandler(ctx))

	// hold the handler's mailbox with unrelated traffic, then cancel
	bus.Emit(context.Background(), events.PeerPinged{PeerID: "busy"})
	cancel()

	select {
	case <-n.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("host was not closed after the context ended")
	}
}
