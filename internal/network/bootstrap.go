package network

import (
	"context"
	"errors"
	"fmt"
	"net"

	"warp/internal/config"

	peerstore "github.com/libp2p/go-libp2p/core/peer"
	multiaddr "github.com/multiformats/go-multiaddr"
)

type Resolver interface {
	Resolve(ctx context.Context) ([]peerstore.AddrInfo, error)
}

type DNSResolver interface {
	LookupTXT(ctx context.Context, domain string) ([]string, error)
}

// ConfigResolver turns configured init connections into dialable peers.
// "dns" entries name a TXT record whose first value is a /p2p multiaddr.
type ConfigResolver struct {
	selfID peerstore.ID
	conns  []config.Connection
	dns    DNSResolver
}

func NewConfigResolver(selfID peerstore.ID, conns []config.Connection, dns DNSResolver) *ConfigResolver {
	if dns == nil {
		dns = net.DefaultResolver
	}
	return &ConfigResolver{
		selfID: selfID,
		conns:  conns,
		dns:    dns,
	}
}

func (r *ConfigResolver) Resolve(ctx context.Context) ([]peerstore.AddrInfo, error) {
	peers := make([]peerstore.AddrInfo, 0)
	seen := make(map[peerstore.ID]struct{})
	var errs []error

	add := func(raw, source string) {
		peerInfo, err := ParseP2PAddr(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s parse failed: %w", source, err))
			return
		}
		if peerInfo.ID == r.selfID {
			return
		}
		if _, ok := seen[peerInfo.ID]; ok {
			return
		}
		seen[peerInfo.ID] = struct{}{}
		peers = append(peers, *peerInfo)
	}

	for _, conn := range r.conns {
		switch conn.Type {
		case "dns":
			records, err := r.dns.LookupTXT(ctx, conn.Address)
			if err != nil {
				errs = append(errs, fmt.Errorf("dns %s query failed: %w", conn.Address, err))
				continue
			}
			if len(records) == 0 {
				continue
			}
			add(records[0], "dns "+conn.Address)
		case "multiaddr":
			add(conn.Address, "multiaddr "+conn.Address)
		default:
			continue
		}
	}

	return peers, errors.Join(errs...)
}

func ParseP2PAddr(multiAddrStr string) (*peerstore.AddrInfo, error) {
	addr, err := multiaddr.NewMultiaddr(multiAddrStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse multiaddr %s: %w", multiAddrStr, err)
	}

	peer, err := peerstore.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to peer address: %w", err)
	}

	return peer, nil
}
