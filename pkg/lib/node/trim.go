package node

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// TrimAddresses renders listening addresses in their canonical textual form.
// A trailing /p2p/<id> component is stripped, nil entries are skipped and
// duplicates are removed keeping the first occurrence.
func TrimAddresses(addrs []ma.Multiaddr) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if addr == nil {
			continue
		}
		transport, _ := peer.SplitAddr(addr)
		if transport == nil {
			// a bare /p2p/<id> carries no transport to report
			continue
		}
		s := transport.String()
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
