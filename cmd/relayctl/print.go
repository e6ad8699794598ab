package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
)

type row struct {
	kind, value string
}

// printSnapshot renders one snapshot as a two column table, one row per
// address, peer, protocol and connection.
func printSnapshot(w io.Writer, snap lib.Snapshot) {
	if msg, ok := snap.ErrorMessage(); ok {
		fmt.Fprintf(w, "relay unavailable: %s\n", msg)
		return
	}
	st, _ := snap.Status()

	var rows []row
	add := func(kind string, values []string) {
		if len(values) == 0 {
			rows = append(rows, row{kind, "-"})
		}
		for _, v := range values {
			rows = append(rows, row{kind, v})
		}
	}
	add("ADDRESS", st.Addresses)
	add("PEER", st.Peers)
	add("PROTOCOL", st.Protocols)
	conns := make([]string, 0, len(st.Connections))
	for _, c := range st.Connections {
		conns = append(conns, c.Peer)
	}
	add("CONNECTION", conns)

	kindW, valueW := len("CONNECTION"), len("VALUE")
	for _, r := range rows {
		valueW = maxInt(valueW, len(r.value))
	}

	sep := fmt.Sprintf("+-%s-+-%s-+\n", strings.Repeat("-", kindW), strings.Repeat("-", valueW))
	fmt.Fprint(w, sep)
	fmt.Fprintf(w, "| %s | %s |\n", pad("KIND", kindW), pad("VALUE", valueW))
	fmt.Fprint(w, sep)
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s |\n", pad(r.kind, kindW), pad(r.value, valueW))
	}
	fmt.Fprint(w, sep)
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
