package netconn

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// Interface is a port or address a protocol can be dialed on.
type Interface struct {
	Name string
	Desc string

	// Info carries protocol specific details, like
	// the serenum record of a serial port.
	Info interface{}
}

// InterfaceGroup lists the interfaces of one protocol.
type InterfaceGroup struct {
	Name       string
	Type       string
	Interfaces func() []Interface
	SortPrefix string

	// Hidden groups are listed on request only.
	Hidden bool
}

// Interfaces returns the groups of all registered protocols,
// ordered by SortPrefix and Name.
func Interfaces() []*InterfaceGroup {
	var list []*InterfaceGroup
	seen := make(map[*InterfaceGroup]bool, len(protos))
	for _, p := range protos {
		if ig := p.InterfaceGroup; ig != nil && !seen[ig] {
			seen[ig] = true
			list = append(list, ig)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].SortPrefix+list[i].Name < list[j].SortPrefix+list[j].Name
	})
	return list
}

// FprintInterfaces writes the available interfaces to w, grouped
// by protocol. Groups without interfaces are omitted, and so are
// hidden groups unless all is set.
func FprintInterfaces(w io.Writer, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	sep := ""
	for _, g := range Interfaces() {
		if g.Hidden && !all {
			continue
		}
		ifaces := g.Interfaces()
		if len(ifaces) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s%s:\n", sep, g.Name)
		for _, iface := range ifaces {
			fmt.Fprintf(tw, "\t%s\t%s\n", iface.Name, iface.Desc)
		}
		sep = "\n"
	}
	return tw.Flush()
}
