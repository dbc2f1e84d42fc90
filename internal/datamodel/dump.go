package datamodel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

// Dump renders a consistent text snapshot of the whole database, intended
// for the ALME boundary's DumpNetworkDevices call, §7. The snapshot is
// consistent only if the caller holds the database lock for the duration
// of the call (see Lock/Unlock) — Dump itself does not lock.
func (d *Database) Dump(now time.Time) string {
	var sb strings.Builder

	devices := make([]*Device, 0, len(d.devices))
	for _, dev := range d.devices {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ALMAC.String() < devices[j].ALMAC.String() })

	devTable := tablewriter.NewWriter(&sb)
	devTable.SetHeader([]string{"AL MAC", "Name", "Services", "Profile", "Interfaces", "Last Updated"})
	for _, dev := range devices {
		devTable.Append([]string{
			dev.ALMAC.String(),
			dev.FriendlyName,
			servicesString(dev.SupportedServices),
			fmt.Sprintf("%d", dev.ProfileVersion),
			fmt.Sprintf("%d", len(dev.Interfaces)),
			formatAge(now, dev.LastUpdated),
		})
	}
	devTable.Render()

	sb.WriteString("\n")

	linkTable := tablewriter.NewWriter(&sb)
	linkTable.SetHeader([]string{"Local IF", "Neighbor IF", "Neighbor AL", "1905?", "Fresh", "TX PHY", "RX RSSI"})
	for _, dev := range devices {
		ifMACs := make([]wire.MAC, 0, len(dev.Links))
		for m := range dev.Links {
			ifMACs = append(ifMACs, m)
		}
		sort.Slice(ifMACs, func(i, j int) bool { return ifMACs[i].String() < ifMACs[j].String() })
		for _, ifMAC := range ifMACs {
			links := dev.Links[ifMAC]
			nbMACs := make([]wire.MAC, 0, len(links.Neighbors))
			for m := range links.Neighbors {
				nbMACs = append(nbMACs, m)
			}
			sort.Slice(nbMACs, func(i, j int) bool { return nbMACs[i].String() < nbMACs[j].String() })
			for _, nbMAC := range nbMACs {
				nb := links.Neighbors[nbMAC]
				txPHY, rxRSSI := "-", "-"
				if nb.Metrics != nil {
					if nb.Metrics.TX != nil {
						txPHY = fmt.Sprintf("%d", nb.Metrics.TX.PHYRate)
					}
					if nb.Metrics.RX != nil {
						rxRSSI = fmt.Sprintf("%d", nb.Metrics.RX.RSSI)
					}
				}
				linkTable.Append([]string{
					links.LocalIfMAC.String(),
					nb.NeighborIfMAC.String(),
					nb.NeighborALMAC.String(),
					fmt.Sprintf("%t", nb.Is1905),
					formatAge(now, nb.LastFresh()),
					txPHY,
					rxRSSI,
				})
			}
		}
	}
	linkTable.Render()

	return sb.String()
}

func servicesString(m map[Service]bool) string {
	var parts []string
	if m[ServiceController] {
		parts = append(parts, "controller")
	}
	if m[ServiceAgent] {
		parts = append(parts, "agent")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func formatAge(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return now.Sub(t).Truncate(time.Second).String() + " ago"
}
