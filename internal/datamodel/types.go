// Package datamodel owns the topology database: the single source of truth
// for every AL device, local interface, neighbor link, Multi-AP radio/BSS
// inventory and link metric the node has learned, §3 and §4.6.
package datamodel

import (
	"time"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

// Service is a Multi-AP role an AL device can advertise support for.
type Service uint8

const (
	ServiceController Service = Service(wire.ServiceMultiAPController)
	ServiceAgent       Service = Service(wire.ServiceMultiAPAgent)
)

// IPAddr is one address reported for a local interface, with its
// acquisition origin.
type IPAddr struct {
	Type    uint8 // wire.IPAddrType*
	Address string
}

// WiFiInterfaceInfo is the media-specific data for an 802.11 local
// interface.
type WiFiInterfaceInfo struct {
	BSSID             wire.MAC
	Role              uint8 // 0=AP, 1=non-AP STA, 2=ad-hoc
	Band              uint8
	CenterFreqIndex1  uint8
	CenterFreqIndex2  uint8
}

// PLCInterfaceInfo is the media-specific data for an IEEE 1901 (powerline)
// local interface.
type PLCInterfaceInfo struct {
	NetworkID [7]byte
}

// GenericInterfaceInfo is the media-specific data for an interface whose
// media type the standard doesn't enumerate.
type GenericInterfaceInfo struct {
	OUI               [3]byte
	Variant           uint8
	MediaSpecificData []byte
	URL               string
}

// LocalInterface is one of a device's physical or logical network
// interfaces, §3 "Local Interface".
type LocalInterface struct {
	MAC        wire.MAC
	MediaType  uint16
	PowerState uint8 // wire.PowerState*

	WiFi     *WiFiInterfaceInfo
	PLC      *PLCInterfaceInfo
	Generic  *GenericInterfaceInfo
}

// LinkMetricSample is one direction's (TX or RX) measurement for a link.
type LinkMetricSample struct {
	PacketErrors          uint32
	Packets               uint32
	MACThroughputCapacity uint16 // 0 for RX samples
	LinkAvailability      uint16 // 0 for RX samples
	PHYRate               uint16 // 0 for RX samples
	RSSI                  uint8  // 0 for TX samples
}

// LinkMetrics holds the most recently received TX and/or RX sample for one
// neighbor link. Metrics are replaced wholesale, never merged, §3.
type LinkMetrics struct {
	TX        *LinkMetricSample
	RX        *LinkMetricSample
	UpdatedAt time.Time
}

// FreshnessSource distinguishes which discovery mechanism last refreshed a
// neighbor link's freshness timestamp.
type FreshnessSource int

const (
	FreshnessTopologyDiscovery FreshnessSource = iota
	FreshnessBridgeDiscovery                   // LLDP
)

// NeighborLink is a directed (local interface, neighbor interface MAC)
// relation, §3 "Neighbor Link".
type NeighborLink struct {
	NeighborIfMAC wire.MAC
	Is1905        bool
	NeighborALMAC wire.MAC // valid iff Is1905
	Bridge        bool

	FreshTopologyDiscovery time.Time // zero if never observed this way
	FreshBridgeDiscovery   time.Time // zero if never observed this way

	Metrics *LinkMetrics
}

// LastFresh returns the most recent of the link's two freshness timestamps.
func (n *NeighborLink) LastFresh() time.Time {
	if n.FreshTopologyDiscovery.After(n.FreshBridgeDiscovery) {
		return n.FreshTopologyDiscovery
	}
	return n.FreshBridgeDiscovery
}

// InterfaceLinks is the neighbor-link table owned by one local interface.
type InterfaceLinks struct {
	LocalIfMAC wire.MAC
	Neighbors  map[wire.MAC]*NeighborLink // keyed by neighbor interface MAC
}

// BSS is a configured access point, §3 "BSS". Created when an M2 is applied
// or a locally configured AP is discovered; destroyed with its radio.
type BSS struct {
	BSSID      wire.MAC
	SSID       []byte
	AuthMode   uint16
	EncMode    uint16
	NetworkKey []byte
}

// Radio is a Multi-AP radio on a local device, §3 "Radio".
type Radio struct {
	UID           wire.MAC
	MaxBSS        uint8
	SupportedBands []uint8
	BSSes         map[wire.MAC]*BSS
}

// HasConfiguredBSS reports whether this radio has at least one BSS
// installed (used to decide whether re-triggering AP search after an M2 is
// still necessary, §9).
func (r *Radio) HasConfiguredBSS() bool {
	return len(r.BSSes) > 0
}

// Device is the complete record for one AL node, local or remote, §3 "AL
// Device".
type Device struct {
	ALMAC              wire.MAC
	FriendlyName       string
	ManufacturerName   string
	ModelName          string
	ControlURL         string
	SupportedServices  map[Service]bool
	ProfileVersion     uint8
	IPv4               []IPAddr
	IPv6               []IPAddr
	Interfaces         []*LocalInterface // ordered as reported
	Bridges            [][]wire.MAC
	PowerOffInterfaces []wire.MAC

	// Links is keyed by local interface MAC; each entry is owned by that
	// local interface and dropped with it.
	Links map[wire.MAC]*InterfaceLinks

	// Radios is the Multi-AP radio/BSS inventory, present on the local
	// device and on remote agents once discovered.
	Radios map[wire.MAC]*Radio

	// Topology-query rate-limiter bookkeeping, §4.4, §8 property 5.
	LastTopologyQuerySent        time.Time
	LastTopologyResponseReceived time.Time
	LastTopologyNotificationReceived time.Time

	LastUpdated time.Time
}

func newDevice(almac wire.MAC) *Device {
	return &Device{
		ALMAC:             almac,
		SupportedServices: make(map[Service]bool),
		Links:             make(map[wire.MAC]*InterfaceLinks),
		Radios:            make(map[wire.MAC]*Radio),
	}
}

// InterfaceByMAC looks up one of the device's local interfaces by MAC.
func (d *Device) InterfaceByMAC(m wire.MAC) *LocalInterface {
	for _, i := range d.Interfaces {
		if i.MAC == m {
			return i
		}
	}
	return nil
}

// HasGenericPHYInterface reports whether any local interface uses a
// non-standard media type (carries generic-PHY data).
func (d *Device) HasGenericPHYInterface() bool {
	for _, i := range d.Interfaces {
		if i.Generic != nil {
			return true
		}
	}
	return false
}

// linksForInterface returns (creating if necessary) the neighbor-link table
// owned by local interface ifMAC.
func (d *Device) linksForInterface(ifMAC wire.MAC) *InterfaceLinks {
	l, ok := d.Links[ifMAC]
	if !ok {
		l = &InterfaceLinks{LocalIfMAC: ifMAC, Neighbors: make(map[wire.MAC]*NeighborLink)}
		d.Links[ifMAC] = l
	}
	return l
}
