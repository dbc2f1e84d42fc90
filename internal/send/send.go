// Package send implements the 1905 send-builder catalogue, §4.5: one
// function per CMDU type, each gathering the TLVs its type requires from
// the topology database and handing the result to the wire codec and a
// raw-frame sink.
package send

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/datamodel"
	"github.com/BroadbandForum/meshComms-sub000/internal/mid"
	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

var sendLogger = log.WithFields(log.Fields{"module": "send"})

// FrameSink transmits a fully-forged fragment on the wire. Implemented by
// the platform collaborator; builders never touch a socket directly.
type FrameSink interface {
	SendRaw(ifaceMAC, dstMAC, srcMAC wire.MAC, etherType uint16, payload []byte) error
}

// Builder gathers and transmits CMDUs on behalf of the dispatcher, the
// discovery scheduler, and the AP-autoconfiguration controller. It is the
// only component besides the platform collaborator that touches the wire.
type Builder struct {
	db    *datamodel.Database
	mids  *mid.Allocator
	sink  FrameSink
}

// New returns a Builder that allocates message IDs from mids and writes
// through sink.
func New(db *datamodel.Database, mids *mid.Allocator, sink FrameSink) *Builder {
	return &Builder{db: db, mids: mids, sink: sink}
}

// unicastDest resolves the destination MAC for a response/query CMDU: the
// peer's AL MAC if known, else the frame source MAC the request arrived on
// (§4.5's "unicast AL-MAC destination ... falls back to the frame source
// MAC", §7 "unknown AL MAC on response").
func unicastDest(knownALMAC, frameSrcMAC wire.MAC) wire.MAC {
	if !knownALMAC.IsZero() {
		return knownALMAC
	}
	sendLogger.WithField("frame_src", frameSrcMAC.String()).Warn("unknown AL MAC on response, falling back to frame source MAC")
	return frameSrcMAC
}

// transmit forges cmdu and writes every resulting fragment out ifaceMAC to
// dstMAC, §4.1 "Forge contract".
func (b *Builder) transmit(ifaceMAC, dstMAC wire.MAC, cmdu *wire.CMDU) error {
	fragments, err := wire.Forge(cmdu)
	if err != nil {
		return fmt.Errorf("send: forge CMDU type %s: %w", wire.CMDUTypeName(cmdu.MessageType), err)
	}
	localALMAC := b.db.LocalALMAC()
	for _, frag := range fragments {
		if err := b.sink.SendRaw(ifaceMAC, dstMAC, localALMAC, wire.EtherType1905, frag); err != nil {
			return fmt.Errorf("send: transmit CMDU type %s: %w", wire.CMDUTypeName(cmdu.MessageType), err)
		}
	}
	return nil
}

// TopologyDiscovery sends a TOPOLOGY_DISCOVERY out ifaceMAC to the 1905
// multicast address, §4.5 multicast rule.
func (b *Builder) TopologyDiscovery(ifaceMAC wire.MAC) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeTopologyDiscovery,
		MessageID:   b.mids.Next(),
		TLVs: []wire.TLV{
			&wire.ALMACAddressTLV{ALMAC: b.db.LocalALMAC()},
			&wire.MACAddressTLV{MAC: ifaceMAC},
		},
	}
	return b.transmit(ifaceMAC, wire.Multicast1905, cmdu)
}

// TopologyNotification multicasts a TOPOLOGY_NOTIFICATION on ifaceMAC.
func (b *Builder) TopologyNotification(ifaceMAC wire.MAC) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeTopologyNotification,
		MessageID:   b.mids.Next(),
		TLVs:        []wire.TLV{&wire.ALMACAddressTLV{ALMAC: b.db.LocalALMAC()}},
	}
	return b.transmit(ifaceMAC, wire.Multicast1905, cmdu)
}

// TopologyQuery unicasts a TOPOLOGY_QUERY to destALMAC (or frameSrcMAC if
// destALMAC is unknown) out ifaceMAC.
func (b *Builder) TopologyQuery(ifaceMAC, destALMAC, frameSrcMAC wire.MAC) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeTopologyQuery,
		MessageID:   b.mids.Next(),
	}
	return b.transmit(ifaceMAC, unicastDest(destALMAC, frameSrcMAC), cmdu)
}

// TopologyResponse builds and unicasts the local node's own TOPOLOGY_RESPONSE
// in reply to a TOPOLOGY_QUERY, echoing the request's MID per §4.3.
func (b *Builder) TopologyResponse(ifaceMAC, destALMAC, frameSrcMAC wire.MAC, echoMID uint16) error {
	local := b.db.LocalDevice()

	var interfaces []wire.LocalInterfaceEntry
	for _, ifc := range local.Interfaces {
		interfaces = append(interfaces, wire.LocalInterfaceEntry{MAC: ifc.MAC, MediaType: ifc.MediaType})
	}

	tlvs := []wire.TLV{
		&wire.DeviceInformationTLV{ALMAC: local.ALMAC, Interfaces: interfaces},
	}
	if len(local.Bridges) > 0 {
		tlvs = append(tlvs, &wire.DeviceBridgingCapabilityTLV{Groups: local.Bridges})
	}
	for ifMAC, links := range local.Links {
		var non1905 []wire.MAC
		var neighbors []wire.NeighborEntry
		for nbMAC, nb := range links.Neighbors {
			if nb.Is1905 {
				neighbors = append(neighbors, wire.NeighborEntry{ALMAC: nb.NeighborALMAC, IsBridge: nb.Bridge})
			} else {
				non1905 = append(non1905, nbMAC)
			}
		}
		if len(non1905) > 0 {
			tlvs = append(tlvs, &wire.Non1905NeighborDeviceListTLV{LocalIfMAC: ifMAC, Neighbors: non1905})
		}
		if len(neighbors) > 0 {
			tlvs = append(tlvs, &wire.NeighborDeviceListTLV{LocalIfMAC: ifMAC, Neighbors: neighbors})
		}
	}
	if len(local.PowerOffInterfaces) > 0 {
		var entries []wire.PowerOffInterfaceEntry
		for _, m := range local.PowerOffInterfaces {
			entries = append(entries, wire.PowerOffInterfaceEntry{MAC: m})
		}
		tlvs = append(tlvs, &wire.PowerOffInterfaceTLV{Interfaces: entries})
	}
	if len(local.SupportedServices) > 0 {
		var services []uint8
		for svc := range local.SupportedServices {
			services = append(services, uint8(svc))
		}
		tlvs = append(tlvs, &wire.SupportedServiceTLV{Services: services})
	}

	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeTopologyResponse,
		MessageID:   echoMID,
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, unicastDest(destALMAC, frameSrcMAC), cmdu)
}

// LinkMetricQuery unicasts a LINK_METRIC_QUERY.
func (b *Builder) LinkMetricQuery(ifaceMAC, destALMAC wire.MAC, neighborType uint8, neighborALMAC wire.MAC, metricsType uint8) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeLinkMetricQuery,
		MessageID:   b.mids.Next(),
		TLVs: []wire.TLV{
			&wire.LinkMetricQueryTLV{NeighborType: neighborType, NeighborALMAC: neighborALMAC, MetricsType: metricsType},
		},
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// LinkMetricResponse unicasts TX and/or RX metrics for the neighbors of
// peerALMAC visible on the local interfaces, restricted to a single
// neighbor when neighborFilter is non-zero, §4.4 LINK_METRIC_QUERY handler.
func (b *Builder) LinkMetricResponse(ifaceMAC, peerALMAC, frameSrcMAC wire.MAC, echoMID uint16, neighborFilter wire.MAC, includeTX, includeRX bool) error {
	local := b.db.LocalDevice()

	var txEntries, rxEntries []wire.LinkEntry
	for localIfMAC, links := range local.Links {
		for nbIfMAC, nb := range links.Neighbors {
			if !nb.Is1905 || nb.Metrics == nil {
				continue
			}
			if !neighborFilter.IsZero() && nb.NeighborALMAC != neighborFilter {
				continue
			}
			if includeTX && nb.Metrics.TX != nil {
				txEntries = append(txEntries, wire.LinkEntry{
					LocalIfMAC: localIfMAC, NeighborIfMAC: nbIfMAC, Bridge: nb.Bridge,
					PacketErrors:          nb.Metrics.TX.PacketErrors,
					PacketsTransmittedOrReceived: nb.Metrics.TX.Packets,
					MACThroughputCapacity: nb.Metrics.TX.MACThroughputCapacity,
					LinkAvailability:      nb.Metrics.TX.LinkAvailability,
					PHYRate:               nb.Metrics.TX.PHYRate,
				})
			}
			if includeRX && nb.Metrics.RX != nil {
				rxEntries = append(rxEntries, wire.LinkEntry{
					LocalIfMAC: localIfMAC, NeighborIfMAC: nbIfMAC, Bridge: nb.Bridge,
					PacketErrors:          nb.Metrics.RX.PacketErrors,
					PacketsTransmittedOrReceived: nb.Metrics.RX.Packets,
					RSSI:                  nb.Metrics.RX.RSSI,
				})
			}
		}
	}

	var tlvs []wire.TLV
	if len(txEntries) > 0 {
		tlvs = append(tlvs, &wire.TransmitterLinkMetricTLV{LocalALMAC: local.ALMAC, NeighborALMAC: peerALMAC, Links: txEntries})
	}
	if len(rxEntries) > 0 {
		tlvs = append(tlvs, &wire.ReceiverLinkMetricTLV{LocalALMAC: local.ALMAC, NeighborALMAC: peerALMAC, Links: rxEntries})
	}

	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeLinkMetricResponse,
		MessageID:   echoMID,
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, unicastDest(peerALMAC, frameSrcMAC), cmdu)
}

// APAutoconfigSearch multicasts an AP_AUTOCONFIG_SEARCH for band, optionally
// naming the searched Multi-AP service.
func (b *Builder) APAutoconfigSearch(ifaceMAC wire.MAC, band uint8, searchedServices []uint8) error {
	tlvs := []wire.TLV{
		&wire.ALMACAddressTLV{ALMAC: b.db.LocalALMAC()},
		&wire.SearchedRoleTLV{Role: wire.RoleRegistrar},
		&wire.AutoconfigFreqBandTLV{Band: band},
	}
	if len(searchedServices) > 0 {
		tlvs = append(tlvs, &wire.SearchedServiceTLV{Services: searchedServices})
	}
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeAPAutoconfigSearch,
		MessageID:   b.mids.Next(),
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, wire.Multicast1905, cmdu)
}

// APAutoconfigResponse unicasts an AP_AUTOCONFIG_RESPONSE back to the
// searcher, echoing its MID.
func (b *Builder) APAutoconfigResponse(ifaceMAC, destALMAC wire.MAC, echoMID uint16, band uint8, supportedServices []uint8) error {
	tlvs := []wire.TLV{
		&wire.SupportedRoleTLV{Role: wire.RoleRegistrar},
		&wire.SupportedFreqBandTLV{Band: band},
	}
	if len(supportedServices) > 0 {
		tlvs = append(tlvs, &wire.SupportedServiceTLV{Services: supportedServices})
	}
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeAPAutoconfigResponse,
		MessageID:   echoMID,
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// APAutoconfigWSCM1 unicasts an AP_AUTOCONFIG_WSC carrying an M1 envelope,
// optionally including the radio's basic capabilities (Multi-AP variant).
func (b *Builder) APAutoconfigWSCM1(ifaceMAC, destALMAC wire.MAC, m1 []byte, radioCaps *wire.APRadioBasicCapabilitiesTLV) error {
	tlvs := []wire.TLV{&wire.WSCTLV{Data: m1}}
	if radioCaps != nil {
		tlvs = append(tlvs, radioCaps)
	}
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeAPAutoconfigWSC,
		MessageID:   b.mids.Next(),
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// APAutoconfigWSCM2 unicasts an AP_AUTOCONFIG_WSC carrying one or more M2
// envelopes, one per matching registrar profile, each paired with the
// radio identifier it targets.
func (b *Builder) APAutoconfigWSCM2(ifaceMAC, destALMAC wire.MAC, echoMID uint16, radioUID wire.MAC, m2s [][]byte) error {
	tlvs := []wire.TLV{&wire.APRadioIdentifierTLV{RadioUID: radioUID}}
	for _, m2 := range m2s {
		tlvs = append(tlvs, &wire.WSCTLV{Data: m2})
	}
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeAPAutoconfigWSC,
		MessageID:   echoMID,
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// APAutoconfigRenew multicasts an AP_AUTOCONFIG_RENEW. Receiving enrollees
// re-arm the search only for radios that still lack a configured BSS (see
// apconfig.Controller.HandleRenew).
func (b *Builder) APAutoconfigRenew(ifaceMAC wire.MAC, band uint8) error {
	local := b.db.LocalDevice()
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeAPAutoconfigRenew,
		MessageID:   b.mids.Next(),
		TLVs: []wire.TLV{
			&wire.ALMACAddressTLV{ALMAC: local.ALMAC},
			&wire.SupportedRoleTLV{Role: wire.RoleRegistrar},
			&wire.SupportedFreqBandTLV{Band: band},
		},
	}
	return b.transmit(ifaceMAC, wire.Multicast1905, cmdu)
}

// PushButtonEvent multicasts a PUSH_BUTTON_EVENT_NOTIFICATION naming the
// media types on which the event was observed.
func (b *Builder) PushButtonEvent(ifaceMAC wire.MAC, mediaTypes []wire.PushButtonMediaEntry) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypePushButtonEventNotification,
		MessageID:   b.mids.Next(),
		TLVs: []wire.TLV{
			&wire.ALMACAddressTLV{ALMAC: b.db.LocalALMAC()},
			&wire.PushButtonEventNotificationTLV{MediaTypes: mediaTypes},
		},
	}
	return b.transmit(ifaceMAC, wire.Multicast1905, cmdu)
}

// PushButtonJoin multicasts a PUSH_BUTTON_JOIN_NOTIFICATION reporting that
// targetALMAC/targetIfMAC just completed a push-button join via the CMDU
// named by joinMID.
func (b *Builder) PushButtonJoin(ifaceMAC, targetALMAC, targetIfMAC wire.MAC, joinMID uint16) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypePushButtonJoinNotification,
		MessageID:   b.mids.Next(),
		TLVs: []wire.TLV{
			&wire.ALMACAddressTLV{ALMAC: b.db.LocalALMAC()},
			&wire.PushButtonJoinNotificationTLV{ALMAC: b.db.LocalALMAC(), MID: joinMID, TargetALMAC: targetALMAC, TargetIfMAC: targetIfMAC},
		},
	}
	return b.transmit(ifaceMAC, wire.Multicast1905, cmdu)
}

// HigherLayerQuery unicasts a HIGHER_LAYER_QUERY.
func (b *Builder) HigherLayerQuery(ifaceMAC, destALMAC wire.MAC) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeHigherLayerQuery,
		MessageID:   b.mids.Next(),
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// HigherLayerResponse unicasts the local node's identity TLVs in reply to
// a HIGHER_LAYER_QUERY.
func (b *Builder) HigherLayerResponse(ifaceMAC, destALMAC, frameSrcMAC wire.MAC, echoMID uint16) error {
	local := b.db.LocalDevice()
	tlvs := []wire.TLV{
		&wire.ALMACAddressTLV{ALMAC: local.ALMAC},
		&wire.ProfileVersionTLV{Version: local.ProfileVersion},
		&wire.DeviceIdentificationTLV{
			FriendlyName:     local.FriendlyName,
			ManufacturerName: local.ManufacturerName,
			ModelName:        local.ModelName,
		},
	}
	if local.ControlURL != "" {
		tlvs = append(tlvs, &wire.ControlURLTLV{URL: local.ControlURL})
	}
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeHigherLayerResponse,
		MessageID:   echoMID,
		TLVs:        tlvs,
	}
	return b.transmit(ifaceMAC, unicastDest(destALMAC, frameSrcMAC), cmdu)
}

// InterfacePowerChangeRequest unicasts an INTERFACE_POWER_CHANGE_REQUEST.
func (b *Builder) InterfacePowerChangeRequest(ifaceMAC, destALMAC wire.MAC, entries []wire.PowerChangeEntry) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeInterfacePowerChangeRequest,
		MessageID:   b.mids.Next(),
		TLVs:        []wire.TLV{&wire.InterfacePowerChangeInfoTLV{Entries: entries}},
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// InterfacePowerChangeResponse unicasts the compiled per-interface results
// of a prior power-change request, echoing its MID.
func (b *Builder) InterfacePowerChangeResponse(ifaceMAC, destALMAC, frameSrcMAC wire.MAC, echoMID uint16, entries []wire.PowerChangeStatusEntry) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeInterfacePowerChangeResponse,
		MessageID:   echoMID,
		TLVs:        []wire.TLV{&wire.InterfacePowerChangeStatusTLV{Entries: entries}},
	}
	return b.transmit(ifaceMAC, unicastDest(destALMAC, frameSrcMAC), cmdu)
}

// GenericPhyQuery unicasts a GENERIC_PHY_QUERY.
func (b *Builder) GenericPhyQuery(ifaceMAC, destALMAC wire.MAC) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeGenericPhyQuery,
		MessageID:   b.mids.Next(),
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}

// GenericPhyResponse unicasts the local node's generic-PHY interface
// descriptions, echoing the query's MID.
func (b *Builder) GenericPhyResponse(ifaceMAC, destALMAC, frameSrcMAC wire.MAC, echoMID uint16, interfaces []wire.GenericPhyEntry) error {
	cmdu := &wire.CMDU{
		MessageType: wire.CMDUTypeGenericPhyResponse,
		MessageID:   echoMID,
		TLVs:        []wire.TLV{&wire.GenericPhyDeviceInfoTLV{ALMAC: b.db.LocalALMAC(), Interfaces: interfaces}},
	}
	return b.transmit(ifaceMAC, unicastDest(destALMAC, frameSrcMAC), cmdu)
}

// VendorSpecific unicasts (or multicasts, if destALMAC is the 1905
// multicast address) an opaque vendor-specific CMDU on behalf of a
// registered extension.
func (b *Builder) VendorSpecific(ifaceMAC, destALMAC wire.MAC, oui [3]byte, payload []byte, relayIndicator bool) error {
	cmdu := &wire.CMDU{
		MessageType:    wire.CMDUTypeVendorSpecific,
		MessageID:      b.mids.Next(),
		RelayIndicator: relayIndicator,
		TLVs:           []wire.TLV{&wire.VendorSpecificTLV{OUI: oui, Payload: payload}},
	}
	return b.transmit(ifaceMAC, destALMAC, cmdu)
}
