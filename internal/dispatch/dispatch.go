// Package dispatch implements the receive dispatcher, §4.4: a switch over
// CMDU message type that updates the topology database and triggers
// further sends.
package dispatch

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/datamodel"
	"github.com/BroadbandForum/meshComms-sub000/internal/send"
	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

var dispatchLogger = log.WithFields(log.Fields{"module": "dispatch"})

// APAutoconfigHandler is implemented by the AP-autoconfiguration controller
// and injected into the Dispatcher at construction time, keeping this
// package free of any dependency on apconfig (§9 "encapsulate into a single
// context value passed to each component").
type APAutoconfigHandler interface {
	HandleSearch(ifaceMAC, frameSrcMAC wire.MAC, mid uint16, tlvs []wire.TLV)
	HandleResponse(ifaceMAC, frameSrcMAC wire.MAC, tlvs []wire.TLV)
	HandleWSC(ifaceMAC, frameSrcMAC wire.MAC, mid uint16, tlvs []wire.TLV)
	HandleRenew(ifaceMAC, frameSrcMAC wire.MAC, tlvs []wire.TLV)
}

// PushButtonHandler is implemented by whatever component drives the push
// button sub-state machine; out of this package's core scope (§1) beyond
// recording the event, but the hook point is defined here per §4.4.
type PushButtonHandler interface {
	HandleEvent(ifaceMAC, frameSrcMAC wire.MAC, tlvs []wire.TLV)
	HandleJoin(ifaceMAC, frameSrcMAC wire.MAC, tlvs []wire.TLV)
}

// Platform is the subset of the platform collaborator the dispatcher calls
// directly (§6): applying a requested interface power-state change.
type Platform interface {
	SetInterfacePowerState(ifaceMAC wire.MAC, state uint8) (result uint8, err error)
	GenericPhyInterfaces() []wire.GenericPhyEntry
}

// WholeNetworkMapMode toggles the optional §4.4 TOPOLOGY_RESPONSE behavior
// of recursively querying neighbors-of-neighbors.
type WholeNetworkMapMode bool

// Dispatcher owns no state of its own beyond its collaborators; all mutable
// state lives in the topology database, §5 "single logical critical
// section".
type Dispatcher struct {
	db       *datamodel.Database
	builder  *send.Builder
	platform Platform
	apconfig APAutoconfigHandler
	pushBtn  PushButtonHandler

	wholeNetworkMap WholeNetworkMapMode

	// The whole-network-map fan-out is de-duplicated per TOPOLOGY_RESPONSE
	// by a set local to fanOutWholeNetworkMap: a neighbor is skipped iff it
	// appears in an earlier neighbor-list TLV of the same response.
}

// New constructs a Dispatcher. apconfig and pushBtn may be nil if those
// CMDU types are never expected to arrive (e.g. a unit test harness).
func New(db *datamodel.Database, builder *send.Builder, platform Platform, apconfig APAutoconfigHandler, pushBtn PushButtonHandler, wholeNetworkMap WholeNetworkMapMode) *Dispatcher {
	return &Dispatcher{db: db, builder: builder, platform: platform, apconfig: apconfig, pushBtn: pushBtn, wholeNetworkMap: wholeNetworkMap}
}

func tlvsOfType(tlvs []wire.TLV, typ uint8) []wire.TLV {
	var out []wire.TLV
	for _, t := range tlvs {
		if t.Type() == typ {
			out = append(out, t)
		}
	}
	return out
}

func firstOfType[T wire.TLV](tlvs []wire.TLV, typ uint8) (T, bool) {
	var zero T
	for _, t := range tlvs {
		if t.Type() == typ {
			if v, ok := t.(T); ok {
				return v, true
			}
		}
	}
	return zero, false
}

// Dispatch is the top-level switch, §4.4. ifaceMAC is the local interface
// the CMDU arrived on; frameSrcMAC is the Ethernet source address (used as
// the lenient destination fallback, §7).
func (d *Dispatcher) Dispatch(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, now time.Time) {
	logger := dispatchLogger.WithFields(log.Fields{
		"cmdu_type": wire.CMDUTypeName(cmdu.MessageType),
		"mid":       cmdu.MessageID,
	})

	switch cmdu.MessageType {
	case wire.CMDUTypeTopologyDiscovery:
		d.handleTopologyDiscovery(ifaceMAC, frameSrcMAC, cmdu, now, logger)
	case wire.CMDUTypeTopologyNotification:
		d.handleTopologyNotification(ifaceMAC, frameSrcMAC, cmdu, now, logger)
	case wire.CMDUTypeTopologyQuery:
		d.handleTopologyQuery(ifaceMAC, frameSrcMAC, cmdu, logger)
	case wire.CMDUTypeTopologyResponse:
		d.handleTopologyResponse(ifaceMAC, frameSrcMAC, cmdu, now, logger)
	case wire.CMDUTypeLinkMetricQuery:
		d.handleLinkMetricQuery(ifaceMAC, frameSrcMAC, cmdu, logger)
	case wire.CMDUTypeLinkMetricResponse:
		d.handleLinkMetricResponse(cmdu, now, logger)
	case wire.CMDUTypeAPAutoconfigSearch:
		if d.apconfig != nil {
			d.apconfig.HandleSearch(ifaceMAC, frameSrcMAC, cmdu.MessageID, cmdu.TLVs)
		}
	case wire.CMDUTypeAPAutoconfigResponse:
		if d.apconfig != nil {
			d.apconfig.HandleResponse(ifaceMAC, frameSrcMAC, cmdu.TLVs)
		}
	case wire.CMDUTypeAPAutoconfigWSC:
		if d.apconfig != nil {
			d.apconfig.HandleWSC(ifaceMAC, frameSrcMAC, cmdu.MessageID, cmdu.TLVs)
		}
	case wire.CMDUTypeAPAutoconfigRenew:
		if d.apconfig != nil {
			d.apconfig.HandleRenew(ifaceMAC, frameSrcMAC, cmdu.TLVs)
		}
	case wire.CMDUTypePushButtonEventNotification:
		if d.pushBtn != nil {
			d.pushBtn.HandleEvent(ifaceMAC, frameSrcMAC, cmdu.TLVs)
		}
	case wire.CMDUTypePushButtonJoinNotification:
		if d.pushBtn != nil {
			d.pushBtn.HandleJoin(ifaceMAC, frameSrcMAC, cmdu.TLVs)
		}
	case wire.CMDUTypeHigherLayerQuery:
		d.handleHigherLayerQuery(ifaceMAC, frameSrcMAC, cmdu, logger)
	case wire.CMDUTypeInterfacePowerChangeRequest:
		d.handleInterfacePowerChangeRequest(ifaceMAC, frameSrcMAC, cmdu, logger)
	case wire.CMDUTypeGenericPhyQuery:
		d.handleGenericPhyQuery(ifaceMAC, frameSrcMAC, cmdu, logger)
	default:
		logger.Debug("no handler registered for this CMDU type")
	}
}

func (d *Dispatcher) handleTopologyDiscovery(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, now time.Time, logger *log.Entry) {
	almacTLV, ok := firstOfType[*wire.ALMACAddressTLV](cmdu.TLVs, wire.TLVTypeALMACAddress)
	if !ok {
		logger.Warn("TOPOLOGY_DISCOVERY missing AL-MAC TLV, dropping")
		return
	}
	macTLV, ok := firstOfType[*wire.MACAddressTLV](cmdu.TLVs, wire.TLVTypeMACAddress)
	if !ok {
		logger.Warn("TOPOLOGY_DISCOVERY missing MAC-ADDRESS TLV, dropping")
		return
	}

	// Evaluate the query gate against the state before this discovery is
	// recorded; afterwards the freshness tracker always reads "just seen".
	shouldQuery := d.db.ShouldQueryOnDiscovery(ifaceMAC, almacTLV.ALMAC, now)
	isNew := d.db.UpdateDiscoveryFreshness(ifaceMAC, macTLV.MAC, almacTLV.ALMAC, now)

	if isNew {
		if err := d.builder.TopologyDiscovery(ifaceMAC); err != nil {
			logger.WithError(err).Warn("failed to send courtesy topology-discovery reply")
		}
	}

	if shouldQuery {
		if err := d.builder.TopologyQuery(ifaceMAC, almacTLV.ALMAC, frameSrcMAC); err != nil {
			logger.WithError(err).Warn("failed to send topology-query after discovery")
		} else {
			d.db.RecordTopologyQuerySent(almacTLV.ALMAC, now)
		}
	}
}

func (d *Dispatcher) handleTopologyNotification(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, now time.Time, logger *log.Entry) {
	almacTLV, ok := firstOfType[*wire.ALMACAddressTLV](cmdu.TLVs, wire.TLVTypeALMACAddress)
	if !ok {
		logger.Warn("TOPOLOGY_NOTIFICATION missing AL-MAC TLV, dropping")
		return
	}
	d.db.RecordTopologyNotificationReceived(almacTLV.ALMAC, now)
	if err := d.builder.TopologyQuery(ifaceMAC, almacTLV.ALMAC, frameSrcMAC); err != nil {
		logger.WithError(err).Warn("failed to send topology-query after notification")
	} else {
		d.db.RecordTopologyQuerySent(almacTLV.ALMAC, now)
	}
}

func (d *Dispatcher) handleTopologyQuery(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, logger *log.Entry) {
	if err := d.builder.TopologyResponse(ifaceMAC, wire.MAC{}, frameSrcMAC, cmdu.MessageID); err != nil {
		logger.WithError(err).Warn("failed to send topology-response")
	}
}

func (d *Dispatcher) handleTopologyResponse(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, now time.Time, logger *log.Entry) {
	deviceInfo, ok := firstOfType[*wire.DeviceInformationTLV](cmdu.TLVs, wire.TLVTypeDeviceInformation)
	if !ok {
		logger.Warn("TOPOLOGY_RESPONSE missing DEVICE-INFORMATION TLV, dropping")
		return
	}

	update := datamodel.TopologyResponseUpdate{DeviceInfo: deviceInfo}
	for _, t := range tlvsOfType(cmdu.TLVs, wire.TLVTypeDeviceBridgingCapability) {
		update.Bridging = append(update.Bridging, t.(*wire.DeviceBridgingCapabilityTLV))
	}
	for _, t := range tlvsOfType(cmdu.TLVs, wire.TLVTypeNon1905NeighborDeviceList) {
		update.Non1905 = append(update.Non1905, t.(*wire.Non1905NeighborDeviceListTLV))
	}
	for _, t := range tlvsOfType(cmdu.TLVs, wire.TLVTypeNeighborDeviceList) {
		update.Neighbors = append(update.Neighbors, t.(*wire.NeighborDeviceListTLV))
	}
	if t, ok := firstOfType[*wire.PowerOffInterfaceTLV](cmdu.TLVs, wire.TLVTypePowerOffInterface); ok {
		update.PowerOff = t
	}
	for _, t := range tlvsOfType(cmdu.TLVs, wire.TLVTypeL2NeighborDevice) {
		update.L2Neighbors = append(update.L2Neighbors, t.(*wire.L2NeighborDeviceTLV))
	}
	if t, ok := firstOfType[*wire.SupportedServiceTLV](cmdu.TLVs, wire.TLVTypeSupportedService); ok {
		update.SupportedService = t
	}

	d.db.ReplaceTopologyResponse(update, now)
	d.db.RecordTopologyResponseReceived(ifaceMAC, deviceInfo.ALMAC, now)

	if d.platform != nil && len(d.platform.GenericPhyInterfaces()) > 0 {
		if err := d.builder.GenericPhyQuery(ifaceMAC, deviceInfo.ALMAC); err != nil {
			logger.WithError(err).Warn("failed to send generic-phy query")
		}
	}
	if err := d.builder.LinkMetricQuery(ifaceMAC, deviceInfo.ALMAC, wire.LinkMetricNeighborAll, wire.MAC{}, wire.LinkMetricTypeBoth); err != nil {
		logger.WithError(err).Warn("failed to send link-metric query")
	}
	if err := d.builder.HigherLayerQuery(ifaceMAC, deviceInfo.ALMAC); err != nil {
		logger.WithError(err).Warn("failed to send higher-layer query")
	}

	if d.wholeNetworkMap {
		d.fanOutWholeNetworkMap(ifaceMAC, update, now, logger)
	}
}

// fanOutWholeNetworkMap implements §4.4's "if whole-network-map mode is
// enabled, enqueue topology-queries to each reported neighbor's neighbor
// that has not been recently updated, de-duplicating" and resolves the §9
// open question: a neighbor AL MAC is skipped if it was already seen in an
// earlier NeighborDeviceListTLV of this same response, not merely within
// the same TLV.
func (d *Dispatcher) fanOutWholeNetworkMap(ifaceMAC wire.MAC, update datamodel.TopologyResponseUpdate, now time.Time, logger *log.Entry) {
	seen := make(map[wire.MAC]bool)
	for _, nl := range update.Neighbors {
		for _, nb := range nl.Neighbors {
			if seen[nb.ALMAC] {
				continue
			}
			seen[nb.ALMAC] = true
			if d.db.Device(nb.ALMAC) != nil && !d.db.CanSendTopologyQuery(nb.ALMAC, now) {
				continue
			}
			if err := d.builder.TopologyQuery(ifaceMAC, nb.ALMAC, wire.MAC{}); err != nil {
				logger.WithError(err).Warn("failed to send whole-network-map fan-out query")
				continue
			}
			d.db.RecordTopologyQuerySent(nb.ALMAC, now)
		}
	}
}

func (d *Dispatcher) handleLinkMetricQuery(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, logger *log.Entry) {
	q, ok := firstOfType[*wire.LinkMetricQueryTLV](cmdu.TLVs, wire.TLVTypeLinkMetricQuery)
	if !ok {
		logger.Warn("LINK_METRIC_QUERY missing LINK-METRIC-QUERY TLV, dropping")
		return
	}
	includeTX := q.MetricsType == wire.LinkMetricTypeTxOnly || q.MetricsType == wire.LinkMetricTypeBoth
	includeRX := q.MetricsType == wire.LinkMetricTypeRxOnly || q.MetricsType == wire.LinkMetricTypeBoth
	filter := wire.MAC{}
	if q.NeighborType == wire.LinkMetricNeighborSpecific {
		filter = q.NeighborALMAC
	}
	if err := d.builder.LinkMetricResponse(ifaceMAC, wire.MAC{}, frameSrcMAC, cmdu.MessageID, filter, includeTX, includeRX); err != nil {
		logger.WithError(err).Warn("failed to send link-metric response")
	}
}

func (d *Dispatcher) handleLinkMetricResponse(cmdu *wire.CMDU, now time.Time, logger *log.Entry) {
	for _, t := range tlvsOfType(cmdu.TLVs, wire.TLVTypeTransmitterLinkMetric) {
		tx := t.(*wire.TransmitterLinkMetricTLV)
		for _, l := range tx.Links {
			sample := &datamodel.LinkMetricSample{
				PacketErrors:          l.PacketErrors,
				Packets:               l.PacketsTransmittedOrReceived,
				MACThroughputCapacity: l.MACThroughputCapacity,
				LinkAvailability:      l.LinkAvailability,
				PHYRate:               l.PHYRate,
			}
			d.db.UpdateLinkMetrics(l.LocalIfMAC, l.NeighborIfMAC, tx.NeighborALMAC, sample, nil, now)
		}
	}
	for _, t := range tlvsOfType(cmdu.TLVs, wire.TLVTypeReceiverLinkMetric) {
		rx := t.(*wire.ReceiverLinkMetricTLV)
		for _, l := range rx.Links {
			sample := &datamodel.LinkMetricSample{
				PacketErrors: l.PacketErrors,
				Packets:      l.PacketsTransmittedOrReceived,
				RSSI:         l.RSSI,
			}
			d.db.UpdateLinkMetrics(l.LocalIfMAC, l.NeighborIfMAC, rx.NeighborALMAC, nil, sample, now)
		}
	}
	logger.Debug("applied link-metric response")
}

func (d *Dispatcher) handleHigherLayerQuery(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, logger *log.Entry) {
	if err := d.builder.HigherLayerResponse(ifaceMAC, wire.MAC{}, frameSrcMAC, cmdu.MessageID); err != nil {
		logger.WithError(err).Warn("failed to send higher-layer response")
	}
}

func (d *Dispatcher) handleGenericPhyQuery(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, logger *log.Entry) {
	var interfaces []wire.GenericPhyEntry
	if d.platform != nil {
		interfaces = d.platform.GenericPhyInterfaces()
	}
	if err := d.builder.GenericPhyResponse(ifaceMAC, wire.MAC{}, frameSrcMAC, cmdu.MessageID, interfaces); err != nil {
		logger.WithError(err).Warn("failed to send generic-phy response")
	}
}

func (d *Dispatcher) handleInterfacePowerChangeRequest(ifaceMAC, frameSrcMAC wire.MAC, cmdu *wire.CMDU, logger *log.Entry) {
	info, ok := firstOfType[*wire.InterfacePowerChangeInfoTLV](cmdu.TLVs, wire.TLVTypeInterfacePowerChangeInfo)
	if !ok {
		logger.Warn("INTERFACE_POWER_CHANGE_REQUEST missing POWER-CHANGE-INFORMATION TLV, dropping")
		return
	}
	var statuses []wire.PowerChangeStatusEntry
	for _, e := range info.Entries {
		result := wire.PowerStateResultNoChange
		if d.platform != nil {
			r, err := d.platform.SetInterfacePowerState(e.MAC, e.State)
			if err != nil {
				logger.WithError(err).WithField("interface", e.MAC.String()).Warn("platform power-state change failed")
			} else {
				result = r
			}
		}
		statuses = append(statuses, wire.PowerChangeStatusEntry{MAC: e.MAC, Result: result})
	}
	if err := d.builder.InterfacePowerChangeResponse(ifaceMAC, wire.MAC{}, frameSrcMAC, cmdu.MessageID, statuses); err != nil {
		logger.WithError(err).Warn("failed to send interface-power-change response")
	}
}
