package datamodel

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

var dbLogger = log.WithFields(log.Fields{"module": "topology"})

// Database is the single logical table of every known AL device, keyed by
// AL MAC, §4.6. Each method takes its lock for its own duration only; the
// dispatch handlers do not hold it across a whole handler, so a handler's
// sequence of database calls is not atomic as a whole.
type Database struct {
	mu sync.Mutex

	localALMAC wire.MAC
	devices    map[wire.MAC]*Device

	freshness map[neighborKey]*freshnessTracker
}

// New creates a Database whose local device entry is seeded with
// localALMAC; the local device is always present, even before any
// interface has been configured on it.
func New(localALMAC wire.MAC) *Database {
	d := &Database{
		localALMAC: localALMAC,
		devices:    make(map[wire.MAC]*Device),
		freshness:  make(map[neighborKey]*freshnessTracker),
	}
	d.devices[localALMAC] = newDevice(localALMAC)
	return d
}

// Lock acquires the database's logical critical section. Exposed so a
// caller that needs a consistent multi-step read (e.g. dumping a text
// snapshot to the ALME boundary) can hold it for the whole operation, §4.6.
func (d *Database) Lock() { d.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (d *Database) Unlock() { d.mu.Unlock() }

// LocalALMAC returns this node's own AL MAC address.
func (d *Database) LocalALMAC() wire.MAC { return d.localALMAC }

// LocalDevice returns the local device record. It takes the lock itself, so
// the caller must not hold it; reading through the returned pointer races
// with concurrent mutation unless the caller locks afterwards.
func (d *Database) LocalDevice() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices[d.localALMAC]
}

// Device returns the record for almac, or nil if unknown. It takes the lock
// itself, so the caller must not hold it; reading through the returned
// pointer races with concurrent mutation unless the caller locks afterwards.
func (d *Database) Device(almac wire.MAC) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices[almac]
}

// DeviceLocked is like Device but assumes the caller already holds the
// lock (e.g. from within a dispatch handler).
func (d *Database) DeviceLocked(almac wire.MAC) *Device {
	return d.devices[almac]
}

// AllDevices returns every known device record. It takes the lock itself,
// so the caller must not hold it; reading through the returned records
// races with concurrent mutation unless the caller locks afterwards.
func (d *Database) AllDevices() []*Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Device, 0, len(d.devices))
	for _, dev := range d.devices {
		out = append(out, dev)
	}
	return out
}

// getOrCreateDeviceLocked returns the device record for almac, creating an
// empty one if this is the first time it has been seen. Caller must hold
// the lock.
func (d *Database) getOrCreateDeviceLocked(almac wire.MAC) (*Device, bool) {
	dev, ok := d.devices[almac]
	if !ok {
		dev = newDevice(almac)
		d.devices[almac] = dev
	}
	return dev, !ok
}

// UpdateDiscoveryFreshness implements the TOPOLOGY_DISCOVERY handler's
// freshness update, §4.4. It returns true when neighborALMAC had no device
// record yet or when the link (localIfMAC, neighborIfMAC) is new (the
// "previously unknown" courtesy-reply trigger).
func (d *Database) UpdateDiscoveryFreshness(localIfMAC, neighborIfMAC, neighborALMAC wire.MAC, now time.Time) (isNewNeighbor bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dev, created := d.getOrCreateDeviceLocked(neighborALMAC)
	_ = dev
	links := d.devices[d.localALMAC].linksForInterface(localIfMAC)
	link, existed := links.Neighbors[neighborIfMAC]
	if !existed {
		link = &NeighborLink{NeighborIfMAC: neighborIfMAC, Is1905: true, NeighborALMAC: neighborALMAC}
		links.Neighbors[neighborIfMAC] = link
	}
	if link.FreshTopologyDiscovery.After(now) {
		// never move a freshness timestamp backwards, §8 property 7
	} else {
		link.FreshTopologyDiscovery = now
	}
	link.Is1905 = true
	link.NeighborALMAC = neighborALMAC

	key := neighborKey{localIfMAC: localIfMAC, neighborAL: neighborALMAC}
	tr, ok := d.freshness[key]
	if !ok {
		tr = newFreshnessTracker()
		d.freshness[key] = tr
	}
	tr.onDiscovery(now)

	return created || !existed
}

// UpdateBridgeFreshness implements the LLDP bridge-discovery freshness
// update, §3 "Neighbor Link", §6 "LLDP subset consumed".
func (d *Database) UpdateBridgeFreshness(localIfMAC, neighborIfMAC, neighborALMAC wire.MAC, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	links := d.devices[d.localALMAC].linksForInterface(localIfMAC)
	link, ok := links.Neighbors[neighborIfMAC]
	if !ok {
		link = &NeighborLink{NeighborIfMAC: neighborIfMAC}
		links.Neighbors[neighborIfMAC] = link
	}
	if !link.FreshBridgeDiscovery.After(now) {
		link.FreshBridgeDiscovery = now
	}
	if !neighborALMAC.IsZero() {
		link.Is1905 = true
		link.NeighborALMAC = neighborALMAC
	}
}

// RecordTopologyNotificationReceived marks that a TOPOLOGY_NOTIFICATION was
// received from almac, resetting the query-rate limiter per §8 property 5.
func (d *Database) RecordTopologyNotificationReceived(almac wire.MAC, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, _ := d.getOrCreateDeviceLocked(almac)
	dev.LastTopologyNotificationReceived = now
}

// CanSendTopologyQuery implements §8 property 5: no two TOPOLOGY_QUERY
// CMDUs are sent to the same AL MAC within 60s except when a
// TOPOLOGY_NOTIFICATION from it was received in between.
func (d *Database) CanSendTopologyQuery(almac wire.MAC, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, ok := d.devices[almac]
	if !ok {
		return true
	}
	if dev.LastTopologyQuerySent.IsZero() {
		return true
	}
	if dev.LastTopologyNotificationReceived.After(dev.LastTopologyQuerySent) {
		return true
	}
	return now.Sub(dev.LastTopologyQuerySent) >= 60*time.Second
}

// RecordTopologyQuerySent must be called immediately before actually
// sending a TOPOLOGY_QUERY, so the rate limiter above observes it.
func (d *Database) RecordTopologyQuerySent(almac wire.MAC, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, _ := d.getOrCreateDeviceLocked(almac)
	dev.LastTopologyQuerySent = now
}

// RecordTopologyResponseReceived marks that almac answered a topology
// query/discovery, feeding both the 60s "last response" gate and the
// per-neighbor freshness state machine (RESPONSE_RECEIVED state).
func (d *Database) RecordTopologyResponseReceived(localIfMAC, almac wire.MAC, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, _ := d.getOrCreateDeviceLocked(almac)
	dev.LastTopologyResponseReceived = now

	key := neighborKey{localIfMAC: localIfMAC, neighborAL: almac}
	tr, ok := d.freshness[key]
	if !ok {
		tr = newFreshnessTracker()
		d.freshness[key] = tr
	}
	tr.onResponse(now)
}

// ShouldQueryOnDiscovery implements §4.4's "if no topology response has
// been received from this neighbor in the last 60s (and no discovery in
// the last 5s), send a topology-query to it" rule.
func (d *Database) ShouldQueryOnDiscovery(localIfMAC, almac wire.MAC, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := neighborKey{localIfMAC: localIfMAC, neighborAL: almac}
	tr, ok := d.freshness[key]
	if !ok {
		return true
	}
	return tr.queryPermitted(now)
}

// ReplaceTopologyResponse implements the TOPOLOGY_RESPONSE handler's
// idempotent whole-device replace, §3 "Database idempotence". Supplying the
// same content twice leaves the database bitwise equal to applying it once
// because the new record is only installed when it actually differs.
type TopologyResponseUpdate struct {
	DeviceInfo       *wire.DeviceInformationTLV
	Bridging         []*wire.DeviceBridgingCapabilityTLV
	Non1905          []*wire.Non1905NeighborDeviceListTLV
	Neighbors        []*wire.NeighborDeviceListTLV
	PowerOff         *wire.PowerOffInterfaceTLV
	L2Neighbors      []*wire.L2NeighborDeviceTLV
	SupportedService *wire.SupportedServiceTLV
}

func (d *Database) ReplaceTopologyResponse(u TopologyResponseUpdate, now time.Time) (changed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	almac := u.DeviceInfo.ALMAC
	fresh := newDevice(almac)
	fresh.LastUpdated = now

	for _, ifc := range u.DeviceInfo.Interfaces {
		fresh.Interfaces = append(fresh.Interfaces, &LocalInterface{MAC: ifc.MAC, MediaType: ifc.MediaType})
	}
	for _, b := range u.Bridging {
		fresh.Bridges = append(fresh.Bridges, b.Groups...)
	}
	for _, po := range []*wire.PowerOffInterfaceTLV{u.PowerOff} {
		if po == nil {
			continue
		}
		for _, e := range po.Interfaces {
			fresh.PowerOffInterfaces = append(fresh.PowerOffInterfaces, e.MAC)
		}
	}
	if u.SupportedService != nil {
		for _, s := range u.SupportedService.Services {
			fresh.SupportedServices[Service(s)] = true
		}
	}

	for _, n1905 := range u.Non1905 {
		links := fresh.linksForInterface(n1905.LocalIfMAC)
		for _, nb := range n1905.Neighbors {
			links.Neighbors[nb] = &NeighborLink{NeighborIfMAC: nb, Is1905: false, FreshTopologyDiscovery: now}
		}
	}
	for _, nl := range u.Neighbors {
		links := fresh.linksForInterface(nl.LocalIfMAC)
		for _, nb := range nl.Neighbors {
			links.Neighbors[nb.ALMAC] = &NeighborLink{NeighborIfMAC: nb.ALMAC, Is1905: true, NeighborALMAC: nb.ALMAC, Bridge: nb.IsBridge, FreshTopologyDiscovery: now}
		}
	}
	for _, l2 := range u.L2Neighbors {
		for _, ifc := range l2.Interfaces {
			links := fresh.linksForInterface(ifc.LocalIfMAC)
			for _, n := range ifc.Neighbors {
				links.Neighbors[n.MAC] = &NeighborLink{NeighborIfMAC: n.MAC, Is1905: false, FreshTopologyDiscovery: now}
			}
		}
	}

	old, existed := d.devices[almac]
	if existed && deviceContentEqual(old, fresh) {
		return false
	}

	// Preserve the rate-limiter bookkeeping and radio inventory across the
	// wholesale replace: those aren't part of what TOPOLOGY_RESPONSE reports.
	if existed {
		fresh.LastTopologyQuerySent = old.LastTopologyQuerySent
		fresh.LastTopologyResponseReceived = old.LastTopologyResponseReceived
		fresh.LastTopologyNotificationReceived = old.LastTopologyNotificationReceived
		fresh.Radios = old.Radios
	}
	d.devices[almac] = fresh
	return true
}

// deviceContentEqual compares the TOPOLOGY_RESPONSE-derived fields of two
// device records, ignoring rate-limiter bookkeeping and radio state which
// ReplaceTopologyResponse never touches.
func deviceContentEqual(a, b *Device) bool {
	if len(a.Interfaces) != len(b.Interfaces) {
		return false
	}
	for i := range a.Interfaces {
		if a.Interfaces[i].MAC != b.Interfaces[i].MAC || a.Interfaces[i].MediaType != b.Interfaces[i].MediaType {
			return false
		}
	}
	if len(a.Bridges) != len(b.Bridges) {
		return false
	}
	for i := range a.Bridges {
		if len(a.Bridges[i]) != len(b.Bridges[i]) {
			return false
		}
		for j := range a.Bridges[i] {
			if a.Bridges[i][j] != b.Bridges[i][j] {
				return false
			}
		}
	}
	if len(a.PowerOffInterfaces) != len(b.PowerOffInterfaces) {
		return false
	}
	for i := range a.PowerOffInterfaces {
		if a.PowerOffInterfaces[i] != b.PowerOffInterfaces[i] {
			return false
		}
	}
	if len(a.SupportedServices) != len(b.SupportedServices) {
		return false
	}
	for s := range a.SupportedServices {
		if !b.SupportedServices[s] {
			return false
		}
	}
	if len(a.Links) != len(b.Links) {
		return false
	}
	for ifMAC, la := range a.Links {
		lb, ok := b.Links[ifMAC]
		if !ok || len(la.Neighbors) != len(lb.Neighbors) {
			return false
		}
		for nbMAC, na := range la.Neighbors {
			nb, ok := lb.Neighbors[nbMAC]
			if !ok || na.Is1905 != nb.Is1905 || na.NeighborALMAC != nb.NeighborALMAC || na.Bridge != nb.Bridge {
				return false
			}
		}
	}
	return true
}

// UpdateLinkMetrics replaces a link's TX and/or RX metrics wholesale, §3
// "Link Metrics".
func (d *Database) UpdateLinkMetrics(localIfMAC, neighborIfMAC wire.MAC, neighborALMACForLink wire.MAC, tx, rx *LinkMetricSample, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	links := d.devices[d.localALMAC].linksForInterface(localIfMAC)
	link, ok := links.Neighbors[neighborIfMAC]
	if !ok {
		link = &NeighborLink{NeighborIfMAC: neighborIfMAC, Is1905: true, NeighborALMAC: neighborALMACForLink}
		links.Neighbors[neighborIfMAC] = link
	}
	if link.Metrics == nil {
		link.Metrics = &LinkMetrics{}
	}
	if tx != nil {
		link.Metrics.TX = tx
	}
	if rx != nil {
		link.Metrics.RX = rx
	}
	link.Metrics.UpdatedAt = now
}

// RemoveNeighbor drops a neighbor link entirely (e.g. when a local
// interface reports it has gone away) and then runs the garbage collector.
func (d *Database) RemoveNeighbor(localIfMAC, neighborIfMAC wire.MAC) {
	d.mu.Lock()
	defer d.mu.Unlock()
	links, ok := d.devices[d.localALMAC].Links[localIfMAC]
	if ok {
		delete(links.Neighbors, neighborIfMAC)
	}
	d.gcLocked()
}

// RemoveInterface drops a local interface and every link it owned, §3
// "Ownership and lifecycle".
func (d *Database) RemoveInterface(ifMAC wire.MAC) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.devices[d.localALMAC].Links, ifMAC)
	d.gcLocked()
}

// gcLocked purges device records that are no longer referenced by any
// local link and carry no data of their own (§4.6 "garbage collector runs
// after neighbor-removal to purge dangling link records"). The local
// device and any device still named by a live neighbor link survive.
func (d *Database) gcLocked() {
	referenced := map[wire.MAC]bool{d.localALMAC: true}
	for _, links := range d.devices[d.localALMAC].Links {
		for _, nb := range links.Neighbors {
			if nb.Is1905 {
				referenced[nb.NeighborALMAC] = true
			}
		}
	}
	for almac, dev := range d.devices {
		if referenced[almac] {
			continue
		}
		if len(dev.Interfaces) == 0 && len(dev.Radios) == 0 {
			dbLogger.WithField("al_mac", almac.String()).Debug("garbage-collecting dangling device record")
			delete(d.devices, almac)
		}
	}
}
