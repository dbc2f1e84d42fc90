package datamodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

func mac(b byte) wire.MAC { return wire.MAC{0xAA, 0xBB, 0xCC, 0, 0, b} }

func TestReplaceTopologyResponseIdempotent(t *testing.T) {
	db := New(mac(1))
	now := time.Unix(1000, 0)

	update := TopologyResponseUpdate{
		DeviceInfo: &wire.DeviceInformationTLV{
			ALMAC: mac(2),
			Interfaces: []wire.LocalInterfaceEntry{
				{MAC: mac(3), MediaType: 0x0100},
			},
		},
		SupportedService: &wire.SupportedServiceTLV{Services: []uint8{wire.ServiceMultiAPAgent}},
	}

	changed1 := db.ReplaceTopologyResponse(update, now)
	require.True(t, changed1)

	changed2 := db.ReplaceTopologyResponse(update, now.Add(time.Second))
	assert.False(t, changed2, "re-applying identical TOPOLOGY_RESPONSE content must be a no-op")

	dev := db.Device(mac(2))
	require.NotNil(t, dev)
	assert.Len(t, dev.Interfaces, 1)
	assert.True(t, dev.SupportedServices[ServiceAgent])
}

func TestReplaceTopologyResponseDetectsRealChange(t *testing.T) {
	db := New(mac(1))
	now := time.Unix(1000, 0)

	u1 := TopologyResponseUpdate{DeviceInfo: &wire.DeviceInformationTLV{ALMAC: mac(2)}}
	db.ReplaceTopologyResponse(u1, now)

	u2 := TopologyResponseUpdate{DeviceInfo: &wire.DeviceInformationTLV{
		ALMAC:      mac(2),
		Interfaces: []wire.LocalInterfaceEntry{{MAC: mac(9), MediaType: 0x0100}},
	}}
	changed := db.ReplaceTopologyResponse(u2, now.Add(time.Second))
	assert.True(t, changed)
}

func TestDiscoveryFreshnessMonotonic(t *testing.T) {
	db := New(mac(1))
	t0 := time.Unix(1000, 0)
	t1 := t0.Add(10 * time.Second)
	tEarlier := t0.Add(-5 * time.Second)

	db.UpdateDiscoveryFreshness(mac(10), mac(11), mac(2), t1)
	dev := db.LocalDevice()
	link := dev.Links[mac(10)].Neighbors[mac(11)]
	require.NotNil(t, link)
	assert.Equal(t, t1, link.FreshTopologyDiscovery)

	// an out-of-order, earlier observation must never move the timestamp
	// backwards, §8 property 7.
	db.UpdateDiscoveryFreshness(mac(10), mac(11), mac(2), tEarlier)
	assert.Equal(t, t1, link.FreshTopologyDiscovery)
}

func TestNewNeighborDetection(t *testing.T) {
	db := New(mac(1))
	now := time.Unix(1000, 0)

	isNew := db.UpdateDiscoveryFreshness(mac(10), mac(11), mac(2), now)
	assert.True(t, isNew)

	isNewAgain := db.UpdateDiscoveryFreshness(mac(10), mac(11), mac(2), now.Add(time.Second))
	assert.False(t, isNewAgain)
}

func TestTopologyQueryRateLimiter(t *testing.T) {
	db := New(mac(1))
	now := time.Unix(1000, 0)
	target := mac(2)

	assert.True(t, db.CanSendTopologyQuery(target, now))
	db.RecordTopologyQuerySent(target, now)
	assert.False(t, db.CanSendTopologyQuery(target, now.Add(30*time.Second)))
	assert.True(t, db.CanSendTopologyQuery(target, now.Add(61*time.Second)))

	// a notification received after the query unblocks immediately, §8
	// property 5.
	db.RecordTopologyNotificationReceived(target, now.Add(31*time.Second))
	assert.True(t, db.CanSendTopologyQuery(target, now.Add(32*time.Second)))
}

func TestGarbageCollectionOfDanglingLinks(t *testing.T) {
	db := New(mac(1))
	now := time.Unix(1000, 0)

	db.UpdateDiscoveryFreshness(mac(10), mac(11), mac(2), now)
	db.ReplaceTopologyResponse(TopologyResponseUpdate{DeviceInfo: &wire.DeviceInformationTLV{ALMAC: mac(2)}}, now)
	assert.NotNil(t, db.Device(mac(2)))

	db.RemoveNeighbor(mac(10), mac(11))
	// mac(2) carried no interfaces of its own and is no longer referenced
	// by any link: the GC must remove it.
	assert.Nil(t, db.Device(mac(2)))
}
