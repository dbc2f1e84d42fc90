package datamodel

import (
	"time"

	"github.com/looplab/fsm"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

// Discovery-freshness states and events, §4.4 "Per-neighbor discovery
// freshness" state machine: UNKNOWN -> OBSERVED_DISCOVERY -> RESPONSE_RECEIVED.
const (
	FreshnessStateUnknown          = "unknown"
	FreshnessStateObservedDiscovery = "observed_discovery"
	FreshnessStateResponseReceived  = "response_received"

	freshnessEventDiscovery = "discovery"
	freshnessEventResponse  = "response"
)

// neighborKey identifies one per-neighbor freshness tracker: the standard
// keys this state per (local interface, neighbor AL), not per neighbor
// interface, since a neighbor AL may be heard on only one local interface
// at a time for discovery purposes.
type neighborKey struct {
	localIfMAC wire.MAC
	neighborAL wire.MAC
}

// freshnessTracker pairs the §4.4 state machine with the timestamps needed
// to evaluate the query-rate-limiter gate, since looplab/fsm tracks state
// transitions but not elapsed time.
type freshnessTracker struct {
	machine         *fsm.FSM
	lastDiscoveryAt time.Time
	lastResponseAt  time.Time
}

func newFreshnessTracker() *freshnessTracker {
	t := &freshnessTracker{}
	t.machine = fsm.NewFSM(
		FreshnessStateUnknown,
		fsm.Events{
			{Name: freshnessEventDiscovery, Src: []string{FreshnessStateUnknown, FreshnessStateObservedDiscovery, FreshnessStateResponseReceived}, Dst: FreshnessStateObservedDiscovery},
			{Name: freshnessEventResponse, Src: []string{FreshnessStateUnknown, FreshnessStateObservedDiscovery, FreshnessStateResponseReceived}, Dst: FreshnessStateResponseReceived},
		},
		nil,
	)
	return t
}

func (t *freshnessTracker) onDiscovery(now time.Time) {
	t.lastDiscoveryAt = now
	_ = t.machine.Event(freshnessEventDiscovery)
}

func (t *freshnessTracker) onResponse(now time.Time) {
	t.lastResponseAt = now
	_ = t.machine.Event(freshnessEventResponse)
}

// queryPermitted implements §4.4's gate: "query-rate limiter permits
// outgoing query only when state is OBSERVED_DISCOVERY-for->5s or
// RESPONSE_RECEIVED-older-than-60s."
func (t *freshnessTracker) queryPermitted(now time.Time) bool {
	switch t.machine.Current() {
	case FreshnessStateObservedDiscovery:
		return now.Sub(t.lastDiscoveryAt) > 5*time.Second
	case FreshnessStateResponseReceived:
		return now.Sub(t.lastResponseAt) > 60*time.Second
	default:
		return true
	}
}
