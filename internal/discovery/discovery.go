// Package discovery implements the periodic discovery scheduler, §4.7:
// topology-discovery and LLDP bridge-discovery on a 60 s cadence per local
// interface, randomized to avoid convoys, plus the asynchronous triggers
// the dispatcher and AP-autoconfiguration controller raise.
package discovery

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/send"
	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

var discoveryLogger = log.WithFields(log.Fields{"module": "discovery"})

// DefaultInterval is the standard's suggested topology-discovery and LLDP
// bridge-discovery period, §4.7.
const DefaultInterval = 60 * time.Second

// LLDPSender sends the LLDP "bridge-discovery" frame for an interface; the
// raw LLDP framing (using gopacket/layers) lives in the platform package,
// out of this package's scope (§1).
type LLDPSender interface {
	SendLLDP(ifaceMAC wire.MAC) error
}

// Scheduler runs the two periodic jobs per local interface named in §4.7.
// Each interface gets two goroutines (one per job) sharing a randomized
// start offset so that, across many interfaces/devices, the 60 s ticks
// don't all land at once.
type Scheduler struct {
	builder *send.Builder
	lldp    LLDPSender
	interval time.Duration

	mu      sync.Mutex
	cancels map[wire.MAC]chan struct{}
}

// New returns a Scheduler that fires topology-discovery via builder and
// LLDP bridge-discovery via lldp, every interval (DefaultInterval if zero).
func New(builder *send.Builder, lldp LLDPSender, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{builder: builder, lldp: lldp, interval: interval, cancels: make(map[wire.MAC]chan struct{})}
}

// StartInterface launches the periodic jobs for ifaceMAC. Calling it twice
// for the same interface without an intervening StopInterface replaces the
// prior goroutines.
func (s *Scheduler) StartInterface(ifaceMAC wire.MAC) {
	s.mu.Lock()
	if old, ok := s.cancels[ifaceMAC]; ok {
		close(old)
	}
	cancel := make(chan struct{})
	s.cancels[ifaceMAC] = cancel
	s.mu.Unlock()

	offset := time.Duration(rand.Int63n(int64(s.interval)))
	go s.runTopologyDiscovery(ifaceMAC, offset, cancel)
	go s.runLLDPDiscovery(ifaceMAC, offset, cancel)
}

// StopInterface cancels the periodic jobs for ifaceMAC, e.g. when the
// interface is removed from the local data model.
func (s *Scheduler) StopInterface(ifaceMAC wire.MAC) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[ifaceMAC]; ok {
		close(cancel)
		delete(s.cancels, ifaceMAC)
	}
}

func (s *Scheduler) runTopologyDiscovery(ifaceMAC wire.MAC, offset time.Duration, cancel <-chan struct{}) {
	timer := time.NewTimer(offset)
	defer timer.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-timer.C:
			if err := s.builder.TopologyDiscovery(ifaceMAC); err != nil {
				discoveryLogger.WithError(err).WithField("interface", ifaceMAC.String()).Warn("periodic topology-discovery send failed")
			}
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runLLDPDiscovery(ifaceMAC wire.MAC, offset time.Duration, cancel <-chan struct{}) {
	if s.lldp == nil {
		return
	}
	timer := time.NewTimer(offset)
	defer timer.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-timer.C:
			if err := s.lldp.SendLLDP(ifaceMAC); err != nil {
				discoveryLogger.WithError(err).WithField("interface", ifaceMAC.String()).Warn("periodic LLDP bridge-discovery send failed")
			}
			timer.Reset(s.interval)
		}
	}
}

// NotifyTopologyNotification is the asynchronous trigger §4.7 names for an
// incoming TOPOLOGY_NOTIFICATION: an immediate topology-query. The
// dispatcher already performs this send directly (it has the frame-source
// fallback in hand); this method exists for callers (e.g. a future ALME
// trigger) that only have the peer's AL MAC.
func (s *Scheduler) NotifyTopologyNotification(ifaceMAC, peerALMAC wire.MAC) {
	if err := s.builder.TopologyQuery(ifaceMAC, peerALMAC, wire.MAC{}); err != nil {
		discoveryLogger.WithError(err).Warn("immediate topology-query after notification failed")
	}
}

// NotifyAPAutoconfigRenew is the asynchronous trigger for a received
// AP_AUTOCONFIG_RENEW: an immediate search, re-using the renew's band.
func (s *Scheduler) NotifyAPAutoconfigRenew(ifaceMAC wire.MAC, band uint8, searchedServices []uint8) {
	if err := s.builder.APAutoconfigSearch(ifaceMAC, band, searchedServices); err != nil {
		discoveryLogger.WithError(err).Warn("immediate AP-autoconfig search after renew failed")
	}
}

// Reassembler is the subset of wire.Reassembler the scheduler drives.
type Reassembler interface {
	Purge(now time.Time)
}

// RunReassemblyPurge periodically calls reassembler.Purge, per §4.2 "the
// caller is expected to call Purge periodically (e.g. from the discovery
// scheduler's timer loop)". Blocks until cancel is closed; run it in its
// own goroutine.
func (s *Scheduler) RunReassemblyPurge(reassembler Reassembler, cancel <-chan struct{}) {
	ticker := time.NewTicker(wire.ReassemblyTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			reassembler.Purge(now)
		}
	}
}
