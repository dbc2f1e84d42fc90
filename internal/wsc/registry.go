package wsc

import (
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/looplab/fsm"
	log "github.com/sirupsen/logrus"

	"github.com/BroadbandForum/meshComms-sub000/internal/wire"
)

var wscLogger = log.WithFields(log.Fields{"module": "wsc"})

// Enrollee states, §4.8's WSC-enrollee state machine.
const (
	StateIdle       = "IDLE"
	StateSearchSent = "SEARCH_SENT"
	StateM1Sent     = "M1_SENT"
	StateConfigured = "CONFIGURED"
)

const (
	eventSearch  = "search"
	eventM1Sent  = "m1_sent"
	eventM2OK    = "m2_accepted"
	eventM2Bad   = "m2_rejected"
	eventRenew   = "renew"
	eventTimeout = "timeout"
)

// Enrollee is the per-radio enrollment state the AP-autoconfiguration
// controller drives: which M1 it last sent (so an accepted M2 can be
// authenticated against it), and the retry backoff for SEARCH_SENT/M1_SENT
// timeouts, §4.8/§4.9. It plays the role al_wsc.h's per-radio wscM1Info
// ownership plays: an M1 lives here from BuildM1 until ProcessM2 succeeds
// or the attempt is abandoned, at which point it's cleared.
type Enrollee struct {
	RadioUID wire.MAC
	FSM      *fsm.FSM
	M1       *M1Info
	Backoff  *backoff.Backoff

	HasConfiguredBSS bool
	LastAttempt      time.Time
}

func newEnrollee(radioUID wire.MAC) *Enrollee {
	e := &Enrollee{
		RadioUID: radioUID,
		Backoff:  &backoff.Backoff{Min: 5 * time.Second, Max: 60 * time.Second, Factor: 2, Jitter: true},
	}
	e.FSM = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventSearch, Src: []string{StateIdle, StateSearchSent, StateM1Sent}, Dst: StateSearchSent},
			{Name: eventM1Sent, Src: []string{StateSearchSent}, Dst: StateM1Sent},
			{Name: eventM2OK, Src: []string{StateM1Sent}, Dst: StateConfigured},
			{Name: eventM2Bad, Src: []string{StateM1Sent}, Dst: StateM1Sent},
			{Name: eventRenew, Src: []string{StateConfigured}, Dst: StateSearchSent},
			{Name: eventTimeout, Src: []string{StateSearchSent, StateM1Sent}, Dst: StateSearchSent},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				wscLogger.WithFields(log.Fields{
					"radio": radioUID.String(),
					"from":  e.Src,
					"to":    e.Dst,
				}).Debug("WSC enrollee state transition")
			},
		},
	)
	return e
}

// Registry owns one Enrollee per local radio awaiting or holding
// configuration. Kept in this package, not in datamodel.Radio, so that
// datamodel never needs to import the WSC crypto machinery (avoiding an
// import cycle, since the AP-autoconfiguration controller that drives both
// already imports datamodel).
type Registry struct {
	mu       sync.Mutex
	enrollees map[wire.MAC]*Enrollee
}

// NewRegistry returns an empty enrollee registry.
func NewRegistry() *Registry {
	return &Registry{enrollees: make(map[wire.MAC]*Enrollee)}
}

// Get returns the radio's enrollee state, creating it in StateIdle if this
// is the first time the radio has been seen.
func (r *Registry) Get(radioUID wire.MAC) *Enrollee {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollees[radioUID]
	if !ok {
		e = newEnrollee(radioUID)
		r.enrollees[radioUID] = e
	}
	return e
}

// ForEach calls fn for every tracked radio's enrollee state. fn must not
// call back into the Registry.
func (r *Registry) ForEach(fn func(wire.MAC, *Enrollee)) {
	r.mu.Lock()
	snapshot := make(map[wire.MAC]*Enrollee, len(r.enrollees))
	for k, v := range r.enrollees {
		snapshot[k] = v
	}
	r.mu.Unlock()
	for k, v := range snapshot {
		fn(k, v)
	}
}

// Remove drops a radio's enrollee state, e.g. when the radio itself is
// removed from the local data model.
func (r *Registry) Remove(radioUID wire.MAC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enrollees, radioUID)
}

// BeginSearch transitions radioUID into SEARCH_SENT, resetting the retry
// backoff. Used both for the initial search and for an explicit RENEW.
func (e *Enrollee) BeginSearch() {
	e.Backoff.Reset()
	event := eventSearch
	if e.FSM.Current() == StateConfigured {
		event = eventRenew
	}
	_ = e.FSM.Event(event)
	e.LastAttempt = time.Now()
}

// BeginM1 transitions radioUID into M1_SENT, retaining m1 so a later
// ProcessM2 can authenticate against it.
func (e *Enrollee) BeginM1(m1 *M1Info) {
	_ = e.FSM.Event(eventM1Sent)
	e.M1 = m1
	e.LastAttempt = time.Now()
}

// AcceptM2 transitions into CONFIGURED and clears the retained M1 (its
// keying material has done its job), marking the radio's BSS configured.
func (e *Enrollee) AcceptM2() {
	_ = e.FSM.Event(eventM2OK)
	e.M1 = nil
	e.HasConfiguredBSS = true
}

// RejectM2 stays in M1_SENT per §7's WSC-failure handling, allowing the
// same M1 to authenticate a retried M2 without rebuilding it.
func (e *Enrollee) RejectM2() {
	_ = e.FSM.Event(eventM2Bad)
}

// Timeout transitions a stalled SEARCH_SENT/M1_SENT attempt back to
// SEARCH_SENT so the controller can resend, honoring the exponential
// backoff already ticking on e.Backoff.
func (e *Enrollee) Timeout() {
	_ = e.FSM.Event(eventTimeout)
}

// NeedsSearch reports whether the radio still lacks a configured BSS and
// should be included in the next AP_AUTOCONFIG_SEARCH, resolving §9's open
// question: after applying an M2, only radios still unconfigured search
// again.
func (e *Enrollee) NeedsSearch() bool {
	return !e.HasConfiguredBSS
}
