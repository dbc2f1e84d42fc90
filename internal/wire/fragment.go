package wire

import (
	"fmt"
	"sync"
	"time"
)

// ReassemblyTimeout is the minimum group idle time before a partial
// reassembly group is discarded, §4.2.
const ReassemblyTimeout = 5 * time.Second

type groupKey struct {
	src     MAC
	msgType uint16
	msgID   uint16
}

type group struct {
	header       Header // canonical header, taken from fragment 0
	fragments    map[uint8][]byte
	lastFragment int // -1 until the last-fragment flag has been seen; then the highest valid fragment ID
	lastSeen     time.Time
}

// Reassembler reassembles CMDU fragments arriving out of order across one
// or more interfaces. It is safe for concurrent use; the caller is expected
// to call Purge periodically (e.g. from the discovery scheduler's timer
// loop) to drop groups that stalled mid-assembly.
type Reassembler struct {
	mu     sync.Mutex
	groups map[groupKey]*group
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{groups: make(map[groupKey]*group)}
}

// Add feeds one fragment into its reassembly group. It returns a non-nil
// CMDU once every fragment ID from 0 to N-1 has arrived, where N is implied
// by the fragment carrying the last-fragment flag. A canonical-header
// mismatch against fragment 0 of an in-progress group is fatal to that
// group: the group is dropped and an error is returned so the caller can
// log it; this never affects other groups or the database.
func (r *Reassembler) Add(frag Fragment, now time.Time) (*CMDU, error) {
	key := groupKey{src: frag.SrcMAC, msgType: frag.Header.MessageType, msgID: frag.Header.MessageID}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[key]
	if !ok {
		g = &group{
			header:       frag.Header,
			fragments:    make(map[uint8][]byte),
			lastFragment: -1,
			lastSeen:     now,
		}
		r.groups[key] = g
	} else {
		if g.header.MessageVersion != frag.Header.MessageVersion {
			delete(r.groups, key)
			return nil, fmt.Errorf("wire: fragment %d of group %+v disagrees on message_version", frag.Header.FragmentID, key)
		}
		if frag.Header.FragmentID == 0 {
			g.header = frag.Header
		}
	}

	if _, dup := g.fragments[frag.Header.FragmentID]; dup {
		delete(r.groups, key)
		return nil, fmt.Errorf("wire: duplicate fragment_id %d in group %+v", frag.Header.FragmentID, key)
	}

	if frag.Header.LastFragment {
		if g.lastFragment != -1 {
			delete(r.groups, key)
			return nil, fmt.Errorf("wire: more than one last-fragment in group %+v", key)
		}
		g.lastFragment = int(frag.Header.FragmentID)
	}

	g.fragments[frag.Header.FragmentID] = frag.Payload
	g.lastSeen = now

	if g.lastFragment == -1 {
		return nil, nil // still waiting for the fragment that carries last-fragment
	}
	if len(g.fragments) != g.lastFragment+1 {
		return nil, nil // some fragment IDs between 0 and lastFragment are still missing
	}
	payloads := make([][]byte, g.lastFragment+1)
	for i := 0; i <= g.lastFragment; i++ {
		p, ok := g.fragments[uint8(i)]
		if !ok {
			delete(r.groups, key)
			return nil, fmt.Errorf("wire: group %+v missing fragment_id %d", key, i)
		}
		payloads[i] = p
	}
	delete(r.groups, key)
	return Parse(g.header, payloads)
}

// Purge drops every group that has not received a new fragment within
// ReassemblyTimeout of now.
func (r *Reassembler) Purge(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, g := range r.groups {
		if now.Sub(g.lastSeen) >= ReassemblyTimeout {
			delete(r.groups, key)
		}
	}
}
