// Package mid implements the 1905 message-ID allocator: a process-wide
// monotonically increasing 16-bit counter that wraps to zero, §4.3.
package mid

import "sync/atomic"

// Allocator hands out distinct 16-bit message IDs. It is safe for
// concurrent use from any component — the dispatcher, send builders, the
// discovery scheduler and the AP-autoconfiguration controller all allocate
// from the same Allocator instance.
type Allocator struct {
	next uint32 // holds the next uint16 value to hand out; wraps via modulo
}

// New returns an Allocator starting at 0.
func New() *Allocator {
	return &Allocator{}
}

// Next returns the next message ID and advances the counter, wrapping from
// 0xFFFF back to 0x0000.
func (a *Allocator) Next() uint16 {
	v := atomic.AddUint32(&a.next, 1) - 1
	return uint16(v)
}
