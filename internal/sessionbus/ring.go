// internal/sessionbus/ring.go
package sessionbus

import "time"

// ring is a fixed-capacity FIFO of events, oldest first.
type ring struct {
	buf   []Event
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]Event, capacity)}
}

// push appends e, overwriting the oldest entry when full. It reports whether
// an entry was evicted.
func (r *ring) push(e Event) bool {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = e
		r.n++
		return false
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
	return true
}

func (r *ring) at(i int) Event {
	return r.buf[(r.start+i)%len(r.buf)]
}

// filter returns the events keep accepts that were not created before cutoff.
func (r *ring) filter(keep func(Event) bool, cutoff time.Time) []Event {
	var out []Event
	for i := 0; i < r.n; i++ {
		e := r.at(i)
		if keep(e) && !e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// purgeBefore drops events created before cutoff and returns how many went.
func (r *ring) purgeBefore(cutoff time.Time) int {
	purged := 0
	for r.n > 0 && r.at(0).CreatedAt.Before(cutoff) {
		r.buf[r.start] = Event{}
		r.start = (r.start + 1) % len(r.buf)
		r.n--
		purged++
	}
	return purged
}

func (r *ring) len() int { return r.n }
