package curl

// ring is a fixed-capacity float64 buffer that evicts the oldest value and
// keeps a running sum so the mean is O(1).
type ring struct {
	values []float64
	head   int // next write position
	n      int
	sum    float64
}

func newRing(capacity int) ring {
	if capacity < 1 {
		capacity = 1
	}
	return ring{values: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.n == len(r.values) {
		r.sum -= r.values[r.head]
	} else {
		r.n++
	}
	r.values[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % len(r.values)
}

func (r *ring) len() int   { return r.n }
func (r *ring) full() bool { return r.n == len(r.values) }

func (r *ring) mean() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.sum / float64(r.n), true
}

func (r *ring) reset() {
	r.head, r.n, r.sum = 0, 0, 0
}

// Smoother is a moving average over the last N raw angles. Its value is for
// display and logging only; state decisions always use the raw angle.
type Smoother struct {
	buf ring
}

// NewSmoother creates a smoother keeping the last size samples.
func NewSmoother(size int) *Smoother {
	return &Smoother{buf: newRing(size)}
}

// Add records a raw angle.
func (s *Smoother) Add(angle float64) { s.buf.push(angle) }

// Value returns the mean of the retained samples, false when empty.
func (s *Smoother) Value() (float64, bool) { return s.buf.mean() }

// Len returns the number of retained samples.
func (s *Smoother) Len() int { return s.buf.len() }

// Reset drops all samples.
func (s *Smoother) Reset() { s.buf.reset() }
