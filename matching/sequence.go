package matching

import (
	"sync/atomic"
)

// IDSource issues monotonically increasing ids shared by all orders and
// trades of an exchange. The first issued id is 1.
type IDSource struct {
	last atomic.Int64
}

// NewIDSource creates a new id source starting at 1.
func NewIDSource() *IDSource {
	return new(IDSource)
}

// Next returns the next unused id.
func (s *IDSource) Next() int64 {
	return s.last.Add(1)
}
