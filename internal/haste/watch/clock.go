package watch

import (
	"fmt"
	"sync/atomic"
	"time"
)

var clockSeq atomic.Uint64

// newLocalClock returns a string clock token that is strictly increasing
// across calls within a process, which is all FSWalkSource needs: it never
// answers an incremental query, so the token's only job is to be a valid
// ClockMap value for persistence (I5).
func newLocalClock() string {
	seq := clockSeq.Add(1)
	return fmt.Sprintf("c:%d:%d", time.Now().UnixNano(), seq)
}
