package overlay

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Operations reported in a Failure.
const (
	OpCreate = "create"
	OpMove   = "move"
)

// Failure describes a create or move the backend did not accept.
type Failure struct {
	Op      string    `json:"op"`
	MapID   int64     `json:"map_id"`
	PointID int64     `json:"point_id,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	Err     error     `json:"-"`
}

// Notifier surfaces failed mutations to the operator.
type Notifier interface {
	Notify(Failure)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Failure)

func (f NotifierFunc) Notify(fl Failure) { f(fl) }

// NoticeLog keeps the most recent failures until they are drained and logs
// each one as it arrives.
type NoticeLog struct {
	mu      sync.Mutex
	limit   int
	notices []Failure
}

// NewNoticeLog returns a NoticeLog holding at most limit failures.
func NewNoticeLog(limit int) *NoticeLog {
	if limit <= 0 {
		limit = 50
	}
	return &NoticeLog{limit: limit}
}

// Notify logs f and records it, dropping the oldest record past the limit.
func (n *NoticeLog) Notify(f Failure) {
	log.Warn().
		Str("module", "overlay").
		Str("op", f.Op).
		Int64("map_id", f.MapID).
		Int64("point_id", f.PointID).
		Err(f.Err).
		Msg("point mutation failed")

	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, f)
	if over := len(n.notices) - n.limit; over > 0 {
		n.notices = append([]Failure(nil), n.notices[over:]...)
	}
}

// Drain returns the recorded failures, oldest first, and forgets them.
func (n *NoticeLog) Drain() []Failure {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.notices
	n.notices = nil
	if out == nil {
		out = []Failure{}
	}
	return out
}
