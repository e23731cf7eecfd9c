package dispatch

import (
	"time"

	"github.com/redmonkez12/diary-api/internal/settings"
	"github.com/redmonkez12/diary-api/internal/timezone"
)

// Reason explains a dispatch decision
type Reason string

const (
	ReasonDisabled     Reason = "disabled"
	ReasonBeforeWindow Reason = "before_window"
	ReasonAfterWindow  Reason = "after_window"
	ReasonAlreadySent  Reason = "already_sent"
	ReasonDue          Reason = "due"
)

// Decision is the outcome of evaluating one settings record at one instant
type Decision struct {
	Send   bool
	Reason Reason

	// Location is the user's zone, UTC when FellBack is set
	Location *time.Location
	FellBack bool

	LocalNow     time.Time
	PreferredUTC time.Time
	Delta        time.Duration
}

// Evaluate decides whether s is due at now. A user is due when now lies in
// [preferred, preferred+window], where preferred is today's preferred time in
// the user's zone, and nothing was sent on the same local date.
func Evaluate(s *settings.EmailSettings, now time.Time, window time.Duration) Decision {
	loc, fellBack := timezone.ResolveOrUTC(s.TimeZone)
	d := Decision{Location: loc, FellBack: fellBack}

	if !s.IsEnabled {
		d.Reason = ReasonDisabled
		return d
	}

	local := now.In(loc)
	d.LocalNow = local
	d.PreferredUTC = s.PreferredTime.On(local.Year(), local.Month(), local.Day(), loc).UTC()
	d.Delta = now.Sub(d.PreferredUTC)

	switch {
	case d.Delta < 0:
		d.Reason = ReasonBeforeWindow
		return d
	case d.Delta > window:
		d.Reason = ReasonAfterWindow
		return d
	}

	if s.LastEmailSent != nil && sameDate(s.LastEmailSent.In(loc), local) {
		d.Reason = ReasonAlreadySent
		return d
	}

	d.Send = true
	d.Reason = ReasonDue
	return d
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
