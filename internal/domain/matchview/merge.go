package matchview

import "time"

// Update is one normalized live payload. A nil block means the payload did not carry it.
type Update struct {
	MatchID    string
	Timestamp  time.Time
	Header     *Header
	Events     *[]Event
	Statistics *Statistics
	Lineups    *Lineups
}

// Empty reports whether the update carries no block at all.
func (u Update) Empty() bool {
	return u.Header == nil && u.Events == nil && u.Statistics == nil && u.Lineups == nil
}

// StatusChange describes a header status transition produced by a merge.
type StatusChange struct {
	From string
	To   string
}

// Merge folds u into current. Present blocks replace the current block wholesale,
// absent blocks are retained. Auxiliary blocks are never touched.
//
// A block whose recorded revision is newer than u.Timestamp is left as is; a zero
// timestamp on either side always applies.
func Merge(current MatchViewModel, u Update) (MatchViewModel, *StatusChange) {
	next := current

	if u.Header != nil && applies(current.Revisions.Header, u.Timestamp) {
		next.Header = *u.Header
		next.Revisions.Header = u.Timestamp
	}
	if u.Events != nil && applies(current.Revisions.Events, u.Timestamp) {
		next.Events = *u.Events
		next.Revisions.Events = u.Timestamp
	}
	if u.Statistics != nil && applies(current.Revisions.Statistics, u.Timestamp) {
		next.Statistics = *u.Statistics
		next.Revisions.Statistics = u.Timestamp
	}
	if u.Lineups != nil && applies(current.Revisions.Lineups, u.Timestamp) {
		next.Lineups = *u.Lineups
		next.Revisions.Lineups = u.Timestamp
	}

	if next.Header.Status != current.Header.Status {
		return next, &StatusChange{From: current.Header.Status, To: next.Header.Status}
	}
	return next, nil
}

func applies(recorded, incoming time.Time) bool {
	if recorded.IsZero() || incoming.IsZero() {
		return true
	}
	return !incoming.Before(recorded)
}
