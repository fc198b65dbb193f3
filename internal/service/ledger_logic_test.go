package service

import (
	"testing"
	"time"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/ratelimit"
)

// voteTable is a pure-logic mirror of the vote ledger's SQL semantics —
// upsert on the (media, identity) uniqueness constraint, recompute counters
// from source after every mutation — for unit testing without a database.
type voteTable struct {
	rows map[int64]map[string]voteRow // mediaID -> identity -> row
}

type voteRow struct {
	voteType  string
	sessionID string
}

func newVoteTable() *voteTable {
	return &voteTable{rows: make(map[int64]map[string]voteRow)}
}

// upsert returns the previous vote, empty if none. The session id is
// replaced along with the vote type.
func (t *voteTable) upsert(mediaID int64, identity, voteType, sessionID string) string {
	if t.rows[mediaID] == nil {
		t.rows[mediaID] = make(map[string]voteRow)
	}
	previous := t.rows[mediaID][identity].voteType
	t.rows[mediaID][identity] = voteRow{voteType: voteType, sessionID: sessionID}
	return previous
}

func (t *voteTable) remove(mediaID int64, identity string) string {
	previous := t.rows[mediaID][identity].voteType
	delete(t.rows[mediaID], identity)
	return previous
}

func (t *voteTable) session(mediaID int64, identity string) string {
	return t.rows[mediaID][identity].sessionID
}

// counts recomputes from raw rows, the same way the ledger does after every
// mutation.
func (t *voteTable) counts(mediaID int64) model.VoteCounts {
	var c model.VoteCounts
	for _, row := range t.rows[mediaID] {
		if row.voteType == model.VoteUp {
			c.Upvotes++
		} else {
			c.Downvotes++
		}
	}
	return c
}

// eventLog mirrors the append-only engagement event log: every append adds
// one timestamped row and bumps the lifetime counter, and nothing ever
// deletes a row.
type eventLog struct {
	rows     map[string][]time.Time // kind -> event timestamps
	lifetime map[string]int64       // kind -> denormalized counter
}

func newEventLog() *eventLog {
	return &eventLog{
		rows:     make(map[string][]time.Time),
		lifetime: make(map[string]int64),
	}
}

func (l *eventLog) append(kind string, at time.Time) {
	l.rows[kind] = append(l.rows[kind], at)
	l.lifetime[kind]++
}

// countByPeriod mirrors the repository's two branches: a window filters on
// the cutoff, the unbounded period applies no time filter at all.
func (l *eventLog) countByPeriod(kind string, period model.Period, now time.Time) int64 {
	window := period.Duration()
	if window == 0 {
		return int64(len(l.rows[kind]))
	}
	cutoff := now.Add(-window)
	var n int64
	for _, at := range l.rows[kind] {
		if !at.Before(cutoff) {
			n++
		}
	}
	return n
}

func TestVoteLedger_RoundTrip(t *testing.T) {
	table := newVoteTable()

	// First vote.
	prev := table.upsert(7, "identity-a", model.VoteUp, "sess-1")
	if prev != "" {
		t.Errorf("first vote previous = %q, want empty", prev)
	}
	if c := table.counts(7); c.Upvotes != 1 || c.Downvotes != 0 {
		t.Errorf("counts = %+v, want 1 up / 0 down", c)
	}
	if s := table.session(7, "identity-a"); s != "sess-1" {
		t.Errorf("stored session = %q, want sess-1", s)
	}

	// Revote with a different type replaces, never duplicates. The session
	// id travels with the new vote.
	prev = table.upsert(7, "identity-a", model.VoteDown, "sess-2")
	if prev != model.VoteUp {
		t.Errorf("revote previous = %q, want up", prev)
	}
	if c := table.counts(7); c.Upvotes != 0 || c.Downvotes != 1 {
		t.Errorf("counts after revote = %+v, want 0 up / 1 down", c)
	}
	if s := table.session(7, "identity-a"); s != "sess-2" {
		t.Errorf("session after revote = %q, want sess-2", s)
	}

	// Same-type revote is a no-op that still reports the previous vote.
	prev = table.upsert(7, "identity-a", model.VoteDown, "sess-2")
	if prev != model.VoteDown {
		t.Errorf("same-type revote previous = %q, want down", prev)
	}
	if c := table.counts(7); c.Upvotes != 0 || c.Downvotes != 1 {
		t.Errorf("counts after no-op revote = %+v, want 0 up / 1 down", c)
	}

	// Retraction returns counts to the pre-vote state.
	prev = table.remove(7, "identity-a")
	if prev != model.VoteDown {
		t.Errorf("retraction previous = %q, want down", prev)
	}
	if c := table.counts(7); c.Upvotes != 0 || c.Downvotes != 0 {
		t.Errorf("counts after retraction = %+v, want zeroes", c)
	}

	// Retracting an absent vote is a no-op.
	if prev := table.remove(7, "identity-a"); prev != "" {
		t.Errorf("double retraction previous = %q, want empty", prev)
	}
}

func TestVoteLedger_SessionIDOptional(t *testing.T) {
	table := newVoteTable()

	table.upsert(7, "identity-a", model.VoteUp, "")
	if s := table.session(7, "identity-a"); s != "" {
		t.Errorf("session without id = %q, want empty", s)
	}

	table.upsert(7, "identity-b", model.VoteUp, "sess-b")
	if s := table.session(7, "identity-b"); s != "sess-b" {
		t.Errorf("session = %q, want sess-b", s)
	}
	// b's session never bleeds into a's row.
	if s := table.session(7, "identity-a"); s != "" {
		t.Errorf("identity-a session = %q, want empty", s)
	}
}

func TestEventLog_UnboundedCountMatchesLifetimeCounter(t *testing.T) {
	log := newEventLog()
	now := time.Now()

	// Plays spread over a year, including rows far older than any ranking
	// window.
	ages := []time.Duration{
		0,
		2 * time.Hour,
		36 * time.Hour,
		10 * 24 * time.Hour,
		45 * 24 * time.Hour,
		300 * 24 * time.Hour,
	}
	for _, age := range ages {
		log.append(model.EventPlay, now.Add(-age))
	}

	// The unbounded period applies no time filter, so it must agree with
	// the lifetime counter no matter how old the rows are.
	all := log.countByPeriod(model.EventPlay, model.PeriodAll, now)
	if all != log.lifetime[model.EventPlay] {
		t.Errorf("unbounded count = %d, lifetime counter = %d, want equal", all, log.lifetime[model.EventPlay])
	}
	if all != int64(len(ages)) {
		t.Errorf("unbounded count = %d, want %d", all, len(ages))
	}

	// Windowed counts still exclude aged-out rows.
	if got := log.countByPeriod(model.EventPlay, model.PeriodDay, now); got != 2 {
		t.Errorf("24h count = %d, want 2", got)
	}
	if got := log.countByPeriod(model.EventPlay, model.PeriodMonth, now); got != 4 {
		t.Errorf("30d count = %d, want 4", got)
	}
}

func TestVoteLedger_EndToEndScenario(t *testing.T) {
	table := newVoteTable()
	limiter := ratelimit.NewLimiter(map[string]ratelimit.Rule{
		"vote": {MaxRequests: 2, Window: time.Minute},
	})

	vote := func(identity, voteType string) (admitted bool) {
		if !limiter.Check(identity, "vote").Allowed {
			return false
		}
		table.upsert(7, identity, voteType, "")
		return true
	}

	// A votes up: 1 up, 0 down.
	if !vote("identity-a", model.VoteUp) {
		t.Fatal("A's first vote should be admitted")
	}
	if c := table.counts(7); c.Upvotes != 1 || c.Downvotes != 0 {
		t.Errorf("counts = %+v, want 1/0", c)
	}

	// A revotes down: 0 up, 1 down, previous reported.
	if !limiter.Check("identity-a", "vote").Allowed {
		t.Fatal("A's second vote should be admitted")
	}
	if prev := table.upsert(7, "identity-a", model.VoteDown, ""); prev != model.VoteUp {
		t.Errorf("previous = %q, want up", prev)
	}
	if c := table.counts(7); c.Upvotes != 0 || c.Downvotes != 1 {
		t.Errorf("counts = %+v, want 0/1", c)
	}

	// B votes up: 1 up, 1 down — independent identity, independent quota.
	if !vote("identity-b", model.VoteUp) {
		t.Fatal("B's vote should be admitted")
	}
	if c := table.counts(7); c.Upvotes != 1 || c.Downvotes != 1 {
		t.Errorf("counts = %+v, want 1/1", c)
	}

	// A's third vote inside the window is denied and never recorded.
	if vote("identity-a", model.VoteUp) {
		t.Fatal("A's third vote within the window should be denied")
	}
	if c := table.counts(7); c.Upvotes != 1 || c.Downvotes != 1 {
		t.Errorf("counts after denied vote = %+v, want unchanged 1/1", c)
	}
}
