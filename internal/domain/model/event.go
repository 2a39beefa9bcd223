package model

import "time"

// NoticeKind tags an outbound notice for the messaging gateway.
type NoticeKind string

const (
	NoticeVoteOpened      NoticeKind = "vote_opened"
	NoticeTallyUpdated    NoticeKind = "tally_updated"
	NoticeVotePassed      NoticeKind = "vote_passed"
	NoticeVoteFailed      NoticeKind = "vote_failed"
	NoticeChannelLocked   NoticeKind = "channel_locked"
	NoticeChannelRestored NoticeKind = "channel_restored"
	NoticeMapDecided      NoticeKind = "map_decided"
	NoticeMatchResolved   NoticeKind = "match_resolved"
)

// Notice is a request for the gateway to display or change something.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	MatchID   string     `json:"match_id"`
	ChannelID uint64     `json:"channel_id,omitempty"`
	Text      string     `json:"text,omitempty"`
	Title     string     `json:"title,omitempty"`
	Proposal  string     `json:"proposal,omitempty"`
	For       int        `json:"for,omitempty"`
	Against   int        `json:"against,omitempty"`
	Total     int        `json:"total,omitempty"`
	Required  int        `json:"required,omitempty"`
	At        time.Time  `json:"at"`
}

// FlagUpdate is a write-behind upsert of a player's flags.
type FlagUpdate struct {
	PlayerID   uint64
	Active     bool
	Registered bool
}

// JobKind tags what a Job carries.
type JobKind string

const (
	JobNotice     JobKind = "notice"
	JobFlagUpdate JobKind = "flag_update"
)

// Job is one unit of fire-and-forget outbound work.
type Job struct {
	Kind   JobKind
	Notice Notice
	Flags  FlagUpdate
}

// NoticeJob wraps n in a Job.
func NoticeJob(n Notice) Job { //nolint:gocritic // hugeParam: jobs travel by value through channels
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	return Job{Kind: JobNotice, Notice: n}
}

// FlagJob wraps f in a Job.
func FlagJob(f FlagUpdate) Job {
	return Job{Kind: JobFlagUpdate, Flags: f}
}
