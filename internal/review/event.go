package review

// EventType names a review event.
type EventType string

const (
	ChangeAccepted  EventType = "change-accepted"
	ChangeRejected  EventType = "change-rejected"
	AllAccepted     EventType = "all-accepted"
	AllRejected     EventType = "all-rejected"
	HunkToggled     EventType = "hunk-toggled"
	ReviewComplete  EventType = "review-complete"
	ReviewCancelled EventType = "review-cancelled"
)

// Event is published by a Session after each state transition. Fields that do not apply to Type are zero.
type Event struct {
	Type       EventType
	DocumentID string
	SessionID  string

	ChangeID int  // change-accepted, change-rejected
	HunkID   int  // hunk-toggled
	Applied  bool // hunk-toggled: the hunk's new Applied value
	Count    int  // all-accepted, all-rejected: number of changes moved

	RemainingCount int // pending changes after the transition

	Result *Result // review-complete, review-cancelled
}
