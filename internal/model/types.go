package model

import (
	"fmt"
	"time"
)

// ItemKind discriminates the schedulable item variants.
type ItemKind string

const (
	KindTask  ItemKind = "task"
	KindStory ItemKind = "story"
	KindChore ItemKind = "chore"
)

// Persona tags a block as belonging to personal or work time.
type Persona string

const (
	PersonaPersonal Persona = "personal"
	PersonaWork     Persona = "work"
)

// DayKeyLayout is the canonical YYYY-MM-DD form used for plan day keys.
const DayKeyLayout = "2006-01-02"

// DayKey renders t as a day key in t's location.
func DayKey(t time.Time) string { return t.Format(DayKeyLayout) }

// PlanID is the owner+day composite identifying one daily plan.
func PlanID(ownerID, dayKey string) string { return fmt.Sprintf("%s_%s", ownerID, dayKey) }

// Item is a Task, Story, or Chore eligible for scheduling.
// Status carries the raw stored value; legacy shapes (numbers, free-text
// strings) are canonicalized at ingestion via Canonical, never in consumers.
type Item struct {
	ItemID           string     `json:"itemId"`
	Kind             ItemKind   `json:"kind"`
	OwnerID          string     `json:"ownerId"`
	Title            string     `json:"title"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
	Priority         int        `json:"priority"` // smaller = higher
	ThemeID          *string    `json:"themeId,omitempty"`
	RRule            *string    `json:"rrule,omitempty"`
	DTStart          *time.Time `json:"dtstart,omitempty"`
	NextDue          *time.Time `json:"nextDue,omitempty"`
	Status           any        `json:"status"` // raw; may be legacy string or number
	CreationTime     time.Time  `json:"creationTime"`
	UpdateTime       time.Time  `json:"updateTime"`
}

// IsRecurring reports whether the item carries a recurrence rule.
func (i *Item) IsRecurring() bool { return i.RRule != nil && *i.RRule != "" }

// Theme returns the item's theme id or "" when unthemed.
func (i *Item) Theme() string {
	if i.ThemeID == nil {
		return ""
	}
	return *i.ThemeID
}

// Block is a bounded time interval [Start, End) for one owner, tagged with a
// persona and optional theme. DailyCapacityMinutes bounds the total estimated
// minutes assigned into any block sharing this block's (owner, theme, day)
// identity; zero means "use the wall-clock span".
type Block struct {
	BlockID              string    `json:"blockId"`
	OwnerID              string    `json:"ownerId"`
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	Persona              Persona   `json:"persona"`
	ThemeID              *string   `json:"themeId,omitempty"`
	DailyCapacityMinutes int       `json:"dailyCapacityMinutes,omitempty"`
}

// Theme returns the block's theme id or "" when unthemed.
func (b *Block) Theme() string {
	if b.ThemeID == nil {
		return ""
	}
	return *b.ThemeID
}

// CapacityMinutes resolves the effective capacity ceiling for the block.
func (b *Block) CapacityMinutes() int {
	if b.DailyCapacityMinutes > 0 {
		return b.DailyCapacityMinutes
	}
	return int(b.End.Sub(b.Start) / time.Minute)
}

// AssignmentStatus enumerates PlanAssignment lifecycle states.
type AssignmentStatus string

const (
	AssignmentPlanned    AssignmentStatus = "planned"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentDone       AssignmentStatus = "done"
	AssignmentDeferred   AssignmentStatus = "deferred"
	AssignmentSkipped    AssignmentStatus = "skipped"
)

// Terminal reports whether no further automatic transition may leave s.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentDone || s == AssignmentSkipped
}

// ExternalLinks carries linkage populated by the calendar/reminder sync
// service. The planner core only preserves these values, never originates
// them.
type ExternalLinks struct {
	GoogleEventID string `json:"googleEventId,omitempty"`
	IOSReminderID string `json:"iosReminderId,omitempty"`
}

// PlanAssignment binds one Item to one scheduling day for one owner. The
// deterministic AssignmentID (one per owner/day/item triple) makes re-planning
// an upsert that can never duplicate.
type PlanAssignment struct {
	AssignmentID     string           `json:"assignmentId"`
	PlanID           string           `json:"planId"`
	DayKey           string           `json:"dayKey"`
	OwnerID          string           `json:"ownerId"`
	ItemKind         ItemKind         `json:"itemKind"`
	ItemID           string           `json:"itemId"`
	Title            string           `json:"title"`
	EstimatedMinutes int              `json:"estimatedMinutes"`
	BlockID          *string          `json:"blockId,omitempty"`
	Start            *time.Time       `json:"start,omitempty"`
	End              *time.Time       `json:"end,omitempty"`
	Status           AssignmentStatus `json:"status"`
	External         *ExternalLinks   `json:"external,omitempty"`
	CreationTime     time.Time        `json:"creationTime"`
	UpdateTime       time.Time        `json:"updateTime"`
}

// IndexEntry is the denormalized per-sprint projection of an Item, keyed by
// the item's identifier. An entry whose source item no longer exists is an
// orphan and is removed by reconciliation.
type IndexEntry struct {
	ItemID       string    `json:"itemId"`
	OwnerUID     string    `json:"ownerUid"`
	Kind         ItemKind  `json:"kind"`
	Title        string    `json:"title"`
	Status       string    `json:"status"` // canonical code, or "" when unmapped
	Recurrence   string    `json:"recurrence,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
