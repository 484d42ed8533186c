package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength is the longest title a task may carry, in characters.
const MaxTitleLength = 100

// DateLayout is the calendar-date format used for start and due dates.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Statuses lists every task status in board order.
var Statuses = []Status{StatusTodo, StatusDoing, StatusDone}

// ParseStatus returns the status named by s, or a ValidationError.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", s)}
}

type Priority string

// PrioritySet is the closed set of priorities accepted by the board.
type PrioritySet []Priority

// DefaultPriorities is used when no priority set is configured.
var DefaultPriorities = PrioritySet{"Low", "Med", "High"}

// NewPrioritySet builds a set from raw names, dropping blanks and duplicates.
func NewPrioritySet(names []string) PrioritySet {
	set := PrioritySet{}
	for _, n := range names {
		p := Priority(strings.TrimSpace(n))
		if p == "" || set.Contains(p) {
			continue
		}
		set = append(set, p)
	}
	return set
}

func (s PrioritySet) Contains(p Priority) bool {
	for _, v := range s {
		if v == p {
			return true
		}
	}
	return false
}

// Parse returns the priority named by name, or a ValidationError.
func (s PrioritySet) Parse(name string) (Priority, error) {
	p := Priority(name)
	if !s.Contains(p) {
		return "", &ValidationError{Field: "priority", Message: fmt.Sprintf("invalid priority %q", name)}
	}
	return p, nil
}

// Task is one entry on the board. OwnerID is nil for tasks created without a session.
type Task struct {
	ID        int64      `json:"id"`
	OwnerID   *int64     `json:"owner_id,omitempty"`
	Title     string     `json:"title"`
	Detail    string     `json:"detail"`
	Priority  Priority   `json:"priority"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// OwnedBy reports whether the task has an owner equal to userID.
func (t Task) OwnedBy(userID *int64) bool {
	return t.OwnerID != nil && userID != nil && *t.OwnerID == *userID
}

// NormalizeTitle trims the title and checks it is non-empty and short enough.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", &ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	return title, nil
}

// ParseDate parses an optional calendar date. Blank input yields nil.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)}
	}
	return &d, nil
}

// FormatDate renders an optional date; nil yields "".
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// Scope selects whose tasks a listing covers.
type Scope int

const (
	ScopePersonal Scope = iota
	ScopeAll
)

// ParseScope maps the board's view_mode values. Only "personal" (or no value)
// narrows the listing to the caller; any other value shows every task.
func ParseScope(viewMode string) Scope {
	if viewMode == "" || viewMode == "personal" {
		return ScopePersonal
	}
	return ScopeAll
}

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "personal"
}

// TaskFilter is a store-level query. Nil fields do not restrict the result.
type TaskFilter struct {
	OwnerID  *int64
	Status   *Status
	Priority *Priority
}
