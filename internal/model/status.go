package model

import (
	"strings"
)

// Status is a canonical status code for one of the item kind enumerations.
type Status string

// Task (and chore) canonical statuses.
const (
	TaskTodo       Status = "todo"
	TaskInProgress Status = "in_progress"
	TaskDone       Status = "done"
	TaskBlocked    Status = "blocked"
)

// Story canonical statuses.
const (
	StoryBacklog    Status = "backlog"
	StoryInProgress Status = "in_progress"
	StoryDone       Status = "done"
)

// taskNumeric and storyNumeric map legacy integer codes, in their historical
// order, onto the canonical enumerations.
var (
	taskNumeric  = []Status{TaskTodo, TaskInProgress, TaskDone, TaskBlocked}
	storyNumeric = []Status{StoryBacklog, StoryInProgress, StoryDone}
)

// Synonyms are matched after case-folding and separator normalization, so
// "In Progress", "in-progress" and "IN_PROGRESS" all resolve identically.
var taskSynonyms = map[string]Status{
	"todo":        TaskTodo,
	"to_do":       TaskTodo,
	"open":        TaskTodo,
	"pending":     TaskTodo,
	"new":         TaskTodo,
	"not_started": TaskTodo,
	"in_progress": TaskInProgress,
	"inprogress":  TaskInProgress,
	"wip":         TaskInProgress,
	"active":      TaskInProgress,
	"doing":       TaskInProgress,
	"started":     TaskInProgress,
	"done":        TaskDone,
	"complete":    TaskDone,
	"completed":   TaskDone,
	"closed":      TaskDone,
	"finished":    TaskDone,
	"blocked":     TaskBlocked,
	"stuck":       TaskBlocked,
	"waiting":     TaskBlocked,
	"on_hold":     TaskBlocked,
	"hold":        TaskBlocked,
}

var storySynonyms = map[string]Status{
	"backlog":     StoryBacklog,
	"icebox":      StoryBacklog,
	"todo":        StoryBacklog,
	"open":        StoryBacklog,
	"new":         StoryBacklog,
	"in_progress": StoryInProgress,
	"inprogress":  StoryInProgress,
	"wip":         StoryInProgress,
	"active":      StoryInProgress,
	"doing":       StoryInProgress,
	"started":     StoryInProgress,
	"done":        StoryDone,
	"complete":    StoryDone,
	"completed":   StoryDone,
	"closed":      StoryDone,
	"finished":    StoryDone,
}

func kindTables(kind ItemKind) ([]Status, map[string]Status) {
	switch kind {
	case KindStory:
		return storyNumeric, storySynonyms
	default:
		// Chores share the task lifecycle.
		return taskNumeric, taskSynonyms
	}
}

// foldStatusString case-folds raw and converts separator runs (spaces,
// hyphens, dots) to single underscores.
func foldStatusString(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, sep := range []string{" ", "-", "."} {
		s = strings.ReplaceAll(s, sep, "_")
	}
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// Canonical maps a raw stored status value onto kind's canonical enumeration.
// Canonical codes pass through unchanged. Legacy integer codes map by
// position; out-of-range numbers report unmapped. Legacy strings match a
// per-kind synonym table after folding. The second return is false when no
// mapping exists; callers must leave the stored field untouched in that case
// rather than guess a default.
func Canonical(kind ItemKind, raw any) (Status, bool) {
	numeric, synonyms := kindTables(kind)

	switch v := raw.(type) {
	case Status:
		return Canonical(kind, string(v))
	case string:
		folded := foldStatusString(v)
		if folded == "" {
			return "", false
		}
		if st, ok := synonyms[folded]; ok {
			return st, true
		}
		return "", false
	case int:
		return numericStatus(numeric, v)
	case int32:
		return numericStatus(numeric, int(v))
	case int64:
		return numericStatus(numeric, int(v))
	case float64:
		// JSON decoding yields float64 for legacy integer codes.
		if v != float64(int(v)) {
			return "", false
		}
		return numericStatus(numeric, int(v))
	default:
		return "", false
	}
}

func numericStatus(table []Status, code int) (Status, bool) {
	if code < 0 || code >= len(table) {
		return "", false
	}
	return table[code], true
}
