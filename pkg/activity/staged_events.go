package activity

import (
	"strings"
	"time"
)

const (
	VerbStagedSwapped = "staged.swapped"
	VerbStagedReset   = "staged.reset"
	VerbSessionLoaded = "session.loaded"
)

// Summary mirrors the feature counts of a diff without importing it.
type Summary struct {
	Added    int
	Modified int
	Deleted  int
}

// EditInput carries what a session knows about one edit.
type EditInput struct {
	ActorID   string
	SessionID string
	Store     string
	Path      string
	Summary   Summary
	// Changed is the number of changed addresses after the edit.
	Changed    int
	Metadata   map[string]any
	OccurredAt time.Time
}

func BuildStagedSwappedEvent(input EditInput) Event {
	return buildEditEvent(VerbStagedSwapped, input)
}

func BuildStagedResetEvent(input EditInput) Event {
	return buildEditEvent(VerbStagedReset, input)
}

// BuildSessionLoadedEvent is keyed by the session id since a load touches
// every tree at once.
func BuildSessionLoadedEvent(input EditInput) Event {
	event := buildEditEvent(VerbSessionLoaded, input)
	event.ObjectType = "session"
	event.ObjectID = strings.TrimSpace(input.SessionID)
	return event
}

func buildEditEvent(verb string, input EditInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	path := strings.TrimSpace(input.Path)
	metadata["path"] = path
	if input.Store != "" {
		metadata["store"] = input.Store
	}
	if input.SessionID != "" {
		metadata["session_id"] = input.SessionID
	}
	metadata["added_count"] = input.Summary.Added
	metadata["modified_count"] = input.Summary.Modified
	metadata["deleted_count"] = input.Summary.Deleted
	metadata["changed_paths"] = input.Changed

	// The root address renders as the empty string.
	objectID := path
	if objectID == "" {
		objectID = "$"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: strings.TrimSpace(input.Store),
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
