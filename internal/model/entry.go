package model

import "time"

// Status is the lifecycle state of an Entry.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
	StatusExpired  Status = "expired"
)

// transitions lists the allowed status changes. Deleted and expired are terminal.
var transitions = map[Status][]Status{
	StatusActive:   {StatusArchived, StatusExpired, StatusDeleted},
	StatusArchived: {StatusActive, StatusDeleted},
}

// CanTransition reports whether an entry in status s may move to status to.
func (s Status) CanTransition(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// AccessPattern records the kind of the most recent access to an entry.
type AccessPattern string

const (
	AccessRead   AccessPattern = "read"
	AccessWrite  AccessPattern = "write"
	AccessUpdate AccessPattern = "update"
	AccessDelete AccessPattern = "delete"
)

// AccessInfo tracks how an entry has been used.
type AccessInfo struct {
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	Count          int           `json:"count"`
	Pattern        AccessPattern `json:"pattern"`
}

// Entry is the storage wrapper around a Memory. It carries lifecycle,
// integrity, cache and access metadata.
type Entry struct {
	EntryID          string   `json:"entry_id"`
	Memory           Memory   `json:"memory"`
	Status           Status   `json:"status"`
	Version          int      `json:"version"`
	Checksum         string   `json:"checksum"`
	IsValid          bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors,omitempty"`

	CacheKey    string     `json:"cache_key,omitempty"`
	CacheExpiry *time.Time `json:"cache_expiry,omitempty"`
	CacheHits   int        `json:"cache_hits"`

	Access AccessInfo `json:"access"`

	// Weak references: ids only, never assumed to resolve.
	ParentEntryID  string   `json:"parent_entry_id,omitempty"`
	ChildEntryIDs  []string `json:"child_entry_ids,omitempty"`
	LinkedEntryIDs []string `json:"linked_entry_ids,omitempty"`
}

// UserID returns the owner of the wrapped record.
func (e *Entry) UserID() string { return e.Memory.UserID }

// ExpiredAt reports whether the entry's effective expiry has passed at now.
// An explicit ExpiresAt and the TTL-derived CacheExpiry both count.
func (e *Entry) ExpiredAt(now time.Time) bool {
	if e.Memory.ExpiresAt != nil && !now.Before(*e.Memory.ExpiresAt) {
		return true
	}
	if e.CacheExpiry != nil && !now.Before(*e.CacheExpiry) {
		return true
	}
	return false
}

// Visible reports whether ordinary reads may return the entry.
func (e *Entry) Visible(now time.Time, includeArchived bool) bool {
	switch e.Status {
	case StatusActive:
	case StatusArchived:
		if !includeArchived {
			return false
		}
	default:
		return false
	}
	return !e.ExpiredAt(now)
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Memory = e.Memory.Clone()
	c.ValidationErrors = cloneStrings(e.ValidationErrors)
	c.CacheExpiry = cloneTime(e.CacheExpiry)
	c.ChildEntryIDs = cloneStrings(e.ChildEntryIDs)
	c.LinkedEntryIDs = cloneStrings(e.LinkedEntryIDs)
	return &c
}
