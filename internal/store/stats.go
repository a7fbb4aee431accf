package store

import (
	"sort"

	"github.com/rcliao/memindex/internal/model"
)

// Stats holds store statistics.
type Stats struct {
	TotalEntries    int         `json:"total_entries"`
	ActiveEntries   int         `json:"active_entries"`
	ArchivedEntries int         `json:"archived_entries"`
	DeletedEntries  int         `json:"deleted_entries"`
	ExpiredEntries  int         `json:"expired_entries"`
	InvalidEntries  int         `json:"invalid_entries"`
	Users           []UserStats `json:"users"`
	Indexes         IndexStats  `json:"indexes"`
}

// UserStats holds per-user counts.
type UserStats struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
	Active int    `json:"active"`
}

// IndexStats holds the number of distinct keys per index.
type IndexStats struct {
	Users    int `json:"users"`
	Types    int `json:"types"`
	Tags     int `json:"tags"`
	Keywords int `json:"keywords"`
	Records  int `json:"records"`
}

// Stats returns store statistics.
func (s *IndexedStore) Stats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{TotalEntries: len(s.entries)}
	for _, e := range s.entries {
		switch e.Status {
		case model.StatusActive:
			st.ActiveEntries++
		case model.StatusArchived:
			st.ArchivedEntries++
		case model.StatusDeleted:
			st.DeletedEntries++
		case model.StatusExpired:
			st.ExpiredEntries++
		}
		if !e.IsValid {
			st.InvalidEntries++
		}
	}

	for user, ids := range s.idx.byUser {
		us := UserStats{UserID: user, Count: len(ids)}
		for id := range ids {
			if s.entries[id].Status == model.StatusActive {
				us.Active++
			}
		}
		st.Users = append(st.Users, us)
	}
	sort.Slice(st.Users, func(i, j int) bool {
		if st.Users[i].Count != st.Users[j].Count {
			return st.Users[i].Count > st.Users[j].Count
		}
		return st.Users[i].UserID < st.Users[j].UserID
	})

	st.Indexes = IndexStats{
		Users:    len(s.idx.byUser),
		Types:    len(s.idx.byType),
		Tags:     len(s.idx.byTag),
		Keywords: len(s.idx.byKeyword),
		Records:  len(s.idx.byRecord),
	}
	return st
}
