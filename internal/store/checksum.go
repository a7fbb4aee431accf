package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/rcliao/memindex/internal/model"
)

// Checksum hashes the content-relevant fields of a record: content, type,
// owner and update time. Strings are NFC-normalized first so equivalent
// Unicode spellings hash the same.
func Checksum(m *model.Memory) string {
	fields := []string{
		norm.NFC.String(m.Content),
		string(m.Type),
		norm.NFC.String(m.UserID),
		m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Validate recomputes the checksum and checks expiry, status and record
// invariants. It returns every violation found; an empty result means valid.
func (s *IndexedStore) Validate(e *model.Entry) []string {
	return validateEntry(e, s.clock.Now())
}

func validateEntry(e *model.Entry, now time.Time) []string {
	var errs []string
	if got := Checksum(&e.Memory); got != e.Checksum {
		errs = append(errs, fmt.Sprintf("checksum mismatch: stored %.12s, computed %.12s", e.Checksum, got))
	}
	if e.Status == model.StatusActive && e.ExpiredAt(now) {
		errs = append(errs, "entry is active but past its expiry")
	}
	switch e.Status {
	case model.StatusActive, model.StatusArchived, model.StatusDeleted, model.StatusExpired:
	default:
		errs = append(errs, fmt.Sprintf("unknown status %q", e.Status))
	}
	if e.Version < 1 {
		errs = append(errs, fmt.Sprintf("version %d is below 1", e.Version))
	}
	errs = append(errs, e.Memory.Check()...)
	return errs
}

// Verify validates the stored entry. On violations the entry is marked
// invalid, the violations are appended to its ValidationErrors and an error
// wrapping ErrIntegrityViolation is returned. Nothing is repaired.
func (s *IndexedStore) Verify(entryID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("verify %s: %w", entryID, ErrNotFound)
	}
	violations := validateEntry(e, s.clock.Now())
	if len(violations) == 0 {
		return nil, nil
	}
	s.markInvalidLocked(e, violations)
	return violations, fmt.Errorf("verify %s: %w", entryID, ErrIntegrityViolation)
}

func (s *IndexedStore) markInvalidLocked(e *model.Entry, violations []string) {
	e.IsValid = false
	e.ValidationErrors = append(e.ValidationErrors, violations...)
	s.log.Warn("entry failed validation",
		"entry", e.EntryID, "user", e.Memory.UserID, "violations", violations)
}
