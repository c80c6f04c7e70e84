package ordering

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrInvalidPermutation matches every *PermutationError via errors.Is.
var ErrInvalidPermutation = errors.New("invalid permutation")

// PermutationError describes how a caller-supplied id list differs from the
// authoritative membership of a parent.
type PermutationError struct {
	Missing   []uuid.UUID `json:"missing,omitempty"`
	Extra     []uuid.UUID `json:"extra,omitempty"`
	Duplicate []uuid.UUID `json:"duplicate,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

func (e *PermutationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid permutation: %s", e.Reason)
	}
	return fmt.Sprintf("invalid permutation: %d missing, %d extra, %d duplicate",
		len(e.Missing), len(e.Extra), len(e.Duplicate))
}

func (e *PermutationError) Is(target error) bool {
	return target == ErrInvalidPermutation
}

// ValidatePermutation checks that got contains every id of want exactly once and
// nothing else.
func ValidatePermutation(want, got []uuid.UUID) error {
	expected := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		expected[id] = true
	}

	seen := make(map[uuid.UUID]int, len(got))
	var extra, duplicate []uuid.UUID
	for _, id := range got {
		seen[id]++
		switch {
		case seen[id] == 2:
			duplicate = append(duplicate, id)
		case seen[id] == 1 && !expected[id]:
			extra = append(extra, id)
		}
	}

	var missing []uuid.UUID
	for _, id := range want {
		if seen[id] == 0 {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 && len(extra) == 0 && len(duplicate) == 0 && len(got) == len(want) {
		return nil
	}

	return &PermutationError{
		Missing:   sortIDs(missing),
		Extra:     sortIDs(extra),
		Duplicate: sortIDs(duplicate),
	}
}

func sortIDs(ids []uuid.UUID) []uuid.UUID {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
