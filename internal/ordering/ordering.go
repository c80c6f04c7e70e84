// Package ordering computes dense position assignments for sibling collections.
//
// Every function here is pure: callers pass a snapshot of the current children of a
// parent (read inside the same transaction that will write the result) and get back
// the positions to persist. Nothing in this package touches storage.
package ordering

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Member is a child row as currently stored under its parent.
type Member struct {
	ID       uuid.UUID
	Position int
}

// Assignment is the position a child must have once the operation commits.
type Assignment struct {
	ID       uuid.UUID
	Position int
}

// MovePlan holds the assignments for both parents touched by a cross-parent move.
type MovePlan struct {
	MovedID uuid.UUID
	Dest    []Assignment
	Source  []Assignment
}

// Sorted returns a copy of members ordered by position, then id.
func Sorted(members []Member) []Member {
	out := make([]Member, len(members))
	copy(out, members)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// IDs returns the member ids in sorted order.
func IDs(members []Member) []uuid.UUID {
	sorted := Sorted(members)
	ids := make([]uuid.UUID, len(sorted))
	for i, m := range sorted {
		ids[i] = m.ID
	}
	return ids
}

// Append returns the position of a child added to the end of members.
func Append(members []Member) int {
	return len(members)
}

// InsertAt places childID at index, shifting everything at or after it up by one.
// The index is clamped into [0, len(members)]. It returns the clamped index and the
// full assignment list including the new child.
func InsertAt(members []Member, childID uuid.UUID, index int) (int, []Assignment) {
	ids := IDs(members)
	index = clamp(index, 0, len(ids))

	ordered := make([]uuid.UUID, 0, len(ids)+1)
	ordered = append(ordered, ids[:index]...)
	ordered = append(ordered, childID)
	ordered = append(ordered, ids[index:]...)
	return index, sequence(ordered)
}

// Reorder validates orderedIDs as an exact permutation of members and assigns
// orderedIDs[i] the position i.
func Reorder(members []Member, orderedIDs []uuid.UUID) ([]Assignment, error) {
	if err := ValidatePermutation(IDs(members), orderedIDs); err != nil {
		return nil, err
	}
	return sequence(orderedIDs), nil
}

// MoveAcrossParent moves movedID from source into dest. destOrderedIDs must be a
// permutation of the destination's children plus movedID. The source parent is
// compacted in its previous relative order.
func MoveAcrossParent(source, dest []Member, destOrderedIDs []uuid.UUID, movedID uuid.UUID) (*MovePlan, error) {
	if !contains(source, movedID) {
		return nil, &PermutationError{Missing: []uuid.UUID{movedID}, Reason: "moved child is not in the source parent"}
	}
	if contains(dest, movedID) {
		return nil, &PermutationError{Duplicate: []uuid.UUID{movedID}, Reason: "moved child is already in the destination parent"}
	}

	expected := append(IDs(dest), movedID)
	if err := ValidatePermutation(expected, destOrderedIDs); err != nil {
		return nil, err
	}

	return &MovePlan{
		MovedID: movedID,
		Dest:    sequence(destOrderedIDs),
		Source:  Remove(source, movedID),
	}, nil
}

// MoveToIndex moves movedID from source into dest at index (clamped).
func MoveToIndex(source, dest []Member, movedID uuid.UUID, index int) (*MovePlan, error) {
	if !contains(source, movedID) {
		return nil, &PermutationError{Missing: []uuid.UUID{movedID}, Reason: "moved child is not in the source parent"}
	}
	if contains(dest, movedID) {
		return nil, &PermutationError{Duplicate: []uuid.UUID{movedID}, Reason: "moved child is already in the destination parent"}
	}

	_, destAssignments := InsertAt(dest, movedID, index)
	return &MovePlan{
		MovedID: movedID,
		Dest:    destAssignments,
		Source:  Remove(source, movedID),
	}, nil
}

// MoveWithin repositions id inside its own parent at index (clamped).
func MoveWithin(members []Member, id uuid.UUID, index int) ([]Assignment, error) {
	if !contains(members, id) {
		return nil, &PermutationError{Missing: []uuid.UUID{id}, Reason: "child is not in the parent"}
	}
	remaining := make([]Member, 0, len(members)-1)
	for _, m := range members {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	_, assignments := InsertAt(remaining, id, index)
	return assignments, nil
}

// Remove drops id from members and closes the gap. Members that were not present
// are ignored, so deleting an already-deleted child is a no-op reindex.
func Remove(members []Member, id uuid.UUID) []Assignment {
	ids := IDs(members)
	kept := ids[:0:0]
	for _, other := range ids {
		if other != id {
			kept = append(kept, other)
		}
	}
	return sequence(kept)
}

// Normalize rewrites members to 0..n-1 keeping their current relative order.
func Normalize(members []Member) []Assignment {
	return sequence(IDs(members))
}

// IsDense reports whether member positions are exactly {0..n-1}.
func IsDense(members []Member) bool {
	for i, m := range Sorted(members) {
		if m.Position != i {
			return false
		}
	}
	return true
}

// Changed returns the assignments whose position differs from the stored one.
// Children that are not in members (new or moved in) are always included.
func Changed(members []Member, assignments []Assignment) []Assignment {
	current := make(map[uuid.UUID]int, len(members))
	for _, m := range members {
		current[m.ID] = m.Position
	}
	out := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if pos, ok := current[a.ID]; ok && pos == a.Position {
			continue
		}
		out = append(out, a)
	}
	return out
}

func sequence(ids []uuid.UUID) []Assignment {
	out := make([]Assignment, len(ids))
	for i, id := range ids {
		out[i] = Assignment{ID: id, Position: i}
	}
	return out
}

func contains(members []Member, id uuid.UUID) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
