package grants

import (
	"cmp"
	"slices"

	"github.com/alxnderia/ingestion/pkg/model"
)

// Dedupe keeps one grant per natural key: the smallest under Compare. The
// result is ordered by key.
func Dedupe(facts []model.Grant) []model.Grant {
	sorted := slices.Clone(facts)
	slices.SortFunc(sorted, Compare)

	out := make([]model.Grant, 0, len(sorted))
	for i, g := range sorted {
		if i > 0 && sorted[i-1].Key() == g.Key() {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Compare orders grants by natural key, then by every remaining field. A
// nil field sorts before any string.
func Compare(a, b model.Grant) int {
	return cmp.Or(
		cmp.Compare(a.Provider, b.Provider),
		cmp.Compare(a.ResourceType, b.ResourceType),
		cmp.Compare(a.ResourceID, b.ResourceID),
		cmp.Compare(a.SubjectType, b.SubjectType),
		cmp.Compare(a.SubjectProviderID, b.SubjectProviderID),
		cmp.Compare(a.RoleOrPermission, b.RoleOrPermission),
		cmp.Compare(a.AccessPath, b.AccessPath),
		comparePtr(a.ResourceDisplayName, b.ResourceDisplayName),
		comparePtr(a.SubjectDisplayName, b.SubjectDisplayName),
		comparePtr(a.CanonicalUserID, b.CanonicalUserID),
		comparePtr(a.ViaGroupID, b.ViaGroupID),
		comparePtr(a.ViaGroupDisplayName, b.ViaGroupDisplayName),
	)
}

func comparePtr(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}
