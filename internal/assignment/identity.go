// Package assignment derives deterministic plan assignment identities and
// governs legal lifecycle transitions so that re-planning is idempotent.
package assignment

import (
	"github.com/google/uuid"

	"github.com/lodestone-app/lodestone/internal/model"
)

// idNamespace is the fixed namespace for assignment identifiers. It must
// never change: the same (owner, day, item) triple has to yield the same
// identifier across deployments for upserts to converge.
var idNamespace = uuid.MustParse("9b2f6a4e-1d35-4c78-8c0a-5e4f7b6d2a91")

// ID derives the deterministic assignment identifier for one owner, day key,
// and item. Identical triples always produce the same identifier; the NUL
// separators keep distinct triples from colliding via concatenation.
func ID(ownerID, dayKey, itemID string) string {
	payload := make([]byte, 0, len(ownerID)+len(dayKey)+len(itemID)+2)
	payload = append(payload, ownerID...)
	payload = append(payload, 0)
	payload = append(payload, dayKey...)
	payload = append(payload, 0)
	payload = append(payload, itemID...)
	return uuid.NewSHA1(idNamespace, payload).String()
}

// NewDraft builds an unpersisted assignment draft for item on the given day.
// Status, block binding, and concrete times are the allocator's to fill.
func NewDraft(ownerID, dayKey string, item *model.Item) model.PlanAssignment {
	return model.PlanAssignment{
		AssignmentID:     ID(ownerID, dayKey, item.ItemID),
		PlanID:           model.PlanID(ownerID, dayKey),
		DayKey:           dayKey,
		OwnerID:          ownerID,
		ItemKind:         item.Kind,
		ItemID:           item.ItemID,
		Title:            item.Title,
		EstimatedMinutes: item.EstimatedMinutes,
	}
}
