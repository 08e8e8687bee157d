package serials

import "context"

// Tx is the set of store operations available inside one unit of work.
type Tx interface {
	LineItemQuantity(ctx context.Context, lineItemID string) (int, error)
	FindConflicts(ctx context.Context, values []string, excludeLineItemID string) ([]Conflict, error)
	ListForUpdate(ctx context.Context, lineItemID string) ([]SerialNumber, error)
	UpdateValue(ctx context.Context, id, value string) error
	Create(ctx context.Context, lineItemID string, unitIndex int, value string) error
	Delete(ctx context.Context, id string) error
}

// Store runs a function within one transaction; a returned error rolls the
// whole unit back.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Service struct {
	Store Store
}

// Save validates and writes a full serial submission for one line item.
// Validation, the global uniqueness check, and the positional writes all run
// inside a single transaction so two concurrent submissions of the same
// value cannot both pass the check and land.
//
// Returns nil on success. Failure modes: ErrLineItemNotFound, a
// *ValidationError with every violation, or a *ConflictError naming each
// clashing serial and its owning order. Nothing is written on failure.
func (s *Service) Save(ctx context.Context, lineItemID string, values []string) error {
	trimmed := Normalize(values)

	return s.Store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		quantity, err := tx.LineItemQuantity(ctx, lineItemID)
		if err != nil {
			return err
		}

		if err := Validate(trimmed, quantity); err != nil {
			return err
		}

		conflicts, err := tx.FindConflicts(ctx, trimmed, lineItemID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		existing, err := tx.ListForUpdate(ctx, lineItemID)
		if err != nil {
			return err
		}

		plan := BuildPlan(existing, trimmed)
		for _, u := range plan.Updates {
			if err := tx.UpdateValue(ctx, u.ID, u.Value); err != nil {
				return err
			}
		}
		for _, c := range plan.Creates {
			if err := tx.Create(ctx, lineItemID, c.UnitIndex, c.Value); err != nil {
				return err
			}
		}
		for _, id := range plan.Deletes {
			if err := tx.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}
