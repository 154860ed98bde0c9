package pricesheet

import (
	"context"
	"errors"

	applog "platecost/internal/log"
	"platecost/internal/store"
	"platecost/models"
)

// Summary counts what an import did.
type Summary struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors,omitempty"`
}

// Import upserts rows through s in one transaction. A row whose (name, source)
// already exists updates that ingredient's quantity, unit, price and category;
// dish totals that used the old price are left as they were. Row failures are
// collected; any other error rolls the whole sheet back.
func Import(ctx context.Context, s *store.Store, rows []Row) (Summary, error) {
	var summary Summary
	err := s.Transaction(ctx, func(tx *store.Store) error {
		summary = Summary{}
		for _, row := range rows {
			if err := upsertRow(ctx, tx, row, &summary); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "price sheet import rolled back", "error", err)
		return Summary{}, err
	}

	applog.Info(ctx, "price sheet imported", "created", summary.Created, "updated", summary.Updated, "errors", len(summary.Errors))
	return summary, nil
}

func upsertRow(ctx context.Context, s *store.Store, row Row, summary *Summary) error {
	existing, err := s.Ingredients.Lookup(ctx, row.Name, row.Source)
	switch {
	case err == nil:
		_, err = s.Ingredients.Update(ctx, existing.ID, patchFor(row))
		if err == nil {
			summary.Updated++
			return nil
		}
	case errors.Is(err, store.ErrNotFound):
		_, err = s.Ingredients.Create(ctx, row.Payload())
		if err == nil {
			summary.Created++
			return nil
		}
	default:
		return err
	}

	if !rowLevel(err) {
		return err
	}
	summary.Errors = append(summary.Errors, RowError{Line: row.Line, Err: err.Error()})
	return nil
}

func patchFor(row Row) models.IngredientPatch {
	quantity := row.Quantity
	unit := row.Unit
	price := row.Price
	patch := models.IngredientPatch{
		Quantity: &quantity,
		Unit:     &unit,
		Price:    &price,
	}
	if row.Category != "" {
		category := row.Category
		patch.Category = &category
	}
	return patch
}

func rowLevel(err error) bool {
	return models.IsValidation(err) || errors.Is(err, store.ErrNotFound)
}
