package landing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DraftStore persists the export payload owned by (user, document number).
// Get returns nil, nil when no draft exists yet.
type DraftStore interface {
	Get(ctx context.Context, p Principal, documentNumber string) (*ExportPayload, error)
	Save(ctx context.Context, p Principal, documentNumber string, payload *ExportPayload) error
}

// Consolidator merges validated rows into the draft, grouping landings under
// matching products.
type Consolidator struct {
	validator *Validator
	drafts    DraftStore
	ids       IDSource
}

// NewConsolidator creates a Consolidator. A nil IDSource uses RandomIDs.
func NewConsolidator(v *Validator, drafts DraftStore, ids IDSource) *Consolidator {
	if ids == nil {
		ids = RandomIDs{}
	}
	return &Consolidator{validator: v, drafts: drafts, ids: ids}
}

// SaveLandingRows re-validates rows, appends every valid one to the draft
// and returns all rows, valid and invalid, in input order. Nothing is written
// when there are no valid rows or the document would exceed the landing limit.
//
// Saving the same rows twice adds the landings twice.
func (c *Consolidator) SaveLandingRows(ctx context.Context, p Principal, documentNumber string, rows []UploadedLanding, limits Limits) ([]UploadedLanding, error) {
	validated, err := c.validator.Validate(ctx, p, rows, limits)
	if err != nil {
		return nil, err
	}

	var valid []UploadedLanding
	for _, row := range validated {
		if row.Valid() {
			if row.Product == nil {
				return nil, fmt.Errorf("row %d: %w", row.RowNumber, ErrIncompleteValidation)
			}
			valid = append(valid, row)
		}
	}
	if len(valid) == 0 {
		return nil, &Error{Kind: KindNoValidRows}
	}

	payload, err := c.drafts.Get(ctx, p, documentNumber)
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", documentNumber, err)
	}
	if payload == nil {
		payload = &ExportPayload{Items: []ProductLanding{}}
	}

	if limits.Exceeds(payload.LandingCount() + len(valid)) {
		return nil, &Error{Kind: KindLandingLimitExceeded, Limit: limits.MaxLandings}
	}

	for _, row := range valid {
		status, err := c.landingStatus(documentNumber, row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrIncompleteValidation, row.RowNumber, err)
		}
		c.addLanding(payload, documentNumber, *row.Product, Landing{Model: status})
	}

	if err := c.drafts.Save(ctx, p, documentNumber, payload); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", documentNumber, err)
	}

	return validated, nil
}

// addLanding appends to the item whose product has the same identity,
// including items minted earlier in this batch, or mints a new item.
func (c *Consolidator) addLanding(payload *ExportPayload, documentNumber string, product Product, landing Landing) {
	for i := range payload.Items {
		if payload.Items[i].Product.SameIdentity(product) {
			payload.Items[i].Landings = append(payload.Items[i].Landings, landing)
			return
		}
	}

	product.ID = c.ids.ProductID(documentNumber)
	payload.Items = append(payload.Items, ProductLanding{
		Product:  product,
		Landings: []Landing{landing},
	})
}

func (c *Consolidator) landingStatus(documentNumber string, row UploadedLanding) (LandingStatus, error) {
	dateLanded, err := ToISODate(row.LandingDate)
	if err != nil {
		return LandingStatus{}, fmt.Errorf("landing date: %w", err)
	}
	startDate, err := ToISODate(row.StartDate)
	if err != nil {
		return LandingStatus{}, fmt.Errorf("start date: %w", err)
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(row.ExportWeight), 64)
	if err != nil {
		return LandingStatus{}, fmt.Errorf("export weight %q: %w", row.ExportWeight, err)
	}

	status := LandingStatus{
		ID:                     c.ids.LandingID(documentNumber),
		DateLanded:             dateLanded,
		StartDate:              startDate,
		ExportWeight:           weight,
		FaoArea:                row.FaoArea,
		GearCategory:           row.GearCategory,
		Rfmo:                   row.RfmoName,
		ExclusiveEconomicZones: row.EezData,
		HighSeasArea:           row.HighSeasArea,
	}
	if row.Vessel != nil {
		status.Vessel = *row.Vessel
	}
	if row.GearCode != "" {
		status.GearType = fmt.Sprintf("%s (%s)", row.GearName, row.GearCode)
	}
	return status, nil
}
