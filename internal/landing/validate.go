package landing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/catchcert/internal/logging"
)

// ValidationRequest is the body sent to the reference-data service.
type ValidationRequest struct {
	Landings                 []UploadedLanding `json:"landings"`
	Products                 []Product         `json:"products"`
	LandingLimitDaysInFuture int               `json:"landingLimitDaysInFuture"`
}

// ReferenceValidator annotates landings with errors and reference data.
type ReferenceValidator interface {
	ValidateLandings(ctx context.Context, req ValidationRequest) ([]UploadedLanding, error)
}

// FavouritesStore holds the products a user has saved as favourites.
type FavouritesStore interface {
	ReadFavouriteProducts(ctx context.Context, userID string) ([]Product, error)
	RemoveInvalidFavouriteProduct(ctx context.Context, userID, productID string) error
}

// DefaultCleanupTimeout bounds a single favourite removal.
const DefaultCleanupTimeout = 10 * time.Second

// Validator sends rows to the reference service and removes favourites that
// the service reports as no longer valid.
type Validator struct {
	ref            ReferenceValidator
	favourites     FavouritesStore
	cleanupTimeout time.Duration

	pending sync.WaitGroup
}

// NewValidator creates a Validator.
func NewValidator(ref ReferenceValidator, favourites FavouritesStore) *Validator {
	return &Validator{
		ref:            ref,
		favourites:     favourites,
		cleanupTimeout: DefaultCleanupTimeout,
	}
}

// Validate returns the rows as annotated by the reference service. Reference
// service errors are returned wrapped but otherwise untouched; there is no
// retry. Favourite cleanup runs detached and never affects the result.
func (v *Validator) Validate(ctx context.Context, p Principal, rows []UploadedLanding, limits Limits) ([]UploadedLanding, error) {
	favourites, err := v.favourites.ReadFavouriteProducts(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("read favourite products: %w", err)
	}
	if favourites == nil {
		favourites = []Product{}
	}
	if rows == nil {
		rows = []UploadedLanding{}
	}

	validated, err := v.ref.ValidateLandings(ctx, ValidationRequest{
		Landings:                 rows,
		Products:                 favourites,
		LandingLimitDaysInFuture: limits.LandingLimitDaysInFuture,
	})
	if err != nil {
		return nil, fmt.Errorf("validate landings: %w", err)
	}

	for i := range validated {
		if validated[i].Errors == nil {
			validated[i].Errors = []ErrorEntry{}
		}
	}

	v.removeInvalidFavourites(ctx, p.UserID, validated)
	return validated, nil
}

// removeInvalidFavourites schedules one detached removal per distinct product
// id flagged invalid-product.
func (v *Validator) removeInvalidFavourites(ctx context.Context, userID string, rows []UploadedLanding) {
	seen := make(map[string]bool)
	for _, row := range rows {
		if !row.HasError(InvalidProductKey) || row.ProductID == "" || seen[row.ProductID] {
			continue
		}
		seen[row.ProductID] = true

		productID := row.ProductID
		detached := context.WithoutCancel(ctx)
		v.pending.Add(1)
		go func() {
			defer v.pending.Done()
			cctx, cancel := context.WithTimeout(detached, v.cleanupTimeout)
			defer cancel()

			if err := v.favourites.RemoveInvalidFavouriteProduct(cctx, userID, productID); err != nil {
				logging.WithFields(detached, "user_id", userID, "product_id", productID).
					Warn("failed to remove invalid favourite product", "error", err)
			}
		}()
	}
}

// Wait blocks until all scheduled favourite removals have finished.
func (v *Validator) Wait() {
	v.pending.Wait()
}
