package landing

import (
	"context"
	"fmt"
	"sync"
)

// fakeReference marks rows via annotate, or returns them untouched.
type fakeReference struct {
	mu       sync.Mutex
	calls    int
	last     ValidationRequest
	err      error
	annotate func(UploadedLanding) UploadedLanding
}

func (f *fakeReference) ValidateLandings(_ context.Context, req ValidationRequest) ([]UploadedLanding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	out := make([]UploadedLanding, len(req.Landings))
	for i, row := range req.Landings {
		if f.annotate != nil {
			row = f.annotate(row)
		}
		out[i] = row
	}
	return out, nil
}

type fakeFavourites struct {
	mu        sync.Mutex
	products  []Product
	readErr   error
	removeErr error
	removed   []string
}

func (f *fakeFavourites) ReadFavouriteProducts(context.Context, string) ([]Product, error) {
	return f.products, f.readErr
}

func (f *fakeFavourites) RemoveInvalidFavouriteProduct(_ context.Context, _ string, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, productID)
	return f.removeErr
}

type fakeDrafts struct {
	payload *ExportPayload
	getErr  error
	saves   int
	saved   *ExportPayload
}

func (f *fakeDrafts) Get(context.Context, Principal, string) (*ExportPayload, error) {
	return f.payload, f.getErr
}

func (f *fakeDrafts) Save(_ context.Context, _ Principal, _ string, payload *ExportPayload) error {
	f.saves++
	f.saved = payload
	f.payload = payload
	return nil
}

// sequentialIDs mints predictable ids.
type sequentialIDs struct {
	landing, product int
}

func (s *sequentialIDs) LandingID(doc string) string {
	s.landing++
	return fmt.Sprintf("%s-%010d", doc, s.landing)
}

func (s *sequentialIDs) ProductID(doc string) string {
	s.product++
	return fmt.Sprintf("%s-product-%d", doc, s.product)
}

// productFor enriches a row with a product derived from its product id.
func productFor(row UploadedLanding) UploadedLanding {
	row.Product = &Product{
		ID:            row.ProductID,
		CommodityCode: "0302" + row.ProductID,
		Presentation:  CodeLabel{Code: "WHL", Label: "Whole"},
		State:         CodeLabel{Code: "FRE", Label: "Fresh"},
		Species:       CodeLabel{Code: "COD", Label: "Atlantic cod"},
	}
	row.Vessel = &Vessel{PLN: row.VesselPLN, VesselName: "VESSEL " + row.VesselPLN}
	return row
}
