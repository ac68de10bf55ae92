package landing

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func newTestConsolidator(ref *fakeReference, drafts *fakeDrafts) *Consolidator {
	return NewConsolidator(NewValidator(ref, &fakeFavourites{}), drafts, &sequentialIDs{})
}

func TestSaveLandingRows_EndToEnd(t *testing.T) {
	text := "PRD001,19/07/2021,FAO27,PLN1,100\nPRD002,20/07/2021,FAO27,PLN2,200\n"
	rows, err := ParseLandingRows(text, testLimits)
	if err != nil {
		t.Fatalf("ParseLandingRows failed: %v", err)
	}

	drafts := &fakeDrafts{}
	c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)

	got, err := c.SaveLandingRows(context.Background(), testPrincipal, "GBR-2021-CC-1", rows, testLimits)
	if err != nil {
		t.Fatalf("SaveLandingRows failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("echoed %d rows, want 2", len(got))
	}
	for _, row := range got {
		if row.Errors == nil || len(row.Errors) != 0 {
			t.Errorf("row %d errors = %v, want []", row.RowNumber, row.Errors)
		}
	}

	if drafts.saves != 1 {
		t.Fatalf("Save called %d times, want 1", drafts.saves)
	}
	items := drafts.saved.Items
	if len(items) != 2 {
		t.Fatalf("saved %d items, want 2", len(items))
	}
	for i, item := range items {
		if len(item.Landings) != 1 {
			t.Errorf("items[%d] has %d landings, want 1", i, len(item.Landings))
		}
	}

	first := items[0].Landings[0].Model
	if first.DateLanded != "2021-07-19" {
		t.Errorf("DateLanded = %q, want 2021-07-19", first.DateLanded)
	}
	if first.ExportWeight != 100 || first.FaoArea != "FAO27" || first.Vessel.PLN != "PLN1" {
		t.Errorf("unexpected landing: %+v", first)
	}
	if first.StartDate != "" || first.GearType != "" {
		t.Errorf("optional fields should be omitted: %+v", first)
	}
	if items[0].Product.ID != "GBR-2021-CC-1-product-1" {
		t.Errorf("product id = %q, want minted id", items[0].Product.ID)
	}
}

func TestSaveLandingRows_SameProductSharesItem(t *testing.T) {
	rows := []UploadedLanding{
		{RowNumber: 1, ProductID: "A", LandingDate: "19/07/2021", FaoArea: "FAO27", VesselPLN: "PLN1", ExportWeight: "10"},
		{RowNumber: 2, ProductID: "A", LandingDate: "20/07/2021", FaoArea: "FAO27", VesselPLN: "PLN2", ExportWeight: "20"},
	}
	drafts := &fakeDrafts{}
	c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)

	if _, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, testLimits); err != nil {
		t.Fatalf("SaveLandingRows failed: %v", err)
	}
	if len(drafts.saved.Items) != 1 {
		t.Fatalf("saved %d items, want 1", len(drafts.saved.Items))
	}
	if n := len(drafts.saved.Items[0].Landings); n != 2 {
		t.Errorf("item has %d landings, want 2", n)
	}
}

func TestSaveLandingRows_AppendsToPersistedProduct(t *testing.T) {
	existing := productFor(UploadedLanding{ProductID: "A"}).Product
	existing.ID = "DOC-existing"
	drafts := &fakeDrafts{payload: &ExportPayload{Items: []ProductLanding{
		{Product: *existing, Landings: []Landing{{Model: LandingStatus{ID: "DOC-1"}}}},
	}}}
	c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)

	rows := []UploadedLanding{{RowNumber: 1, ProductID: "A", LandingDate: "19/07/2021", ExportWeight: "5"}}
	if _, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, testLimits); err != nil {
		t.Fatalf("SaveLandingRows failed: %v", err)
	}

	if len(drafts.saved.Items) != 1 {
		t.Fatalf("saved %d items, want 1", len(drafts.saved.Items))
	}
	item := drafts.saved.Items[0]
	if item.Product.ID != "DOC-existing" || len(item.Landings) != 2 {
		t.Errorf("landing not appended to persisted item: %+v", item)
	}
}

func TestSaveLandingRows_LimitExceededWritesNothing(t *testing.T) {
	drafts := &fakeDrafts{payload: &ExportPayload{Items: []ProductLanding{
		{Landings: []Landing{{}, {}}},
	}}}
	c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)

	rows := []UploadedLanding{
		{RowNumber: 1, ProductID: "A", LandingDate: "19/07/2021", ExportWeight: "1"},
		{RowNumber: 2, ProductID: "B", LandingDate: "19/07/2021", ExportWeight: "1"},
	}
	_, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, Limits{MaxLandings: 3})

	if KindOf(err) != KindLandingLimitExceeded {
		t.Fatalf("error = %v, want KindLandingLimitExceeded", err)
	}
	if LimitOf(err) != 3 {
		t.Errorf("LimitOf = %d, want 3", LimitOf(err))
	}
	if drafts.saves != 0 {
		t.Errorf("Save called %d times, want 0", drafts.saves)
	}
}

func TestSaveLandingRows_NoValidRows(t *testing.T) {
	ref := &fakeReference{annotate: func(row UploadedLanding) UploadedLanding {
		row.Errors = []ErrorEntry{{Key: "error.dateLanded.date.base"}}
		return row
	}}
	drafts := &fakeDrafts{}
	c := newTestConsolidator(ref, drafts)

	_, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", []UploadedLanding{{RowNumber: 1}}, testLimits)
	if !errors.Is(err, &Error{Kind: KindNoValidRows}) {
		t.Fatalf("error = %v, want KindNoValidRows", err)
	}
	if drafts.saves != 0 {
		t.Errorf("Save called %d times, want 0", drafts.saves)
	}
}

func TestSaveLandingRows_ReturnsInvalidRowsToo(t *testing.T) {
	ref := &fakeReference{annotate: func(row UploadedLanding) UploadedLanding {
		if row.ProductID == "BAD" {
			row.Errors = []ErrorEntry{{Key: "error.faoArea.any.invalid", Params: []any{"FAO99"}}}
			return row
		}
		return productFor(row)
	}}
	drafts := &fakeDrafts{}
	c := newTestConsolidator(ref, drafts)

	rows := []UploadedLanding{
		{RowNumber: 1, ProductID: "BAD", LandingDate: "19/07/2021", ExportWeight: "1"},
		{RowNumber: 2, ProductID: "A", LandingDate: "19/07/2021", ExportWeight: "1"},
	}
	got, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, testLimits)
	if err != nil {
		t.Fatalf("SaveLandingRows failed: %v", err)
	}
	if len(got) != 2 || got[0].RowNumber != 1 || got[0].Valid() || !got[1].Valid() {
		t.Errorf("unexpected rows: %+v", got)
	}
	if drafts.saved.LandingCount() != 1 {
		t.Errorf("saved %d landings, want 1", drafts.saved.LandingCount())
	}
}

func TestSaveLandingRows_RevalidatesClientRows(t *testing.T) {
	ref := &fakeReference{annotate: func(row UploadedLanding) UploadedLanding {
		row.Errors = []ErrorEntry{{Key: "error.vessel.missing"}}
		return row
	}}
	c := newTestConsolidator(ref, &fakeDrafts{})

	// Client claims the row is clean; the reference service disagrees.
	rows := []UploadedLanding{{RowNumber: 1, ProductID: "A", Errors: []ErrorEntry{}}}
	_, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, testLimits)
	if KindOf(err) != KindNoValidRows {
		t.Errorf("error = %v, want KindNoValidRows", err)
	}
	if ref.calls != 1 {
		t.Errorf("reference called %d times, want 1", ref.calls)
	}
}

func TestSaveLandingRows_ValidRowWithoutProduct(t *testing.T) {
	c := newTestConsolidator(&fakeReference{}, &fakeDrafts{})

	_, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", []UploadedLanding{{RowNumber: 1}}, testLimits)
	if !errors.Is(err, ErrIncompleteValidation) {
		t.Errorf("error = %v, want ErrIncompleteValidation", err)
	}
}

func TestSaveLandingRows_ValidRowWithUnconvertibleFields(t *testing.T) {
	tests := []struct {
		name string
		row  UploadedLanding
	}{
		{"weight", UploadedLanding{RowNumber: 1, ProductID: "A", LandingDate: "19/07/2021", ExportWeight: "1 000"}},
		{"landing date", UploadedLanding{RowNumber: 1, ProductID: "A", LandingDate: "yesterday", ExportWeight: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts := &fakeDrafts{}
			c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)

			_, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", []UploadedLanding{tt.row}, testLimits)
			if !errors.Is(err, ErrIncompleteValidation) {
				t.Errorf("error = %v, want ErrIncompleteValidation", err)
			}
			if drafts.saves != 0 {
				t.Errorf("Save called %d times, want 0", drafts.saves)
			}
		})
	}
}

func TestSaveLandingRows_ZeroMaxLandingsIsUnlimited(t *testing.T) {
	drafts := &fakeDrafts{}
	c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)

	rows, err := ParseLandingRows("PRD001,19/07/2021,FAO27,PLN1,100", Limits{})
	if err != nil {
		t.Fatalf("ParseLandingRows failed: %v", err)
	}
	if _, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, Limits{}); err != nil {
		t.Fatalf("SaveLandingRows failed: %v", err)
	}
	if drafts.saves != 1 {
		t.Errorf("Save called %d times, want 1", drafts.saves)
	}
}

func TestLimitsExceeds(t *testing.T) {
	tests := []struct {
		max  int
		n    int
		want bool
	}{
		{0, 1000, false},
		{2, 2, false},
		{2, 3, true},
	}
	for _, tt := range tests {
		if got := (Limits{MaxLandings: tt.max}).Exceeds(tt.n); got != tt.want {
			t.Errorf("Limits{MaxLandings: %d}.Exceeds(%d) = %v, want %v", tt.max, tt.n, got, tt.want)
		}
	}
}

func TestSaveLandingRows_OptionalFields(t *testing.T) {
	ref := &fakeReference{annotate: func(row UploadedLanding) UploadedLanding {
		row = productFor(row)
		row.GearCategory = "Trawls"
		row.GearName = "Beam trawls"
		row.RfmoName = "ICCAT"
		row.EezData = []Country{{OfficialCountryName: "France"}}
		return row
	}}
	drafts := &fakeDrafts{}
	c := newTestConsolidator(ref, drafts)

	rows, err := ParseLandingRows("PRD001,18/07/2021,19/07/2021,FAO27,HS,RFMO,FRA,PLN1,TBB,12.5", testLimits)
	if err != nil {
		t.Fatalf("ParseLandingRows failed: %v", err)
	}
	if _, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, testLimits); err != nil {
		t.Fatalf("SaveLandingRows failed: %v", err)
	}

	got := drafts.saved.Items[0].Landings[0].Model
	if got.StartDate != "2021-07-18" || got.DateLanded != "2021-07-19" {
		t.Errorf("dates = %q, %q", got.StartDate, got.DateLanded)
	}
	if got.GearType != "Beam trawls (TBB)" || got.GearCategory != "Trawls" {
		t.Errorf("gear = %q / %q", got.GearType, got.GearCategory)
	}
	if got.Rfmo != "ICCAT" || got.HighSeasArea != "HS" || len(got.ExclusiveEconomicZones) != 1 {
		t.Errorf("zones not copied: %+v", got)
	}
	if got.ExportWeight != 12.5 {
		t.Errorf("ExportWeight = %v, want 12.5", got.ExportWeight)
	}
}

// Saving the same rows again adds the landings again; nothing deduplicates.
func TestSaveLandingRows_NotIdempotent(t *testing.T) {
	drafts := &fakeDrafts{}
	c := newTestConsolidator(&fakeReference{annotate: productFor}, drafts)
	rows := []UploadedLanding{{RowNumber: 1, ProductID: "A", LandingDate: "19/07/2021", ExportWeight: "1"}}

	for i := 0; i < 2; i++ {
		if _, err := c.SaveLandingRows(context.Background(), testPrincipal, "DOC", rows, testLimits); err != nil {
			t.Fatalf("save %d failed: %v", i+1, err)
		}
	}

	if len(drafts.saved.Items) != 1 {
		t.Fatalf("saved %d items, want 1", len(drafts.saved.Items))
	}
	if n := len(drafts.saved.Items[0].Landings); n != 2 {
		t.Errorf("item has %d landings after resubmission, want 2", n)
	}
}

func TestRandomIDs(t *testing.T) {
	ids := RandomIDs{}

	landingID := ids.LandingID("GBR-2021-CC-1")
	re := regexp.MustCompile(`^GBR-2021-CC-1-(\d{10})$`)
	m := re.FindStringSubmatch(landingID)
	if m == nil {
		t.Fatalf("LandingID = %q, want doc plus 10 digits", landingID)
	}
	n, _ := strconv.ParseInt(m[1], 10, 64)
	if n < 1_000_000_000 {
		t.Errorf("suffix %d below 10 digits", n)
	}

	productID := ids.ProductID("GBR-2021-CC-1")
	if !strings.HasPrefix(productID, "GBR-2021-CC-1-") || len(productID) != len("GBR-2021-CC-1-")+36 {
		t.Errorf("ProductID = %q, want doc plus uuid", productID)
	}
}
