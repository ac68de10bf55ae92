package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/catchcert/internal/landing"
)

func TestValidateLandings(t *testing.T) {
	var got landing.ValidationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/upload/landings/validate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"rowNumber":1,"originalRow":"PRD001,19/07/2021,FAO27,PLN1,100","productId":"PRD001",
			 "landingDate":"19/07/2021","faoArea":"FAO27","vesselPln":"PLN1","exportWeight":"100",
			 "product":{"id":"PRD001","commodityCode":"03025110","presentation":{"code":"WHL","label":"Whole"},
			   "state":{"code":"FRE","label":"Fresh"},"species":{"code":"COD","label":"Atlantic cod"}},
			 "vessel":{"pln":"PLN1","vesselName":"BOAT"},"errors":[]},
			{"rowNumber":2,"productId":"PRD002","errors":["error.product.any.invalid",
			 {"key":"error.dateLanded.date.max","params":[7]}]}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	rows, err := c.ValidateLandings(context.Background(), landing.ValidationRequest{
		Landings:                 []landing.UploadedLanding{{RowNumber: 1, ProductID: "PRD001", Errors: []landing.ErrorEntry{}}},
		Products:                 []landing.Product{},
		LandingLimitDaysInFuture: 7,
	})
	if err != nil {
		t.Fatalf("ValidateLandings failed: %v", err)
	}

	if got.LandingLimitDaysInFuture != 7 || len(got.Landings) != 1 {
		t.Errorf("request body = %+v", got)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if !rows[0].Valid() || rows[0].Product == nil || rows[0].Vessel.VesselName != "BOAT" {
		t.Errorf("row 1 not enriched: %+v", rows[0])
	}
	if len(rows[1].Errors) != 2 {
		t.Fatalf("row 2 errors = %+v", rows[1].Errors)
	}
	if rows[1].Errors[0].Key != "error.product.any.invalid" {
		t.Errorf("string error = %+v", rows[1].Errors[0])
	}
	if e := rows[1].Errors[1]; e.Key != "error.dateLanded.date.max" || len(e.Params) != 1 {
		t.Errorf("object error = %+v", e)
	}
}

func TestValidateLandings_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ValidateLandings(context.Background(), landing.ValidationRequest{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Body != "upstream exploded" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestValidateLandings_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).ValidateLandings(context.Background(), landing.ValidationRequest{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestValidateLandings_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ValidateLandings(context.Background(), landing.ValidationRequest{})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
