package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/catchcert/internal/landing"
)

type rowReport struct {
	Row          int      `json:"row" yaml:"row"`
	ProductID    string   `json:"productId" yaml:"productId"`
	StartDate    string   `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	LandingDate  string   `json:"landingDate" yaml:"landingDate"`
	FaoArea      string   `json:"faoArea" yaml:"faoArea"`
	VesselPLN    string   `json:"vesselPln" yaml:"vesselPln"`
	GearCode     string   `json:"gearCode,omitempty" yaml:"gearCode,omitempty"`
	ExportWeight string   `json:"exportWeight" yaml:"exportWeight"`
	Valid        bool     `json:"valid" yaml:"valid"`
	Errors       []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type report struct {
	Total   int         `json:"total" yaml:"total"`
	Valid   int         `json:"valid" yaml:"valid"`
	Invalid int         `json:"invalid" yaml:"invalid"`
	Rows    []rowReport `json:"rows" yaml:"rows"`
}

func newReport(rows []landing.UploadedLanding) report {
	r := report{Total: len(rows), Rows: make([]rowReport, 0, len(rows))}
	for _, l := range rows {
		rr := rowReport{
			Row:          l.RowNumber,
			ProductID:    l.ProductID,
			StartDate:    l.StartDate,
			LandingDate:  l.LandingDate,
			FaoArea:      l.FaoArea,
			VesselPLN:    l.VesselPLN,
			GearCode:     l.GearCode,
			ExportWeight: l.ExportWeight,
			Valid:        l.Valid(),
		}
		for _, e := range l.Errors {
			rr.Errors = append(rr.Errors, formatError(e))
		}
		if rr.Valid {
			r.Valid++
		} else {
			r.Invalid++
		}
		r.Rows = append(r.Rows, rr)
	}
	return r
}

func formatError(e landing.ErrorEntry) string {
	if len(e.Params) == 0 {
		return e.Key
	}
	return fmt.Sprintf("%s %v", e.Key, e.Params)
}

func writeReport(w io.Writer, format string, r report) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
