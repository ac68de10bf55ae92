package landing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Limits carries the per-deployment landing limits. It is passed explicitly
// into every parse, validate and save call so callers can vary it per request.
type Limits struct {
	MaxLandings              int   // Max rows per upload and max landings per document; 0 is unlimited
	MaxFileSize              int64 // Max upload size in bytes
	LandingLimitDaysInFuture int   // How far ahead a landing date may be
}

// Exceeds reports whether n landings is over MaxLandings.
func (l Limits) Exceeds(n int) bool {
	return l.MaxLandings > 0 && n > l.MaxLandings
}

// Principal identifies the exporter acting on a document.
type Principal struct {
	UserID    string
	ContactID string
}

// ErrorEntry is one validation problem attached to a row. On the wire it is
// either a bare string code or an object {"key": ..., "params": [...]}.
// A nil Params marshals as the bare string; a non-nil one, even empty, as
// the object.
type ErrorEntry struct {
	Key    string
	Params []any
}

// InvalidProductKey flags a row whose product no longer matches reference data.
const InvalidProductKey = "invalid-product"

func (e ErrorEntry) MarshalJSON() ([]byte, error) {
	if e.Params == nil {
		return json.Marshal(e.Key)
	}
	return json.Marshal(struct {
		Key    string `json:"key"`
		Params []any  `json:"params"`
	}{e.Key, e.Params})
}

func (e *ErrorEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		e.Params = nil
		return json.Unmarshal(data, &e.Key)
	}
	var obj struct {
		Key    string `json:"key"`
		Params []any  `json:"params"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("error entry: %w", err)
	}
	e.Key = obj.Key
	e.Params = obj.Params
	if e.Params == nil {
		e.Params = []any{}
	}
	return nil
}

// CodeLabel is a reference-data code with its display label.
type CodeLabel struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Admin string `json:"admin,omitempty"`
}

// Product is a commodity entry on the certificate.
type Product struct {
	ID                       string    `json:"id"`
	CommodityCode            string    `json:"commodityCode"`
	CommodityCodeAdmin       string    `json:"commodityCodeAdmin,omitempty"`
	CommodityCodeDescription string    `json:"commodityCodeDescription,omitempty"`
	Presentation             CodeLabel `json:"presentation"`
	State                    CodeLabel `json:"state"`
	Species                  CodeLabel `json:"species"`
	ScientificName           string    `json:"scientificName,omitempty"`
	Factor                   float64   `json:"factor,omitempty"`
}

// SameIdentity reports whether two products describe the same commodity.
// The product id is deliberately not part of the identity.
func (p Product) SameIdentity(o Product) bool {
	return p.Species.Label == o.Species.Label &&
		p.Species.Code == o.Species.Code &&
		p.State.Code == o.State.Code &&
		p.Presentation.Code == o.Presentation.Code &&
		p.CommodityCode == o.CommodityCode
}

// Vessel is the vessel snapshot returned by reference data.
type Vessel struct {
	PLN                     string  `json:"pln"`
	VesselName              string  `json:"vesselName"`
	Flag                    string  `json:"flag,omitempty"`
	CFR                     string  `json:"cfr,omitempty"`
	HomePort                string  `json:"homePort,omitempty"`
	LicenceNumber           string  `json:"licenceNumber,omitempty"`
	ImoNumber               string  `json:"imoNumber,omitempty"`
	LicenceValidTo          string  `json:"licenceValidTo,omitempty"`
	LicenceHolder           string  `json:"licenceHolder,omitempty"`
	RssNumber               string  `json:"rssNumber,omitempty"`
	VesselLength            float64 `json:"vesselLength,omitempty"`
	Label                   string  `json:"label,omitempty"`
	VesselOverriddenByAdmin bool    `json:"vesselOverriddenByAdmin,omitempty"`
}

// Country is an exclusive economic zone entry.
type Country struct {
	OfficialCountryName string `json:"officialCountryName"`
	IsoCodeAlpha2       string `json:"isoCodeAlpha2,omitempty"`
	IsoCodeAlpha3       string `json:"isoCodeAlpha3,omitempty"`
	IsoNumericCode      string `json:"isoNumericCode,omitempty"`
}

// UploadedLanding is one parsed upload row. The reference service fills in
// Errors and, for valid rows, the Product/Vessel/gear/zone enrichment.
type UploadedLanding struct {
	RowNumber    int          `json:"rowNumber"`
	OriginalRow  string       `json:"originalRow"`
	ProductID    string       `json:"productId"`
	Product      *Product     `json:"product,omitempty"`
	StartDate    string       `json:"startDate,omitempty"`
	LandingDate  string       `json:"landingDate"`
	FaoArea      string       `json:"faoArea"`
	HighSeasArea string       `json:"highSeasArea,omitempty"`
	RfmoCode     string       `json:"rfmoCode,omitempty"`
	RfmoName     string       `json:"rfmoName,omitempty"`
	EezCode      string       `json:"eezCode,omitempty"`
	EezData      []Country    `json:"eezData,omitempty"`
	VesselPLN    string       `json:"vesselPln"`
	Vessel       *Vessel      `json:"vessel,omitempty"`
	GearCode     string       `json:"gearCode,omitempty"`
	GearCategory string       `json:"gearCategory,omitempty"`
	GearName     string       `json:"gearName,omitempty"`
	ExportWeight string       `json:"exportWeight"`
	Errors       []ErrorEntry `json:"errors"`
}

// Valid reports whether the row carries no validation errors.
func (l UploadedLanding) Valid() bool { return len(l.Errors) == 0 }

// HasError reports whether the row carries an error with the given key.
func (l UploadedLanding) HasError(key string) bool {
	for _, e := range l.Errors {
		if e.Key == key {
			return true
		}
	}
	return false
}

// LandingStatus is one landing event persisted under a product.
type LandingStatus struct {
	ID                     string    `json:"id"`
	Vessel                 Vessel    `json:"vessel"`
	DateLanded             string    `json:"dateLanded"`
	StartDate              string    `json:"startDate,omitempty"`
	ExportWeight           float64   `json:"exportWeight"`
	FaoArea                string    `json:"faoArea"`
	GearCategory           string    `json:"gearCategory,omitempty"`
	GearType               string    `json:"gearType,omitempty"`
	Rfmo                   string    `json:"rfmo,omitempty"`
	ExclusiveEconomicZones []Country `json:"exclusiveEconomicZones,omitempty"`
	HighSeasArea           string    `json:"highSeasArea,omitempty"`
	NumberOfSubmissions    int       `json:"numberOfSubmissions,omitempty"`
}

// Landing wraps a LandingStatus with its edit state as stored in the draft.
type Landing struct {
	AddMode   bool              `json:"addMode,omitempty"`
	EditMode  bool              `json:"editMode,omitempty"`
	Error     string            `json:"error,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Model     LandingStatus     `json:"model"`
	ModelCopy *LandingStatus    `json:"modelCopy,omitempty"`
}

// ProductLanding groups the landings declared for one product.
type ProductLanding struct {
	Product  Product   `json:"product"`
	Landings []Landing `json:"landings"`
}

// ExportPayload is the draft document for one export certificate.
type ExportPayload struct {
	Items []ProductLanding `json:"items"`
}

// LandingCount returns the number of landings across all items.
func (p *ExportPayload) LandingCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, item := range p.Items {
		n += len(item.Landings)
	}
	return n
}

// FindLanding returns the item and landing index for a landing id, or -1s.
func (p *ExportPayload) FindLanding(landingID string) (int, int) {
	if p == nil {
		return -1, -1
	}
	for i, item := range p.Items {
		for j, l := range item.Landings {
			if l.Model.ID == landingID {
				return i, j
			}
		}
	}
	return -1, -1
}

// FindProduct returns the index of the item holding productID, or -1.
func (p *ExportPayload) FindProduct(productID string) int {
	if p == nil {
		return -1
	}
	for i, item := range p.Items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}
