package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/logging"
)

// ExportPayloadKey is the store key for landings journey records.
const ExportPayloadKey = "exportPayload"

// SessionLanding is one landing being added or edited, not yet committed to
// the draft.
type SessionLanding struct {
	LandingID string                 `json:"landingId"`
	AddMode   bool                   `json:"addMode,omitempty"`
	EditMode  bool                   `json:"editMode,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Errors    map[string]string      `json:"errors,omitempty"`
	Model     landing.LandingStatus  `json:"model"`
	ModelCopy *landing.LandingStatus `json:"modelCopy,omitempty"`
}

// Record is the session state of one document journey.
type Record struct {
	DocumentNumber string           `json:"documentNumber"`
	CurrentURI     string           `json:"currentUri,omitempty"`
	NextURI        string           `json:"nextUri,omitempty"`
	Landings       []SessionLanding `json:"landings,omitempty"`
}

// FindLanding returns the staged landing with landingID, if any.
func (r *Record) FindLanding(landingID string) (*SessionLanding, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Landings {
		if r.Landings[i].LandingID == landingID {
			return &r.Landings[i], true
		}
	}
	return nil, false
}

// WritePayload is a partial update. Nil fields leave the stored value alone.
type WritePayload struct {
	UserID         string
	ContactID      string
	DocumentNumber string
	CurrentURI     *string
	NextURI        *string
	Landing        *SessionLanding
}

// Overlay stores per-document journey records for a user and contact.
type Overlay struct {
	store Store
}

// NewOverlay creates an Overlay backed by store.
func NewOverlay(store Store) *Overlay {
	return &Overlay{store: store}
}

// Write merges payload into the record for its document, creating the
// record if needed. Without a user or document number it does nothing.
func (o *Overlay) Write(ctx context.Context, payload WritePayload) error {
	if payload.UserID == "" || payload.DocumentNumber == "" {
		return nil
	}

	records := o.readAll(ctx, payload.UserID, payload.ContactID)

	idx := indexOf(records, payload.DocumentNumber)
	if idx < 0 {
		records = append(records, Record{DocumentNumber: payload.DocumentNumber})
		idx = len(records) - 1
	}
	merge(&records[idx], payload)

	return o.writeAll(ctx, payload.UserID, payload.ContactID, records)
}

func merge(r *Record, payload WritePayload) {
	if payload.CurrentURI != nil {
		r.CurrentURI = *payload.CurrentURI
	}
	if payload.NextURI != nil {
		r.NextURI = *payload.NextURI
	}
	if payload.Landing == nil {
		return
	}
	for i := range r.Landings {
		if r.Landings[i].LandingID == payload.Landing.LandingID {
			r.Landings[i] = *payload.Landing
			return
		}
	}
	r.Landings = append(r.Landings, *payload.Landing)
}

// Read returns the record for documentNumber. Store failures read as
// not found.
func (o *Overlay) Read(ctx context.Context, userID, contactID, documentNumber string) (*Record, bool) {
	if userID == "" || documentNumber == "" {
		return nil, false
	}

	records := o.readAll(ctx, userID, contactID)
	idx := indexOf(records, documentNumber)
	if idx < 0 {
		return nil, false
	}
	return &records[idx], true
}

// Clear removes the record for documentNumber.
func (o *Overlay) Clear(ctx context.Context, userID, contactID, documentNumber string) error {
	if userID == "" || documentNumber == "" {
		return nil
	}

	records := o.readAll(ctx, userID, contactID)
	idx := indexOf(records, documentNumber)
	if idx < 0 {
		return nil
	}
	records = append(records[:idx], records[idx+1:]...)

	if len(records) == 0 {
		if err := o.store.DeleteAllFor(ctx, userID, contactID, ExportPayloadKey); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		return nil
	}
	return o.writeAll(ctx, userID, contactID, records)
}

// DiscardLanding drops one staged landing from the document's record.
func (o *Overlay) DiscardLanding(ctx context.Context, userID, contactID, documentNumber, landingID string) error {
	if userID == "" || documentNumber == "" {
		return nil
	}

	records := o.readAll(ctx, userID, contactID)
	idx := indexOf(records, documentNumber)
	if idx < 0 {
		return nil
	}

	kept := records[idx].Landings[:0]
	for _, l := range records[idx].Landings {
		if l.LandingID != landingID {
			kept = append(kept, l)
		}
	}
	records[idx].Landings = kept

	return o.writeAll(ctx, userID, contactID, records)
}

// readAll never fails; unreadable state is treated as empty.
func (o *Overlay) readAll(ctx context.Context, userID, contactID string) []Record {
	raw, err := o.store.ReadAllFor(ctx, userID, contactID, ExportPayloadKey)
	if err != nil {
		logging.FromContext(ctx).Debug("session read failed", "user_id", userID, "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		logging.FromContext(ctx).Debug("session record unreadable", "user_id", userID, "error", err)
		return nil
	}
	return records
}

func (o *Overlay) writeAll(ctx context.Context, userID, contactID string, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := o.store.WriteAllFor(ctx, userID, contactID, ExportPayloadKey, data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func indexOf(records []Record, documentNumber string) int {
	documentNumber = strings.TrimSpace(documentNumber)
	for i, r := range records {
		if strings.EqualFold(strings.TrimSpace(r.DocumentNumber), documentNumber) {
			return i
		}
	}
	return -1
}
