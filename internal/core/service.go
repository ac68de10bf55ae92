package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/logging"
	"github.com/JonMunkholm/catchcert/internal/session"
)

var (
	ErrLandingNotFound = errors.New("landing not found")
	ErrProductNotFound = errors.New("product not found")
	ErrFileTooLarge    = errors.New("file too large")
)

// DefaultUploadTimeout bounds parsing plus reference validation of one upload.
const DefaultUploadTimeout = 2 * time.Minute

// Deps are the collaborators a Service needs.
type Deps struct {
	Reference  landing.ReferenceValidator
	Favourites landing.FavouritesStore
	Drafts     landing.DraftStore
	Sessions   session.Store
	IDs        landing.IDSource // nil uses landing.RandomIDs
	Limits     landing.Limits

	MaxConcurrentUploads int
	UploadWait           time.Duration
	UploadTimeout        time.Duration
}

// Service runs the landings upload, save and single-landing edit flows.
type Service struct {
	validator    *landing.Validator
	consolidator *landing.Consolidator
	drafts       landing.DraftStore
	overlay      *session.Overlay
	uploads      *session.UploadCache
	limiter      *UploadLimiter

	limits        landing.Limits
	uploadTimeout time.Duration
}

// NewService wires a Service from its dependencies.
func NewService(d Deps) *Service {
	validator := landing.NewValidator(d.Reference, d.Favourites)
	timeout := d.UploadTimeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	return &Service{
		validator:     validator,
		consolidator:  landing.NewConsolidator(validator, d.Drafts, d.IDs),
		drafts:        d.Drafts,
		overlay:       session.NewOverlay(d.Sessions),
		uploads:       session.NewUploadCache(d.Sessions),
		limiter:       NewUploadLimiter(d.MaxConcurrentUploads, d.UploadWait),
		limits:        d.Limits,
		uploadTimeout: timeout,
	}
}

// Limits returns the limits the service applies.
func (s *Service) Limits() landing.Limits { return s.limits }

// LimiterStatus reports upload slot usage.
func (s *Service) LimiterStatus() UploadLimiterStatus { return s.limiter.Status() }

// UploadLandings parses and validates an uploaded file and caches the result
// for the preview page. Nothing is written to the draft.
func (s *Service) UploadLandings(ctx context.Context, p landing.Principal, text string) ([]landing.UploadedLanding, error) {
	if s.limits.MaxFileSize > 0 && int64(len(text)) > s.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(text), s.limits.MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	log := logging.WithFields(ctx, "user_id", p.UserID)

	rows, err := landing.ParseLandingRows(text, s.limits)
	if err != nil {
		return nil, err
	}

	rows, err = s.validator.Validate(ctx, p, rows, s.limits)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.Put(ctx, p, rows); err != nil {
		log.Warn("failed to cache uploaded landings", "error", err)
	}

	log.Info("landings uploaded", "rows", len(rows), "invalid", countInvalid(rows))
	return rows, nil
}

// UploadedLandings returns the last validated upload, or nil.
func (s *Service) UploadedLandings(ctx context.Context, p landing.Principal) ([]landing.UploadedLanding, error) {
	return s.uploads.Get(ctx, p)
}

// SaveLandingRows consolidates rows into the document's draft and drops the
// cached upload.
func (s *Service) SaveLandingRows(ctx context.Context, p landing.Principal, documentNumber string, rows []landing.UploadedLanding) ([]landing.UploadedLanding, error) {
	log := logging.WithFields(ctx, "user_id", p.UserID, "document_number", documentNumber)

	saved, err := s.consolidator.SaveLandingRows(ctx, p, documentNumber, rows, s.limits)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.Invalidate(ctx, p); err != nil {
		log.Warn("failed to invalidate uploaded landings", "error", err)
	}

	log.Info("landings saved", "rows", len(saved), "invalid", countInvalid(saved))
	return saved, nil
}

// StageLanding stores an in-progress landing edit in the session.
func (s *Service) StageLanding(ctx context.Context, p landing.Principal, documentNumber string, l session.SessionLanding) error {
	return s.overlay.Write(ctx, session.WritePayload{
		UserID:         p.UserID,
		ContactID:      p.ContactID,
		DocumentNumber: documentNumber,
		Landing:        &l,
	})
}

// SaveJourneyPosition records where the user is in the document journey.
// Nil values are left unchanged.
func (s *Service) SaveJourneyPosition(ctx context.Context, p landing.Principal, documentNumber string, currentURI, nextURI *string) error {
	return s.overlay.Write(ctx, session.WritePayload{
		UserID:         p.UserID,
		ContactID:      p.ContactID,
		DocumentNumber: documentNumber,
		CurrentURI:     currentURI,
		NextURI:        nextURI,
	})
}

// Journey returns the session record for the document.
func (s *Service) Journey(ctx context.Context, p landing.Principal, documentNumber string) (*session.Record, bool) {
	return s.overlay.Read(ctx, p.UserID, p.ContactID, documentNumber)
}

// ClearJourney drops all session state for the document.
func (s *Service) ClearJourney(ctx context.Context, p landing.Principal, documentNumber string) error {
	return s.overlay.Clear(ctx, p.UserID, p.ContactID, documentNumber)
}

// EditableLanding is a landing as shown on the edit page.
type EditableLanding struct {
	ProductID string                 `json:"productId,omitempty"`
	Landing   session.SessionLanding `json:"landing"`
	Staged    bool                   `json:"staged"`
}

// LandingForEdit returns the persisted landing with any staged session edit
// layered on top. The staged copy wins.
func (s *Service) LandingForEdit(ctx context.Context, p landing.Principal, documentNumber, landingID string) (*EditableLanding, error) {
	draft, err := s.drafts.Get(ctx, p, documentNumber)
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", documentNumber, err)
	}

	var out *EditableLanding
	if i, j := draft.FindLanding(landingID); i >= 0 {
		persisted := draft.Items[i].Landings[j]
		out = &EditableLanding{
			ProductID: draft.Items[i].Product.ID,
			Landing: session.SessionLanding{
				LandingID: landingID,
				AddMode:   persisted.AddMode,
				EditMode:  persisted.EditMode,
				Error:     persisted.Error,
				Errors:    persisted.Errors,
				Model:     persisted.Model,
				ModelCopy: persisted.ModelCopy,
			},
		}
	}

	if rec, ok := s.overlay.Read(ctx, p.UserID, p.ContactID, documentNumber); ok {
		if staged, found := rec.FindLanding(landingID); found {
			if out == nil {
				out = &EditableLanding{}
			}
			out.Landing = *staged
			out.Staged = true
		}
	}

	if out == nil {
		return nil, fmt.Errorf("%s on %s: %w", landingID, documentNumber, ErrLandingNotFound)
	}
	return out, nil
}

// CommitLanding moves a staged landing into the draft. An incomplete landing
// is written back to the session with its field errors and rejected.
func (s *Service) CommitLanding(ctx context.Context, p landing.Principal, documentNumber, productID, landingID string) (*landing.LandingStatus, error) {
	rec, ok := s.overlay.Read(ctx, p.UserID, p.ContactID, documentNumber)
	staged, found := rec.FindLanding(landingID)
	if !ok || !found {
		return nil, fmt.Errorf("no staged landing %s on %s: %w", landingID, documentNumber, ErrLandingNotFound)
	}

	if errs := checkLanding(staged.Model); len(errs) > 0 {
		rejected := *staged
		rejected.Error = "invalid"
		rejected.Errors = errs
		if err := s.StageLanding(ctx, p, documentNumber, rejected); err != nil {
			return nil, err
		}
		return nil, &landing.Error{Kind: landing.KindInvalidLanding}
	}

	draft, err := s.drafts.Get(ctx, p, documentNumber)
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", documentNumber, err)
	}
	if draft == nil {
		draft = &landing.ExportPayload{Items: []landing.ProductLanding{}}
	}

	model := staged.Model
	model.ID = landingID
	committed := landing.Landing{Model: model}

	if i, j := draft.FindLanding(landingID); i >= 0 {
		draft.Items[i].Landings[j] = committed
	} else {
		idx := draft.FindProduct(productID)
		if idx < 0 {
			return nil, fmt.Errorf("%s on %s: %w", productID, documentNumber, ErrProductNotFound)
		}
		if s.limits.Exceeds(draft.LandingCount() + 1) {
			return nil, &landing.Error{Kind: landing.KindLandingLimitExceeded, Limit: s.limits.MaxLandings}
		}
		draft.Items[idx].Landings = append(draft.Items[idx].Landings, committed)
	}

	if err := s.drafts.Save(ctx, p, documentNumber, draft); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", documentNumber, err)
	}

	if err := s.overlay.DiscardLanding(ctx, p.UserID, p.ContactID, documentNumber, landingID); err != nil {
		logging.WithFields(ctx, "user_id", p.UserID, "document_number", documentNumber).
			Warn("failed to discard committed landing from session", "landing_id", landingID, "error", err)
	}

	return &model, nil
}

// Shutdown waits for in-flight uploads and favourite cleanups.
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.validator.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkLanding returns field errors for the mandatory landing fields.
func checkLanding(m landing.LandingStatus) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(m.Vessel.PLN) == "" {
		errs["vessel.pln"] = "error.vessel.pln.any.required"
	}
	if strings.TrimSpace(m.DateLanded) == "" {
		errs["dateLanded"] = "error.dateLanded.any.required"
	}
	if strings.TrimSpace(m.FaoArea) == "" {
		errs["faoArea"] = "error.faoArea.any.required"
	}
	if m.ExportWeight <= 0 {
		errs["exportWeight"] = "error.exportWeight.number.greater"
	}
	return errs
}

func countInvalid(rows []landing.UploadedLanding) int {
	n := 0
	for _, r := range rows {
		if !r.Valid() {
			n++
		}
	}
	return n
}
