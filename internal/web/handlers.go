package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catchcert/internal/core"
	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/session"
)

const (
	// multipartOverhead is allowed on top of the file size limit for
	// multipart boundaries and the other form fields.
	multipartOverhead = 64 << 10

	// maxJSONBody caps JSON and form request bodies.
	maxJSONBody = 1 << 20
)

// handleHealth reports liveness and upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"uploads": s.service.LimiterStatus(),
	})
}

// handleUploadLandings parses and validates an uploaded landings CSV.
// Accepts a multipart "file" field or a raw text/csv body.
func (s *Server) handleUploadLandings(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.Limits().MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	text, err := readUpload(r, maxSize+multipartOverhead)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows, err := s.service.UploadLandings(r.Context(), principal(r), text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if redirectOnSuccess(w, r) {
		return
	}
	writeJSON(w, rows)
}

// readUpload returns the uploaded file's text.
func readUpload(r *http.Request, maxMemory int64) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return "", bodyError(err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", errNoFile
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", bodyError(err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", bodyError(err)
	}
	return string(data), nil
}

// bodyError classifies a body read failure.
func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %w", core.ErrFileTooLarge, err)
	}
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

// handleUploadedLandings returns the caller's last validated upload.
func (s *Server) handleUploadedLandings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.UploadedLandings(r.Context(), principal(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []landing.UploadedLanding{}
	}
	writeJSON(w, rows)
}

type saveLandingsRequest struct {
	Rows []landing.UploadedLanding `json:"rows"`
}

// handleSaveLandings consolidates previewed rows into the document draft.
// JSON clients post {"rows": [...]}; form clients post the same array as
// the "rows" field.
func (s *Server) handleSaveLandings(w http.ResponseWriter, r *http.Request) {
	documentNumber := chi.URLParam(r, "documentNumber")

	rows, err := decodeRows(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	saved, err := s.service.SaveLandingRows(r.Context(), principal(r), documentNumber, rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if redirectOnSuccess(w, r) {
		return
	}
	writeJSON(w, saved)
}

func decodeRows(w http.ResponseWriter, r *http.Request) ([]landing.UploadedLanding, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if isFormClient(r) {
		raw := r.FormValue("rows")
		if raw == "" {
			return nil, fmt.Errorf("%w: rows field is empty", errBadRequest)
		}
		var rows []landing.UploadedLanding
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		return rows, nil
	}

	var req saveLandingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return req.Rows, nil
}

// handleGetLanding returns a landing for the edit page, staged edits included.
func (s *Server) handleGetLanding(w http.ResponseWriter, r *http.Request) {
	documentNumber := chi.URLParam(r, "documentNumber")
	landingID := chi.URLParam(r, "landingId")

	out, err := s.service.LandingForEdit(r.Context(), principal(r), documentNumber, landingID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, out)
}

type journeyRequest struct {
	CurrentURI *string                 `json:"currentUri"`
	NextURI    *string                 `json:"nextUri"`
	Landing    *session.SessionLanding `json:"landing"`
}

// handlePutJourney records journey position and staged landing edits.
func (s *Server) handlePutJourney(w http.ResponseWriter, r *http.Request) {
	documentNumber := chi.URLParam(r, "documentNumber")
	p := principal(r)

	var req journeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if req.Landing != nil && req.Landing.LandingID == "" {
		s.respondError(w, r, fmt.Errorf("%w: landing has no landingId", errBadRequest))
		return
	}

	if req.Landing != nil {
		if err := s.service.StageLanding(r.Context(), p, documentNumber, *req.Landing); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.CurrentURI != nil || req.NextURI != nil {
		if err := s.service.SaveJourneyPosition(r.Context(), p, documentNumber, req.CurrentURI, req.NextURI); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetJourney returns the session record for the document. A document
// with no session state returns an empty record.
func (s *Server) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	documentNumber := chi.URLParam(r, "documentNumber")

	rec, ok := s.service.Journey(r.Context(), principal(r), documentNumber)
	if !ok {
		rec = &session.Record{DocumentNumber: documentNumber}
	}
	writeJSON(w, rec)
}

// handleClearJourney drops the document's session state.
func (s *Server) handleClearJourney(w http.ResponseWriter, r *http.Request) {
	documentNumber := chi.URLParam(r, "documentNumber")

	if err := s.service.ClearJourney(r.Context(), principal(r), documentNumber); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommitLanding moves a staged landing into the draft.
func (s *Server) handleCommitLanding(w http.ResponseWriter, r *http.Request) {
	documentNumber := chi.URLParam(r, "documentNumber")
	productID := chi.URLParam(r, "productId")
	landingID := chi.URLParam(r, "landingId")

	committed, err := s.service.CommitLanding(r.Context(), principal(r), documentNumber, productID, landingID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if redirectOnSuccess(w, r) {
		return
	}
	writeJSON(w, committed)
}

// redirectOnSuccess sends form clients on to their nextUri. It reports
// whether a redirect was written.
func redirectOnSuccess(w http.ResponseWriter, r *http.Request) bool {
	if !isFormClient(r) {
		return false
	}
	next := r.FormValue("nextUri")
	if next == "" {
		return false
	}
	http.Redirect(w, r, safeReturnPath(next), http.StatusSeeOther)
	return true
}
