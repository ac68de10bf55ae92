package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details, request id and caller identity
//   - Mapped through core.MapError to a user message and support code
//   - Returned as JSON to script-capable clients, or as a 303 redirect to
//     returnTo?error=<code>[&limit=N] for plain form posts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catchcert/internal/core"
	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/logging"
	"github.com/JonMunkholm/catchcert/internal/refdata"
)

var (
	// errBadRequest marks request bodies the handlers cannot decode.
	errBadRequest  = errors.New("invalid request body")
	errNoFile      = errors.New("no file provided")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of an API error.
// Code is machine-readable; Message and Action are for display.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Limit   int    `json:"limit,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var se *refdata.StatusError
	switch {
	case landing.KindOf(err) != "":
		return http.StatusBadRequest
	case errors.Is(err, errBadRequest), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrLandingNotFound), errors.Is(err, core.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.As(err, &se), errors.Is(err, refdata.ErrUnavailable), errors.Is(err, landing.ErrIncompleteValidation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the response the client can handle.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ue := core.NewUserError(err)

	logging.FromContext(r.Context()).Log(r.Context(), errorLogLevel(status, err), "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	)

	if isFormClient(r) {
		redirectWithError(w, r, ue.User)
		return
	}
	respondErrorJSON(w, ue.User, status)
}

// errorLogLevel logs server failures and unmapped errors at error level and
// everything the user can act on at warn.
func errorLogLevel(status int, err error) slog.Level {
	if status >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		return slog.LevelError
	}
	return slog.LevelWarn
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSONStatus(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Limit:   msg.Limit,
	})
}

// redirectWithError sends a form client back to the page it came from with
// the error code in the query string.
func redirectWithError(w http.ResponseWriter, r *http.Request, msg core.UserMessage) {
	target, _ := url.Parse(safeReturnPath(r.FormValue("returnTo")))
	q := target.Query()
	q.Set("error", msg.Code)
	if msg.Limit > 0 {
		q.Set("limit", strconv.Itoa(msg.Limit))
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

// safeReturnPath only allows same-site absolute paths.
func safeReturnPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	if _, err := url.Parse(p); err != nil {
		return "/"
	}
	return p
}

// isFormClient reports whether the request is a plain HTML form post from
// a client that cannot handle a JSON error.
func isFormClient(r *http.Request) bool {
	if wantsJSON(r) {
		return false
	}
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are logged since the
// header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
