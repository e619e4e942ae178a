package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/domain"
	logpkg "github.com/kailas-cloud/booksrag/internal/logger"
)

// ErrorCode is the machine-readable error code in an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnsupportedMedia  ErrorCode = "unsupported_media"
	CodePayloadTooLarge   ErrorCode = "payload_too_large"
	CodeNotFound          ErrorCode = "not_found"
	CodeCollaboratorError ErrorCode = "collaborator_error"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// An empty message means the error's own text.
func sentinelHandler(sentinel error, status int, code ErrorCode, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := message
		if msg == "" {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// unsupportedMediaHandler answers 400 naming the accepted extensions.
func unsupportedMediaHandler(w http.ResponseWriter, err error) bool {
	var ume *domain.UnsupportedMediaError
	if !errors.As(err, &ume) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeUnsupportedMedia, acceptedMessage(ume.Accepted))
	return true
}

func acceptedMessage(exts []string) string {
	if len(exts) == 1 {
		return "Only " + exts[0] + " is accepted"
	}
	return "Only " + strings.Join(exts, ", ") + " are accepted"
}

func payloadTooLargeHandler(w http.ResponseWriter, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, mbe.Error())
	return true
}

// collaboratorHandler forwards the collaborator's own text unless hide is set.
func collaboratorHandler(hide bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		var ce *domain.CollaboratorError
		if !errors.As(err, &ce) {
			return false
		}
		msg := ce.Message
		if hide || msg == "" {
			msg = ce.Collaborator + " failed"
		}
		writeError(w, http.StatusInternalServerError, CodeCollaboratorError, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
