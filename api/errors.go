package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/warp/crew-ledger/debts"
	"github.com/warp/crew-ledger/records"
	"github.com/warp/crew-ledger/worker"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError points a rejection at one request field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst as it is. On failure the 400 has already been written.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Invalid request", err)
			return false
		}
		resp := ErrorResponse{Error: "Validation failed"}
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, FieldError{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: fe.Error(),
			})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

// writeDomainError maps service and store errors onto a status. Anything
// unrecognised is logged and answered with 500.
func writeDomainError(w http.ResponseWriter, logger zerolog.Logger, op string, err error) {
	var verr *debts.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   verr.Message,
			Details: verr.Error(),
			Fields:  []FieldError{{Field: verr.Field, Code: verr.Code, Message: verr.Message}},
		})
	case records.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case records.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, records.ErrMissingReferenceRate):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Details: err.Error(),
			Fields:  []FieldError{{Field: "reference_pay_rate", Code: "required", Message: err.Error()}},
		})
	case records.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, worker.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request not completed", err)
	default:
		logger.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Failed to "+op, err)
	}
}
