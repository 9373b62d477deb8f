// Package handlers implements the MallLedger HTTP API: invoice generation and
// queries, notification scans and inbox, ad hoc messaging and health probes.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// parsePagination extracts page and page_size from query parameters.
func parsePagination(r *http.Request) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: 20}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			p.PageSize = n
		}
	}
	return p
}

// pathID parses the chi URL parameter name as a positive int64.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidParam("invalid " + name).WithDetail(raw)
	}
	return id, nil
}

// recipientFromQuery reads recipient_type and recipient_id.
func recipientFromQuery(r *http.Request) (notification.Recipient, error) {
	q := r.URL.Query()
	rt, err := notification.ParseRecipientType(q.Get("recipient_type"))
	if err != nil {
		return notification.Recipient{}, errors.InvalidParam("recipient_type must be Employee or Renter").WithDetail(q.Get("recipient_type"))
	}
	id, err := strconv.ParseInt(q.Get("recipient_id"), 10, 64)
	if err != nil || id <= 0 {
		return notification.Recipient{}, errors.InvalidParam("invalid recipient_id").WithDetail(q.Get("recipient_id"))
	}
	return notification.Recipient{Type: rt, ID: id}, nil
}

// decodeJSON decodes a bounded request body into dst, rejecting unknown
// fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body")
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps err to its HTTP status through the error code table.
// Server-side failures are logged and masked.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	resp := ErrorResponse{RequestID: chimw.GetReqID(r.Context())}

	var ae *errors.AppError
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		resp.Code = string(errors.ErrCodeTimeout)
		resp.Message = "request cancelled before completion"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	case stderrors.As(err, &ae):
		status := errors.HTTPStatusForCode(ae.Code)
		resp.Code = string(ae.Code)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", logging.String("path", r.URL.Path), logging.Err(err))
		}
		if status == http.StatusInternalServerError {
			resp.Message = errors.DefaultMessageForCode(ae.Code)
		} else {
			resp.Message = ae.Message
			resp.Detail = ae.Detail
		}
		writeJSON(w, status, resp)
		return
	default:
		logger.Error("request failed", logging.String("path", r.URL.Path), logging.Err(err))
		resp.Code = string(errors.ErrCodeInternal)
		resp.Message = "internal server error"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func orNop(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NewNopLogger()
	}
	return l
}

//Personal.AI order the ending
