package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// ScanRunner runs named finding scanners; no names means all of them.
type ScanRunner interface {
	Run(ctx context.Context, names ...string) ([]*alerting.ScanReport, error)
}

// NotificationHandler handles scan triggers and the notification inbox.
type NotificationHandler struct {
	scans  ScanRunner
	inbox  inbox.Service
	logger logging.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(scans ScanRunner, inboxSvc inbox.Service, logger logging.Logger) *NotificationHandler {
	return &NotificationHandler{
		scans:  scans,
		inbox:  inboxSvc,
		logger: orNop(logger).Named("notification-handler"),
	}
}

// ScanResponse is returned by every check endpoint.
type ScanResponse struct {
	Reports   []*alerting.ScanReport `json:"reports"`
	Cancelled bool                   `json:"cancelled,omitempty"`
}

// UnreadCountResponse is returned by the unread count endpoint.
type UnreadCountResponse struct {
	notification.Recipient
	Count int64 `json:"count"`
}

// MarkAllReadResponse is returned by the mark-all-read endpoint.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// PurgeResponse is returned by the purge endpoint.
type PurgeResponse struct {
	Deleted    int64             `json:"deleted"`
	BySeverity inbox.PurgeResult `json:"by_severity"`
}

// CheckContracts handles POST /api/v1/notifications/check-contracts.
func (h *NotificationHandler) CheckContracts(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r, alerting.GroupContracts...)
}

// CheckPayments handles POST /api/v1/notifications/check-payments.
func (h *NotificationHandler) CheckPayments(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r, alerting.GroupPayments...)
}

// CheckAttendance handles POST /api/v1/notifications/check-attendance.
func (h *NotificationHandler) CheckAttendance(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r, alerting.GroupAttendance...)
}

// CheckAll handles POST /api/v1/notifications/check-all.
func (h *NotificationHandler) CheckAll(w http.ResponseWriter, r *http.Request) {
	h.runScan(w, r)
}

func (h *NotificationHandler) runScan(w http.ResponseWriter, r *http.Request, names ...string) {
	reports, err := h.scans.Run(r.Context(), names...)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			writeJSON(w, http.StatusServiceUnavailable, ScanResponse{Reports: reports, Cancelled: true})
			return
		}
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{Reports: reports})
}

// List handles GET /api/v1/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	h.list(w, r, unread)
}

// ListUnread handles GET /api/v1/notifications/unread.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *NotificationHandler) list(w http.ResponseWriter, r *http.Request, unreadOnly bool) {
	recipient, err := recipientFromQuery(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	f := notification.ListFilter{
		Recipient:  recipient,
		UnreadOnly: unreadOnly,
		Pagination: parsePagination(r),
	}
	q := r.URL.Query()
	if raw := q.Get("type"); raw != "" {
		if f.Type, err = notification.ParseType(raw); err != nil {
			writeAppError(w, r, h.logger, errors.InvalidParam("unknown notification type").WithDetail(raw))
			return
		}
	}
	if raw := q.Get("severity"); raw != "" {
		if f.Severity, err = notification.ParseSeverity(raw); err != nil {
			writeAppError(w, r, h.logger, errors.InvalidParam("unknown severity").WithDetail(raw))
			return
		}
	}

	page, err := h.inbox.List(r.Context(), f)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// UnreadCount handles GET /api/v1/notifications/unread/count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	recipient, err := recipientFromQuery(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	n, err := h.inbox.UnreadCount(r.Context(), recipient)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Recipient: recipient, Count: n})
}

// Get handles GET /api/v1/notifications/{id}.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	n, err := h.inbox.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkRead handles PUT /api/v1/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	n, err := h.inbox.MarkRead(r.Context(), id)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkAllRead handles PUT /api/v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	recipient, err := recipientFromQuery(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	n, err := h.inbox.MarkAllRead(r.Context(), recipient)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: n})
}

// Delete handles DELETE /api/v1/notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if err := h.inbox.Delete(r.Context(), id); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purge handles POST /api/v1/notifications/purge.
func (h *NotificationHandler) Purge(w http.ResponseWriter, r *http.Request) {
	res, err := h.inbox.Purge(r.Context())
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Deleted: res.Total(), BySeverity: res})
}

//Personal.AI order the ending
