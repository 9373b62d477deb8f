package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

func newNotificationRouter() (http.Handler, *mockScans, *mockInbox) {
	scans, ib := &mockScans{}, &mockInbox{}
	h := NewNotificationHandler(scans, ib, nil)

	r := chi.NewRouter()
	r.Post("/notifications/check-contracts", h.CheckContracts)
	r.Post("/notifications/check-payments", h.CheckPayments)
	r.Post("/notifications/check-attendance", h.CheckAttendance)
	r.Post("/notifications/check-all", h.CheckAll)
	r.Get("/notifications", h.List)
	r.Get("/notifications/unread", h.ListUnread)
	r.Get("/notifications/unread/count", h.UnreadCount)
	r.Put("/notifications/read-all", h.MarkAllRead)
	r.Post("/notifications/purge", h.Purge)
	r.Get("/notifications/{id}", h.Get)
	r.Put("/notifications/{id}/read", h.MarkRead)
	r.Delete("/notifications/{id}", h.Delete)
	return r, scans, ib
}

var renter3 = notification.Recipient{Type: notification.RecipientRenter, ID: 3}

func TestCheckEndpoints_RunScannerGroups(t *testing.T) {
	tests := []struct {
		path  string
		names []string
	}{
		{"/notifications/check-contracts", alerting.GroupContracts},
		{"/notifications/check-payments", alerting.GroupPayments},
		{"/notifications/check-attendance", alerting.GroupAttendance},
		{"/notifications/check-all", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, scans, _ := newNotificationRouter()
			scans.On("Run", mock.Anything, tt.names).
				Return([]*alerting.ScanReport{{Scanner: "x", Findings: 2, Raised: 1, Suppressed: 1}}, nil)

			w := do(t, r, http.MethodPost, tt.path, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			resp := decode[ScanResponse](t, w)
			assert.Len(t, resp.Reports, 1)
			assert.Equal(t, 1, resp.Reports[0].Suppressed)
			scans.AssertExpectations(t)
		})
	}
}

func TestCheckAll_CancelledReturnsPartialReports(t *testing.T) {
	r, scans, _ := newNotificationRouter()
	scans.On("Run", mock.Anything, []string(nil)).
		Return([]*alerting.ScanReport{{Scanner: alerting.ScannerContractExpiry, Cancelled: true}}, context.DeadlineExceeded)

	w := do(t, r, http.MethodPost, "/notifications/check-all", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[ScanResponse](t, w)
	assert.True(t, resp.Cancelled)
	assert.Len(t, resp.Reports, 1)
}

func TestList_ParsesFilter(t *testing.T) {
	r, _, ib := newNotificationRouter()
	want := notification.ListFilter{
		Recipient:  renter3,
		UnreadOnly: true,
		Type:       notification.TypePaymentOverdue,
		Severity:   notification.SeverityCritical,
		Pagination: common.Pagination{Page: 2, PageSize: 10},
	}
	ib.On("List", mock.Anything, want).Return(&common.PageResponse[*notification.Notification]{
		Items: []*notification.Notification{{ID: 1, Type: notification.TypePaymentOverdue}},
		Total: 11, Page: 2, PageSize: 10,
	}, nil)

	w := do(t, r, http.MethodGet,
		"/notifications?recipient_type=renter&recipient_id=3&unread=true&type=payment_overdue&severity=critical&page=2&page_size=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	page := decode[common.PageResponse[*notification.Notification]](t, w)
	assert.Equal(t, 11, page.Total)
	ib.AssertExpectations(t)
}

func TestList_Validation(t *testing.T) {
	r, _, ib := newNotificationRouter()

	for _, target := range []string{
		"/notifications?recipient_id=3",
		"/notifications?recipient_type=Manager&recipient_id=3",
		"/notifications?recipient_type=Renter&recipient_id=x",
		"/notifications?recipient_type=Renter&recipient_id=3&type=Birthday",
		"/notifications?recipient_type=Renter&recipient_id=3&severity=loud",
	} {
		w := do(t, r, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	ib.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListUnread_ForcesUnreadOnly(t *testing.T) {
	r, _, ib := newNotificationRouter()
	ib.On("List", mock.Anything, mock.MatchedBy(func(f notification.ListFilter) bool {
		return f.UnreadOnly && f.Recipient == renter3 && f.Pagination.Page == 1
	})).Return(&common.PageResponse[*notification.Notification]{}, nil)

	w := do(t, r, http.MethodGet, "/notifications/unread?recipient_type=Renter&recipient_id=3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	ib.AssertExpectations(t)
}

func TestUnreadCount(t *testing.T) {
	r, _, ib := newNotificationRouter()
	ib.On("UnreadCount", mock.Anything, renter3).Return(int64(4), nil)

	w := do(t, r, http.MethodGet, "/notifications/unread/count?recipient_type=Renter&recipient_id=3", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recipient_type":"Renter","recipient_id":3,"count":4}`, w.Body.String())
}

func TestMarkRead(t *testing.T) {
	r, _, ib := newNotificationRouter()
	readAt := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	ib.On("MarkRead", mock.Anything, int64(7)).Return(&notification.Notification{ID: 7, IsRead: true, ReadAt: &readAt}, nil)
	ib.On("MarkRead", mock.Anything, int64(8)).Return(nil, errors.New(errors.ErrCodeNotificationNotFound, "notification not found"))

	w := do(t, r, http.MethodPut, "/notifications/7/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[notification.Notification](t, w).IsRead)

	w = do(t, r, http.MethodPut, "/notifications/8/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAllRead(t *testing.T) {
	r, _, ib := newNotificationRouter()
	ib.On("MarkAllRead", mock.Anything, renter3).Return(int64(5), nil)

	w := do(t, r, http.MethodPut, "/notifications/read-all?recipient_type=Renter&recipient_id=3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), decode[MarkAllReadResponse](t, w).Updated)
}

func TestGetAndDelete(t *testing.T) {
	r, _, ib := newNotificationRouter()
	ib.On("Get", mock.Anything, int64(7)).Return(&notification.Notification{ID: 7, Title: "Payment Overdue"}, nil)
	ib.On("Delete", mock.Anything, int64(7)).Return(nil)
	ib.On("Delete", mock.Anything, int64(9)).Return(errors.New(errors.ErrCodeNotificationNotFound, "notification not found"))

	w := do(t, r, http.MethodGet, "/notifications/7", nil)
	assert.Equal(t, "Payment Overdue", decode[notification.Notification](t, w).Title)

	w = do(t, r, http.MethodDelete, "/notifications/7", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(t, r, http.MethodDelete, "/notifications/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, "/notifications/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurge(t *testing.T) {
	r, _, ib := newNotificationRouter()
	ib.On("Purge", mock.Anything).Return(inbox.PurgeResult{
		notification.SeverityInfo:    3,
		notification.SeverityWarning: 2,
	}, nil)

	w := do(t, r, http.MethodPost, "/notifications/purge", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[PurgeResponse](t, w)
	assert.Equal(t, int64(5), resp.Deleted)
	assert.Equal(t, int64(2), resp.BySeverity[notification.SeverityWarning])
}

//Personal.AI order the ending
