package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/pkg/errors"
)

type mockNotificationPublisher struct{ mock.Mock }

func (m *mockNotificationPublisher) PublishNotificationCreated(ctx context.Context, n *notification.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func overdueFinding(sev notification.Severity, days int) Finding {
	return Finding{
		Type:          notification.TypePaymentOverdue,
		Title:         TitlePaymentOverdue,
		Message:       paymentOverdueMessage("1000.00", "A-12", days),
		Severity:      sev,
		Magnitude:     days,
		Subject:       "A-12",
		RecipientType: notification.RecipientRenter,
		RecipientID:   42,
		EntityType:    notification.EntityRentInvoice,
		EntityID:      7,
		Metadata:      map[string]string{metaAmount: "1000.00"},
	}
}

func newTestWriter(repo notification.Repository) *Writer {
	return NewWriter(repo, nil, nil, func() time.Time { return day(2025, 4, 10) })
}

func TestWriter_CreatesThenSuppresses(t *testing.T) {
	repo := newMemNotifications()
	w := newTestWriter(repo)

	res, err := w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 10))
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, res.Status)
	assert.Equal(t, "10", res.Notification.Metadata[notification.MetaMagnitude])
	assert.Equal(t, "A-12", res.Notification.Metadata[metaSubject])

	res, err = w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 11))
	require.NoError(t, err)
	assert.Equal(t, WriteSuppressed, res.Status)
	assert.Len(t, repo.all(), 1)
}

func TestWriter_HigherSeveritySupersedes(t *testing.T) {
	repo := newMemNotifications()
	w := newTestWriter(repo)

	first, err := w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 20))
	require.NoError(t, err)

	res, err := w.Write(context.Background(), overdueFinding(notification.SeverityCritical, 30))
	require.NoError(t, err)
	assert.Equal(t, WriteSuperseded, res.Status)
	assert.Equal(t, []int64{first.Notification.ID}, res.Superseded)

	unread := repo.unread()
	require.Len(t, unread, 1)
	assert.Equal(t, notification.SeverityCritical, unread[0].Severity)
	assert.Equal(t, itoa(first.Notification.ID), unread[0].Metadata[notification.MetaSupersedes])

	old, err := repo.GetByID(context.Background(), first.Notification.ID)
	require.NoError(t, err)
	assert.True(t, old.IsRead)
	assert.Equal(t, itoa(res.Notification.ID), old.Metadata[notification.MetaSupersededBy])
}

func TestWriter_LowerSeverityIsSuppressedByCritical(t *testing.T) {
	repo := newMemNotifications()
	w := newTestWriter(repo)

	_, err := w.Write(context.Background(), overdueFinding(notification.SeverityCritical, 30))
	require.NoError(t, err)
	res, err := w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 10))
	require.NoError(t, err)
	assert.Equal(t, WriteSuppressed, res.Status)
	assert.Len(t, repo.all(), 1)
}

func TestWriter_ReadNotificationDoesNotSuppress(t *testing.T) {
	repo := newMemNotifications()
	w := newTestWriter(repo)

	res, err := w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 10))
	require.NoError(t, err)
	n := res.Notification
	n.MarkRead(day(2025, 4, 10))
	require.NoError(t, repo.UpdateRead(context.Background(), n))

	res, err = w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 11))
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, res.Status)
	assert.Len(t, repo.all(), 2)
}

func TestWriter_ConditionKeySeparatesIdentities(t *testing.T) {
	repo := newMemNotifications()
	w := newTestWriter(repo)

	f := Finding{
		Type: notification.TypeAbsence, Title: TitleEmployeeAbsent, Severity: notification.SeverityWarning,
		RecipientType: notification.RecipientEmployee, RecipientID: 3,
		EntityType: notification.EntityEmployee, EntityID: 3, ConditionKey: "2025-04-09",
	}
	_, err := w.Write(context.Background(), f)
	require.NoError(t, err)

	f.ConditionKey = "2025-04-10"
	res, err := w.Write(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, res.Status)
	assert.Len(t, repo.unread(), 2)
}

func TestWriter_PublishesCreatedEvents(t *testing.T) {
	pub := &mockNotificationPublisher{}
	pub.On("PublishNotificationCreated", mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeExternalService, "broker down")).Once()

	w := NewWriter(newMemNotifications(), pub, nil, nil)
	res, err := w.Write(context.Background(), overdueFinding(notification.SeverityWarning, 10))
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, res.Status)
	pub.AssertExpectations(t)
}

func TestPublishers_TriesEveryPublisher(t *testing.T) {
	failing := &mockNotificationPublisher{}
	failing.On("PublishNotificationCreated", mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeExternalService, "broker down")).Once()
	ok := &mockNotificationPublisher{}
	ok.On("PublishNotificationCreated", mock.Anything, mock.Anything).Return(nil).Once()

	err := Publishers{failing, nil, ok}.PublishNotificationCreated(context.Background(), &notification.Notification{ID: 1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
	failing.AssertExpectations(t)
	ok.AssertExpectations(t)
}

func TestWriter_RejectsFindingWithoutSeverity(t *testing.T) {
	w := newTestWriter(newMemNotifications())
	_, err := w.Write(context.Background(), overdueFinding("", 10))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

//Personal.AI order the ending
