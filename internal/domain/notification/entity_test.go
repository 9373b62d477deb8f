package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityWarning))
	assert.True(t, SeverityWarning.AtLeast(SeverityWarning))
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
	assert.False(t, Severity("bogus").IsValid())
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("critical")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, s)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	for raw, want := range map[string]Type{
		"ContractExpiry":  TypeContractExpiry,
		"contract_expiry": TypeContractExpiry,
		"payment_overdue": TypePaymentOverdue,
		"absence":         TypeAbsence,
		"absencelimit":    TypeAbsenceLimit,
	} {
		got, err := ParseType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("loan")
	assert.Error(t, err)
}

func TestNotification_MarkReadKeepsFirstTimestamp(t *testing.T) {
	n := &Notification{}
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	n.MarkRead(first)
	n.MarkRead(first.Add(time.Hour))

	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	assert.Equal(t, first, *n.ReadAt)
}

func TestNotification_IdentityAndMeta(t *testing.T) {
	n := &Notification{
		Type:              TypeAbsence,
		RelatedEntityType: EntityEmployee,
		RelatedEntityID:   42,
		ConditionKey:      "2025-03-04",
	}
	id := n.Identity()
	assert.Equal(t, "Absence/Employee/42/2025-03-04", id.String())
	assert.Equal(t, "PaymentOverdue/RentInvoice/9", Identity{Type: TypePaymentOverdue, EntityType: EntityRentInvoice, EntityID: 9}.String())

	n.SetMeta(MetaMagnitude, "1")
	assert.Equal(t, "1", n.Metadata[MetaMagnitude])
}

//Personal.AI order the ending
