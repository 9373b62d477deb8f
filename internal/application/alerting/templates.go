package alerting

import (
	"fmt"

	"github.com/turtacn/MallLedger/internal/domain/notification"
)

// Notification titles.
const (
	TitleEmployeeContractExpiring = "Employee Contract Expiring"
	TitleStoreContractExpiring    = "Store Contract Expiring"
	TitlePaymentOverdue           = "Payment Overdue"
	TitleEmployeeAbsent           = "Employee Absent"
	TitleAbsenceLimitExceeded     = "Absence Limit Exceeded"
)

func contractExpiryMessage(kind, subject string, days int) string {
	return fmt.Sprintf("Contract for %s %s will expire in %d days.", kind, subject, days)
}

func paymentOverdueMessage(amount, store string, days int) string {
	return fmt.Sprintf("Payment of %s for store %s is overdue by %d days.", amount, store, days)
}

func absenceMessage(name string) string {
	return fmt.Sprintf("Employee %s was absent today.", name)
}

func absenceLimitMessage(name string, count int) string {
	return fmt.Sprintf("Employee %s has been absent %d times this month.", name, count)
}

// ChannelText renders the outbound message of n from its metadata.  When the
// template arguments are missing the stored message is used as is.
func ChannelText(n *notification.Notification) string {
	subject := n.Metadata[metaSubject]
	magnitude := n.Metadata[notification.MetaMagnitude]
	if subject == "" || magnitude == "" {
		return n.Message
	}
	switch n.Type {
	case notification.TypeContractExpiry:
		return fmt.Sprintf("IMPORTANT: Your contract for %s will expire in %s days. Please contact the administration.",
			subject, magnitude)
	case notification.TypePaymentOverdue:
		amount := n.Metadata[metaAmount]
		if amount == "" {
			return n.Message
		}
		return fmt.Sprintf("URGENT: Payment of %s for store %s is overdue by %s days. Please make the payment immediately.",
			amount, subject, magnitude)
	case notification.TypeAbsence:
		return fmt.Sprintf("NOTICE: %s, you were absent today. Please provide a reason for your absence.", subject)
	case notification.TypeAbsenceLimit:
		return fmt.Sprintf("WARNING: %s, you have been absent %s times this month. Please contact HR immediately.",
			subject, magnitude)
	default:
		return n.Message
	}
}

// adminText is what admin phones receive for n.
func adminText(n *notification.Notification) string {
	return fmt.Sprintf("[%s] %s: %s", n.Severity, n.Title, n.Message)
}

//Personal.AI order the ending
