package alerting

import (
	"context"

	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/domain/workforce"
	"github.com/turtacn/MallLedger/pkg/errors"
)

type directory struct {
	employees workforce.EmployeeSource
	renters   leasing.StoreSource
}

// NewDirectory resolves employee phones from employees and renter phones
// from renters.
func NewDirectory(employees workforce.EmployeeSource, renters leasing.StoreSource) RecipientDirectory {
	return &directory{employees: employees, renters: renters}
}

func (d *directory) PhoneFor(ctx context.Context, rt notification.RecipientType, id int64) (string, error) {
	switch rt {
	case notification.RecipientEmployee:
		e, err := d.employees.GetEmployee(ctx, id)
		if err != nil {
			return "", err
		}
		return e.Phone, nil
	case notification.RecipientRenter:
		r, err := d.renters.GetRenter(ctx, id)
		if err != nil {
			return "", err
		}
		return r.PhoneNumber, nil
	default:
		return "", errors.New(errors.ErrCodeRecipientUnresolved, "unknown recipient type").WithDetail(string(rt))
	}
}

//Personal.AI order the ending
