package channels

import (
	"strings"

	"github.com/ttacon/libphonenumber"

	"github.com/turtacn/MallLedger/pkg/errors"
)

// NormalizePhone parses raw in region and formats it as E.164.  Numbers that
// already carry a leading + ignore region.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New(errors.ErrCodeInvalidPhone, "phone number is empty")
	}
	p, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidPhone, "phone number cannot be parsed").WithDetail(raw)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", errors.New(errors.ErrCodeInvalidPhone, "phone number is not valid").WithDetail(raw)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

//Personal.AI order the ending
