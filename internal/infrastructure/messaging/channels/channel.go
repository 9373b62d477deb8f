// Package channels delivers notification text over the WhatsApp and SMS
// provider APIs.
package channels

import (
	"fmt"

	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/client"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// FailedRecipient is one number a bulk send could not reach.
type FailedRecipient struct {
	To    string `json:"to"`
	Error string `json:"error"`
}

// BulkResult reports a bulk send.
type BulkResult struct {
	Sent   int               `json:"sent"`
	Failed []FailedRecipient `json:"failed,omitempty"`
}

// OK reports whether every recipient was reached.
func (r *BulkResult) OK() bool { return len(r.Failed) == 0 }

func (r *BulkResult) fail(to string, err error) {
	r.Failed = append(r.Failed, FailedRecipient{To: to, Error: err.Error()})
}

// newProviderClient builds the retrying HTTP client shared by both channels.
func newProviderClient(name string, cfg config.ChannelConfig, log logging.Logger, opts ...client.Option) (*client.Client, error) {
	base := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(clientLogger{log}),
	}
	if cfg.RetryMax > 0 {
		base = append(base, client.WithRetryMax(cfg.RetryMax))
	}
	c, err := client.NewClient(cfg.APIURL, cfg.APIKey, append(base, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, name+" channel misconfigured")
	}
	return c, nil
}

func sendFailure(channel string, err error) error {
	return errors.Wrap(err, errors.ErrCodeChannelFailure, channel+" send failed")
}

// clientLogger routes the provider client's printf-style logs into the
// structured logger.
type clientLogger struct{ log logging.Logger }

func (l clientLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l clientLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l clientLogger) Errorf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

//Personal.AI order the ending
