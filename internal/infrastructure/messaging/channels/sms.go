package channels

import (
	"context"

	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/client"
	"github.com/turtacn/MallLedger/pkg/errors"
)

type smsMessage struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type smsBulkMessage struct {
	Sender     string   `json:"sender"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

// SMS sends text messages through an SMS gateway that accepts single sends
// on its base URL and batches on {base}/bulk.
type SMS struct {
	client *client.Client
	sender string
	region string
	logger logging.Logger
}

// NewSMS builds the channel from its config section.
func NewSMS(cfg config.ChannelConfig, region string, log logging.Logger, opts ...client.Option) (*SMS, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("sms")
	if cfg.SenderID == "" {
		return nil, errors.ConfigurationMissing("notifications.sms.sender_id")
	}
	c, err := newProviderClient("sms", cfg, log, opts...)
	if err != nil {
		return nil, err
	}
	return &SMS{client: c, sender: cfg.SenderID, region: region, logger: log}, nil
}

// Send delivers text to one number.
func (s *SMS) Send(ctx context.Context, to, text string) error {
	phone, err := NormalizePhone(to, s.region)
	if err != nil {
		return err
	}
	if err := s.client.Post(ctx, "", smsMessage{Sender: s.sender, Recipient: phone, Message: text}, nil); err != nil {
		return sendFailure("sms", err)
	}
	s.logger.Debug("sms sent", logging.String("to", phone))
	return nil
}

// SendBulk posts every valid number in one batch request.  Numbers that do
// not normalise are reported as failed without being sent.
func (s *SMS) SendBulk(ctx context.Context, to []string, text string) (*BulkResult, error) {
	res := &BulkResult{}
	var valid []string
	for _, raw := range to {
		phone, err := NormalizePhone(raw, s.region)
		if err != nil {
			res.fail(raw, err)
			continue
		}
		valid = append(valid, phone)
	}
	if len(valid) == 0 {
		return res, nil
	}

	err := s.client.Post(ctx, "/bulk", smsBulkMessage{Sender: s.sender, Recipients: valid, Message: text}, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		err = sendFailure("sms bulk", err)
		for _, phone := range valid {
			res.fail(phone, err)
		}
		s.logger.Error("sms bulk send failed", logging.Int("recipients", len(valid)), logging.Err(err))
		return res, nil
	}
	res.Sent = len(valid)
	s.logger.Info("sms bulk sent", logging.Int("recipients", len(valid)), logging.Int("rejected", len(res.Failed)))
	return res, nil
}

//Personal.AI order the ending
