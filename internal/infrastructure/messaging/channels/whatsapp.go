package channels

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/client"
)

// bulkConcurrency caps parallel single sends during a WhatsApp bulk send.
const bulkConcurrency = 8

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// WhatsApp sends text messages through a WhatsApp Cloud style API.
type WhatsApp struct {
	client *client.Client
	region string
	logger logging.Logger
}

// NewWhatsApp builds the channel from its config section.  region is the
// default region for numbers stored without a country code.
func NewWhatsApp(cfg config.ChannelConfig, region string, log logging.Logger, opts ...client.Option) (*WhatsApp, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("whatsapp")
	c, err := newProviderClient("whatsapp", cfg, log, opts...)
	if err != nil {
		return nil, err
	}
	return &WhatsApp{client: c, region: region, logger: log}, nil
}

// Send delivers text to one number.
func (w *WhatsApp) Send(ctx context.Context, to, text string) error {
	phone, err := NormalizePhone(to, w.region)
	if err != nil {
		return err
	}
	msg := whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             whatsAppText{Body: text},
	}
	if err := w.client.Post(ctx, "", msg, nil); err != nil {
		return sendFailure("whatsapp", err)
	}
	w.logger.Debug("whatsapp message sent", logging.String("to", phone))
	return nil
}

// SendBulk sends text to every number concurrently.  The provider has no
// batch endpoint, so each number is its own request.
func (w *WhatsApp) SendBulk(ctx context.Context, to []string, text string) (*BulkResult, error) {
	var (
		mu  sync.Mutex
		res = &BulkResult{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, phone := range to {
		phone := phone
		g.Go(func() error {
			err := w.Send(gctx, phone, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.fail(phone, err)
			} else {
				res.Sent++
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !res.OK() {
		w.logger.Warn("whatsapp bulk send incomplete",
			logging.Int("sent", res.Sent),
			logging.Int("failed", len(res.Failed)))
	}
	return res, nil
}

//Personal.AI order the ending
