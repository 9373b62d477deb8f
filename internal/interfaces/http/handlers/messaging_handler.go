package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/channels"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// maxBulkRecipients bounds one bulk request.
const maxBulkRecipients = 500

// BulkSender is a messaging channel able to reach many numbers at once.
type BulkSender interface {
	Send(ctx context.Context, to, text string) error
	SendBulk(ctx context.Context, to []string, text string) (*channels.BulkResult, error)
}

// MessagingHandler sends ad hoc messages over the configured channels.  A nil
// sender means the channel is disabled.
type MessagingHandler struct {
	whatsapp BulkSender
	sms      BulkSender
	logger   logging.Logger
}

// NewMessagingHandler creates a new MessagingHandler.
func NewMessagingHandler(whatsapp, sms BulkSender, logger logging.Logger) *MessagingHandler {
	return &MessagingHandler{
		whatsapp: whatsapp,
		sms:      sms,
		logger:   orNop(logger).Named("messaging-handler"),
	}
}

// SendMessageRequest is the body of a single send.
type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// BulkMessageRequest is the body of a bulk send.
type BulkMessageRequest struct {
	To      []string `json:"to"`
	Message string   `json:"message"`
}

// SendResponse acknowledges a single send.
type SendResponse struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Sent    bool   `json:"sent"`
}

// SendWhatsApp handles POST /api/v1/messaging/whatsapp.
func (h *MessagingHandler) SendWhatsApp(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, "whatsapp", h.whatsapp)
}

// SendSMS handles POST /api/v1/messaging/sms.
func (h *MessagingHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, "sms", h.sms)
}

// BulkWhatsApp handles POST /api/v1/messaging/whatsapp/bulk.
func (h *MessagingHandler) BulkWhatsApp(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "whatsapp", h.whatsapp)
}

// BulkSMS handles POST /api/v1/messaging/sms/bulk.
func (h *MessagingHandler) BulkSMS(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "sms", h.sms)
}

func (h *MessagingHandler) send(w http.ResponseWriter, r *http.Request, channel string, sender BulkSender) {
	if sender == nil {
		writeAppError(w, r, h.logger, channelDisabled(channel))
		return
	}
	var req SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.To) == "" {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeValidation, "to and message are required"))
		return
	}

	if err := sender.Send(r.Context(), req.To, req.Message); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SendResponse{Channel: channel, To: req.To, Sent: true})
}

// bulk answers 200 when every number was reached and 207 otherwise.
func (h *MessagingHandler) bulk(w http.ResponseWriter, r *http.Request, channel string, sender BulkSender) {
	if sender == nil {
		writeAppError(w, r, h.logger, channelDisabled(channel))
		return
	}
	var req BulkMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" || len(req.To) == 0 {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeValidation, "to and message are required"))
		return
	}
	if len(req.To) > maxBulkRecipients {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeValidation, "too many recipients"))
		return
	}

	res, err := sender.SendBulk(r.Context(), req.To, req.Message)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, res)
}

func channelDisabled(channel string) error {
	return errors.New(errors.ErrCodeServiceUnavailable, "messaging channel is disabled").WithDetail(channel)
}

//Personal.AI order the ending
