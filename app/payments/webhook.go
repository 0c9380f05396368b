package payments

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Nudger schedules an immediate status check for an invoice.
type Nudger interface {
	Nudge(invoiceID string) bool
}

type webhookPayload struct {
	UUID    string `json:"uuid"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// WebhookHandler accepts processor callbacks. The payload is not trusted: it
// only triggers a signed status poll for the invoice it names.
func WebhookHandler(n Nudger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload webhookPayload
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil || payload.UUID == "" {
			log.Warnf("WebhookHandler: bad payload: %v", err)
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		if !n.Nudge(payload.UUID) {
			log.Infof("WebhookHandler: invoice %s is not tracked (status %s)", payload.UUID, payload.Status)
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
	}
}
