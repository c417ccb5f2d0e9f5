package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/labelgw/label-gateway/internal/model"
	"github.com/labelgw/label-gateway/internal/pipeline"
	"github.com/labelgw/label-gateway/internal/repository"
)

// Dispatcher is what the webhook handler needs from the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.InboundEvent) pipeline.Outcome
}

type webhookConfig struct {
	legacyAccountID string
	signatureHeader string
}

// webhookHandler ingests carrier event deliveries. The carrier treats
// any non-2xx as a delivery failure and redelivers with backoff, so
// the handler acknowledges everything it never wants to see again and
// reserves 5xx for outcomes worth retrying.
func webhookHandler(accounts repository.AccountsRepository, disp Dispatcher, cfg webhookConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		}

		accountID := strings.TrimSpace(c.Param("account_id"))
		if accountID == "" {
			// backward-compatible single-tenant path
			accountID = cfg.legacyAccountID
		}
		if accountID == "" {
			log.Errorf("webhook without account segment and no legacy account configured")
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "reason": "no account configured"})
		}

		account, err := accounts.GetAccount(c.Request().Context(), accountID)
		if err != nil {
			log.Errorf("account lookup failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "account lookup failed"})
		}
		if account == nil {
			// permanent config problem; a 5xx would only make the
			// carrier hammer us with the same unroutable event
			log.Errorf("webhook for unknown account %q acknowledged and dropped", accountID)
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "reason": "unknown account"})
		}

		if account.WebhookSecret != nil && *account.WebhookSecret != "" {
			sig := c.Request().Header.Get(cfg.signatureHeader)
			if !verifySignature(sig, body, *account.WebhookSecret) {
				log.Warnf("webhook signature mismatch for account %s", accountID)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			}
		}

		event, err := model.ParseInboundEvent(body, accountID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed event payload"})
		}

		if event.Type != model.EventTrackerCreated {
			return c.JSON(http.StatusOK, map[string]string{
				"status":  "acknowledged",
				"message": "event type " + event.Type + " not processed",
			})
		}

		out := disp.Dispatch(c.Request().Context(), event)

		resp := map[string]any{
			"status": out.Status.String(),
			"stage":  out.Stage,
		}
		if out.RelayJobID != 0 {
			resp["relay_job_id"] = out.RelayJobID
		}
		if out.TrackingCode != "" {
			resp["tracking_code"] = out.TrackingCode
		}

		if out.Class == pipeline.ClassTransient {
			// ask the carrier to redeliver
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// verifySignature checks the carrier's HMAC-SHA256 hex digest over the
// raw request body, constant-time.
func verifySignature(signature string, body []byte, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
