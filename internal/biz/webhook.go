package biz

import (
	"context"
	"fmt"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// WebhookUsecase de-duplicates provider webhooks by transaction id and
// settles pending idempotency entries.
type WebhookUsecase struct {
	txns   TransactionRegistry
	idemp  *IdempotencyStore
	logger *log.Helper
}

// NewWebhookUsecase creates the webhook handler.
func NewWebhookUsecase(txns TransactionRegistry, idemp *IdempotencyStore, logger log.Logger) *WebhookUsecase {
	return &WebhookUsecase{
		txns:   txns,
		idemp:  idemp,
		logger: log.NewHelper(logger),
	}
}

// HandleProviderWebhook processes one webhook delivery. Returns false when
// the transaction id was already seen (duplicate delivery, dropped).
// Registry failures degrade gracefully: the webhook is processed as if new,
// trading duplicate suppression for availability.
func (uc *WebhookUsecase) HandleProviderWebhook(ctx context.Context, provider, txnID string, status model.PaymentStatus, idempotencyKey string) (bool, error) {
	if provider == "" || txnID == "" {
		return false, fmt.Errorf("webhook missing provider or transaction id")
	}

	added, err := uc.txns.Add(ctx, provider+":"+txnID)
	if err != nil {
		uc.logger.Warnw(
			"msg", "transaction registry unavailable, processing webhook without dedup",
			"provider", provider,
			"txn_id", txnID,
			"error", err,
		)
		added = true
	}
	if !added {
		uc.logger.Infow(
			"msg", "dropping duplicate webhook",
			"provider", provider,
			"txn_id", txnID,
		)
		return false, nil
	}

	if idempotencyKey != "" {
		updated := uc.idemp.Update(idempotencyKey, IdempotencyResponse{
			Status: status,
			Data: map[string]any{
				"provider":        provider,
				"provider_txn_id": txnID,
			},
		})
		if !updated {
			uc.logger.Debugw(
				"msg", "webhook referenced unknown idempotency key",
				"key", idempotencyKey,
			)
		}
	}

	return true, nil
}
