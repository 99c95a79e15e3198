// Package results consumes verifier results from Kafka and applies them to
// their sessions.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"suiverify/internal/kyc/models"
	"suiverify/internal/platform/kafka/consumer"
	dErrors "suiverify/pkg/domain-errors"
)

// Applier stores a verifier result on its session.
type Applier interface {
	ApplyResult(ctx context.Context, result models.VerificationResult) (*models.Session, error)
}

// Handler implements consumer.Handler.
type Handler struct {
	applier Applier
	logger  *slog.Logger
}

var _ consumer.Handler = (*Handler)(nil)

func NewHandler(applier Applier, logger *slog.Logger) *Handler {
	return &Handler{applier: applier, logger: logger}
}

// permanent codes can never succeed on redelivery.
var permanent = []dErrors.Code{
	dErrors.CodeInvalidInput,
	dErrors.CodeValidation,
	dErrors.CodeNotFound,
	dErrors.CodeExpired,
	dErrors.CodeInvalidState,
	dErrors.CodeInvariantViolation,
}

// Handle applies one result. Malformed payloads, unknown or expired sessions,
// conflicting outcomes and evidence mismatches are skipped so the offset is
// committed; anything else is returned for redelivery.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var result models.VerificationResult
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal verification result",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return fmt.Errorf("unmarshal verification result: %w: %w", err, consumer.ErrSkip)
	}
	if result.SessionID == "" {
		result.SessionID = string(msg.Key)
	}

	session, err := h.applier.ApplyResult(ctx, result)
	if err != nil {
		for _, code := range permanent {
			if dErrors.HasCode(err, code) {
				h.logger.WarnContext(ctx, "verification result skipped",
					"session_id", result.SessionID,
					"reason", string(code),
					"error", err,
				)
				return fmt.Errorf("apply result for %s: %w: %w", result.SessionID, err, consumer.ErrSkip)
			}
		}
		return fmt.Errorf("apply result for %s: %w", result.SessionID, err)
	}

	h.logger.DebugContext(ctx, "verification result applied",
		"session_id", result.SessionID,
		"state", string(session.State),
	)
	return nil
}
