package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// MaxReportedFailures caps Result.FailedIDs.
const MaxReportedFailures = 20

// Sender delivers one message to one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) error
}

// Result counts per-recipient outcomes of a fan-out.
type Result struct {
	ID        string
	Delivered int
	Failed    int
	FailedIDs []int64
}

// Fanout sends p to every recipient in order. A failed send is counted and
// logged; it never stops the remaining sends.
func Fanout(ctx context.Context, sender Sender, p Payload, recipients []int64, log *slog.Logger) Result {
	res := Result{ID: uuid.NewString()}
	log = log.With("broadcast_id", res.ID, "kind", string(p.Kind))
	log.InfoContext(ctx, "Broadcast started", "recipients", len(recipients))

	for _, id := range recipients {
		if err := send(ctx, sender, p, id); err != nil {
			res.Failed++
			if len(res.FailedIDs) < MaxReportedFailures {
				res.FailedIDs = append(res.FailedIDs, id)
			}
			log.WarnContext(ctx, "Broadcast delivery failed", "user_id", id, "error", err)
			continue
		}
		res.Delivered++
	}

	log.InfoContext(ctx, "Broadcast finished", "delivered", res.Delivered, "failed", res.Failed)
	return res
}

func send(ctx context.Context, sender Sender, p Payload, chatID int64) error {
	switch p.Kind {
	case KindText:
		return sender.SendText(ctx, chatID, p.Text)
	case KindPhoto:
		return sender.SendPhoto(ctx, chatID, p.FileID, p.Caption)
	case KindVideo:
		return sender.SendVideo(ctx, chatID, p.FileID, p.Caption)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
}
