package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/edgard/askbot/internal/database"
)

// newDailyReportTask sends the statistics summary to the administrator.
func newDailyReportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_report")
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context) error {
		summary, err := database.LoadSummary(ctx, deps.Store, now)
		if err != nil {
			return fmt.Errorf("daily report: %w", err)
		}

		msgs := deps.Config.Messages
		text := msgs.DailyReportHeader +
			fmt.Sprintf(msgs.StatsFmt, summary.TotalUsers, summary.TotalQuestions, summary.ActiveToday)

		adminID := deps.Config.Telegram.AdminUserID
		if _, err := deps.Notifier.SendMessage(ctx, &bot.SendMessageParams{ChatID: adminID, Text: text}); err != nil {
			return fmt.Errorf("daily report: send to admin %d: %w", adminID, err)
		}

		log.InfoContext(ctx, "Daily report sent", "total_users", summary.TotalUsers, "active_today", summary.ActiveToday)
		return nil
	}
}
