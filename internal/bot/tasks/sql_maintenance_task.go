package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/askbot/internal/database"
)

// newSQLMaintenanceTask vacuums the database when the store supports it.
// With the JSON store it does nothing.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		maintainer, ok := deps.Store.(database.Maintainer)
		if !ok {
			log.DebugContext(ctx, "Store does not support maintenance, skipping")
			return nil
		}

		startTime := time.Now()
		if err := maintainer.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance task completed", "duration", time.Since(startTime))
		return nil
	}
}
