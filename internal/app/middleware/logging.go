package middleware

import (
	"context"
	"log/slog"
	"time"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/queries"
	"hostdesk/internal/domain/shared/fault"
)

func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, took time.Duration, err error) {
	attrs := []any{slog.String(kind, key), slog.Duration("took", took)}
	if err == nil {
		logger.DebugContext(ctx, kind+" handled", attrs...)
		return
	}
	errKind := fault.KindOf(err)
	attrs = append(attrs, slog.String("kind", string(errKind)), slog.Any("err", err))
	if errKind == fault.KindUnknown {
		logger.ErrorContext(ctx, kind+" failed", attrs...)
		return
	}
	logger.InfoContext(ctx, kind+" rejected", attrs...)
}
