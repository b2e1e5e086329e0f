package middleware

import (
	"context"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs every command inside its own unit of work. A handler error
// or a cancelled context rolls the unit back.
func Transaction(factory uow.Factory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var res any
			err := uow.Run(ctx, factory, opts, func(execCtx context.Context, _ uow.UnitOfWork) error {
				out, err := next.Dispatch(execCtx, cmd)
				if err != nil {
					return err
				}
				if err := execCtx.Err(); err != nil {
					return err
				}
				res = out
				return nil
			})
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

// OutboxFlush writes the events staged by the handler through the unit's
// transaction. It must sit inside Transaction.
func OutboxFlush() CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			unit, ok := uow.FromContext(ctx)
			if !ok {
				return nil, uow.ErrUnitOfWorkMissing
			}
			if err := unit.Outbox().Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
