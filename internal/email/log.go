package email

import (
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/observability/logger"
)

// LogSender loguea los links en lugar de enviarlos. Para desarrollo y tests.
type LogSender struct{}

func (LogSender) SendResetKey(ctx context.Context, account *repository.Account, _ string, link string) error {
	logger.From(ctx).Info("reset link (log sender)",
		logger.Username(account.Username), logger.String("link", link))
	return nil
}

func (LogSender) SendConfirmationKey(ctx context.Context, account *repository.Account, _ string, link string) error {
	logger.From(ctx).Info("confirmation link (log sender)",
		logger.Username(account.Username), logger.String("link", link))
	return nil
}
