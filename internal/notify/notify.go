// Package notify delivers the finished (or interrupted) price report to
// the operator chat.
package notify

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/severn-soft/pricegrab/internal/resilience"
	"github.com/severn-soft/pricegrab/pkg/telegram"
)

// Notifier sends the run summary and attaches the workbook.
type Notifier struct {
	client telegram.Client
	chatID string
}

func New(client telegram.Client, chatID string) *Notifier {
	return &Notifier{client: client, chatID: chatID}
}

// Deliver sends the summary message and then the document. A failed
// upload is retried exactly once: spreadsheets occasionally bounce on
// gateway errors, and one retry covers that without risking a duplicate
// flood. Permanent Bot API rejections are not retried.
func (n *Notifier) Deliver(ctx context.Context, message, docPath string) error {
	if err := n.client.SendMessage(ctx, n.chatID, message); err != nil {
		return eris.Wrap(err, "notify: send summary")
	}

	err := n.client.SendDocument(ctx, n.chatID, docPath, "")
	if err == nil {
		return nil
	}
	if !retriable(err) {
		return eris.Wrapf(err, "notify: send document %s", docPath)
	}
	zap.L().Warn("document upload failed, retrying once",
		zap.String("path", docPath), zap.Error(err))

	if err := n.client.SendDocument(ctx, n.chatID, docPath, ""); err != nil {
		return eris.Wrapf(err, "notify: send document %s", docPath)
	}
	return nil
}

// retriable treats every failure as worth one retry except a definitive
// Bot API rejection, where resending the same document cannot help.
func retriable(err error) bool {
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return true
}
