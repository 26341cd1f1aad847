package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"servicehub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotificationChannelPrefix is followed by the account id.
const NotificationChannelPrefix = "servicehub:notifications:"

// RedisNotifier publishes notifications on a per-account redis channel.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func NotificationChannel(accountID string) string {
	return NotificationChannelPrefix + accountID
}

func (r *RedisNotifier) Send(ctx context.Context, n *models.Notification) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return r.client.Publish(ctx, NotificationChannel(n.AccountID), data).Err()
}

// LogNotifier writes notifications to the log. Used when redis is not configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, n *models.Notification) error {
	l.logger.Info().
		Str("notification_id", n.ID).
		Str("account_id", n.AccountID).
		Str("type", n.Type).
		Str("title", n.Title).
		Msg("Notification")
	return nil
}

// TelegramSender is the part of *tgbotapi.BotAPI used for delivery.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier mirrors notifications into an operator chat.
type TelegramNotifier struct {
	bot    TelegramSender
	chatID int64
}

func NewTelegramNotifier(bot TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (t *TelegramNotifier) Send(_ context.Context, n *models.Notification) error {
	if t.bot == nil {
		return errors.New("telegram bot is nil")
	}
	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(n))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatTelegram(n *models.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n%s", html.EscapeString(n.Title), html.EscapeString(n.Body))

	keys := make([]string, 0, len(n.Data))
	for k := range n.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n<code>%s</code>: %s", html.EscapeString(k), html.EscapeString(n.Data[k]))
	}
	fmt.Fprintf(&b, "\n\n<i>%s · %s</i>", html.EscapeString(n.Type), html.EscapeString(n.AccountID))
	return b.String()
}

// FanoutNotifier delivers to every notifier. Any failure fails the delivery, so the
// worker retries the whole set.
type FanoutNotifier []Notifier

func (f FanoutNotifier) Send(ctx context.Context, n *models.Notification) error {
	var errs []error
	for _, notifier := range f {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
