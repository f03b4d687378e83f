package bot

import (
	"context"
	"fmt"

	"kafe-pos/lang"
	"kafe-pos/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
)

// StartDigest posts the daily report to chatIDs on the cron schedule spec (standard
// five-field syntax). The scheduler stops with ctx. A failed run is logged and waits
// for the next tick.
func (b *Bot) StartDigest(ctx context.Context, spec string, chatIDs []int64, digest *services.Digest) error {
	if len(chatIDs) == 0 {
		return fmt.Errorf("REPORT_CHAT_IDS is empty")
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { b.postDigest(ctx, chatIDs, digest) }); err != nil {
		return fmt.Errorf("report schedule %q: %w", spec, err)
	}
	c.Start()
	b.log.WithField("schedule", spec).WithField("chats", len(chatIDs)).Info("report digest scheduled")
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (b *Bot) postDigest(ctx context.Context, chatIDs []int64, digest *services.Digest) {
	card, err := digest.DailyCard(ctx, b.client.DailyPDFURL, lang.Default())
	if err != nil {
		b.log.WithError(err).Warn("report digest skipped")
		return
	}
	for _, chatID := range chatIDs {
		msg := tgbotapi.NewMessage(chatID, card.Text)
		if kb := cardMarkup(card); kb != nil {
			msg.ReplyMarkup = *kb
		}
		if _, err := b.tg.Send(msg); err != nil {
			b.log.WithError(err).WithField("chat_id", chatID).Warn("report digest send failed")
		}
	}
}
