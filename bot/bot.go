package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"kafe-pos/api"
	"kafe-pos/cache"
	"kafe-pos/config"
	"kafe-pos/lang"
	"kafe-pos/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 3 * time.Second

// telegram is the part of *tgbotapi.BotAPI the bot sends through.
type telegram interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the staff-facing Telegram bot. Every chat gets its own API session, table
// board, order screen and admin panel state.
type Bot struct {
	api      *tgbotapi.BotAPI // nil in tests
	tg       telegram
	client   *api.Client
	catalog  *cache.Catalog
	pins     *services.PINGate
	throttle *services.Throttle
	log      *logrus.Entry

	pollInterval  time.Duration
	pollerOptions []services.PollerOption

	sessionsMu sync.Mutex
	sessions   map[int64]*session
}

func New(cfg *config.Config, client *api.Client, catalog *cache.Catalog) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	b, err := newBot(botAPI, cfg, client, catalog)
	if err != nil {
		return nil, err
	}
	b.api = botAPI
	b.log.WithField("username", botAPI.Self.UserName).Info("authorized on telegram")
	return b, nil
}

func newBot(tg telegram, cfg *config.Config, client *api.Client, catalog *cache.Catalog) (*Bot, error) {
	throttle := services.NewThrottle()
	pins, err := services.NewPINGate(cfg.Admin.PIN, throttle)
	if err != nil {
		return nil, err
	}
	lang.SetDefault(cfg.Telegram.DefaultLang)
	interval := cfg.Board.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Bot{
		tg:           tg,
		client:       client,
		catalog:      catalog,
		pins:         pins,
		throttle:     throttle,
		log:          logrus.WithField("component", "bot"),
		pollInterval: interval,
		sessions:     make(map[int64]*session),
	}, nil
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Masalar / Tables"},
		tgbotapi.BotCommand{Command: "admin", Description: "Yönetim / Admin"},
		tgbotapi.BotCommand{Command: "language", Description: "Dil / Language"},
		tgbotapi.BotCommand{Command: "logout", Description: "Çıkış / Log out"},
	)
	_, err := b.tg.Request(cfg)
	return err
}

// Start receives updates until ctx is cancelled. Each update runs on its own goroutine
// so one slow API call does not hold up other chats.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.log.WithError(err).Warn("set bot commands failed")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.stopAll()
			return
		case update, ok := <-updates:
			if !ok {
				b.stopAll()
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("update handler panicked")
		}
	}()
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) stopAll() {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	for _, s := range b.sessions {
		s.poller.Stop()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	s := b.session(msg.Chat.ID, msg.From)
	text := strings.TrimSpace(msg.Text)

	switch text {
	case "/start", "/tables":
		b.handleStart(ctx, s)
		return
	case "/language":
		b.sendCard(s, services.BuildLanguageCard(s.lang()))
		return
	case "/logout":
		b.logout(s)
		return
	case "/cancel":
		b.cancelFlows(ctx, s)
		return
	case "/admin":
		b.handleAdminCommand(ctx, s)
		return
	}

	if s.inLogin() {
		b.handleLoginInput(ctx, s, msg, text)
		return
	}
	if !s.conn.LoggedIn() {
		b.startLogin(s)
		return
	}
	if s.adminStep() != "" {
		b.handleAdminInput(ctx, s, msg, text)
		return
	}
	b.sendText(s, lang.T(s.lang(), "use_buttons"))
}

// reply is how a callback is answered: a toast, or an alert the user must dismiss.
type reply struct {
	text  string
	alert bool
}

func toast(text string) reply { return reply{text: text} }
func alert(text string) reply { return reply{text: text, alert: true} }

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	s := b.session(cq.Message.Chat.ID, cq.From)
	data := cq.Data

	r := b.routeCallback(ctx, s, cq.Message.MessageID, data)
	answer := tgbotapi.NewCallback(cq.ID, r.text)
	if r.alert {
		answer = tgbotapi.NewCallbackWithAlert(cq.ID, r.text)
	}
	if _, err := b.tg.Request(answer); err != nil {
		b.log.WithError(err).Debug("answer callback failed")
	}
}

func (b *Bot) routeCallback(ctx context.Context, s *session, messageID int, data string) reply {
	switch {
	case data == services.CbNoop:
		return reply{}
	case strings.HasPrefix(data, services.CbLang):
		return b.onLanguage(ctx, s, strings.TrimPrefix(data, services.CbLang))
	}

	if !s.conn.LoggedIn() {
		b.startLogin(s)
		return alert(lang.T(s.lang(), "login_required"))
	}
	s.adopt(messageID)

	switch {
	case data == services.CbBoardRefresh:
		return b.onBoardRefresh(ctx, s)
	case strings.HasPrefix(data, services.CbTable):
		return b.onTable(ctx, s, data)
	case strings.HasPrefix(data, services.CbCategory):
		return b.onCategory(s, data)
	case strings.HasPrefix(data, services.CbAdd):
		return b.onAdd(ctx, s, data)
	case strings.HasPrefix(data, services.CbQty):
		return b.onQuantity(ctx, s, data)
	case data == services.CbOrderRefresh:
		return b.onOrderRefresh(ctx, s)
	case data == services.CbPay:
		return b.onPay(s)
	case data == services.CbBack:
		return b.onBack(ctx, s)
	case strings.HasPrefix(data, services.CbPaySel):
		return b.onPaySelect(s, data)
	case data == services.CbPayAll, data == services.CbPayClear, data == services.CbPayReceipt:
		return b.onPayToggle(s, data)
	case strings.HasPrefix(data, services.CbPayMethod):
		return b.onPayMethod(ctx, s, strings.TrimPrefix(data, services.CbPayMethod))
	case data == services.CbPayBack:
		return b.onPayBack(s)
	case isAdminCallback(data):
		return b.handleAdminCallback(ctx, s, data)
	}
	b.log.WithField("data", data).Debug("unknown callback")
	return reply{}
}

func (b *Bot) onLanguage(ctx context.Context, s *session, code string) reply {
	if !lang.Supported(code) {
		return reply{}
	}
	s.setLang(code)
	msg := lang.T(code, "language_changed")
	switch s.currentScreen() {
	case screenBoard:
		b.renderBoard(s, true)
	case screenOrder:
		b.renderCart(s)
	case screenPayment:
		b.renderPayment(s)
	case screenAdmin:
		b.render(s, services.BuildAdminMenu(code))
	default:
		b.sendText(s, msg)
	}
	return toast(msg)
}

// cardMarkup converts CardContent.Buttons to Telegram inline keyboard (URL vs callback).
func cardMarkup(c services.CardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// render edits the chat's screen message in place. When there is none yet, or it was
// deleted, a new message is sent and becomes the screen.
// "message is not modified" is ignored.
func (b *Bot) render(s *session, content services.CardContent) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if s.msgID != 0 {
		edit := tgbotapi.NewEditMessageText(s.chatID, s.msgID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			edit.ReplyMarkup = kb
		} else {
			emptyKb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
			edit.ReplyMarkup = &emptyKb
		}
		_, err := b.tg.Send(edit)
		if err == nil {
			return
		}
		errStr := err.Error()
		if strings.Contains(errStr, "not modified") {
			return
		}
		if !strings.Contains(errStr, "not found") {
			b.log.WithError(err).WithField("chat_id", s.chatID).Warn("edit screen failed")
			return
		}
	}
	s.msgID = b.sendCardLocked(s, content)
}

// sendCard posts a new message that becomes the chat's screen.
func (b *Bot) sendCard(s *session, content services.CardContent) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.msgID = b.sendCardLocked(s, content)
}

func (b *Bot) sendCardLocked(s *session, content services.CardContent) int {
	msg := tgbotapi.NewMessage(s.chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.tg.Send(msg)
	if err != nil {
		b.log.WithError(err).WithField("chat_id", s.chatID).Warn("send screen failed")
		return 0
	}
	return sent.MessageID
}

func (b *Bot) sendText(s *session, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(s.chatID, text)); err != nil {
		b.log.WithError(err).WithField("chat_id", s.chatID).Warn("send failed")
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.WithError(err).Debug("delete message failed")
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, api.ErrSessionExpired) || errors.Is(err, api.ErrNotLoggedIn)
}

// errorText turns an error into the line shown to staff.
func errorText(langCode string, err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, services.ErrBusy):
		return lang.T(langCode, "err_busy")
	case errors.Is(err, services.ErrOrderClosed):
		return lang.T(langCode, "err_order_closed")
	case errors.Is(err, services.ErrNotReady):
		return lang.T(langCode, "err_not_ready")
	case errors.Is(err, services.ErrNoOrder), errors.Is(err, services.ErrUnknownItem):
		return lang.T(langCode, "err_stale")
	case errors.Is(err, services.ErrUnknownTable):
		return lang.T(langCode, "err_unknown_table")
	case errors.Is(err, services.ErrNothingSelected):
		return lang.T(langCode, "err_nothing_selected")
	case errors.Is(err, services.ErrReceiptNotIssued):
		return lang.T(langCode, "err_receipt")
	case errors.Is(err, services.ErrInvalidProduct), errors.Is(err, services.ErrInvalidCategory):
		return lang.T(langCode, "err_invalid_input")
	case isAuthError(err):
		return lang.T(langCode, "err_session_expired")
	case errors.Is(err, api.ErrUnreachable):
		return lang.T(langCode, "err_unreachable")
	case errors.As(err, &apiErr):
		return lang.T(langCode, "err_api", api.Message(err))
	default:
		return lang.T(langCode, "err_generic")
	}
}

// fail answers a failed action. A lost session sends the chat back to login.
func (b *Bot) fail(s *session, err error) reply {
	if isAuthError(err) {
		b.expire(s)
	}
	return alert(errorText(s.lang(), err))
}
