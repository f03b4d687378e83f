package bot

import (
	"context"
	"errors"
	"sync"

	"kafe-pos/api"
	"kafe-pos/lang"
	"kafe-pos/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type screen int

const (
	screenLogin screen = iota
	screenBoard
	screenOrder
	screenPayment
	screenAdmin
)

const (
	loginUsername = "username"
	loginPassword = "password"
)

// session is everything the bot keeps for one chat. Nothing outlives the process.
type session struct {
	chatID int64
	conn   *api.Conn
	board  *services.Board
	poller *services.Poller

	// renderMu serializes writes to the screen message.
	renderMu sync.Mutex
	msgID    int
	boardSig string

	mu        sync.Mutex
	langCode  string
	screen    screen
	loginStep string
	username  string
	cart      *services.Cart
	activeCat int64
	draft     *services.PaymentDraft
	adm       adminState
}

func (b *Bot) session(chatID int64, from *tgbotapi.User) *session {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		return s
	}
	conn := b.client.Connect(nil)
	log := b.log.WithField("chat_id", chatID)
	s := &session{
		chatID:   chatID,
		conn:     conn,
		board:    services.NewBoard(conn, log),
		langCode: lang.Default(),
	}
	if from != nil && lang.Supported(from.LanguageCode) {
		s.langCode = from.LanguageCode
	}
	opts := append([]services.PollerOption{services.WithPollerLogger(log.WithField("poller", "board"))}, b.pollerOptions...)
	s.poller = services.NewPoller("board", b.pollInterval, b.boardTick(s), opts...)
	b.sessions[chatID] = s
	return s
}

func (s *session) lang() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langCode
}

func (s *session) setLang(code string) {
	s.mu.Lock()
	s.langCode = code
	s.mu.Unlock()
}

func (s *session) currentScreen() screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

func (s *session) setScreen(sc screen) {
	s.mu.Lock()
	s.screen = sc
	s.mu.Unlock()
}

func (s *session) inLogin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginStep != ""
}

// adopt makes the message a button was pressed on the chat's screen, so older
// screens scrolled up in the chat keep working.
func (s *session) adopt(messageID int) {
	s.renderMu.Lock()
	if messageID != 0 && messageID != s.msgID {
		s.msgID = messageID
		s.boardSig = ""
	}
	s.renderMu.Unlock()
}

// orderScreen returns the open cart and its category, nil when no order screen is up.
func (s *session) orderScreen() (*services.Cart, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart, s.activeCat
}

func (s *session) paymentScreen() (*services.Cart, *services.PaymentDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart, s.draft
}

// closeOrder detaches the cart so responses still in flight are dropped.
func (s *session) closeOrder() {
	s.mu.Lock()
	cart := s.cart
	s.cart = nil
	s.draft = nil
	s.activeCat = 0
	s.mu.Unlock()
	if cart != nil {
		cart.Detach()
	}
}

func (b *Bot) handleStart(ctx context.Context, s *session) {
	if !s.conn.LoggedIn() {
		b.startLogin(s)
		return
	}
	s.closeOrder()
	b.resetAdmin(s)
	s.renderMu.Lock()
	s.msgID = 0
	s.renderMu.Unlock()
	b.showBoard(ctx, s)
}

func (b *Bot) startLogin(s *session) {
	s.poller.Stop()
	s.closeOrder()
	b.resetAdmin(s)
	s.mu.Lock()
	s.screen = screenLogin
	s.loginStep = loginUsername
	s.username = ""
	s.mu.Unlock()
	s.renderMu.Lock()
	s.msgID = 0
	s.renderMu.Unlock()
	b.sendText(s, lang.T(s.lang(), "login_username"))
}

func (b *Bot) handleLoginInput(ctx context.Context, s *session, msg *tgbotapi.Message, text string) {
	s.mu.Lock()
	step := s.loginStep
	username := s.username
	s.mu.Unlock()
	langCode := s.lang()

	switch step {
	case loginUsername:
		if text == "" {
			b.sendText(s, lang.T(langCode, "login_username"))
			return
		}
		s.mu.Lock()
		s.username = text
		s.loginStep = loginPassword
		s.mu.Unlock()
		b.sendText(s, lang.T(langCode, "login_password"))

	case loginPassword:
		// The password must not stay in the chat history.
		b.deleteMessage(s.chatID, msg.MessageID)
		if text == "" {
			b.sendText(s, lang.T(langCode, "login_password"))
			return
		}
		key := services.ThrottleKey(services.ThrottleScopeLogin, s.chatID)
		if wait := b.throttle.WaitSeconds(key); wait > 0 {
			b.sendText(s, lang.T(langCode, "login_wait", wait))
			return
		}
		err := s.conn.Login(ctx, username, text)
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.Status < 500 {
				wait := b.throttle.RecordFailed(key)
				b.log.WithField("chat_id", s.chatID).WithField("username", username).Info("login rejected")
				b.sendText(s, lang.T(langCode, "login_failed", api.Message(err), wait))
				return
			}
			b.sendText(s, errorText(langCode, err))
			return
		}
		b.throttle.RecordSuccess(key)
		s.mu.Lock()
		s.loginStep = ""
		s.username = ""
		s.mu.Unlock()
		b.log.WithField("chat_id", s.chatID).WithField("username", username).Info("staff logged in")
		b.sendText(s, lang.T(langCode, "login_ok", username))
		b.showBoard(ctx, s)
	}
}

func (b *Bot) logout(s *session) {
	s.poller.Stop()
	s.closeOrder()
	b.resetAdmin(s)
	s.conn.Logout()
	s.mu.Lock()
	s.screen = screenLogin
	s.loginStep = ""
	s.mu.Unlock()
	b.sendText(s, lang.T(s.lang(), "logged_out"))
}

// expire handles a session the API no longer accepts: both tokens are gone, so the
// chat goes back to the login prompt.
func (b *Bot) expire(s *session) {
	s.mu.Lock()
	already := s.screen == screenLogin && s.loginStep != ""
	s.mu.Unlock()
	if already {
		return
	}
	b.log.WithField("chat_id", s.chatID).Info("session expired")
	s.conn.Logout()
	b.sendText(s, lang.T(s.lang(), "err_session_expired"))
	b.startLogin(s)
}

// cancelFlows leaves any text input step and returns to the board.
func (b *Bot) cancelFlows(ctx context.Context, s *session) {
	if s.inLogin() {
		s.mu.Lock()
		s.loginStep = ""
		s.mu.Unlock()
		b.sendText(s, lang.T(s.lang(), "cancelled"))
		return
	}
	b.resetAdmin(s)
	b.sendText(s, lang.T(s.lang(), "cancelled"))
	if s.conn.LoggedIn() {
		b.handleStart(ctx, s)
	}
}
