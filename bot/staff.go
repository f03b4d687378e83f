package bot

import (
	"context"
	"fmt"

	"kafe-pos/lang"
	"kafe-pos/services"
)

// boardTick is the poller handler: refresh, then redraw when the board is on screen
// and something changed. Failures keep the last snapshot and stay quiet.
func (b *Bot) boardTick(s *session) services.Handler {
	return func(ctx context.Context) {
		snap, err := s.board.Refresh(ctx)
		if err != nil {
			if isAuthError(err) {
				b.expire(s)
			}
			return
		}
		if snap == nil || s.currentScreen() != screenBoard {
			return
		}
		b.renderBoardSnapshot(s, snap, false)
	}
}

func (b *Bot) showBoard(ctx context.Context, s *session) {
	s.setScreen(screenBoard)
	b.renderBoard(s, true)
	s.poller.SetActive(ctx, true)
}

func (b *Bot) renderBoard(s *session, force bool) {
	b.renderBoardSnapshot(s, s.board.Snapshot(), force)
}

func boardSignature(snap *services.BoardSnapshot) string {
	if snap == nil {
		return ""
	}
	sig := ""
	for _, v := range snap.Tables {
		sig += fmt.Sprintf("%d:%s:%d;", v.Table.ID, v.State, v.Order.OrderID)
	}
	return sig
}

func (b *Bot) renderBoardSnapshot(s *session, snap *services.BoardSnapshot, force bool) {
	sig := boardSignature(snap)
	s.renderMu.Lock()
	unchanged := !force && sig != "" && sig == s.boardSig
	if !unchanged {
		s.boardSig = sig
	}
	s.renderMu.Unlock()
	if unchanged {
		return
	}
	b.render(s, services.BuildBoardCard(snap, s.lang()))
}

func (b *Bot) onBoardRefresh(ctx context.Context, s *session) reply {
	s.setScreen(screenBoard)
	s.poller.SetActive(ctx, true)
	if _, err := s.board.Refresh(ctx); err != nil {
		b.renderBoard(s, true)
		return b.fail(s, err)
	}
	b.renderBoard(s, true)
	return toast(lang.T(s.lang(), "refreshed"))
}

func (b *Bot) onTable(ctx context.Context, s *session, data string) reply {
	id, err := services.ParseID(data, services.CbTable)
	if err != nil {
		return reply{}
	}
	langCode := s.lang()
	sel, err := s.board.Select(id, langCode)
	if err != nil {
		return alert(errorText(langCode, err))
	}

	s.poller.Stop()
	s.closeOrder()
	log := b.log.WithField("chat_id", s.chatID).WithField("table_id", sel.TableID)
	cart := services.NewCart(s.conn, b.catalog.For(s.conn), sel, log)
	s.mu.Lock()
	s.cart = cart
	s.screen = screenOrder
	s.mu.Unlock()

	b.render(s, services.CardContent{Text: lang.T(langCode, "cart_loading", sel.Label)})
	if err := cart.Load(ctx); err != nil {
		if isAuthError(err) {
			return b.fail(s, err)
		}
		if current, _ := s.orderScreen(); current == cart {
			s.closeOrder()
			b.showBoard(ctx, s)
		}
		return alert(errorText(langCode, err))
	}

	s.mu.Lock()
	if s.cart == cart && s.activeCat == 0 {
		if cats := cart.Categories(); len(cats) > 0 {
			s.activeCat = cats[0].ID
		}
	}
	s.mu.Unlock()
	b.renderCart(s)
	return reply{}
}

func (b *Bot) renderCart(s *session) {
	cart, active := s.orderScreen()
	if cart == nil {
		return
	}
	b.render(s, services.BuildCartCard(cart, active, s.lang()))
}

func (b *Bot) onCategory(s *session, data string) reply {
	id, err := services.ParseID(data, services.CbCategory)
	if err != nil {
		return reply{}
	}
	s.mu.Lock()
	if s.cart == nil {
		s.mu.Unlock()
		return alert(lang.T(s.lang(), "err_stale"))
	}
	s.activeCat = id
	s.mu.Unlock()
	b.renderCart(s)
	return reply{}
}

// cartAction runs one cart mutation and redraws the card from the server's order.
// Nothing is drawn when the chat left the order screen meanwhile.
func (b *Bot) cartAction(ctx context.Context, s *session, fn func(ctx context.Context, c *services.Cart) error) reply {
	cart, _ := s.orderScreen()
	if cart == nil {
		return alert(lang.T(s.lang(), "err_stale"))
	}
	err := fn(ctx, cart)
	if current, _ := s.orderScreen(); current != cart {
		return reply{}
	}
	b.renderCart(s)
	if err != nil {
		return b.fail(s, err)
	}
	return reply{}
}

func (b *Bot) onAdd(ctx context.Context, s *session, data string) reply {
	id, err := services.ParseID(data, services.CbAdd)
	if err != nil {
		return reply{}
	}
	return b.cartAction(ctx, s, func(ctx context.Context, c *services.Cart) error {
		return c.AddProduct(ctx, id)
	})
}

func (b *Bot) onQuantity(ctx context.Context, s *session, data string) reply {
	itemID, delta, err := services.ParseIDDelta(data, services.CbQty)
	if err != nil {
		return reply{}
	}
	return b.cartAction(ctx, s, func(ctx context.Context, c *services.Cart) error {
		return c.ChangeQuantity(ctx, itemID, delta)
	})
}

func (b *Bot) onOrderRefresh(ctx context.Context, s *session) reply {
	r := b.cartAction(ctx, s, func(ctx context.Context, c *services.Cart) error {
		return c.Reload(ctx)
	})
	if r.text == "" {
		r = toast(lang.T(s.lang(), "refreshed"))
	}
	return r
}

// onBack leaves the order screen. Responses still in flight for it are dropped.
func (b *Bot) onBack(ctx context.Context, s *session) reply {
	s.closeOrder()
	b.showBoard(ctx, s)
	return reply{}
}

func (b *Bot) onPay(s *session) reply {
	langCode := s.lang()
	s.mu.Lock()
	cart := s.cart
	if cart == nil {
		s.mu.Unlock()
		return alert(lang.T(langCode, "err_stale"))
	}
	order := cart.Order()
	if cart.State() != services.CartReady || len(order.Items) == 0 {
		s.mu.Unlock()
		return alert(lang.T(langCode, "err_nothing_to_pay"))
	}
	s.draft = services.NewPaymentDraft(order)
	s.screen = screenPayment
	s.mu.Unlock()
	b.renderPayment(s)
	return reply{}
}

func (b *Bot) renderPayment(s *session) {
	cart, draft := s.paymentScreen()
	if cart == nil || draft == nil {
		return
	}
	b.render(s, services.BuildPaymentCard(draft, cart.Selection().Label, s.lang()))
}

func (b *Bot) onPaySelect(s *session, data string) reply {
	itemID, delta, err := services.ParseIDDelta(data, services.CbPaySel)
	if err != nil {
		return reply{}
	}
	_, draft := s.paymentScreen()
	if draft == nil {
		return alert(lang.T(s.lang(), "err_stale"))
	}
	if _, err := draft.Change(itemID, delta); err != nil {
		return alert(errorText(s.lang(), err))
	}
	b.renderPayment(s)
	return reply{}
}

func (b *Bot) onPayToggle(s *session, data string) reply {
	_, draft := s.paymentScreen()
	if draft == nil {
		return alert(lang.T(s.lang(), "err_stale"))
	}
	switch data {
	case services.CbPayAll:
		draft.SelectAll()
	case services.CbPayClear:
		draft.ClearAll()
	case services.CbPayReceipt:
		draft.ToggleReceipt()
	}
	b.renderPayment(s)
	return reply{}
}

func (b *Bot) onPayBack(s *session) reply {
	s.mu.Lock()
	s.draft = nil
	if s.cart != nil {
		s.screen = screenOrder
	}
	s.mu.Unlock()
	b.renderCart(s)
	return reply{}
}

// onPayMethod posts the payment and reloads the order. A settled order closes the
// screen and returns to the board; otherwise the order screen shows what is left.
func (b *Bot) onPayMethod(ctx context.Context, s *session, method string) reply {
	langCode := s.lang()
	cart, draft := s.paymentScreen()
	if cart == nil || draft == nil {
		return alert(lang.T(langCode, "err_stale"))
	}
	if _, err := draft.Submit(ctx, s.conn, method); err != nil {
		return b.fail(s, err)
	}
	// Amounts come from the draft; the response body may be empty.
	amount := draft.Amount()
	b.log.WithField("chat_id", s.chatID).
		WithField("order_id", draft.Order().ID).
		WithField("amount", amount.StringFixed(2)).
		WithField("method", method).
		Info("payment recorded")

	settled, err := cart.AfterPayment(ctx)
	if current, _ := s.orderScreen(); current != cart {
		return toast(lang.T(langCode, "paid_partial", services.FormatMoney(amount)))
	}
	s.mu.Lock()
	s.draft = nil
	s.screen = screenOrder
	s.mu.Unlock()
	if err != nil {
		b.renderCart(s)
		return b.fail(s, err)
	}
	if settled {
		s.closeOrder()
		b.showBoard(ctx, s)
		return alert(lang.T(langCode, "paid_full"))
	}
	b.renderCart(s)
	order := cart.Order()
	return alert(lang.T(langCode, "paid_partial_remaining",
		services.FormatMoney(amount), services.FormatMoney(order.Remaining())))
}
