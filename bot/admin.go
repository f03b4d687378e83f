package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"kafe-pos/lang"
	"kafe-pos/models"
	"kafe-pos/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Admin input steps. Each waits for one text message, except admStepProductCategory
// which waits for a category button.
const (
	admStepPIN             = "pin"
	admStepProductName     = "p_name"
	admStepProductPrice    = "p_price"
	admStepProductCategory = "p_cat"
	admStepCategoryName    = "c_name"
	admStepReportDate      = "r_date"
	admStepReportMonth     = "r_month"
)

// keepValue in an edit step keeps the product's current value.
const keepValue = "."

type adminState struct {
	unlocked bool
	step     string
	filter   int64

	// product form
	productID int64 // 0 creates a new product
	current   *models.Product
	name      string
	price     string
}

func (s *session) adminStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adm.step
}

func (s *session) setAdminStep(step string) {
	s.mu.Lock()
	s.adm.step = step
	s.mu.Unlock()
}

func (b *Bot) resetAdmin(s *session) {
	s.mu.Lock()
	s.adm = adminState{}
	s.mu.Unlock()
}

func (b *Bot) admin(s *session) *services.Admin {
	return services.NewAdmin(s.conn, b.catalog, b.log.WithField("chat_id", s.chatID).WithField("component", "admin"))
}

func isAdminCallback(data string) bool {
	return strings.HasPrefix(data, "adm")
}

// handleAdminCommand opens the admin panel behind the PIN prompt.
func (b *Bot) handleAdminCommand(ctx context.Context, s *session) {
	if !s.conn.LoggedIn() {
		b.startLogin(s)
		return
	}
	s.poller.Stop()
	s.closeOrder()

	s.mu.Lock()
	s.screen = screenAdmin
	unlocked := s.adm.unlocked
	if !unlocked {
		s.adm.step = admStepPIN
	} else {
		s.adm.step = ""
	}
	s.mu.Unlock()

	langCode := s.lang()
	if !unlocked {
		b.sendText(s, lang.T(langCode, "admin_pin_prompt"))
		return
	}
	b.sendCard(s, services.BuildAdminMenu(langCode))
}

func (b *Bot) handleAdminInput(ctx context.Context, s *session, msg *tgbotapi.Message, text string) {
	langCode := s.lang()
	s.mu.Lock()
	st := s.adm
	s.mu.Unlock()

	switch st.step {
	case admStepPIN:
		b.deleteMessage(s.chatID, msg.MessageID)
		wait, err := b.pins.Check(s.chatID, text)
		switch {
		case errors.Is(err, services.ErrPINLocked):
			b.sendText(s, lang.T(langCode, "admin_pin_locked", wait))
			return
		case err != nil:
			b.sendText(s, lang.T(langCode, "admin_pin_wrong", wait))
			return
		}
		s.mu.Lock()
		s.adm.unlocked = true
		s.adm.step = ""
		s.mu.Unlock()
		b.log.WithField("chat_id", s.chatID).Info("admin panel unlocked")
		b.sendCard(s, services.BuildAdminMenu(langCode))

	case admStepProductName:
		if text == keepValue && st.current != nil {
			text = st.current.Name
		}
		if text == "" {
			b.sendText(s, lang.T(langCode, "admin_product_name"))
			return
		}
		s.mu.Lock()
		s.adm.name = text
		s.adm.step = admStepProductPrice
		s.mu.Unlock()
		if st.current != nil {
			b.sendText(s, lang.T(langCode, "admin_product_price_edit", services.FormatMoney(st.current.Price)))
			return
		}
		b.sendText(s, lang.T(langCode, "admin_product_price"))

	case admStepProductPrice:
		if text == keepValue && st.current != nil {
			text = st.current.Price.StringFixed(2)
		}
		if _, err := services.ParsePrice(text); err != nil {
			b.sendText(s, lang.T(langCode, "admin_bad_price"))
			return
		}
		cats, err := b.admin(s).Categories(ctx)
		if err != nil {
			b.sendText(s, errorText(langCode, err))
			return
		}
		s.mu.Lock()
		s.adm.price = text
		s.adm.step = admStepProductCategory
		s.mu.Unlock()
		b.sendCard(s, services.BuildCategoryPickCard(cats, langCode))

	case admStepProductCategory:
		b.sendText(s, lang.T(langCode, "admin_pick_category_hint"))

	case admStepCategoryName:
		c, err := b.admin(s).CreateCategory(ctx, text)
		if err != nil {
			b.sendText(s, errorText(langCode, err))
			return
		}
		s.setAdminStep("")
		b.sendText(s, lang.T(langCode, "admin_category_created", c.Name))
		b.sendCategoryList(ctx, s)

	case admStepReportDate:
		if text == keepValue {
			text = ""
		}
		date, err := services.ParseReportDate(text, time.Now())
		if err != nil {
			b.sendText(s, lang.T(langCode, "admin_bad_date"))
			return
		}
		r, err := b.admin(s).DailyReport(ctx, date)
		if err != nil {
			b.sendText(s, errorText(langCode, err))
			return
		}
		s.setAdminStep("")
		b.sendCard(s, services.BuildReportCard(r, s.conn.Client().DailyPDFURL(r.Date), langCode))

	case admStepReportMonth:
		if text == keepValue {
			text = ""
		}
		year, month, err := services.ParseReportMonth(text, time.Now())
		if err != nil {
			b.sendText(s, lang.T(langCode, "admin_bad_month"))
			return
		}
		r, err := b.admin(s).MonthlyReport(ctx, year, month)
		if err != nil {
			b.sendText(s, errorText(langCode, err))
			return
		}
		s.setAdminStep("")
		b.sendCard(s, services.BuildReportCard(r, s.conn.Client().MonthlyPDFURL(year, month), langCode))
	}
}

func (b *Bot) handleAdminCallback(ctx context.Context, s *session, data string) reply {
	langCode := s.lang()
	s.mu.Lock()
	unlocked := s.adm.unlocked
	s.mu.Unlock()
	if !unlocked {
		b.handleAdminCommand(ctx, s)
		return alert(lang.T(langCode, "admin_locked"))
	}
	s.setScreen(screenAdmin)
	adm := b.admin(s)

	switch {
	case data == services.CbAdmExit:
		b.resetAdmin(s)
		b.showBoard(ctx, s)
		return toast(lang.T(langCode, "admin_closed"))

	case data == services.CbAdmProdNew:
		s.mu.Lock()
		s.adm.productID = 0
		s.adm.current = nil
		s.adm.step = admStepProductName
		s.mu.Unlock()
		b.sendText(s, lang.T(langCode, "admin_product_name"))
		return reply{}

	case strings.HasPrefix(data, services.CbAdmProdCat):
		id, err := services.ParseID(data, services.CbAdmProdCat)
		if err != nil {
			return reply{}
		}
		return b.saveProduct(ctx, s, adm, id)

	case strings.HasPrefix(data, services.CbAdmProdFilt):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, services.CbAdmProdFilt), 10, 64)
		if err != nil || id < 0 {
			return reply{}
		}
		s.mu.Lock()
		s.adm.filter = id
		s.mu.Unlock()
		return b.renderProductList(ctx, s)

	case strings.HasPrefix(data, services.CbAdmProdEdit):
		id, err := services.ParseID(data, services.CbAdmProdEdit)
		if err != nil {
			return reply{}
		}
		p, err := adm.Product(ctx, id)
		if err != nil {
			return b.fail(s, err)
		}
		s.mu.Lock()
		s.adm.productID = p.ID
		s.adm.current = p
		s.adm.step = admStepProductName
		s.mu.Unlock()
		b.sendText(s, lang.T(langCode, "admin_product_name_edit", p.Name))
		return reply{}

	case strings.HasPrefix(data, services.CbAdmProdDel):
		id, err := services.ParseID(data, services.CbAdmProdDel)
		if err != nil {
			return reply{}
		}
		p, err := adm.Product(ctx, id)
		if err != nil {
			return b.fail(s, err)
		}
		b.render(s, services.BuildConfirmCard(lang.T(langCode, "admin_confirm_product", p.Name), services.ConfirmProduct, id, langCode))
		return reply{}

	case strings.HasPrefix(data, services.CbAdmProduct):
		id, err := services.ParseID(data, services.CbAdmProduct)
		if err != nil {
			return reply{}
		}
		p, err := adm.Product(ctx, id)
		if err != nil {
			return b.fail(s, err)
		}
		cats, err := adm.Categories(ctx)
		if err != nil {
			return b.fail(s, err)
		}
		b.render(s, services.BuildProductDetailCard(p, cats, langCode))
		return reply{}

	case data == services.CbAdmCatNew:
		s.setAdminStep(admStepCategoryName)
		b.sendText(s, lang.T(langCode, "admin_category_name"))
		return reply{}

	case strings.HasPrefix(data, services.CbAdmCatDel):
		id, err := services.ParseID(data, services.CbAdmCatDel)
		if err != nil {
			return reply{}
		}
		b.render(s, services.BuildConfirmCard(lang.T(langCode, "admin_confirm_category"), services.ConfirmCategory, id, langCode))
		return reply{}

	case strings.HasPrefix(data, services.CbAdmConfirm):
		return b.confirmDelete(ctx, s, adm, strings.TrimPrefix(data, services.CbAdmConfirm))

	case data == services.CbAdmCancel:
		s.mu.Lock()
		s.adm.step = ""
		s.adm.current = nil
		s.mu.Unlock()
		b.render(s, services.BuildAdminMenu(langCode))
		return toast(lang.T(langCode, "cancelled"))

	case strings.HasPrefix(data, services.CbAdmReport):
		switch strings.TrimPrefix(data, services.CbAdmReport) {
		case "daily":
			s.setAdminStep(admStepReportDate)
			b.sendText(s, lang.T(langCode, "admin_report_date"))
		case "monthly":
			s.setAdminStep(admStepReportMonth)
			b.sendText(s, lang.T(langCode, "admin_report_month"))
		}
		return reply{}

	case strings.HasPrefix(data, services.CbAdmin):
		switch strings.TrimPrefix(data, services.CbAdmin) {
		case services.AdmProducts:
			return b.renderProductList(ctx, s)
		case services.AdmCategories:
			return b.renderCategoryList(ctx, s)
		default:
			s.setAdminStep("")
			b.render(s, services.BuildAdminMenu(langCode))
		}
		return reply{}
	}
	return reply{}
}

func (b *Bot) saveProduct(ctx context.Context, s *session, adm *services.Admin, categoryID int64) reply {
	langCode := s.lang()
	s.mu.Lock()
	st := s.adm
	s.mu.Unlock()
	if st.step != admStepProductCategory {
		return alert(lang.T(langCode, "err_stale"))
	}
	in, err := services.ProductForm(st.name, st.price, categoryID)
	if err != nil {
		return alert(errorText(langCode, err))
	}
	p, err := adm.SaveProduct(ctx, st.productID, in)
	if err != nil {
		return b.fail(s, err)
	}
	s.mu.Lock()
	s.adm.step = ""
	s.adm.current = nil
	s.adm.productID = 0
	s.mu.Unlock()
	cats, err := adm.Categories(ctx)
	if err != nil {
		return b.fail(s, err)
	}
	b.render(s, services.BuildProductDetailCard(p, cats, langCode))
	return toast(lang.T(langCode, "admin_product_saved"))
}

// confirmDelete runs a confirmed delete; raw is "<kind>:<id>".
func (b *Bot) confirmDelete(ctx context.Context, s *session, adm *services.Admin, raw string) reply {
	langCode := s.lang()
	kind, idStr, ok := strings.Cut(raw, ":")
	if !ok {
		return reply{}
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return reply{}
	}
	switch kind {
	case services.ConfirmProduct:
		if err := adm.DeleteProduct(ctx, id); err != nil {
			return b.fail(s, err)
		}
		b.renderProductList(ctx, s)
		return toast(lang.T(langCode, "admin_deleted"))
	case services.ConfirmCategory:
		if err := adm.DeleteCategory(ctx, id); err != nil {
			b.renderCategoryList(ctx, s)
			return b.fail(s, err)
		}
		b.renderCategoryList(ctx, s)
		return toast(lang.T(langCode, "admin_deleted"))
	}
	return reply{}
}

func (b *Bot) renderProductList(ctx context.Context, s *session) reply {
	adm := b.admin(s)
	s.mu.Lock()
	filter := s.adm.filter
	s.mu.Unlock()
	cats, err := adm.Categories(ctx)
	if err != nil {
		return b.fail(s, err)
	}
	products, err := adm.Products(ctx, filter)
	if err != nil {
		return b.fail(s, err)
	}
	b.render(s, services.BuildProductListCard(products, cats, filter, s.lang()))
	return reply{}
}

func (b *Bot) renderCategoryList(ctx context.Context, s *session) reply {
	cats, err := b.admin(s).Categories(ctx)
	if err != nil {
		return b.fail(s, err)
	}
	b.render(s, services.BuildCategoryListCard(cats, s.lang()))
	return reply{}
}

// sendCategoryList posts the list as a new screen, below the admin's text input.
func (b *Bot) sendCategoryList(ctx context.Context, s *session) {
	cats, err := b.admin(s).Categories(ctx)
	if err != nil {
		b.sendText(s, errorText(s.lang(), err))
		return
	}
	b.sendCard(s, services.BuildCategoryListCard(cats, s.lang()))
}
