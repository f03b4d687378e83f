package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kafe-pos/api"
	"kafe-pos/models"

	"github.com/sirupsen/logrus"
)

// ReportConn is a service-account connection used outside any chat.
type ReportConn interface {
	LoggedIn() bool
	Login(ctx context.Context, username, password string) error
	DailyReport(ctx context.Context, date string) (*models.Report, error)
	MonthlyReport(ctx context.Context, year, month int) (*models.Report, error)
}

// Digest fetches reports with a service account, logging in again whenever the
// session is gone.
type Digest struct {
	conn     ReportConn
	username string
	password string
	now      func() time.Time
	log      *logrus.Entry
}

func NewDigest(conn ReportConn, username, password string) *Digest {
	return &Digest{
		conn:     conn,
		username: username,
		password: password,
		now:      time.Now,
		log:      logrus.WithField("component", "digest"),
	}
}

func (d *Digest) ensureLogin(ctx context.Context) error {
	if d.conn.LoggedIn() {
		return nil
	}
	if d.username == "" {
		return fmt.Errorf("report account is not configured")
	}
	if err := d.conn.Login(ctx, d.username, d.password); err != nil {
		return fmt.Errorf("report account login: %w", err)
	}
	return nil
}

func (d *Digest) withLogin(ctx context.Context, fn func() error) error {
	if err := d.ensureLogin(ctx); err != nil {
		return err
	}
	err := fn()
	if errors.Is(err, api.ErrSessionExpired) || errors.Is(err, api.ErrNotLoggedIn) {
		if err := d.ensureLogin(ctx); err != nil {
			return err
		}
		err = fn()
	}
	return err
}

// Daily fetches the report for date; empty means today.
func (d *Digest) Daily(ctx context.Context, date string) (*models.Report, error) {
	date, err := ParseReportDate(date, d.now())
	if err != nil {
		return nil, err
	}
	var r *models.Report
	err = d.withLogin(ctx, func() error {
		var err error
		r, err = d.conn.DailyReport(ctx, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.Date == "" {
		r.Date = date
	}
	return r, nil
}

func (d *Digest) Monthly(ctx context.Context, year, month int) (*models.Report, error) {
	var r *models.Report
	err := d.withLogin(ctx, func() error {
		var err error
		r, err = d.conn.MonthlyReport(ctx, year, month)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.Year == 0 {
		r.Year, r.Month = year, month
	}
	return r, nil
}

// DailyCard builds today's report card for the scheduled post.
func (d *Digest) DailyCard(ctx context.Context, pdfURL func(date string) string, langCode string) (CardContent, error) {
	r, err := d.Daily(ctx, "")
	if err != nil {
		d.log.WithError(err).Warn("daily digest failed")
		return CardContent{}, err
	}
	url := ""
	if pdfURL != nil {
		url = pdfURL(r.Date)
	}
	return withoutBackRow(BuildReportCard(r, url, langCode)), nil
}

// withoutBackRow drops a trailing callback row; the digest is posted outside the
// admin panel. URL rows and empty rows are left alone.
func withoutBackRow(card CardContent) CardContent {
	n := len(card.Buttons)
	if n == 0 {
		return card
	}
	last := card.Buttons[n-1]
	if len(last) > 0 && last[0].URL == "" {
		card.Buttons = card.Buttons[:n-1]
	}
	return card
}
