package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"kafe-pos/api"
	"kafe-pos/bot"
	"kafe-pos/cache"
	"kafe-pos/config"
	"kafe-pos/lang"
	"kafe-pos/metrics"
	"kafe-pos/services"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)
	lang.SetDefault(cfg.Telegram.DefaultLang)

	client, err := api.New(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "api:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check for report subcommand
	if len(os.Args) > 1 && os.Args[1] == "report" {
		if err := runReport(ctx, cfg, client, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "report:", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Telegram.Token == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set")
		os.Exit(1)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logrus.WithError(err).Error("ops server stopped")
			}
		}()
	}

	catalog := newCatalog(ctx, cfg.Redis)
	defer catalog.Close()

	b, err := bot.New(cfg, client, catalog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}

	if cfg.Report.Cron != "" {
		digest := services.NewDigest(client.Connect(nil), cfg.Report.Username, cfg.Report.Password)
		if err := b.StartDigest(ctx, cfg.Report.Cron, cfg.Report.ChatIDs, digest); err != nil {
			logrus.WithError(err).Warn("report digest disabled")
		}
	}

	logrus.WithField("api", client.BaseURL()).Info("bot started")
	b.Start(ctx)
	logrus.Info("bot stopped")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// newCatalog connects the optional Redis cache. Without REDIS_ADDR, or when Redis does
// not answer, the bot reads the catalog straight from the API.
func newCatalog(ctx context.Context, cfg config.RedisConfig) *cache.Catalog {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	catalog := cache.NewCatalog(rdb, cfg.CatalogTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := catalog.Ping(pingCtx); err != nil {
		logrus.WithError(err).WithField("addr", cfg.Addr).Warn("redis unavailable, catalog cache disabled")
		_ = catalog.Close()
		return nil
	}
	logrus.WithField("addr", cfg.Addr).Info("catalog cache enabled")
	return catalog
}

// runReport prints a report with the service account:
//
//	kafe-pos report daily [YYYY-MM-DD]
//	kafe-pos report monthly YYYY MM
func runReport(ctx context.Context, cfg *config.Config, client *api.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: report daily [YYYY-MM-DD] | report monthly YYYY MM")
	}
	digest := services.NewDigest(client.Connect(nil), cfg.Report.Username, cfg.Report.Password)
	langCode := lang.Default()

	switch args[0] {
	case "daily":
		date := ""
		if len(args) > 1 {
			date = args[1]
		}
		r, err := digest.Daily(ctx, date)
		if err != nil {
			return err
		}
		card := services.BuildReportCard(r, "", langCode)
		fmt.Println(card.Text)
		fmt.Println(client.DailyPDFURL(r.Date))
	case "monthly":
		if len(args) < 3 {
			return fmt.Errorf("usage: report monthly YYYY MM")
		}
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[1])
		}
		month, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid month %q", args[2])
		}
		r, err := digest.Monthly(ctx, year, month)
		if err != nil {
			return err
		}
		card := services.BuildReportCard(r, "", langCode)
		fmt.Println(card.Text)
		fmt.Println(client.MonthlyPDFURL(year, month))
	default:
		return fmt.Errorf("unknown report %q", args[0])
	}
	return nil
}
