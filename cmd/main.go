package main

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/tinoosan/cashflow/internal/cache"
	"github.com/tinoosan/cashflow/internal/fetch"
	httpapi "github.com/tinoosan/cashflow/internal/httpapi/v1"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/service/notify"
	"github.com/tinoosan/cashflow/internal/storage/memory"
	pgstore "github.com/tinoosan/cashflow/internal/storage/postgres"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var store httpapi.Store
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		// Use Postgres store when DATABASE_URL is provided
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		// Optional dev seed for compose/local
		if dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))); dev == "1" || dev == "true" || dev == "yes" {
			user, accs, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", user, accs)
				printDevSeedBanner(user, accs)
			}
		}
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store with a small dev seed
		mem := memory.New()
		user, accs := seedMemory(mem)
		logDevSeed(logger, "memory", user, accs)
		printDevSeedBanner(user, accs)
		store = mem
		logger.Info("storage backend: memory")
	}

	opts := []fetch.Option{fetch.WithLogger(logger)}
	if c := cache.Connect(ctx, strings.TrimSpace(os.Getenv("REDIS_ADDR")), logger); c != nil {
		defer func() { _ = c.Close() }()
		opts = append(opts, fetch.WithChartCache(c))
	}
	api := httpapi.New(store, fetch.New(store, opts...), nil, logger)

	interval := 5 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("NOTIFY_INTERVAL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Warn("invalid NOTIFY_INTERVAL, using default", "value", raw, "err", err)
		} else {
			interval = d
		}
	}
	go notify.NewScheduler(api.Scanner(), store, interval, logger).Run(ctx)

	addr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cashflow service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// seedMemory loads the same starter data the Postgres dev seed writes.
func seedMemory(s *memory.Store) (ledger.User, []ledger.BankAccount) {
	user := ledger.User{ID: uuid.New()}
	s.SeedUser(user)
	checking := ledger.BankAccount{ID: uuid.New(), UserID: user.ID, Name: "Checking", OpeningBalance: 100000}
	savings := ledger.BankAccount{ID: uuid.New(), UserID: user.ID, Name: "Savings", OpeningBalance: 250000}
	s.SeedBankAccount(checking)
	s.SeedBankAccount(savings)
	for _, c := range []ledger.ChartAccount{
		{ID: "revenue", Code: "1", Name: "Operating revenue", Activity: ledger.ActivityOperating},
		{ID: "sales", Code: "1.1", ParentCode: "1", Name: "Sales", Activity: ledger.ActivityOperating, Leaf: true},
		{ID: "expenses", Code: "2", Name: "Operating expenses", Activity: ledger.ActivityOperating},
		{ID: "rent", Code: "2.1", ParentCode: "2", Name: "Rent", Activity: ledger.ActivityOperating, Leaf: true},
		{ID: "equipment", Code: "3", Name: "Equipment", Activity: ledger.ActivityInvesting, Leaf: true},
	} {
		c.UserID = user.ID
		s.SeedChartAccount(c)
	}
	s.SeedTitle(ledger.Title{
		ID: uuid.New(), UserID: user.ID, Kind: ledger.TitleExpense, Description: "Office rent", Counterparty: "Landlord",
		DueDate: ledger.Day(time.Now()).AddDate(0, 0, 2), CategoryID: "rent", Original: 150000, Status: ledger.StatusPending,
		CreatedAt: time.Now().UTC(),
	})
	return user, []ledger.BankAccount{checking, savings}
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, user ledger.User, accs []ledger.BankAccount) {
	ids := map[string]string{}
	for _, a := range accs {
		ids[strings.ToLower(a.Name)+"_account_id"] = a.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "user_id", user.ID.String(), "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(user ledger.User, accs []ledger.BankAccount) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID.String())
	for _, a := range accs {
		fmt.Printf("%s_account_id: %s\n", strings.ToLower(a.Name), a.ID.String())
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
