package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/linkedin-connect/internal/auth"
	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/connection"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/messaging"
	"github.com/yourusername/linkedin-connect/internal/search"
	"github.com/yourusername/linkedin-connect/internal/server"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

const (
	AppVersion = "1.0.0"
)

func main() {
	displayWarningBanner()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("linkedin-connect started", "version", AppVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller, err := newController(cfg)
	if err != nil {
		logger.Fatal("Failed to set up connection workflow", "error", err)
	}

	args := os.Args[1:]
	if len(args) > 0 {
		code := runCLI(ctx, controller, args)
		stop()
		logger.Sync()
		os.Exit(code)
	}

	// serve returns only after every in-flight attempt released its browser
	if err := serve(ctx, cfg, controller); err != nil {
		logger.Fatal("Server failed", "error", err)
	}
	logger.Info("Shutdown complete")
}

// newController builds the connection workflow from configuration
func newController(cfg *config.Config) (*connection.Controller, error) {
	creds := auth.Credentials{Email: cfg.LinkedIn.Email, Password: cfg.LinkedIn.Password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	driver := browser.NewRodDriver(browser.Options{
		Headless:   cfg.Browser.Headless,
		SlowMotion: cfg.SlowMotion(),
		BinPath:    cfg.Browser.BinPath,
		Stealth:    cfg.Browser.Stealth,
	})

	timeouts := connection.DefaultTimeouts()
	timeouts.Login = cfg.LoginTimeout()
	timeouts.Navigation = cfg.NavigationTimeout()
	timeouts.Settle = cfg.SettleDelay()
	timeouts.PreConnect = cfg.PreConnectDelay()
	timeouts.Note = cfg.NoteTimeout()
	timeouts.Send = cfg.SendTimeout()

	return connection.New(driver, creds, connection.WithTimeouts(timeouts)), nil
}

func serve(ctx context.Context, cfg *config.Config, controller *connection.Controller) error {
	logger.Info("Opening search cache", "path", cfg.Database.Path)
	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open search cache: %w", err)
	}
	defer store.Close()

	if n, err := store.CleanupExpired(cfg.CacheTTL()); err != nil {
		logger.Warn("Failed to clean search cache", "error", err)
	} else if stats, err := store.GetStats(); err == nil {
		logger.Info("Search cache statistics",
			"expired_removed", n,
			"cached_searches", stats["cached_searches"],
			"cached_profiles", stats["cached_profiles"],
		)
	}

	srv := server.New(
		server.Config{
			Addr:                  cfg.Server.Addr,
			MaxConcurrentSessions: cfg.Server.MaxConcurrentSessions,
			ShutdownTimeout:       cfg.ShutdownTimeout(),
		},
		controller,
		search.NewClient(cfg.Search, cfg.SearchTimeout(), store),
		messaging.NewGenerator(cfg.OpenAI),
	)

	return srv.Run(ctx)
}

// runCLI handles `connect <profile_url> <message>` and returns the exit code
func runCLI(ctx context.Context, controller *connection.Controller, args []string) int {
	if args[0] != "connect" || len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: linkedin-connect [connect <profile_url> <message>]")
		return 2
	}

	profileURL := args[1]
	if _, err := connection.NormalizeProfileURL(profileURL); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	message := messaging.Truncate(args[2], messaging.MaxNoteLength)

	result, err := controller.Connect(ctx, profileURL, message)
	if err != nil {
		var failure *connection.Failure
		if errors.As(err, &failure) {
			fmt.Printf("Failed while %s (%s): %v\n", failure.State, failure.Reason(), err)
		} else {
			fmt.Printf("Failed: %v\n", err)
		}
		return 1
	}

	fmt.Println(result)
	return 0
}

// displayWarningBanner displays a warning about the tool's purpose
func displayWarningBanner() {
	banner := `
╔════════════════════════════════════════════════════════════════════════════╗
║                    ⚠️  WARNING - EDUCATIONAL USE ONLY ⚠️                    ║
║                                                                            ║
║  Automating LinkedIn VIOLATES its Terms of Service and may get the         ║
║  account banned. Use ONLY with test/dummy accounts.                        ║
╚════════════════════════════════════════════════════════════════════════════╝
`
	fmt.Fprintln(os.Stderr, banner)
}
