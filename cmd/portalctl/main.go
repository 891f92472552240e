// Command portalctl runs portal maintenance operations against the
// configured backends without going through the HTTP API.
//
// Commands:
//
//	sync            Sync one client, or every client with an ad account
//	purge           Delete every campaign record
//	validate-token  Check the ad platform access token
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/app"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/json"
	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/middleware"
	"github.com/radiusdt/agency-portal/internal/scheduler"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "sync":
		err = runSync(ctx, os.Args[2:])
	case "purge":
		err = runPurge(ctx, os.Args[2:])
	case "validate-token":
		err = runValidate(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  portalctl <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sync --client ID [--window W]   Sync one client")
	fmt.Println("  sync --all [--window W]         Sync every client with an ad account")
	fmt.Println("  purge --yes                     Delete every campaign record")
	fmt.Println("  validate-token [--token T]      Check the stored (or given) access token")
	fmt.Println()
	fmt.Println("Windows: maximum (default), today, yesterday, last_7d, last_30d, this_month")
	fmt.Println("Configuration is read from PORTAL_* environment variables and .env.")
}

func open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := middleware.NewLogger(cfg.Log.Level, "console")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	// The CLI never schedules, and never runs against a stand-in store.
	cfg.Sync.Schedule = ""
	cfg.Store.Required = true
	return app.New(ctx, cfg, logger, nil)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	clientID := fs.String("client", "", "client id")
	all := fs.Bool("all", false, "sync every client with an ad account")
	windowFlag := fs.String("window", "", "date window")
	_ = fs.Parse(args)

	window, err := meta.ParseWindow(*windowFlag)
	if err != nil {
		return err
	}
	if *clientID == "" && !*all {
		return fmt.Errorf("either --client or --all is required")
	}

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if *all {
		sched, err := scheduler.New("@daily", window, a.Stores.Clients, a.Stores.Settings, a.Sync, a.Logger)
		if err != nil {
			return err
		}
		sum, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		return printJSON(sum)
	}

	settings, err := a.Stores.Settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	res, err := a.Sync.Sync(ctx, *clientID, window, settings)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runPurge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm deletion of every campaign record")
	_ = fs.Parse(args)

	if !*yes {
		return fmt.Errorf("refusing to purge without --yes")
	}

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Sync.Purge(ctx)
	if err != nil {
		a.Logger.Error("purge failed", zap.Int("deleted", res.Deleted), zap.Error(err))
		return fmt.Errorf("purge failed after deleting %d records: %w", res.Deleted, err)
	}
	return printJSON(res)
}

func runValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate-token", flag.ExitOnError)
	token := fs.String("token", "", "token to check instead of the stored one")
	_ = fs.Parse(args)

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.Portal.ValidateToken(ctx, *token)
	if err != nil {
		return err
	}
	if err := printJSON(status); err != nil {
		return err
	}
	if !status.Valid {
		return fmt.Errorf("token rejected: %s", status.Message)
	}
	return nil
}
