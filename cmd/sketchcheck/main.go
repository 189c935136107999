package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/sketchcheck/sketchcheck-client/internal/bootstrap"
	"github.com/sketchcheck/sketchcheck-client/internal/config"
	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	if cfg.MetricsPort != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", app.Metrics.Handler())
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				app.Logger.Error("metrics_listener_failed", "error", err)
			}
		}()
	}

	if err := run(ctx, app, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s error: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, app *bootstrap.App, command string, args []string) error {
	switch command {
	case "login":
		return runLogin(ctx, app, args)
	case "upload":
		return runUpload(ctx, app, args)
	case "history":
		return runHistory(ctx, app)
	case "show":
		return runShow(ctx, app, args)
	case "whoami":
		return runWhoami(ctx, app)
	case "logout":
		app.View.Logout(ctx)
		fmt.Println("logged out")
		return nil
	case "health":
		if err := app.Backend.Ping(ctx); err != nil {
			return err
		}
		fmt.Println("backend is reachable")
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLogin(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	code := fs.String("code", "", "authorization code from the OAuth callback")
	token := fs.String("token", "", "session token obtained out of band")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *code != "":
		if err := app.View.HandleCallback(ctx, *code); err != nil {
			return err
		}
	case *token != "":
		if err := app.View.HandleToken(ctx, *token); err != nil {
			return err
		}
	default:
		fmt.Println("open the following URL in a browser, then rerun with -code:")
		fmt.Println(app.Backend.LoginURL(uuid.NewString()))
		return nil
	}

	session := app.Sessions.Current()
	if session == nil {
		return fmt.Errorf("session was not established")
	}
	fmt.Printf("logged in as %s\n", displayName(session.User))
	return nil
}

func runUpload(ctx context.Context, app *bootstrap.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sketchcheck upload <file>")
	}
	path := args[0]

	if err := app.View.Start(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sketch: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat sketch: %w", err)
	}

	sketch := domain.Sketch{
		FileName: filepath.Base(path),
		MimeType: mimeTypeFor(path),
		Size:     info.Size(),
		Data:     f,
	}

	result, err := app.View.SubmitSketch(ctx, sketch)
	if err != nil {
		if notice := app.View.State().Notice; notice != "" {
			fmt.Fprintln(os.Stderr, notice)
		}
		return err
	}
	printResult(result)
	return nil
}

func runHistory(ctx context.Context, app *bootstrap.App) error {
	if err := app.View.Start(ctx); err != nil {
		return err
	}
	if err := app.View.RefreshHistory(ctx); err != nil {
		return err
	}
	entries := app.History.Entries()
	if len(entries) == 0 {
		fmt.Println("no uploads yet")
		return nil
	}
	for _, e := range entries {
		when := "unknown time"
		if !e.UploadedAt.IsZero() {
			when = e.UploadedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-30s  %5.1f  %s\n", e.ID, e.FileName, e.Score, when)
	}
	return nil
}

func runShow(ctx context.Context, app *bootstrap.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sketchcheck show <entry-id>")
	}
	if err := app.View.Start(ctx); err != nil {
		return err
	}
	if err := app.View.RefreshHistory(ctx); err != nil {
		return err
	}
	if err := app.View.OpenHistoryEntry(ctx, args[0]); err != nil {
		return err
	}
	printResult(app.View.State().Result)
	return nil
}

func runWhoami(ctx context.Context, app *bootstrap.App) error {
	session, err := app.Sessions.Restore(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("logged in as %s\n", displayName(session.User))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("session expires at %s\n", session.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func printResult(result *domain.ProjectedResult) {
	if result == nil {
		fmt.Println("no result available")
		return
	}
	fmt.Printf("score:  %.1f (%s)\n", result.Score, result.Rating)
	if result.ImageRef != "" {
		fmt.Printf("image:  %s\n", result.ImageRef)
	}
	for _, issue := range result.Issues {
		fmt.Printf("\n%s (%d)\n  %s\n", issue.Title, issue.Count, issue.Description)
		for _, detail := range issue.Details {
			fmt.Printf("  - %s\n", detail)
		}
	}
}

func displayName(user domain.User) string {
	switch {
	case user.Name != "":
		return user.Name
	case user.Email != "":
		return user.Email
	default:
		return "unknown user"
	}
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sketchcheck <command> [arguments]

commands:
  login [-code <code> | -token <jwt>]   authenticate against the backend
  upload <file>                         submit a sketch for analysis
  history                               list prior uploads
  show <entry-id>                       display a prior upload's result
  whoami                                show the current session
  logout                                drop the session
  health                                check backend reachability`)
}
