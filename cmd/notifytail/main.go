// Command notifytail signs in as one user and prints connection status and
// inbox changes as they arrive.
//
// Configuration comes from NOTIFY_* environment variables (a .env file is
// honored) or from a YAML file passed with -config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/notifysync"
	"github.com/dmitrymomot/notifysync/pkg/config"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notifications"
	"github.com/dmitrymomot/notifysync/pkg/session"
)

type appConfig struct {
	notifysync.Config

	UserID    string `env:"NOTIFY_USER_ID" yaml:"user_id"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" yaml:"log_format"`
}

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	userID := flag.String("user", "", "user to sign in as (overrides NOTIFY_USER_ID)")
	flag.Parse()

	if err := run(*configPath, *userID); err != nil {
		fmt.Fprintln(os.Stderr, "notifytail:", err)
		os.Exit(1)
	}
}

func run(configPath, userID string) error {
	var cfg appConfig
	var err error
	if configPath != "" {
		err = config.LoadFile(configPath, &cfg)
	} else {
		err = config.Load(&cfg)
	}
	if err != nil {
		return err
	}
	if userID != "" {
		cfg.UserID = userID
	}
	if cfg.UserID == "" {
		return errors.New("no user: set NOTIFY_USER_ID or pass -user")
	}

	format := logger.FormatText
	if cfg.LogFormat == string(logger.FormatJSON) {
		format = logger.FormatJSON
	}
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithFormat(format),
		logger.WithAttr(logger.Component("notifytail")),
		logger.WithContextExtractors(logger.UserIDExtractor),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := notifysync.NewFromConfig(ctx, cfg.Config, notifysync.WithLogger(log))
	if err != nil {
		return err
	}
	defer client.Close()

	languages := cfg.Languages()
	statuses := client.SubscribeStatus(ctx).Receive(ctx)
	changes := client.SubscribeChanges(ctx).Receive(ctx)

	auth := session.NewMemoryAuthProvider(session.SignedIn(cfg.UserID))
	defer auth.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx, auth) }()

	for {
		select {
		case <-ctx.Done():
			<-runErr
			return nil
		case err := <-runErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case msg, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			log.InfoContext(logger.ContextWithUserID(ctx, client.UserID()), "connection", logger.Status(msg.Data.String()))
		case msg, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			printChange(client, languages, msg.Data)
		}
	}
}

func printChange(client *notifysync.Client, languages notifications.Languages, c notifications.Change) {
	switch c.Kind {
	case notifications.ChangeInserted:
		for _, rec := range client.Notifications() {
			if rec.ID != c.ID {
				continue
			}
			fmt.Printf("%s  [%s] %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Category, rec.Title.Primary)
			if secondary := languages.Pick(rec.Title, languages.Secondary); secondary != rec.Title.Primary {
				fmt.Printf("%18s%s\n", "", secondary)
			}
		}
	case notifications.ChangeSession:
		fmt.Printf("-- session %q --\n", client.UserID())
		return
	default:
		slog.Debug("inbox changed", slog.String("kind", string(c.Kind)), logger.NotificationID(c.ID))
	}
	fmt.Printf("unread: %d\n", client.UnreadCount())
}
