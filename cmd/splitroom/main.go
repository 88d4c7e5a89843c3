package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/splitroom/splitroom/internal/api"
	"github.com/splitroom/splitroom/internal/auth"
	"github.com/splitroom/splitroom/internal/cli"
	"github.com/splitroom/splitroom/internal/config"
	"github.com/splitroom/splitroom/internal/live"
	"github.com/splitroom/splitroom/internal/room"
)

var rootCmd = &cobra.Command{
	Use:           "splitroom",
	Short:         "Terminal client for splitting bills over chat",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig      string
	flagRoom        string
	flagAPIBaseURL  string
	flagSocketURL   string
	flagCredentials string
	flagLogLevel    string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", config.DefaultPath(), "config file")
	flags.StringVar(&flagRoom, "room", "", "room ID to join")
	flags.StringVar(&flagAPIBaseURL, "api-url", "", "API base URL")
	flags.StringVar(&flagSocketURL, "socket-url", "", "websocket URL (derived from --api-url when empty)")
	flags.StringVar(&flagCredentials, "credentials", "", "credentials file")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "splitroom:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.RoomID == "" {
		return errors.New("no room ID: pass --room or set SPLITROOM_ROOM_ID")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	creds, err := auth.Load(cfg.CredentialsPath)
	if err != nil {
		if errors.Is(err, auth.ErrNotSignedIn) {
			fmt.Fprintf(os.Stderr, "You are not signed in. Put a valid token in %s\n", cfg.CredentialsPath)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.APIBaseURL, creds.Token, cfg.HTTPTimeout, logger)
	rm, history, err := client.Load(ctx, cfg.RoomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open room %s: %v\n", cfg.RoomID, err)
		return err
	}

	state := room.NewState(creds.DisplayName, rm)
	rend := cli.NewRenderer(os.Stdout, creds.DisplayName)
	app := cli.NewApp(state, rend, client, cfg.RoomID, logger)
	app.Bootstrap(history)

	socketURL, err := cfg.ResolveSocketURL()
	if err != nil {
		return err
	}

	sess, err := live.Dial(ctx, live.Config{
		URL:         socketURL,
		Token:       creds.Token,
		RoomID:      cfg.RoomID,
		DisplayName: creds.DisplayName,
	}, app, logger)
	if err != nil {
		// The room still renders from the fetched history; there are
		// just no live updates until the next run.
		logger.Warn().Err(err).Msg("[main] live connection failed")
		rend.Notice("live connection unavailable, transcript is read-only")
	} else {
		defer sess.Close()
		app.SetSender(sess)
	}

	// Ctrl-C is a normal way to leave the room, not an error.
	if err := app.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("room") {
		cfg.RoomID = flagRoom
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIBaseURL = flagAPIBaseURL
	}
	if cmd.Flags().Changed("socket-url") {
		cfg.SocketURL = flagSocketURL
	}
	if cmd.Flags().Changed("credentials") {
		cfg.CredentialsPath = flagCredentials
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
