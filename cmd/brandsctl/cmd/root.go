package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"brands-console/internal/client"
	"brands-console/internal/config"
	"brands-console/internal/events"
	"brands-console/internal/logging"
	"brands-console/internal/services"
)

type rootOptions struct {
	apiURL   string
	apiKey   string
	logLevel string
	timeout  time.Duration
}

// NewRootCommand builds the brandsctl command tree with fresh flag state
func NewRootCommand() *cobra.Command {
	config.LoadDotEnv()
	cfg := config.FromEnv()

	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "brandsctl",
		Short:         "Command line console for the brands API",
		Long:          `brandsctl lists, creates, edits and deletes brands through the same synchronized view the console server uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", cfg.APIBaseURL, "brands API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", cfg.APIKey, "API key sent as X-API-Key")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", cfg.RequestTimeoutDuration(), "per-request timeout")

	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newCreateCommand(opts))
	rootCmd.AddCommand(newUpdateCommand(opts))
	rootCmd.AddCommand(newDeleteCommand(opts))

	return rootCmd
}

func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", client.UserMessage(err))
		return err
	}
	return nil
}

// session is one command's view over the remote API
type session struct {
	view  *services.BrandsView
	queue *events.NotificationQueue
}

func (o *rootOptions) open(cmd *cobra.Command) *session {
	logger := logging.NewLoggerTo(cmd.ErrOrStderr(), logging.LogLevel(o.logLevel))

	executor := client.NewExecutor(o.apiURL,
		client.WithAPIKey(o.apiKey),
		client.WithTimeout(o.timeout),
		client.WithLogger(logger))

	queue := events.NewNotificationQueue(events.QueueConfig{Logger: logger})

	// Commands settle filters explicitly, so the quiet period never delays them
	view := services.NewBrandsView(services.ViewConfig{
		Source:        client.NewBrandsClient(executor),
		QuietPeriod:   time.Millisecond,
		Notifications: queue,
		Logger:        logger,
	})

	return &session{view: view, queue: queue}
}

// load starts the view and waits for the unfiltered list
func (s *session) load(ctx context.Context) (services.ViewState, error) {
	s.view.Start()
	state, err := s.view.Await(ctx)
	if err != nil {
		return state, err
	}
	if state.Error != "" {
		return state, fmt.Errorf("failed to load brands: %s", state.Error)
	}
	return state, nil
}

// printNotifications writes every pending notification, oldest first
func (s *session) printNotifications(w io.Writer) {
	notifications, _, _ := s.queue.GetNotifications(0, 0)
	for _, n := range notifications {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}
}

func (s *session) close() {
	s.view.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
