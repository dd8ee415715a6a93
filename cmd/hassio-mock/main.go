// Hassio-mock serves an in-memory Supervisor and Home Assistant API.
//
// It answers every endpoint hassio-snap uses, so the CLI can be exercised
// without a Home Assistant installation:
//
//	hassio-mock serve --listen :8080 --token dev --seed 3
//	hassio-snap --supervisor-url http://localhost:8080 \
//	    --ha-url http://localhost:8080/homeassistant/api --token dev snapshots
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/logging"
	"github.com/muurk/hassio-snapshots/internal/supervisortest"
	"github.com/muurk/hassio-snapshots/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "hassio-mock",
	Short:   "Fake Supervisor and Home Assistant API for local development",
	Version: version.Version,
}

var (
	listenAddr string
	token      string
	seed       int
	users      []string
	logLevel   string
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "Address to listen on")
	serveCmd.Flags().StringVar(&token, "token", "", "Token required on every request (empty accepts anything)")
	serveCmd.Flags().IntVar(&seed, "seed", 0, "Number of snapshots to create at startup")
	serveCmd.Flags().StringSliceVar(&users, "user", nil, "user:password accepted by /auth (repeatable)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fake API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	fake, err := newFake(token, seed, users)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           fake,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Fake Supervisor listening",
			zap.String("addr", listenAddr),
			zap.String("home_assistant", supervisortest.HomeAssistantPrefix),
			zap.Int("snapshots", seed),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newFake builds the fake with users parsed from user:password pairs and
// seed numbered snapshots
func newFake(token string, seed int, users []string) (*supervisortest.Server, error) {
	fake := supervisortest.New()
	fake.Token = token

	for _, u := range users {
		name, password, ok := strings.Cut(u, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --user %q, want user:password", u)
		}
		fake.Users[name] = password
	}

	for i := 1; i <= seed; i++ {
		fake.AddSnapshot(map[string]any{
			"name": fmt.Sprintf("Seed snapshot %d", i),
			"size": float64(i) * 10.5,
		})
	}
	return fake, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hassio-mock %s\n", version.Full())
	},
}
