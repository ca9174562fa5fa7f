// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/loopify/internal/api/connect"
	"github.com/osa030/loopify/internal/api/rest"
	"github.com/osa030/loopify/internal/api/ws"
	"github.com/osa030/loopify/internal/app/control"
	"github.com/osa030/loopify/internal/app/notification"
	"github.com/osa030/loopify/internal/app/player"
	"github.com/osa030/loopify/internal/app/repeat"
	"github.com/osa030/loopify/internal/infra/config"
	"github.com/osa030/loopify/internal/infra/logger"
	"github.com/osa030/loopify/internal/infra/mpd"
	"github.com/osa030/loopify/internal/infra/spotify"
)

var (
	app        = kingpin.New("loopify-server", "loopify media control and song loop server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	listBackendsCmd = app.Command("list-backends", "List available player backends and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

// backendDescriptions documents the backend types for list-backends.
var backendDescriptions = map[string]string{
	config.BackendSpotify: "Spotify Web API (status and commands)",
	config.BackendMPD:     "Music Player Daemon (status and commands)",
	config.BackendExec:    "shell command per media key, e.g. xdotool or playerctl (commands)",
	config.BackendLog:     "log commands without executing them (commands)",
}

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listBackendsCmd.FullCommand() {
		printBackends()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients, err := newClients(ctx, cfg)
	if err != nil {
		return err
	}

	provider, err := player.NewStatusProviderFromConfig(cfg, clients)
	if err != nil {
		return errors.Wrap(err, "failed to create status providers")
	}
	issuer, err := player.NewCommandIssuerFromConfig(cfg, clients)
	if err != nil {
		return errors.Wrap(err, "failed to create command issuer")
	}

	store := repeat.NewStore()
	watcher := repeat.NewWatcher(store, provider, issuer, repeat.DefaultConfig())
	svc := control.NewService(store, provider, issuer, watcher)

	notifier := notification.NewManager()
	defer notifier.Close()
	go notifier.Run(ctx)
	go forwardEvents(ctx, watcher, notifier)
	go watcher.Run(ctx)

	mux := http.NewServeMux()
	rest.NewHandler(svc).Register(mux)
	mux.Handle("GET /ws", ws.NewHandler(svc, notifier, cfg.Server.AllowedOrigins))

	if cfg.RPCEnabled() {
		path, handler := apiconnect.NewControlServiceHandler(
			apiconnect.NewControlService(svc),
			connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)),
		)
		mux.Handle(path, handler)
		zlog.Info().Msgf("RPC control service enabled: path=%s", path)
	} else {
		zlog.Info().Msg("RPC control service disabled (admin.token not set)")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(rest.CORS(rest.RequestLogger(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		watcher.Stop()
		return errors.Wrap(err, "server error")
	}

	watcher.Stop()
	<-watcher.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newClients builds the player integrations the configuration refers to.
func newClients(ctx context.Context, cfg *config.Config) (player.Clients, error) {
	var clients player.Clients

	if cfg.UsesBackend(config.BackendSpotify) {
		sc, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			VolumeStep:   cfg.Spotify.VolumeStep,
		})
		if err != nil {
			return clients, errors.Wrap(err, "failed to create Spotify client")
		}
		checkSpotifyAuth(ctx, sc)
		clients.Spotify = sc
	}

	if cfg.UsesBackend(config.BackendMPD) {
		clients.MPD = mpd.New(mpd.Config{
			Network:    cfg.MPD.Network,
			Addr:       cfg.MPD.Addr,
			Password:   cfg.MPD.Password,
			VolumeStep: cfg.MPD.VolumeStep,
		})
		zlog.Info().Msgf("MPD backend configured: network=%s addr=%s", cfg.MPD.Network, cfg.MPD.Addr)
	}

	return clients, nil
}

// checkSpotifyAuth verifies the credentials once at startup. A failure is
// only logged; polls keep failing softly until the token works.
func checkSpotifyAuth(ctx context.Context, sc *spotify.Client) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := sc.CheckAuth(ctx)
	if err != nil {
		zlog.Warn().Msgf("Spotify authentication check failed, run loopify-auth to get a new refresh token: %v", err)
		return
	}
	zlog.Info().Msgf("Spotify authenticated: user=%s", user)
}

// forwardEvents publishes watcher events, loop changes included, as
// notifications in the order the watcher emitted them.
func forwardEvents(ctx context.Context, watcher *repeat.Watcher, notifier *notification.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-watcher.Events():
			notifier.Publish(notification.FromEvent(ev))
		}
	}
}

// printBackends prints available backends.
func printBackends() {
	fmt.Println("Status backends:")
	for _, b := range config.StatusBackends {
		fmt.Printf("  %-10s - %s\n", b, backendDescriptions[b])
	}
	fmt.Println("Command backends:")
	for _, b := range config.CommandBackends {
		fmt.Printf("  %-10s - %s\n", b, backendDescriptions[b])
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
