package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/notify"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/server/authflowrepo"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/jrsteele09/go-session-auth/users/sqliterepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Msgf("Recovered from panic: %v", r)
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, closeRepo, err := openUserRepo(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepo()

	secret, err := c.GetSigningSecret()
	if err != nil {
		return err
	}
	signer, err := token.NewHMACSigner(secret)
	if err != nil {
		return err
	}

	// Revocations are kept for as long as any token they could match can still be valid
	retention := max(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL())
	revocations := token.NewInMemoryRevocationStore(retention)
	if interval := c.GetRevocationSweepInterval(); interval > 0 {
		go revocations.Run(ctx, interval)
	}

	tokens, err := token.NewManager(signer,
		token.WithTokenExpiry(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL()),
		token.WithRevocationStore(revocations),
	)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(userRepo, tokens,
		auth.WithNotifier(notify.New(c, notify.Links{BaseURL: c.GetBaseURL(), FrontendURL: c.GetFrontendURL()})),
		auth.WithDefaultRole(c.GetDefaultRole()),
		auth.WithVerificationTTL(c.GetVerificationCodeTTL()),
		auth.WithPasswordResetTTL(c.GetPasswordResetTTL()),
		auth.WithAdminEmails(c.GetAdminEmails()...),
	)
	if err != nil {
		return err
	}
	defer authService.Wait()

	handler, err := server.New(c, authService, authflowrepo.NewInMemoryRepo())
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openUserRepo uses SQLite when DB_PATH is set and an in-memory store otherwise.
func openUserRepo(ctx context.Context, c config.Config) (users.UserRepo, func(), error) {
	if c.GetDBPath() == "" {
		log.Warn().Msg("DB_PATH not set, accounts are kept in memory")
		return fakeuserrepo.NewFakeUserRepo(), func() {}, nil
	}
	store, err := sqliterepo.Open(ctx, c.GetDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open user store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close user store")
		}
	}, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
