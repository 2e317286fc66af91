package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ventamovil/session-core/internal/core/domain"
	"github.com/ventamovil/session-core/internal/core/service"
	"github.com/ventamovil/session-core/internal/infrastructure/backend"
	"github.com/ventamovil/session-core/internal/infrastructure/config"
	filestore "github.com/ventamovil/session-core/internal/infrastructure/storage/file"
	redisstore "github.com/ventamovil/session-core/internal/infrastructure/storage/redis"
	"github.com/ventamovil/session-core/internal/navigation"
	"github.com/ventamovil/session-core/pkg/logger"
)

// app is one "launch" of the client: session manager plus the navigation
// gate the UI would mount its trees from.
type app struct {
	session *service.SessionManager
	gate    *navigation.Gate
	close   func()
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	logg := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	cleanup := func() {}

	var session *service.SessionManager
	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr: cfg.Storage.Redis.Addr,
			DB:   cfg.Storage.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		cleanup = func() { _ = client.Close() }
		session = service.NewSessionManager(
			redisstore.NewStore(client, logger.Component("storage")),
			backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger.Component("backend")),
			logger.Component("session"),
		)
	default:
		fileStore, err := filestore.NewStore(cfg.Storage.Dir, logger.Component("storage"))
		if err != nil {
			return nil, err
		}
		session = service.NewSessionManager(
			fileStore,
			backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger.Component("backend")),
			logger.Component("session"),
		)
	}

	gate := navigation.NewGate(logg.With().Str("component", "navigation").Logger())
	gate.Bind(session)

	return &app{
		session: session,
		gate:    gate,
		close: func() {
			gate.Close()
			cleanup()
		},
	}, nil
}

// initialize runs startup recovery; a rejected stored token is routine, not
// a command failure.
func (a *app) initialize(ctx context.Context) {
	_ = a.session.Initialize(ctx)
}

func (a *app) printState(ctx context.Context) {
	snap := a.session.Snapshot()

	fmt.Printf("state:          %s\n", snap.State)
	fmt.Printf("authenticated:  %v\n", snap.IsAuthenticated)
	fmt.Printf("route:          %s\n", a.gate.Current())
	if snap.User != nil {
		fmt.Printf("user:           %s <%s>\n", snap.User.FullName, snap.User.Email)
		fmt.Printf("role:           %s\n", snap.Role)
	}
	if email, ok := a.session.SavedLoginEmail(ctx); ok {
		fmt.Printf("saved email:    %s\n", email)
	}
}

func newLoginCommand() *cobra.Command {
	var (
		email    string
		password string
		remember bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and establish a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.initialize(ctx)
			if a.session.Snapshot().IsAuthenticated {
				fmt.Println("already logged in")
				a.printState(ctx)
				return nil
			}

			if email == "" {
				if saved, ok := a.session.SavedLoginEmail(ctx); ok {
					email = saved
					fmt.Printf("using saved email %s\n", email)
				}
			}

			err = a.session.Login(ctx, domain.Credentials{
				Email:      email,
				Password:   password,
				RememberMe: remember,
			})
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrInvalidCredentials):
				return errors.New("login rejected: check email and password")
			case errors.Is(err, domain.ErrAccountDisabled):
				return errors.New("login rejected: account is disabled")
			case errors.Is(err, domain.ErrUnreachable):
				return fmt.Errorf("no connection to the backend: %w", err)
			default:
				return err
			}

			a.printState(ctx)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "login email (defaults to the saved one)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember the login email across sessions")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCommand() *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Tear the session down",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.initialize(ctx)
			a.session.Logout(ctx, forget)
			a.printState(ctx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "also clear the remembered login email")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state and selected navigation route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.initialize(ctx)
			a.printState(ctx)
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the authenticated user's profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.initialize(ctx)
			snap := a.session.Snapshot()
			if !snap.IsAuthenticated {
				return errors.New("not logged in")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap.User)
		},
	}
}
