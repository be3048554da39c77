package bootstrap

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/user-upsert/internal/application/user"
	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
	"github.com/mohammadpnp/user-upsert/internal/infrastructure/event"
	"github.com/mohammadpnp/user-upsert/internal/infrastructure/policy"
	"github.com/mohammadpnp/user-upsert/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/user-upsert/internal/interfaces/http/echo"
)

type Options struct {
	// APIToken guards the API; an empty token disables the check.
	APIToken             string
	AllowDuplicateEmails bool
	AllowedEmailDomains  []string
	EnabledAuthMethods   []string
}

func NewHTTPServer(db *gorm.DB, pool *pgxpool.Pool, logger *slog.Logger, opts Options) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("10M"))

	directory := repository.NewDirectoryRepository(db, pool)
	settings := repository.NewSettingsRepository(db)
	emailPolicy := policy.NewEmailPolicy(opts.AllowedEmailDomains)

	authMethods := opts.EnabledAuthMethods
	if len(authMethods) == 0 {
		authMethods = []string{mapping.DefaultAuthMethod}
	}
	authRegistry := policy.NewAuthRegistry(authMethods)

	notifier := event.NewSlogNotifier(logger)
	sitePolicy := domain.SitePolicy{AllowDuplicateEmails: opts.AllowDuplicateEmails}

	loadConfig := func(ctx context.Context) (*mapping.Config, error) {
		raw, err := settings.Load(ctx)
		if err != nil {
			return nil, err
		}
		return mapping.ParseConfig(raw), nil
	}

	newBatch := func(ctx context.Context) (app.ProcessBatch, error) {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return nil, err
		}

		upsert, err := app.NewUpsertUser(cfg, directory, authRegistry, emailPolicy, sitePolicy)
		if err != nil {
			return nil, err
		}

		matchName, _ := cfg.ExternalName(cfg.MatchField())
		return app.NewProcessBatch(upsert, notifier, matchName), nil
	}

	upsertHandler := httpecho.NewUpsertHandler(newBatch)
	userHandler := httpecho.NewUserHandler(app.NewGetUserByID(directory))
	settingsHandler := httpecho.NewSettingsHandler(loadConfig, directory)

	api := server.Group("/api/v1")
	if opts.APIToken != "" {
		api.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Token",
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(opts.APIToken)) == 1, nil
			},
		}))
	}
	httpecho.RegisterRoutes(api, upsertHandler, userHandler, settingsHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
