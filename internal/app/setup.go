// Package app contains the application setup for the storeledger service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/storeledger/storeledger/internal/config"
	"github.com/storeledger/storeledger/internal/payment"
	"github.com/storeledger/storeledger/internal/service"
	"github.com/storeledger/storeledger/internal/store"
	"github.com/storeledger/storeledger/internal/transport/rest"
	"github.com/storeledger/storeledger/pkg/messaging"
	"github.com/storeledger/storeledger/pkg/server"
)

type Dependencies struct {
	LedgerService service.StoreLedgerService
	Bank          *payment.PgBank
	Logger        *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, publisher messaging.Publisher, rent config.RentConfig, logger *slog.Logger) *Dependencies {
	// Balances live next to the store records, so a restart loses neither.
	bank := payment.NewPgBank(dbPool)
	ledgerService := service.NewService(
		store.NewPgStore(dbPool),
		bank,
		payment.NewSettler(bank, bank),
		publisher,
		service.NewOwnerAuthority(),
		service.RentPolicy{Base: rent.Base, PerByte: rent.PerByte},
	)

	return &Dependencies{
		LedgerService: ledgerService,
		Bank:          bank,
		Logger:        logger,
	}
}

// SetupHttpHandler initializes the HTTP server and routes for the storeledger application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storeledger application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	ledgerHandler := rest.NewHandler(deps.LedgerService, deps.Logger)
	ledgerHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the storeledger application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
