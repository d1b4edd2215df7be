// Package e2e provides end-to-end tests for the storeledger application.
// The suite leverages `testcontainers-go` to spin up a real PostgreSQL instance in a Docker container,
// ensuring tests run against a production-like environment. It uses `testify/suite` for better structure
// and lifecycle management (`SetupSuite`, `TearDownSuite`, `SetupTest`).
//
// Key features of the test suite:
//   - A PostgreSQL container is started and database migrations are applied before tests run.
//   - The actual application handler is run in an `httptest.Server`.
//   - Caller identity travels in the X-Caller-Id header, exactly as in production.
//   - Test coverage includes the full store lifecycle: initialize, catalog
//     management, purchase with settlement, delivery marking and teardown.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/storeledger/storeledger/internal/app"
	"github.com/storeledger/storeledger/internal/config"
	"github.com/storeledger/storeledger/internal/ledger"
	"github.com/storeledger/storeledger/internal/service"
	"github.com/storeledger/storeledger/pkg/messaging"
	"github.com/storeledger/storeledger/pkg/web"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "STORELEDGER_SKIP_E2E_TESTS"

// storesURL is the base URL for the storeledger API.
const storesURL = "/api/v1/stores"

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _ messaging.Event) error { return nil }

// StoreLedgerE2ESuite is a test suite for end-to-end tests of the storeledger service.
type StoreLedgerE2ESuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	deps        *app.Dependencies
	server      *httptest.Server
	httpClient  *http.Client
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite initializes the test suite by setting up the PostgreSQL container, database connection, and application handler.
func (s *StoreLedgerE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "storeledger"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. Create a new pgxpool instance using the connection string
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgx pool")

	for i := range 10 {
		s.logger.Info("Pinging E2E PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Apply database migrations
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "..", "..", "..", "migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for E2E tests")

	// 5. Assemble the application handler with the real service wiring
	rent := config.RentConfig{Base: 1_000, PerByte: 2}
	s.deps = app.SetupDependencies(s.dbPool, noopPublisher{}, rent, s.logger)

	s.server = httptest.NewServer(app.SetupHttpHandler(s.deps))
	s.httpClient = s.server.Client()
	s.logger.Info("E2E test server started", "url", s.server.URL)
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *StoreLedgerE2ESuite) TearDownSuite() {
	s.logger.Info("Tearing down E2E suite...")
	if s.server != nil {
		s.server.Close()
		s.logger.Info("E2E test server closed.")
	}
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("E2E DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating E2E PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		} else {
			s.logger.Info("E2E PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the store
// records and payment tables.
func (s *StoreLedgerE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE store_records, payment_accounts")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

// TestStoreLedgerE2E runs the storeledger end-to-end suite.
func TestStoreLedgerE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(StoreLedgerE2ESuite))
}

// --------------------------------------------------------------------------
// ---------- Helper methods for E2E tests ----------------------------------
// --------------------------------------------------------------------------

// fundedCaller creates a caller identity with a generous native balance.
func (s *StoreLedgerE2ESuite) fundedCaller() uuid.UUID {
	caller := uuid.New()
	require.NoError(s.T(), s.deps.Bank.Deposit(s.ctx, caller, 100_000_000))
	return caller
}

// doRequest makes an HTTP request with the given caller identity.
// Returns the response body as a byte slice and the HTTP status code.
func (s *StoreLedgerE2ESuite) doRequest(method, url string, caller uuid.UUID, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, url, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	req.Header.Set(web.XCallerId, caller.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		err := resp.Body.Close()
		require.NoError(s.T(), err, "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")

	return bodyBytes, resp.StatusCode
}

// createStore creates a store and decodes the response into a StoreDto.
func (s *StoreLedgerE2ESuite) createStore(caller uuid.UUID, name string) (service.StoreDto, int) {
	s.T().Helper()
	body, statusCode := s.doRequest(http.MethodPost, s.server.URL+storesURL+"/", caller, map[string]string{"name": name})
	var dto service.StoreDto
	if statusCode == http.StatusCreated {
		require.NoError(s.T(), json.Unmarshal(body, &dto))
	}
	return dto, statusCode
}

// getStore fetches a store by name.
func (s *StoreLedgerE2ESuite) getStore(caller uuid.UUID, name string) (service.StoreDto, int) {
	s.T().Helper()
	body, statusCode := s.doRequest(http.MethodGet, s.server.URL+storesURL+"/"+name+"/", caller, nil)
	var dto service.StoreDto
	if statusCode == http.StatusOK {
		require.NoError(s.T(), json.Unmarshal(body, &dto))
	}
	return dto, statusCode
}

// addProduct appends a product to the store catalog.
func (s *StoreLedgerE2ESuite) addProduct(caller uuid.UUID, store string, product service.ProductCreateDto) int {
	s.T().Helper()
	_, statusCode := s.doRequest(http.MethodPost, s.server.URL+storesURL+"/"+store+"/products", caller, product)
	return statusCode
}

// purchase buys a product and returns the assigned receipt id.
func (s *StoreLedgerE2ESuite) purchase(buyer uuid.UUID, store string, req service.PurchaseDto) (uint64, int) {
	s.T().Helper()
	body, statusCode := s.doRequest(http.MethodPost, s.server.URL+storesURL+"/"+store+"/purchases", buyer, req)
	var resp map[string]uint64
	if statusCode == http.StatusCreated {
		require.NoError(s.T(), json.Unmarshal(body, &resp))
	}
	return resp["receipt_id"], statusCode
}

// --------------------------------------------------------------
// ---------------------- E2E test methods ----------------------
// --------------------------------------------------------------

func (s *StoreLedgerE2ESuite) TestStoreLifecycle_E2E() {
	s.T().Run("Full store lifecycle", func(t *testing.T) {
		s.SetupTest()
		// given a funded owner and buyer
		owner := s.fundedCaller()
		buyer := s.fundedCaller()

		// when the owner initializes a store
		created, statusCode := s.createStore(owner, "cafe")
		require.Equal(t, http.StatusCreated, statusCode)
		require.Equal(t, "cafe", created.Name)
		require.Equal(t, owner, created.Owner)

		// and adds a product
		statusCode = s.addProduct(owner, "cafe", service.ProductCreateDto{Name: "latte", Price: 500, Asset: ledger.NativeAsset})
		require.Equal(t, http.StatusCreated, statusCode)

		// and the buyer purchases it
		receiptID, statusCode := s.purchase(buyer, "cafe", service.PurchaseDto{
			ProductName:  "latte",
			PaymentAsset: ledger.NativeAsset,
			TableNumber:  4,
		})
		require.Equal(t, http.StatusCreated, statusCode)
		require.Equal(t, uint64(0), receiptID)

		// then the journal holds one undelivered receipt
		fetched, statusCode := s.getStore(buyer, "cafe")
		require.Equal(t, http.StatusOK, statusCode)
		require.Equal(t, uint64(1), fetched.PurchaseCounter)
		require.Len(t, fetched.Receipts, 1)
		require.False(t, fetched.Receipts[0].WasDelivered)

		// and the delivery mark sticks
		markURL := fmt.Sprintf("%s%s/cafe/receipts/%d/delivered", s.server.URL, storesURL, receiptID)
		_, statusCode = s.doRequest(http.MethodPost, markURL, owner, nil)
		require.Equal(t, http.StatusNoContent, statusCode)

		fetched, statusCode = s.getStore(buyer, "cafe")
		require.Equal(t, http.StatusOK, statusCode)
		require.True(t, fetched.Receipts[0].WasDelivered)

		// and teardown removes the store
		_, statusCode = s.doRequest(http.MethodDelete, s.server.URL+storesURL+"/cafe/", owner, nil)
		require.Equal(t, http.StatusNoContent, statusCode)

		_, statusCode = s.getStore(buyer, "cafe")
		require.Equal(t, http.StatusNotFound, statusCode)
	})
}

func (s *StoreLedgerE2ESuite) TestAuthorization_E2E() {
	s.T().Run("Only the owner mutates the catalog", func(t *testing.T) {
		s.SetupTest()
		// given
		owner := s.fundedCaller()
		stranger := s.fundedCaller()
		_, statusCode := s.createStore(owner, "cafe")
		require.Equal(t, http.StatusCreated, statusCode)

		// when a stranger tries to add a product
		statusCode = s.addProduct(stranger, "cafe", service.ProductCreateDto{Name: "latte", Price: 500, Asset: ledger.NativeAsset})

		// then the request is rejected and the catalog stays empty
		require.Equal(t, http.StatusForbidden, statusCode)
		fetched, _ := s.getStore(owner, "cafe")
		require.Empty(t, fetched.Catalog)
	})
}

func (s *StoreLedgerE2ESuite) TestCreateStore_E2E() {
	s.T().Run("Duplicate name is rejected", func(t *testing.T) {
		s.SetupTest()
		owner := s.fundedCaller()
		_, statusCode := s.createStore(owner, "cafe")
		require.Equal(t, http.StatusCreated, statusCode)

		_, statusCode = s.createStore(s.fundedCaller(), "cafe")

		require.Equal(t, http.StatusConflict, statusCode)
	})

	s.T().Run("Unfunded owner cannot cover the deposit", func(t *testing.T) {
		s.SetupTest()
		_, statusCode := s.createStore(uuid.New(), "bistro")

		require.Equal(t, http.StatusPaymentRequired, statusCode)
	})

	s.T().Run("Invalid name is rejected", func(t *testing.T) {
		s.SetupTest()
		_, statusCode := s.createStore(s.fundedCaller(), "Bad Name!")

		require.Equal(t, http.StatusBadRequest, statusCode)
	})
}

func (s *StoreLedgerE2ESuite) TestPurchase_E2E() {
	s.T().Run("Broke buyer cannot purchase and state is unchanged", func(t *testing.T) {
		s.SetupTest()
		// given
		owner := s.fundedCaller()
		_, statusCode := s.createStore(owner, "cafe")
		require.Equal(t, http.StatusCreated, statusCode)
		statusCode = s.addProduct(owner, "cafe", service.ProductCreateDto{Name: "latte", Price: 500, Asset: ledger.NativeAsset})
		require.Equal(t, http.StatusCreated, statusCode)

		// when an unfunded buyer tries to purchase
		_, statusCode = s.purchase(uuid.New(), "cafe", service.PurchaseDto{
			ProductName:  "latte",
			PaymentAsset: ledger.NativeAsset,
		})

		// then payment is refused and nothing was journaled
		require.Equal(t, http.StatusPaymentRequired, statusCode)
		fetched, _ := s.getStore(owner, "cafe")
		require.Equal(t, uint64(0), fetched.PurchaseCounter)
		require.Empty(t, fetched.Receipts)
	})
}
