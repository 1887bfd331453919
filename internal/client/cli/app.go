package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/safenetai/safebank-client/internal/client/api"
	"github.com/safenetai/safebank-client/internal/client/config"
	"github.com/safenetai/safebank-client/internal/client/credstore"
	"github.com/safenetai/safebank-client/internal/client/device"
	"github.com/safenetai/safebank-client/internal/client/geo"
	"github.com/safenetai/safebank-client/internal/client/models"
	"github.com/safenetai/safebank-client/internal/client/otp"
	"github.com/safenetai/safebank-client/internal/client/services"
	"github.com/safenetai/safebank-client/internal/client/session"
	"github.com/safenetai/safebank-client/internal/logging"

	_ "modernc.org/sqlite"
)

// authService is the slice of the session manager the CLI uses.
// *session.Manager satisfies it.
type authService interface {
	Login(ctx context.Context, identifier, secret string) (*models.User, error)
	VerifyChallenge(ctx context.Context, identifier, code string) (*models.User, error)
	Logout(ctx context.Context) error
	IsAuthenticated() bool
	User() *models.User
	UpdateUser(ctx context.Context, user *models.User) error
}

// registrar creates new accounts. *api.Transport satisfies it.
type registrar interface {
	Register(ctx context.Context, email, password, fullName string) (string, error)
}

// transactionService is the slice of the orchestrator the CLI uses.
// *services.TransactionService satisfies it.
type transactionService interface {
	Submit(ctx context.Context, req *models.TransactionRequest) (models.Verdict, error)
	Challenge() *otp.Challenge
	History(ctx context.Context) ([]models.Transaction, error)
	Alerts(ctx context.Context) ([]models.FraudAlert, error)
	Profile(ctx context.Context) (*models.User, error)
	Close()
}

type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	session authService
	reg     registrar
	tx      transactionService
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogLevel)

	db, err := credstore.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	transport := api.NewTransport(c.BaseURL, c.RequestTimeout)

	sm := session.NewManager(transport, db, log)
	if err := sm.Restore(ctx); err != nil {
		log.Warn(ctx, "could not restore session", "error", err)
	}

	var locator geo.Provider = geo.NoopProvider{}
	if c.HasLocation {
		locator = geo.NewStaticProvider(c.Lat, c.Lng)
	}

	repo := credstore.NewSQLiteRepository(db)
	client := api.NewHTTPClient(transport, sm)
	tx := services.NewTransactionService(client, locator, device.NewStoreProvider(repo), log)

	return &App{
		config:  c,
		log:     log,
		db:      db,
		session: sm,
		reg:     transport,
		tx:      tx,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

// Close releases the local database and any live OTP challenge.
func (a *App) Close() {
	a.tx.Close()
	_ = a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

// getStatus renders the prompt status, e.g. "(user@example.com)".
func (a *App) getStatus() string {
	u := a.session.User()
	if u == nil {
		return ""
	}
	return "(" + u.Email + ")"
}
