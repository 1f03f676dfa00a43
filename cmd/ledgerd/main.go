package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/agentbazaar/ledger/internal/httpapi"
	"github.com/agentbazaar/ledger/internal/payoutrail"
	"github.com/agentbazaar/ledger/internal/store/gormstore"
	"github.com/agentbazaar/ledger/pkg/ledger"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL          = "database-url"
	flagListenAddr           = "listen-addr"
	flagTokenSigningKey      = "token-signing-key"
	flagTokenIssuer          = "token-issuer"
	flagAllowedOrigins       = "allowed-origins"
	flagPlatformFeePct       = "platform-fee-pct"
	flagMinimumPayoutCents   = "minimum-payout-cents"
	flagMaximumPayoutCents   = "maximum-payout-cents"
	flagAllowSelfEarnings    = "allow-self-earnings"
	flagRestoreFailedPayouts = "restore-failed-payouts"

	configKeyDatabaseURL          = "database_url"
	configKeyListenAddr           = "listen_addr"
	configKeyTokenSigningKey      = "token_signing_key"
	configKeyTokenIssuer          = "token_issuer"
	configKeyAllowedOrigins       = "allowed_origins"
	configKeyPlatformFeePct       = "platform_fee_pct"
	configKeyMinimumPayoutCents   = "minimum_payout_cents"
	configKeyMaximumPayoutCents   = "maximum_payout_cents"
	configKeyAllowSelfEarnings    = "allow_self_earnings"
	configKeyRestoreFailedPayouts = "restore_failed_payouts"

	defaultDatabaseURL = "sqlite:///tmp/agentbazaar-ledger.db"
	defaultListenAddr  = ":8080"
)

type runtimeConfig struct {
	DatabaseURL          string
	ListenAddr           string
	TokenSigningKey      string
	TokenIssuer          string
	AllowedOrigins       string
	PlatformFeePct       int64
	MinimumPayoutCents   int64
	MaximumPayoutCents   int64
	AllowSelfEarnings    bool
	RestoreFailedPayouts bool
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "ledgerd",
		Short:         "Agent marketplace credit ledger server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	defaults := ledger.DefaultConfig()
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or SQLite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagTokenSigningKey, "", "HMAC signing key for API tokens")
	cmd.Flags().String(flagTokenIssuer, "", "expected issuer of API tokens")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-delimited CORS origins")
	cmd.Flags().Int64(flagPlatformFeePct, defaults.PlatformFeePct, "platform fee percentage of execution cost")
	cmd.Flags().Int64(flagMinimumPayoutCents, defaults.MinimumPayoutCents.Int64(), "minimum payout request in cents")
	cmd.Flags().Int64(flagMaximumPayoutCents, defaults.MaximumPayoutCents.Int64(), "maximum payout request in cents")
	cmd.Flags().Bool(flagAllowSelfEarnings, defaults.AllowSelfEarnings, "record earnings when the payer owns the agent")
	cmd.Flags().Bool(flagRestoreFailedPayouts, defaults.RestoreEarningsOnFailedPayout, "return reserved earnings to pending when a payout fails")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:          "DATABASE_URL",
		configKeyListenAddr:           "LISTEN_ADDR",
		configKeyTokenSigningKey:      "TOKEN_SIGNING_KEY",
		configKeyTokenIssuer:          "TOKEN_ISSUER",
		configKeyAllowedOrigins:       "ALLOWED_ORIGINS",
		configKeyPlatformFeePct:       "PLATFORM_FEE_PCT",
		configKeyMinimumPayoutCents:   "MINIMUM_PAYOUT_CENTS",
		configKeyMaximumPayoutCents:   "MAXIMUM_PAYOUT_CENTS",
		configKeyAllowSelfEarnings:    "ALLOW_SELF_EARNINGS",
		configKeyRestoreFailedPayouts: "RESTORE_FAILED_PAYOUTS",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	flags := map[string]string{
		configKeyDatabaseURL:          flagDatabaseURL,
		configKeyListenAddr:           flagListenAddr,
		configKeyTokenSigningKey:      flagTokenSigningKey,
		configKeyTokenIssuer:          flagTokenIssuer,
		configKeyAllowedOrigins:       flagAllowedOrigins,
		configKeyPlatformFeePct:       flagPlatformFeePct,
		configKeyMinimumPayoutCents:   flagMinimumPayoutCents,
		configKeyMaximumPayoutCents:   flagMaximumPayoutCents,
		configKeyAllowSelfEarnings:    flagAllowSelfEarnings,
		configKeyRestoreFailedPayouts: flagRestoreFailedPayouts,
	}
	for key, flag := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.TokenSigningKey = viper.GetString(configKeyTokenSigningKey)
	cfg.TokenIssuer = viper.GetString(configKeyTokenIssuer)
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.PlatformFeePct = viper.GetInt64(configKeyPlatformFeePct)
	cfg.MinimumPayoutCents = viper.GetInt64(configKeyMinimumPayoutCents)
	cfg.MaximumPayoutCents = viper.GetInt64(configKeyMaximumPayoutCents)
	cfg.AllowSelfEarnings = viper.GetBool(configKeyAllowSelfEarnings)
	cfg.RestoreFailedPayouts = viper.GetBool(configKeyRestoreFailedPayouts)

	if cfg.TokenSigningKey == "" {
		return fmt.Errorf("token signing key is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	store := gormstore.New(gormDB)
	clock := func() int64 { return time.Now().UTC().Unix() }
	serviceConfig := ledger.Config{
		PlatformFeePct:                cfg.PlatformFeePct,
		MinimumPayoutCents:            ledger.AmountCents(cfg.MinimumPayoutCents),
		MaximumPayoutCents:            ledger.AmountCents(cfg.MaximumPayoutCents),
		AllowSelfEarnings:             cfg.AllowSelfEarnings,
		RestoreEarningsOnFailedPayout: cfg.RestoreFailedPayouts,
	}
	service, err := ledger.NewService(store, serviceConfig, clock,
		ledger.WithOperationLogger(&zapOperationLogger{logger: logger}),
		ledger.WithPayoutRail(payoutrail.NewManualRail(logger)),
	)
	if err != nil {
		return fmt.Errorf("ledger service init: %w", err)
	}

	apiConfig := httpapi.Config{
		ListenAddr:      cfg.ListenAddr,
		AllowedOrigins:  httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
		TokenSigningKey: cfg.TokenSigningKey,
		TokenIssuer:     cfg.TokenIssuer,
	}
	if err := apiConfig.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	return httpapi.Run(ctx, apiConfig, service, logger)
}

type zapOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger *zapOperationLogger) LogOperation(_ context.Context, entry ledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("account_id", entry.AccountID.String()),
		zap.String("status", entry.Status),
		zap.Int64("amount_cents", entry.Amount.Int64()),
	}
	if entry.AgentID.String() != "" {
		fields = append(fields, zap.String("agent_id", entry.AgentID.String()))
	}
	if entry.ReferenceID != "" {
		fields = append(fields, zap.String("reference_id", entry.ReferenceID))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("ledger operation failed", fields...)
		return
	}
	operationLogger.logger.Info("ledger operation", fields...)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	cfg := &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "ledger.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// Postgres schemas are managed by migrations; sqlite auto-migrates for
// local development.
func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	if err := gormstore.Migrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
