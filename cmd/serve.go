package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"saffaucet/api"
	"saffaucet/audit"
	"saffaucet/chain"
	"saffaucet/config"
	"saffaucet/exception"
	"saffaucet/faucet"
	"saffaucet/geoip"
	"saffaucet/logx"
	"saffaucet/quota"
)

var serveConfig struct {
	ConfigPath    string
	TuningPath    string
	ListenAddr    string
	AuditBackend  string
	AuditTarget   string
	GeoipEndpoint string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the faucet HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig.ConfigPath, "config", "faucet.yml", "path to the faucet config file")
	serveCmd.Flags().StringVar(&serveConfig.TuningPath, "tuning", "", "optional .ini file with a [dispatch] tuning section")
	serveCmd.Flags().StringVar(&serveConfig.ListenAddr, "listen", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveConfig.AuditBackend, "audit-backend", "bolt", "audit store backend: postgres, redis or bolt")
	serveCmd.Flags().StringVar(&serveConfig.AuditTarget, "audit-target", "./data/audit.db", "audit store target: postgres DSN, redis address or bolt file path")
	serveCmd.Flags().StringVar(&serveConfig.GeoipEndpoint, "geoip-endpoint", "", "override the geoip lookup endpoint")
	rootCmd.AddCommand(serveCmd)
}

func newAuditStore(backend, target string) (audit.Store, error) {
	switch backend {
	case "postgres":
		return audit.NewPostgresStore(target)
	case "redis":
		return audit.NewRedisStore(target)
	case "bolt":
		return audit.NewBoltStore(target)
	default:
		return nil, fmt.Errorf("unknown audit backend: %s", backend)
	}
}

func runServe() error {
	tuning := config.DefaultDispatchTuning()
	if serveConfig.TuningPath != "" {
		loaded, err := config.LoadDispatchTuning(serveConfig.TuningPath)
		if err != nil {
			return fmt.Errorf("failed to load dispatch tuning: %w", err)
		}
		tuning = loaded
	}

	store, err := newAuditStore(serveConfig.AuditBackend, serveConfig.AuditTarget)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer store.Close()

	provider := config.NewFileProvider(serveConfig.ConfigPath)
	dispatcher := faucet.NewDispatcher(chain.NewRestGateway, tuning)
	service := faucet.NewService(
		provider,
		quota.NewEngine(store),
		dispatcher,
		audit.NewRecorder(store),
		geoip.NewResolver(serveConfig.GeoipEndpoint),
	)

	fundingSelfCheck(provider)

	server := &http.Server{
		Addr:    serveConfig.ListenAddr,
		Handler: api.NewServer(service, healthGateway(provider)).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exception.SafeGoWithPanic("http-server", func() {
		logx.Info("serve", "faucet listening on ", serveConfig.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("serve", "http server failed: ", err)
		}
	})

	<-ctx.Done()
	logx.Info("serve", "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// healthGateway dials a throwaway gateway against the currently configured
// endpoint for the /health probe.
func healthGateway(provider config.Provider) func() chain.Gateway {
	return func() chain.Gateway {
		cfg, err := provider.Load()
		if err != nil {
			return chain.NewRestGateway("")
		}
		return chain.NewRestGateway(cfg.RPCEndpoint)
	}
}

// fundingSelfCheck logs the funding account's address and balance at
// startup. Informational only; a failure here never blocks serving.
func fundingSelfCheck(provider config.Provider) {
	exception.SafeGo("funding-self-check", func() {
		cfg, err := provider.Load()
		if err != nil {
			logx.Warn("serve", "self-check: config not loadable yet: ", err)
			return
		}
		address, err := fundingAddress(cfg)
		if err != nil {
			logx.Warn("serve", "self-check: ", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		balances, err := chain.NewRestGateway(cfg.RPCEndpoint).GetBalances(ctx, address)
		if err != nil {
			logx.Warn("serve", "self-check: balances unavailable: ", err)
			return
		}
		logx.Info("serve", "funding account ", address, " balances ", balances)
	})
}
