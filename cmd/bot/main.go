package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chainvalet/chainvalet/internal/bot"
	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/config"
	"github.com/chainvalet/chainvalet/internal/handler"
	"github.com/chainvalet/chainvalet/internal/ledger"
	"github.com/chainvalet/chainvalet/internal/model/wallet"
	"github.com/chainvalet/chainvalet/internal/router"
	"github.com/chainvalet/chainvalet/internal/service/ai"
	"github.com/chainvalet/chainvalet/internal/service/dialog"
	"github.com/chainvalet/chainvalet/internal/service/ens"
	"github.com/chainvalet/chainvalet/internal/service/flow"
	"github.com/chainvalet/chainvalet/internal/service/market"
	"github.com/chainvalet/chainvalet/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessions := wallet.NewStore()
	dialogs := dialog.NewRegistry(cfg.Wallet.StepTimeout)
	gateway := channel.NewGateway()
	ledgerClient := ledger.NewEthClient(10 * time.Second)

	tokens, err := store.NewSQLite(cfg.Wallet.TokenDBPath)
	if err != nil {
		log.Fatalf("failed to open token registry: %v", err)
	}
	defer tokens.Close()

	var artifact *ledger.Artifact
	if cfg.Wallet.ArtifactPath != "" {
		artifact, err = ledger.LoadArtifact(cfg.Wallet.ArtifactPath)
		if err != nil {
			log.Fatalf("failed to load token artifact: %v", err)
		}
	} else {
		log.Println("no token artifact configured, token deployment disabled")
	}

	names := ens.NewClient(cfg.ENS.SubgraphURL, cfg.ENS.RegistrarURL)
	coingecko := market.NewCoinGeckoClient(cfg.Market.CoinGeckoURL)
	whales := market.NewWhaleAlertClient(cfg.Market.WhaleAlertURL, cfg.Market.WhaleAlertKey)
	news := market.NewCryptoPanicClient(cfg.Market.CryptoPanicURL, cfg.Market.CryptoPanicKey)
	poller := market.NewPoller(whales, gateway, cfg.Market.WhalePollInterval, cfg.Market.WhaleMinUSD)

	engine := flow.NewEngine(flow.Deps{
		Sessions:         sessions,
		Dialogs:          dialogs,
		Channel:          gateway,
		Ledger:           ledgerClient,
		Tokens:           tokens,
		Names:            names,
		Artifact:         artifact,
		MinDeployBalance: cfg.Wallet.MinDeployBalance,
		ConfirmWait:      cfg.Wallet.ConfirmWait,
	})

	commands := router.New(router.Deps{
		Engine:      engine,
		Sessions:    sessions,
		Channel:     gateway,
		Market:      coingecko,
		Whales:      whales,
		News:        news,
		Poller:      poller,
		Names:       names,
		Tokens:      tokens,
		WhaleMinUSD: cfg.Market.WhaleMinUSD,
	})

	var interpreter *ai.Interpreter
	if cfg.AI.Enabled() {
		interpreter, err = ai.NewInterpreter(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize command interpreter: %v", err)
			log.Println("continuing without natural language support")
		} else {
			log.Println("command interpreter initialized")
		}
	} else {
		log.Println("ark credentials not configured, natural language support disabled")
	}

	dispatcher := bot.NewDispatcher(gateway, dialogs, commands, interpreter)
	go dispatcher.Run(ctx)
	go poller.Run(ctx)

	startServer(ctx, cfg.Server, handler.NewRouter(gateway))
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, h http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ChainValet assistant listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
