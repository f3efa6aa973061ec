// Command innode runs the in-memory zkSync Era development node: an
// Ethereum-compatible JSON-RPC server with zkSync-specific namespaces,
// snapshot/revert, and an optional upstream fork.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/zksync-go/innode/internal/cache"
	"github.com/zksync-go/innode/internal/engine"
	"github.com/zksync-go/innode/internal/node"
	"github.com/zksync-go/innode/internal/nodecfg"
	"github.com/zksync-go/innode/internal/nodelog"
	"github.com/zksync-go/innode/internal/rpcapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "innode:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		bindAddr    = flag.String("bind", nodecfg.DefaultBindAddr, "JSON-RPC HTTP listen address")
		forkURL     = flag.String("fork-url", "", "upstream zkSync Era JSON-RPC endpoint to fork from")
		forkBlock   = flag.Uint64("fork-block", 0, "block height to pin the fork at (0 = latest)")
		cacheDir    = flag.String("cache-dir", "", "directory for the disk fork-response cache (empty = memory only)")
		logPath     = flag.String("log-file", nodecfg.DefaultLogPath, "path to the node's log file")
		logLevel    = flag.String("log-level", "info", "log verbosity: trace, debug, info, warn, error, crit")
		engineSel   = flag.String("engine", engine.SelectionBuiltIn.String(), "zkEVM engine selection: built-in, built-in-no-verify, local")
		engineDir   = flag.String("engine-dir", "", "artifact directory for -engine=local")
		overrideDir = flag.String("override-dir", "", "directory of 0xHASH.json bytecode override files")
	)
	flag.Parse()

	logHandle, err := nodelog.Setup(*logPath, *logLevel)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logHandle.Close()

	cacheMode := cache.ModeMemory
	if *cacheDir != "" {
		cacheMode = cache.ModeDisk
	}

	selection, err := engine.ParseSelection(*engineSel)
	if err != nil {
		return err
	}

	cfg := nodecfg.New(
		nodecfg.WithBindAddr(*bindAddr),
		nodecfg.WithFork(*forkURL, *forkBlock),
		nodecfg.WithCache(cacheMode, *cacheDir),
		nodecfg.WithEngine(engine.Options{Selection: selection, LocalDir: *engineDir, OverrideDir: *overrideDir}),
		nodecfg.WithLogging(*logPath, *logLevel),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genesisTimestamp := cfg.GenesisTimestamp
	if genesisTimestamp == 0 {
		genesisTimestamp = uint64(time.Now().Unix())
	}
	nd, err := node.New(ctx, cfg, genesisTimestamp)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	srv, err := rpcapi.NewServer(nd, logHandle, nil)
	if err != nil {
		return fmt.Errorf("register RPC namespaces: %w", err)
	}
	defer srv.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("innode listening", "addr", cfg.BindAddr, "chainId", cfg.ChainID, "fork", cfg.ForkURL != "")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-sigCh:
		log.Info("innode shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
