package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"walletcard/pkg/config"
	"walletcard/pkg/rpc"
	"walletcard/pkg/server"
	"walletcard/pkg/session"
	"walletcard/pkg/smartaccount"
	"walletcard/pkg/storage"
	"walletcard/pkg/tui"
	"walletcard/pkg/watcher"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version should be set during build
var Version = "dev"

func main() {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	dryRunFlag := flag.Bool("dry-run", false, "Perform a trial run with no changes made")
	configFlag := flag.String("config", "", "Path to configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	portFlag := flag.Int("port", 8080, "Port for API server")
	restoreFlag := flag.Bool("restore", false, "Restore the newest configuration backup and exit")
	loginFlag := flag.String("login", "", "Store a session for the given address and exit")
	logoutFlag := flag.Bool("logout", false, "Clear the stored session and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("walletcard version %s\n", Version)
		os.Exit(0)
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		os.Exit(1)
	}

	if *restoreFlag {
		backup, err := config.RestoreLastBackup(path)
		if err != nil {
			fmt.Printf("Error restoring backup: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Restored %s from %s\n", path, backup)
		os.Exit(0)
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		os.Exit(1)
	}

	interactive := !*serverFlag && !*testFlag && !*testLongFlag && *loginFlag == "" && !*logoutFlag
	closeLog, err := setupLogging(interactive, cfg.Global)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	storeDir, err := config.ResolveStorageDir(cfg.Global)
	if err != nil {
		fmt.Printf("Error determining storage directory: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.Open(storeDir)
	if err != nil {
		fmt.Printf("Error opening storage at %s: %v\n", storeDir, err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	sess := session.NewLocalProvider(store)

	if *testFlag || *testLongFlag {
		report, ok := runConfigTest(context.Background(), &cfg, path, sess.StoredAddress(), testOptions{JSON: *jsonFlag, DryRun: *dryRunFlag}, os.Stdout)
		if *jsonFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
		if !ok {
			exit(1, closeLog, store)
		}
		exit(0, closeLog, store)
	}

	if *loginFlag != "" {
		s, err := sess.Login(*loginFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			exit(1, closeLog, store)
		}
		fmt.Printf("Logged in as %s\n", s.Address)
		exit(0, closeLog, store)
	}

	if *logoutFlag {
		if err := sess.Logout(context.Background(), onToken); err != nil {
			fmt.Printf("Error: %v\n", err)
			exit(1, closeLog, store)
		}
		fmt.Println("Logged out.")
		exit(0, closeLog, store)
	}

	if len(cfg.Chains) == 0 {
		fmt.Println("Error: No Chains found in configuration.")
		fmt.Printf("Please create a config file at %s with 'chains'.\n", path)
		exit(1, closeLog, store)
	}

	chain := cfg.ActiveChain()
	client := rpc.NewClient(chain.RPCURLs, cfg.Global.RPCTimeout())
	accounts, err := smartaccount.New(cfg.SmartAccount, client)
	if err != nil {
		fmt.Printf("Error in smart_account configuration: %v\n", err)
		exit(1, closeLog, store)
	}

	w := watcher.NewWatcher(sess.StoredAddress(), chain, &watcher.RealDataSource{RPC: client, Accounts: accounts})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	go func() {
		if err := verifyChain(ctx, client, chain); err != nil {
			log.Warn().Err(err).Str("network", chain.Name).Msg("chain check failed")
		}
	}()

	srv := server.NewServer(w)
	go func() {
		if err := srv.Start(*portFlag); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	if *serverFlag {
		log.Info().Int("port", *portFlag).Str("network", chain.Name).Msg("running in server mode")
		select {} // Keep alive
	}

	tui.Start(w, sess, cfg, onToken, Version)
}

type chainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// verifyChain compares the RPC's chain ID with the configured one. A chain
// without a configured ID is not checked.
func verifyChain(ctx context.Context, c chainIDReader, chain config.ChainConfig) error {
	if chain.ChainID == 0 {
		return nil
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		return err
	}
	if id.Cmp(big.NewInt(chain.ChainID)) != 0 {
		return fmt.Errorf("chain %s: RPC reports chain ID %s, config has %d", chain.Name, id, chain.ChainID)
	}
	return nil
}

// onToken receives the session token on login and "" on logout.
func onToken(token string) {
	log.Debug().Bool("present", token != "").Msg("session token changed")
}

// setupLogging sends interactive logs to the log file so the terminal stays
// clean, everything else to stderr.
func setupLogging(interactive bool, g config.GlobalConfig) (func(), error) {
	zerolog.TimeFieldFormat = time.RFC3339
	if !interactive {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return func() {}, nil
	}

	path, err := config.ResolveLogFile(g)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() { _ = f.Close() }, nil
}

func exit(code int, closeLog func(), store *storage.Store) {
	_ = store.Close()
	closeLog()
	os.Exit(code)
}
