package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	ConfigFileName = ".walletcard.json"
	StoreDirName   = ".walletcard"
	LogFileName    = ".walletcard.log"
)

// ChainConfig holds configuration for a specific EVM chain.
type ChainConfig struct {
	Name        string   `json:"name"`
	RPCURLs     []string `json:"rpc_urls"`
	Symbol      string   `json:"symbol"`
	ChainID     int64    `json:"chain_id,omitempty"`
	ExplorerURL string   `json:"explorer_url,omitempty"`
}

// SmartAccountConfig describes how the smart-contract account address is derived.
// A non-empty Address short-circuits the factory lookup.
type SmartAccountConfig struct {
	FactoryAddress string `json:"factory_address,omitempty"`
	Salt           int64  `json:"salt"`
	Address        string `json:"address,omitempty"`
}

// GlobalConfig holds application-wide settings.
type GlobalConfig struct {
	StorageDir          string `json:"storage_dir"`
	LogFile             string `json:"log_file"`
	RPCTimeoutSeconds   int    `json:"rpc_timeout_seconds"`
	RefreshMinMillis    int    `json:"refresh_min_millis"`
	CopyResetMillis     int    `json:"copy_reset_millis"`
	BalanceDisplayChars int    `json:"balance_display_chars"`
}

// Config is the whole file.
type Config struct {
	Chains         []ChainConfig
	ActiveChainIdx int
	SmartAccount   SmartAccountConfig
	Global         GlobalConfig
}

// ActiveChain returns the selected chain, or a zero value when none is configured.
func (c Config) ActiveChain() ChainConfig {
	if c.ActiveChainIdx < 0 || c.ActiveChainIdx >= len(c.Chains) {
		return ChainConfig{}
	}
	return c.Chains[c.ActiveChainIdx]
}

// NetworkName is the display name of the active chain.
func (c Config) NetworkName() string {
	name := c.ActiveChain().Name
	if name == "" {
		return "Unknown Network"
	}
	return name
}

// NetworkToken is the native token symbol of the active chain.
func (c Config) NetworkToken() string {
	sym := c.ActiveChain().Symbol
	if sym == "" {
		return "ETH"
	}
	return sym
}

func (g GlobalConfig) RPCTimeout() time.Duration {
	return time.Duration(g.RPCTimeoutSeconds) * time.Second
}

func (g GlobalConfig) RefreshMinDuration() time.Duration {
	return time.Duration(g.RefreshMinMillis) * time.Millisecond
}

func (g GlobalConfig) CopyResetDuration() time.Duration {
	return time.Duration(g.CopyResetMillis) * time.Millisecond
}

func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		RPCTimeoutSeconds:   30,
		RefreshMinMillis:    500,
		CopyResetMillis:     1000,
		BalanceDisplayChars: 7,
	}
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ResolveStorageDir returns the configured badger directory or ~/.walletcard/store.
func ResolveStorageDir(g GlobalConfig) (string, error) {
	if g.StorageDir != "" {
		return g.StorageDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, StoreDirName, "store"), nil
}

func ResolveLogFile(g GlobalConfig) (string, error) {
	if g.LogFile != "" {
		return g.LogFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, LogFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Config{Global: DefaultGlobalConfig()}, nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

func LoadConfig(r io.Reader) (Config, error) {
	var raw struct {
		Chains              []ChainConfig      `json:"chains"`
		RPCURLs             []string           `json:"rpc_urls"` // Legacy
		SelectedChain       string             `json:"selected_chain"`
		SmartAccount        SmartAccountConfig `json:"smart_account"`
		StorageDir          string             `json:"storage_dir"`
		LogFile             string             `json:"log_file"`
		RPCTimeoutSeconds   *int               `json:"rpc_timeout_seconds"`
		RefreshMinMillis    *int               `json:"refresh_min_millis"`
		CopyResetMillis     *int               `json:"copy_reset_millis"`
		BalanceDisplayChars *int               `json:"balance_display_chars"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, err
	}

	// Single-RPC files predate the chains list.
	if len(raw.Chains) == 0 && len(raw.RPCURLs) > 0 {
		raw.Chains = []ChainConfig{{
			Name:        "Ethereum",
			RPCURLs:     raw.RPCURLs,
			Symbol:      "ETH",
			ExplorerURL: "https://etherscan.io",
		}}
		raw.SelectedChain = "Ethereum"
	}

	selectedIdx := 0
	for i, c := range raw.Chains {
		if c.Name == raw.SelectedChain {
			selectedIdx = i
			break
		}
	}

	globalCfg := DefaultGlobalConfig()
	globalCfg.StorageDir = raw.StorageDir
	globalCfg.LogFile = raw.LogFile
	if raw.RPCTimeoutSeconds != nil {
		globalCfg.RPCTimeoutSeconds = *raw.RPCTimeoutSeconds
	}
	if raw.RefreshMinMillis != nil {
		globalCfg.RefreshMinMillis = *raw.RefreshMinMillis
	}
	if raw.CopyResetMillis != nil {
		globalCfg.CopyResetMillis = *raw.CopyResetMillis
	}
	if raw.BalanceDisplayChars != nil && *raw.BalanceDisplayChars > 0 {
		globalCfg.BalanceDisplayChars = *raw.BalanceDisplayChars
	}

	return Config{
		Chains:         raw.Chains,
		ActiveChainIdx: selectedIdx,
		SmartAccount:   raw.SmartAccount,
		Global:         globalCfg,
	}, nil
}

// Validate reports the first structural problem in cfg.
func Validate(cfg Config) error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("validation failed: configuration must have at least one chain")
	}
	for i, c := range cfg.Chains {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("validation failed: chain at index %d has no name", i)
		}
		if len(c.RPCURLs) == 0 {
			return fmt.Errorf("validation failed: chain %s has no RPC URLs", c.Name)
		}
	}
	return nil
}

func SaveConfig(cfg Config, path string) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	out := struct {
		Chains              []ChainConfig      `json:"chains"`
		SelectedChain       string             `json:"selected_chain"`
		SmartAccount        SmartAccountConfig `json:"smart_account"`
		StorageDir          string             `json:"storage_dir,omitempty"`
		LogFile             string             `json:"log_file,omitempty"`
		RPCTimeoutSeconds   int                `json:"rpc_timeout_seconds"`
		RefreshMinMillis    int                `json:"refresh_min_millis"`
		CopyResetMillis     int                `json:"copy_reset_millis"`
		BalanceDisplayChars int                `json:"balance_display_chars"`
	}{
		Chains:              cfg.Chains,
		SelectedChain:       cfg.ActiveChain().Name,
		SmartAccount:        cfg.SmartAccount,
		StorageDir:          cfg.Global.StorageDir,
		LogFile:             cfg.Global.LogFile,
		RPCTimeoutSeconds:   cfg.Global.RPCTimeoutSeconds,
		RefreshMinMillis:    cfg.Global.RefreshMinMillis,
		CopyResetMillis:     cfg.Global.CopyResetMillis,
		BalanceDisplayChars: cfg.Global.BalanceDisplayChars,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) (string, error) {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return "", err
	}
	return lastBackup, os.WriteFile(configPath, data, 0644)
}
