package models

import (
	"time"

	"walletcard/pkg/card"
)

// Snapshot is the card state as served to API clients.
type Snapshot struct {
	Network     string     `json:"network"`
	Symbol      string     `json:"symbol"`
	Connected   bool       `json:"connected"`
	Card        card.State `json:"card"`
	LastUpdated time.Time  `json:"last_updated"`
}

// BalanceSample is one point of the primary balance history.
type BalanceSample struct {
	Timestamp time.Time
	Value     float64
}

// ChainResult holds test results for a specific chain.
type ChainResult struct {
	Name            string      `json:"name"`
	Symbol          string      `json:"symbol"`
	ConfigChainID   int64       `json:"config_chain_id"`
	RPCs            []RPCResult `json:"rpcs"`
	Inconsistent    bool        `json:"inconsistent"`
	ChainIDUpdated  bool        `json:"chain_id_updated"`
	ObservedChainID int64       `json:"observed_chain_id,omitempty"`
}

// RPCResult holds test results for a specific RPC URL.
type RPCResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // "ok" or "error"
	ChainID int64  `json:"chain_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath         string        `json:"config_path"`
	ValidStructure     bool          `json:"valid_structure"`
	StructureErrors    []string      `json:"structure_errors,omitempty"`
	ChainCount         int           `json:"chain_count"`
	SmartAccountMode   string        `json:"smart_account_mode"`
	StoredAddress      string        `json:"stored_address,omitempty"`
	Chains             []ChainResult `json:"chains,omitempty"`
	InconsistentChains []string      `json:"inconsistent_chains,omitempty"`
	ConfigUpdated      bool          `json:"config_updated"`
	SaveError          string        `json:"save_error,omitempty"`
	DryRun             bool          `json:"dry_run"`
}
