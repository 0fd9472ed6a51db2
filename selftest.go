package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"walletcard/pkg/config"
	"walletcard/pkg/models"
	"walletcard/pkg/rpc"
)

type testOptions struct {
	JSON   bool
	DryRun bool
}

func smartAccountMode(sa config.SmartAccountConfig) string {
	switch {
	case sa.Address != "":
		return "static"
	case sa.FactoryAddress != "":
		return "factory"
	default:
		return "none"
	}
}

// runConfigTest dials every RPC of every chain, checks chain IDs and fills
// the missing ones. The config is saved unless DryRun is set. Human-readable
// progress goes to out unless JSON is set.
func runConfigTest(ctx context.Context, cfg *config.Config, path, storedAddr string, opts testOptions, out io.Writer) (models.TestReport, bool) {
	printf := func(format string, a ...interface{}) {
		if !opts.JSON {
			_, _ = fmt.Fprintf(out, format, a...)
		}
	}

	report := models.TestReport{
		ConfigPath:       path,
		ValidStructure:   true,
		DryRun:           opts.DryRun,
		ChainCount:       len(cfg.Chains),
		SmartAccountMode: smartAccountMode(cfg.SmartAccount),
		StoredAddress:    storedAddr,
	}

	printf("Testing configuration at: %s\n", path)

	if len(cfg.Chains) == 0 {
		report.ValidStructure = false
		report.StructureErrors = append(report.StructureErrors, "No Chains found in configuration.")
		printf("No Chains found in configuration.\n")
		return report, false
	}

	for i, chain := range cfg.Chains {
		if strings.TrimSpace(chain.Name) == "" {
			msg := fmt.Sprintf("Chain at index %d has no name.", i)
			report.StructureErrors = append(report.StructureErrors, msg)
			report.ValidStructure = false
			printf("Error: %s\n", msg)
		}
		if len(chain.RPCURLs) == 0 {
			msg := fmt.Sprintf("Chain '%s' has no RPC URLs.", chain.Name)
			report.StructureErrors = append(report.StructureErrors, msg)
			report.ValidStructure = false
			printf("Error: %s\n", msg)
		}
	}
	if !report.ValidStructure {
		return report, false
	}

	printf("Found %d Chains. Smart account: %s.\n", len(cfg.Chains), report.SmartAccountMode)
	if storedAddr != "" {
		printf("Stored session address: %s\n", storedAddr)
	}

	for i := range cfg.Chains {
		chain := &cfg.Chains[i]
		cResult := models.ChainResult{
			Name:          chain.Name,
			Symbol:        chain.Symbol,
			ConfigChainID: chain.ChainID,
		}
		printf("Testing Chain: %s (%s)\n", chain.Name, chain.Symbol)

		var observed *big.Int
		for _, url := range chain.RPCURLs {
			rResult := models.RPCResult{URL: url}
			printf("  RPC: %s ... ", url)

			id, err := rpc.FetchChainID(ctx, url)
			if err != nil {
				rResult.Status = "error"
				rResult.Error = err.Error()
				printf("Failed: %v\n", err)
				cResult.RPCs = append(cResult.RPCs, rResult)
				continue
			}

			rResult.Status = "ok"
			rResult.ChainID = id.Int64()
			printf("OK (ChainID: %s)", id.String())

			if observed == nil {
				observed = id
				cResult.ObservedChainID = id.Int64()
			} else if observed.Cmp(id) != 0 {
				printf(" - WARNING: ChainID mismatch with previous RPC (%s)", observed.String())
				cResult.Inconsistent = true
			}

			switch {
			case chain.ChainID == 0:
				chain.ChainID = id.Int64()
				report.ConfigUpdated = true
				cResult.ChainIDUpdated = true
				printf(" - UPDATED CONFIG")
				if opts.DryRun {
					printf(" (DRY RUN)")
				}
			case id.Cmp(big.NewInt(chain.ChainID)) != 0:
				rResult.Error = fmt.Sprintf("Mismatch! Expected %d", chain.ChainID)
				printf(" - MISMATCH! Expected %d", chain.ChainID)
			default:
				printf(" - Verified")
			}
			printf("\n")
			cResult.RPCs = append(cResult.RPCs, rResult)
		}

		if cResult.Inconsistent {
			report.InconsistentChains = append(report.InconsistentChains, chain.Name)
		}
		report.Chains = append(report.Chains, cResult)
	}

	if len(report.InconsistentChains) > 0 {
		printf("\nWARNING: Inconsistent RPCs detected!\n")
		printf("The following chains have RPCs returning conflicting Chain IDs:\n")
		for _, name := range report.InconsistentChains {
			printf(" - %s\n", name)
		}
	}

	if report.ConfigUpdated {
		printf("\nUpdating configuration with fetched Chain IDs...\n")
		if opts.DryRun {
			printf("Dry run enabled: Configuration NOT saved.\n")
		} else if err := config.SaveConfig(*cfg, path); err != nil {
			report.SaveError = err.Error()
			printf("Failed to save config: %v\n", err)
		} else {
			printf("Configuration saved successfully.\n")
		}
	}

	return report, true
}
