package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

func newRPCServer(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int           `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		result, ok := results[req.Method]
		if !ok {
			result = "0x0"
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBalanceAt_Integration(t *testing.T) {
	server := newRPCServer(t, map[string]interface{}{
		"eth_getBalance": "0x22B1C8C1227A0000",
	})

	client := NewClient([]string{server.URL}, 5*time.Second)
	bal, err := client.BalanceAt(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	if err != nil {
		t.Fatalf("BalanceAt returned error: %v", err)
	}
	if bal.String() != "2500000000000000000" {
		t.Errorf("Expected 2.5 ether in wei, got %s", bal.String())
	}
	if len(client.FailedRPCs()) != 0 {
		t.Errorf("Expected no failed RPCs, got %v", client.FailedRPCs())
	}
}

func TestBalanceAt_Failover(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer dead.Close()

	live := newRPCServer(t, map[string]interface{}{
		"eth_getBalance": "0x0",
	})

	client := NewClient([]string{dead.URL, live.URL}, 5*time.Second)
	bal, err := client.BalanceAt(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	if err != nil {
		t.Fatalf("BalanceAt returned error: %v", err)
	}
	if bal.Sign() != 0 {
		t.Errorf("Expected zero balance, got %s", bal.String())
	}
	failed := client.FailedRPCs()
	if len(failed) != 1 || failed[0] != dead.URL {
		t.Errorf("Expected dead RPC recorded as failed, got %v", failed)
	}
}

func TestBalanceAt_AllFail(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer dead.Close()

	client := NewClient([]string{dead.URL}, time.Second)
	if _, err := client.BalanceAt(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"); err == nil {
		t.Error("Expected error when every RPC fails")
	}
}

func TestBalanceAt_InvalidAddressAndNoRPC(t *testing.T) {
	client := NewClient(nil, time.Second)
	if _, err := client.BalanceAt(context.Background(), "nope"); err == nil {
		t.Error("Expected invalid address error")
	}
	if _, err := client.BalanceAt(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"); err == nil {
		t.Error("Expected ErrNoRPC")
	}
}

func TestCallContract_Integration(t *testing.T) {
	want := "0x000000000000000000000000000000000000000000000000000000001dcd6500"
	server := newRPCServer(t, map[string]interface{}{
		"eth_call": want,
	})

	to := common.HexToAddress("0x1234567890123456789012345678901234567890")
	client := NewClient([]string{server.URL}, 5*time.Second)
	out, err := client.CallContract(context.Background(), ethereum.CallMsg{To: &to, Data: []byte{0x70, 0xa0, 0x82, 0x31}})
	if err != nil {
		t.Fatalf("CallContract error: %v", err)
	}
	if len(out) != 32 || out[31] != 0x00 || out[28] != 0x1d {
		t.Errorf("Unexpected call result %x", out)
	}
}

func TestChainID_Integration(t *testing.T) {
	server := newRPCServer(t, map[string]interface{}{
		"eth_chainId": "0xaa36a7",
	})

	client := NewClient([]string{server.URL}, 5*time.Second)
	id, err := client.ChainID(context.Background())
	if err != nil {
		t.Fatalf("ChainID error: %v", err)
	}
	if id.Int64() != 11155111 {
		t.Errorf("Expected 11155111, got %s", id.String())
	}

	id, err = FetchChainID(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchChainID error: %v", err)
	}
	if id.Int64() != 11155111 {
		t.Errorf("Expected 11155111, got %s", id.String())
	}
}
