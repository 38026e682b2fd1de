// internal/infra/solana/rpc_client.go
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Solana Devnet RPC endpoint (default)
const DevnetEndpoint = "https://api.devnet.solana.com"

// JSONRPCClient is a simple HTTP JSON-RPC client for Solana.
// The blocto SDK covers transaction assembly and signing; this client covers
// the methods the SDK does not expose, in particular the DAS API
// (getAsset / getAssetProof) that compressed assets require.
type JSONRPCClient struct {
	Endpoint string
	HTTP     *http.Client
}

// NewJSONRPCClient creates a Solana JSON-RPC client.
// Endpoint resolution order:
// 1) explicit endpoint argument (if non-empty)
// 2) SOLANA_RPC_ENDPOINT env (if set)
// 3) DevnetEndpoint (default)
func NewJSONRPCClient(endpoint string) *JSONRPCClient {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = os.Getenv("SOLANA_RPC_ENDPOINT")
	}
	if ep == "" {
		ep = DevnetEndpoint
	}
	return &JSONRPCClient{
		Endpoint: ep,
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (c *JSONRPCClient) call(ctx context.Context, method string, params any, out any) error {
	if c == nil || c.Endpoint == "" || c.HTTP == nil {
		return fmt.Errorf("solana rpc: client not configured")
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana rpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("solana rpc: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("solana rpc: http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("solana rpc: http status=%d", resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("solana rpc: decode response: %w", err)
	}
	if rr.Error != nil {
		return fmt.Errorf("solana rpc: error code=%d message=%s", rr.Error.Code, rr.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return fmt.Errorf("solana rpc: unmarshal result: %w", err)
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// sendTransaction / getSignatureStatuses
// ----------------------------------------------------------------------

// SendTransaction submits a fully-signed, base64-encoded transaction and
// returns its signature.
func (c *JSONRPCClient) SendTransaction(ctx context.Context, signedTxB64 string) (string, error) {
	tx := strings.TrimSpace(signedTxB64)
	if tx == "" {
		return "", fmt.Errorf("solana rpc: signed transaction is empty")
	}

	var sig string
	err := c.call(ctx, "sendTransaction", []any{
		tx,
		map[string]any{"encoding": "base64"},
	}, &sig)
	if err != nil {
		return "", err
	}
	return sig, nil
}

// SignatureStatus is one element of the getSignatureStatuses result.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	ConfirmationStatus string          `json:"confirmationStatus"` // processed | confirmed | finalized
	Err                json.RawMessage `json:"err"`                // non-null = on-chain execution error
}

type getSignatureStatusesResult struct {
	Value []*SignatureStatus `json:"value"`
}

// GetSignatureStatus returns the status for one signature, or nil when the
// cluster does not know the signature yet.
func (c *JSONRPCClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var out getSignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

// ----------------------------------------------------------------------
// getLatestBlockhash
// ----------------------------------------------------------------------

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

func (c *JSONRPCClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	var out latestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", []any{
		map[string]any{"commitment": "finalized"},
	}, &out); err != nil {
		return "", err
	}
	if out.Value.Blockhash == "" {
		return "", fmt.Errorf("solana rpc: empty blockhash")
	}
	return out.Value.Blockhash, nil
}

// ----------------------------------------------------------------------
// getTransaction
// ----------------------------------------------------------------------

// TransactionResult is the decoded `result` for getTransaction (json encoding).
// Only the fields the leaf parser needs are modeled.
type TransactionResult struct {
	Slot uint64 `json:"slot"`
	Meta struct {
		Err               json.RawMessage `json:"err"`
		LogMessages       []string        `json:"logMessages"`
		InnerInstructions []struct {
			Index        int `json:"index"`
			Instructions []struct {
				ProgramIDIndex int    `json:"programIdIndex"`
				Data           string `json:"data"` // base58
			} `json:"instructions"`
		} `json:"innerInstructions"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// GetTransaction fetches a confirmed transaction. Returns (nil, nil) while the
// cluster has not indexed the signature yet — callers retry with backoff.
func (c *JSONRPCClient) GetTransaction(ctx context.Context, signature string) (*TransactionResult, error) {
	var raw json.RawMessage
	err := c.call(ctx, "getTransaction", []any{
		signature,
		map[string]any{"encoding": "json", "maxSupportedTransactionVersion": 0, "commitment": "confirmed"},
	}, &raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var out TransactionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("solana rpc: unmarshal transaction: %w", err)
	}
	return &out, nil
}

// ----------------------------------------------------------------------
// DAS: getAsset / getAssetProof
// ----------------------------------------------------------------------

// AssetResult is the decoded DAS getAsset result (subset).
type AssetResult struct {
	ID        string `json:"id"`
	Ownership struct {
		Owner    string `json:"owner"`
		Delegate string `json:"delegate"`
		Frozen   bool   `json:"frozen"`
	} `json:"ownership"`
	Compression struct {
		Compressed  bool   `json:"compressed"`
		Tree        string `json:"tree"`
		LeafID      uint64 `json:"leaf_id"`
		DataHash    string `json:"data_hash"`    // base58
		CreatorHash string `json:"creator_hash"` // base58
		Seq         uint64 `json:"seq"`
	} `json:"compression"`
	Burnt bool `json:"burnt"`
}

// GetAsset fetches a compressed asset record from the DAS index. Returns
// (nil, nil) when the index does not know the asset yet.
func (c *JSONRPCClient) GetAsset(ctx context.Context, assetID string) (*AssetResult, error) {
	var raw json.RawMessage
	err := c.call(ctx, "getAsset", map[string]any{"id": assetID}, &raw)
	if err != nil {
		// DAS providers answer "asset not found" as an RPC error; the index
		// may simply be behind a very recent mint.
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "Not Found") {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var out AssetResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("solana rpc: unmarshal asset: %w", err)
	}
	return &out, nil
}

// AssetProofResult is the decoded DAS getAssetProof result.
type AssetProofResult struct {
	Root      string   `json:"root"` // base58
	Proof     []string `json:"proof"`
	NodeIndex uint64   `json:"node_index"`
	Leaf      string   `json:"leaf"` // base58
	TreeID    string   `json:"tree_id"`
}

// GetAssetProof fetches the inclusion proof for a compressed asset. Returns
// (nil, nil) while the index has not caught up.
func (c *JSONRPCClient) GetAssetProof(ctx context.Context, assetID string) (*AssetProofResult, error) {
	var raw json.RawMessage
	err := c.call(ctx, "getAssetProof", map[string]any{"id": assetID}, &raw)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "Not Found") {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var out AssetProofResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("solana rpc: unmarshal asset proof: %w", err)
	}
	if out.Root == "" || len(out.Proof) == 0 {
		return nil, nil
	}
	return &out, nil
}
