// Package solana implements payment verification against the Solana ledger
// over JSON-RPC. It is a read-only oracle: nothing here mutates chain or
// service state.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// errTxNotFound distinguishes "the node answered and the transaction does
// not exist (yet)" from transport failures. Both map to an Unknown
// verification result.
var errTxNotFound = errors.New("solana: transaction not found")

// RPCClient is a minimal Solana JSON-RPC client. The HTTP client timeout
// bounds every ledger resolution so verification can never block
// indefinitely.
type RPCClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewRPCClient creates an RPCClient for the given endpoint.
func NewRPCClient(endpoint string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("solana: rpc error %d: %s", e.Code, e.Message)
}

// GetTransaction resolves a confirmed transaction by signature using the
// jsonParsed encoding. It returns errTxNotFound when the node reports a null
// result, which covers both unknown and not-yet-finalized signatures.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	raw, err := c.call(ctx, "getTransaction", params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errTxNotFound
	}

	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("solana: decode transaction: %w", err)
	}
	return &tx, nil
}

// call performs a single JSON-RPC round trip and returns the raw result.
func (c *RPCClient) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("solana: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("solana: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("solana: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("solana: %s: unexpected status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("solana: decode response: %w", err)
	}
	if rr.Error != nil {
		return nil, rr.Error
	}
	return rr.Result, nil
}
