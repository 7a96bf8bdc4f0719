// Package gate implements the Gate.io spot BrokerGateway.
package gate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the REST client for the Gate.io v4 spot API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new Gate.io REST client.
//
// baseURL is the API root, e.g. "https://api.gateio.ws". The key pair may be
// empty when only public endpoints are used.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doPublicRequest sends an unauthenticated GET and reads the response.
func (c *Client) doPublicRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// doSignedRequest builds, signs (HMAC-SHA512), sends, and reads a request
// against a private Gate.io endpoint. Gate signs
// method\npath\nquery\nsha512(body)\ntimestamp and carries the key,
// timestamp and signature in the KEY, Timestamp and SIGN headers.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, params url.Values, reqBody any) ([]byte, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("gate: api credentials not configured")
	}

	var jsonBody []byte
	if reqBody != nil {
		var err error
		jsonBody, err = json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	query := ""
	if len(params) > 0 {
		query = params.Encode()
	}

	bodyHash := sha512.Sum512(jsonBody)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	payload := fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		method, path, query, hex.EncodeToString(bodyHash[:]), ts)

	mac := hmac.New(sha512.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	fullURL := c.baseURL + path
	if query != "" {
		fullURL += "?" + query
	}

	var bodyReader io.Reader
	if jsonBody != nil {
		bodyReader = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("KEY", c.apiKey)
	req.Header.Set("Timestamp", ts)
	req.Header.Set("SIGN", signature)

	return c.do(req)
}

// do executes the request and maps non-2xx statuses to errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Label != "" {
			return nil, fmt.Errorf("gate: status %d %s: %s", resp.StatusCode, apiErr.Label, apiErr.Message)
		}
		return nil, fmt.Errorf("gate: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
