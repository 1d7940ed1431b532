// Package ens talks to the ENS subgraph for name lookups and to an external
// registrar service for registrations.
package ens

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

// ErrRegistrarUnavailable reports that no registrar endpoint is configured.
var ErrRegistrarUnavailable = errors.New("ens registrar not configured")

// ExpiringName is a registered name approaching its expiry date.
type ExpiringName struct {
	Name   string
	Expiry time.Time
}

// NameService is the name-service capability consumed by flows and commands.
type NameService interface {
	ResolveName(ctx context.Context, name string) (string, bool, error)
	ResolveAddress(ctx context.Context, address string) (string, bool, error)
	GetExpiry(ctx context.Context, name string) (time.Time, bool, error)
	FindExpiringSoon(ctx context.Context, nameLength int) ([]ExpiringName, error)
	Register(ctx context.Context, name, owner string) (string, error)
}

// Client implements NameService against a thegraph ENS subgraph endpoint.
type Client struct {
	subgraphURL  string
	registrarURL string
	httpClient   *http.Client
}

// NewClient creates the ENS client. registrarURL may be empty, in which case
// Register fails with ErrRegistrarUnavailable.
func NewClient(subgraphURL, registrarURL string) *Client {
	return &Client{
		subgraphURL:  subgraphURL,
		registrarURL: registrarURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type graphDomain struct {
	Name       string `json:"name"`
	ExpiryDate string `json:"expiryDate"`
	Resolved   *struct {
		ID string `json:"id"`
	} `json:"resolvedAddress"`
}

const domainByNameQuery = `
query($name: String!) {
  domains(first: 1, where: {name: $name}) {
    name
    expiryDate
    resolvedAddress { id }
  }
}`

const domainByAddressQuery = `
query($address: String!) {
  domains(first: 1, where: {resolvedAddress: $address}) {
    name
    expiryDate
    resolvedAddress { id }
  }
}`

const expiringDomainsQuery = `
query($now: BigInt!, $first: Int!) {
  domains(first: $first, orderBy: expiryDate, orderDirection: asc,
          where: {expiryDate_gt: $now}) {
    name
    expiryDate
  }
}`

// ResolveName returns the address a name points at.
func (c *Client) ResolveName(ctx context.Context, name string) (string, bool, error) {
	domain, ok, err := c.queryDomain(ctx, domainByNameQuery, map[string]any{"name": name})
	if err != nil || !ok {
		return "", false, err
	}
	if domain.Resolved == nil {
		return "", false, nil
	}
	return domain.Resolved.ID, true, nil
}

// ResolveAddress performs a reverse lookup.
func (c *Client) ResolveAddress(ctx context.Context, address string) (string, bool, error) {
	domain, ok, err := c.queryDomain(ctx, domainByAddressQuery, map[string]any{"address": address})
	if err != nil || !ok {
		return "", false, err
	}
	return domain.Name, true, nil
}

// GetExpiry returns the expiry timestamp of a registered name.
func (c *Client) GetExpiry(ctx context.Context, name string) (time.Time, bool, error) {
	domain, ok, err := c.queryDomain(ctx, domainByNameQuery, map[string]any{"name": name})
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	expiry, err := parseUnix(domain.ExpiryDate)
	if err != nil {
		return time.Time{}, false, nil
	}
	return expiry, true, nil
}

// FindExpiringSoon lists the next names to expire. nameLength 0 disables the
// length filter.
func (c *Client) FindExpiringSoon(ctx context.Context, nameLength int) ([]ExpiringName, error) {
	raw, err := c.query(ctx, expiringDomainsQuery, map[string]any{
		"now":   fmt.Sprintf("%d", time.Now().Unix()),
		"first": 10,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Domains []graphDomain `json:"domains"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal domains: %w", err)
	}

	var names []ExpiringName
	for _, d := range payload.Domains {
		if nameLength > 0 && len(d.Name) != nameLength {
			continue
		}
		expiry, err := parseUnix(d.ExpiryDate)
		if err != nil {
			continue
		}
		names = append(names, ExpiringName{Name: d.Name, Expiry: expiry})
	}
	return names, nil
}

// Register submits a registration request to the configured registrar service
// and returns the resulting transaction hash.
func (c *Client) Register(ctx context.Context, name, owner string) (string, error) {
	if c.registrarURL == "" {
		return "", ErrRegistrarUnavailable
	}

	body, err := json.Marshal(map[string]string{"name": name, "owner": owner})
	if err != nil {
		return "", fmt.Errorf("marshal registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registrarURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("registrar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registrar returned status %d", resp.StatusCode)
	}

	var payload struct {
		TxHash string `json:"txHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode registrar response: %w", err)
	}
	return payload.TxHash, nil
}

func (c *Client) queryDomain(ctx context.Context, query string, vars map[string]any) (graphDomain, bool, error) {
	raw, err := c.query(ctx, query, vars)
	if err != nil {
		return graphDomain{}, false, err
	}

	var payload struct {
		Domains []graphDomain `json:"domains"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return graphDomain{}, false, fmt.Errorf("unmarshal domains: %w", err)
	}
	if len(payload.Domains) == 0 {
		return graphDomain{}, false, nil
	}
	return payload.Domains[0], true, nil
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.subgraphURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var graphResp graphResponse
	if err := json.Unmarshal(raw, &graphResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(graphResp.Errors) > 0 {
		return nil, fmt.Errorf("subgraph error: %s", graphResp.Errors[0].Message)
	}
	return graphResp.Data, nil
}

func parseUnix(s string) (time.Time, error) {
	var sec int64
	if _, err := fmt.Sscanf(s, "%d", &sec); err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
