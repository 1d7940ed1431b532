package ens_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chainvalet/chainvalet/internal/service/ens"
)

func subgraphServer(t *testing.T, domains string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode graph request: %v", err)
		}
		fmt.Fprintf(w, `{"data": {"domains": %s}}`, domains)
	}))
}

func TestResolveName(t *testing.T) {
	srv := subgraphServer(t, `[{"name": "alice.eth", "expiryDate": "1893456000",
		"resolvedAddress": {"id": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}}]`)
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	addr, ok, err := c.ResolveName(context.Background(), "alice.eth")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ok || addr != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("got %q ok=%v", addr, ok)
	}
}

func TestResolveNameUnregistered(t *testing.T) {
	srv := subgraphServer(t, `[]`)
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	_, ok, err := c.ResolveName(context.Background(), "unclaimed.eth")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok {
		t.Fatal("unregistered name resolved")
	}
}

func TestResolveNameWithoutAddressRecord(t *testing.T) {
	srv := subgraphServer(t, `[{"name": "norecord.eth", "expiryDate": "1893456000"}]`)
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	_, ok, err := c.ResolveName(context.Background(), "norecord.eth")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok {
		t.Fatal("name without an address record resolved")
	}
}

func TestResolveAddress(t *testing.T) {
	srv := subgraphServer(t, `[{"name": "bob.eth", "expiryDate": "1893456000"}]`)
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	name, ok, err := c.ResolveAddress(context.Background(), "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if !ok || name != "bob.eth" {
		t.Fatalf("got %q ok=%v", name, ok)
	}
}

func TestGetExpiry(t *testing.T) {
	srv := subgraphServer(t, `[{"name": "alice.eth", "expiryDate": "1893456000"}]`)
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	expiry, ok, err := c.GetExpiry(context.Background(), "alice.eth")
	if err != nil || !ok {
		t.Fatalf("expiry: ok=%v err=%v", ok, err)
	}
	if expiry != time.Unix(1893456000, 0).UTC() {
		t.Fatalf("got %v", expiry)
	}
}

func TestFindExpiringSoonFiltersByLength(t *testing.T) {
	srv := subgraphServer(t, `[
		{"name": "abcde.eth", "expiryDate": "1893456000"},
		{"name": "toolongname.eth", "expiryDate": "1893456001"}
	]`)
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	names, err := c.FindExpiringSoon(context.Background(), 9)
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if len(names) != 1 || names[0].Name != "abcde.eth" {
		t.Fatalf("got %+v, want only abcde.eth", names)
	}

	all, err := c.FindExpiringSoon(context.Background(), 0)
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d names, want 2 without a length filter", len(all))
	}
}

func TestSubgraphErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "rate limited"}]}`))
	}))
	defer srv.Close()

	c := ens.NewClient(srv.URL, "")
	if _, _, err := c.ResolveName(context.Background(), "alice.eth"); err == nil {
		t.Fatal("expected the subgraph error to surface")
	}
}

func TestRegisterWithoutRegistrar(t *testing.T) {
	c := ens.NewClient("http://127.0.0.1:0", "")
	_, err := c.Register(context.Background(), "alice.eth", "0xaa")
	if !errors.Is(err, ens.ErrRegistrarUnavailable) {
		t.Fatalf("got %v, want ErrRegistrarUnavailable", err)
	}
}

func TestRegister(t *testing.T) {
	var gotBody map[string]string
	registrar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"txHash": "0xregtx"}`))
	}))
	defer registrar.Close()

	c := ens.NewClient("http://127.0.0.1:0", registrar.URL)
	hash, err := c.Register(context.Background(), "alice.eth", "0xowner")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if hash != "0xregtx" {
		t.Fatalf("got %q", hash)
	}
	if gotBody["name"] != "alice.eth" || gotBody["owner"] != "0xowner" {
		t.Fatalf("registrar received %+v", gotBody)
	}
}
