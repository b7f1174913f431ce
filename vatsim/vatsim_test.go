package vatsim

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFetch(t *testing.T) {
	const body = `{
		"controllers": [
			{
				"callsign": "OAK_TWR",
				"cid": 1234567,
				"name": "Jamie Example",
				"frequency": "120.700",
				"rating": 3,
				"logon_time": "2025-06-01T12:00:00.1234567Z",
				"server": "USA-WEST"
			},
			{
				"callsign": "NCT_APP",
				"cid": "7654321",
				"name": "1000001",
				"frequency": 199.998,
				"rating": 5,
				"server": "USA-WEST"
			}
		]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client := New(srv.URL, testLogger())
	controllers, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(controllers) != 2 {
		t.Fatalf("Fetch() returned %d controllers, want 2", len(controllers))
	}

	first := controllers[0]
	if first.Callsign != "OAK_TWR" || first.CID != "1234567" || first.Frequency != "120.700" {
		t.Errorf("first controller = %+v", first)
	}
	if first.LogonTime.IsZero() {
		t.Error("first controller logon time should be parsed")
	}
	if !first.Active() {
		t.Error("first controller should be active")
	}

	second := controllers[1]
	if second.Frequency != watcher.InactiveFrequency {
		t.Errorf("numeric frequency normalized to %q, want %q", second.Frequency, watcher.InactiveFrequency)
	}
	if second.Active() {
		t.Error("sentinel-frequency controller should be inactive")
	}
	if second.CID != "7654321" {
		t.Errorf("quoted cid = %q, want 7654321", second.CID)
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, testLogger())
	_, err := client.Fetch(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("Fetch() error = %v, want UnavailableError", err)
	}
	if IsMalformed(err) {
		t.Error("non-2xx should not classify as malformed")
	}
}

func TestFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"controllers": [{`))
	}))
	defer srv.Close()

	client := New(srv.URL, testLogger())
	_, err := client.Fetch(context.Background())
	if !IsMalformed(err) {
		t.Fatalf("Fetch() error = %v, want MalformedError", err)
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := New(srv.URL, testLogger())
	_, err := client.Fetch(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("Fetch() error = %v, want UnavailableError", err)
	}
}
