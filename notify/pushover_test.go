package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPushoverSend(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		_, _ = w.Write([]byte(`{"status":1,"request":"abc"}`))
	}))
	defer srv.Close()

	p := NewPushover(srv.URL, testLogger())
	err := p.Send(context.Background(), Message{
		Token:    "app-token",
		UserKey:  "user-key",
		Title:    "KOAK Main Facility Online!",
		Body:     "OAK_TWR is now online!",
		Priority: 1,
		Sound:    "magic",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := map[string]string{
		"token":    "app-token",
		"user":     "user-key",
		"title":    "KOAK Main Facility Online!",
		"message":  "OAK_TWR is now online!",
		"priority": "1",
		"sound":    "magic",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form[%q] = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestPushoverSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":0,"errors":["user key is invalid"]}`))
	}))
	defer srv.Close()

	p := NewPushover(srv.URL, testLogger())
	err := p.Send(context.Background(), Message{Token: "t", UserKey: "u", Body: "hello"})
	if !IsDeliveryError(err) {
		t.Fatalf("Send() error = %v, want DeliveryError", err)
	}
	var delivery *DeliveryError
	if !errors.As(err, &delivery) || delivery.Reason != "user key is invalid" {
		t.Errorf("Send() error = %v, want provider-reported reason", err)
	}
}

func TestPushoverSendMissingCredentials(t *testing.T) {
	p := NewPushover("http://127.0.0.1:0", testLogger())
	if err := p.Send(context.Background(), Message{Body: "hello"}); !IsDeliveryError(err) {
		t.Fatalf("Send() without credentials = %v, want DeliveryError", err)
	}
}

func TestPushoverValidateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p := NewPushover(srv.URL, testLogger())
	if err := p.ValidateUser(context.Background(), "t", "u"); err != nil {
		t.Fatalf("ValidateUser() error = %v", err)
	}
	if err := p.ValidateUser(context.Background(), "t", ""); !IsDeliveryError(err) {
		t.Fatalf("ValidateUser() without key = %v, want DeliveryError", err)
	}
}
