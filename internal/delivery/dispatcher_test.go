package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

func newTestDispatcher(t *testing.T, timeout time.Duration) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(timeout, logger.New(logger.Options{ServiceName: "delivery-test"}))
	if err != nil {
		t.Fatalf("NewDispatcher error: %v", err)
	}
	return d
}

func TestDispatchSynchronousDelivery(t *testing.T) {
	orderID := uuid.New()

	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "result": "42 sources found"})
	}))
	defer server.Close()

	d := newTestDispatcher(t, 5*time.Second)
	outcome := d.Dispatch(t.Context(), server.URL, Request{OrderID: orderID, BuyerQuery: "find sources"})

	if outcome.Kind != OutcomeCompleted {
		t.Fatalf("kind = %s, want completed", outcome.Kind)
	}
	if outcome.Result != "42 sources found" {
		t.Fatalf("result = %q", outcome.Result)
	}
	if got.OrderID != orderID || got.BuyerQuery != "find sources" {
		t.Fatalf("seller received %+v", got)
	}
}

func TestDispatchAsynchronousAcceptance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer server.Close()

	d := newTestDispatcher(t, 5*time.Second)
	outcome := d.Dispatch(t.Context(), server.URL, Request{OrderID: uuid.New()})

	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("kind = %s, want accepted", outcome.Kind)
	}
	if outcome.Result != "" {
		t.Fatalf("accepted outcome should carry no result, got %q", outcome.Result)
	}
}

func TestDispatchUnresponsiveModes(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"timeout", func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
		},
		{
			"server error", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			"malformed body", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			"unknown status", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"status": "maybe"})
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			d := newTestDispatcher(t, 100*time.Millisecond)
			outcome := d.Dispatch(t.Context(), server.URL, Request{OrderID: uuid.New()})
			if outcome.Kind != OutcomeUnresponsive {
				t.Fatalf("kind = %s, want unresponsive", outcome.Kind)
			}
		})
	}
}

func TestDispatchUnreachableEndpoint(t *testing.T) {
	d := newTestDispatcher(t, 100*time.Millisecond)
	outcome := d.Dispatch(t.Context(), "http://127.0.0.1:1/deliver", Request{OrderID: uuid.New()})
	if outcome.Kind != OutcomeUnresponsive {
		t.Fatalf("kind = %s, want unresponsive", outcome.Kind)
	}
}
