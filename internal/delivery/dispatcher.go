package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

const maxResponseBytes = 1 << 20

// OutcomeKind tags the three possible results of a dispatch attempt.
type OutcomeKind string

const (
	// OutcomeCompleted means the seller delivered synchronously and the
	// outcome carries the result payload.
	OutcomeCompleted OutcomeKind = "completed"

	// OutcomeAccepted means the seller committed to deliver later via the
	// explicit deliver operation.
	OutcomeAccepted OutcomeKind = "accepted"

	// OutcomeUnresponsive covers timeouts, transport errors, and any
	// response shape the protocol does not recognize.
	OutcomeUnresponsive OutcomeKind = "unresponsive"
)

// Outcome is the tagged result of one dispatch. Result is set only for
// OutcomeCompleted.
type Outcome struct {
	Kind   OutcomeKind
	Result string
}

// Request is the payload POSTed to a seller's delivery endpoint.
type Request struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerQuery string    `json:"buyer_query"`
}

type sellerResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// Dispatcher POSTs new orders to seller delivery endpoints. This is the
// gateway's one blocking external call, so every attempt runs under a hard
// timeout; a misbehaving seller costs at most that long.
type Dispatcher struct {
	http    *http.Client
	timeout time.Duration
	logg    *logger.Logger
}

// NewDispatcher builds a dispatcher with the given per-attempt timeout.
func NewDispatcher(timeout time.Duration, logg *logger.Logger) (*Dispatcher, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("delivery dispatcher requires a positive timeout")
	}
	if logg == nil {
		return nil, fmt.Errorf("delivery dispatcher requires a logger")
	}
	return &Dispatcher{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		logg:    logg,
	}, nil
}

// Dispatch sends the order to the seller endpoint and classifies the
// response. It never returns an error: every failure mode collapses into
// OutcomeUnresponsive, because the buyer's funds are already escrowed and
// an unreachable seller must degrade the order, not fail it.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint string, req Request) Outcome {
	ctx = d.logg.WithOrderID(ctx, req.OrderID.String())
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		d.logg.Error(ctx, "delivery request marshal failed", err)
		return Outcome{Kind: OutcomeUnresponsive}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		d.logg.Error(ctx, "delivery request build failed", err)
		return Outcome{Kind: OutcomeUnresponsive}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(httpReq)
	if err != nil {
		d.logg.Warn(ctx, "seller endpoint unreachable")
		return Outcome{Kind: OutcomeUnresponsive}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logg.Warn(ctx, "seller endpoint returned non-2xx")
		return Outcome{Kind: OutcomeUnresponsive}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		d.logg.Warn(ctx, "seller response read failed")
		return Outcome{Kind: OutcomeUnresponsive}
	}

	var parsed sellerResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		d.logg.Warn(ctx, "seller response not valid JSON")
		return Outcome{Kind: OutcomeUnresponsive}
	}

	switch parsed.Status {
	case "ok":
		return Outcome{Kind: OutcomeCompleted, Result: parsed.Result}
	case "accepted":
		return Outcome{Kind: OutcomeAccepted}
	default:
		d.logg.Warn(ctx, "seller response status unrecognized")
		return Outcome{Kind: OutcomeUnresponsive}
	}
}
