package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pactum-labs/pactum-gateway/internal/auth"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
)

type stubAuthService struct {
	challenge *auth.ChallengeResult
	token     *auth.TokenResult
	err       error
}

func (s stubAuthService) Challenge(_ context.Context, wallet string) (*auth.ChallengeResult, error) {
	return s.challenge, s.err
}

func (s stubAuthService) Verify(_ context.Context, _ auth.VerifyInput) (*auth.TokenResult, error) {
	return s.token, s.err
}

func TestAuthChallengeSuccess(t *testing.T) {
	wallet := "0x1111111111111111111111111111111111111111"
	svc := stubAuthService{challenge: &auth.ChallengeResult{
		Wallet:    wallet,
		Challenge: "nonce-1",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}}
	handler := AuthChallenge(svc, nil)

	body := []byte(`{"wallet":"` + wallet + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/market/auth/challenge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			Challenge string `json:"challenge"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Challenge != "nonce-1" {
		t.Fatalf("expected nonce in payload, got %+v", envelope.Data)
	}
}

func TestAuthChallengeRequiresWallet(t *testing.T) {
	handler := AuthChallenge(stubAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/market/auth/challenge", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthVerifyPropagatesRejection(t *testing.T) {
	svc := stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired challenge")}
	handler := AuthVerify(svc, nil)

	body := []byte(`{"wallet":"0x1111111111111111111111111111111111111111","challenge":"nonce","signature":"0xsig"}`)
	req := httptest.NewRequest(http.MethodPost, "/market/auth/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED got %s", envelope.Error.Code)
	}
}

func TestAuthVerifyRequiresAllFields(t *testing.T) {
	handler := AuthVerify(stubAuthService{}, nil)

	body := []byte(`{"wallet":"0x1111111111111111111111111111111111111111","challenge":"nonce"}`)
	req := httptest.NewRequest(http.MethodPost, "/market/auth/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
