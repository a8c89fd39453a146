package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/efreitasn/papertrade/internal/domain"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusTeapot, map[string]string{"hello": "world"})

	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadRequest, "validation_error", "amount must be greater than 0")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "validation_error" || body.Message != "amount must be greater than 0" {
		t.Errorf("body = %+v", body)
	}
}

func TestParseJSON_RequiresContentType(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"a":1}`))

	var v map[string]any
	if err := ParseJSON(req, &v); err == nil {
		t.Error("expected error for missing Content-Type")
	}
}

func TestParseJSON_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"unexpected":true}`))
	req.Header.Set("Content-Type", "application/json")

	var v struct {
		Known string `json:"known"`
	}
	if err := ParseJSON(req, &v); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &domain.ValidationError{Message: "bad"}, http.StatusBadRequest, "validation_error"},
		{"session not found", domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"unknown symbol", domain.ErrUnknownSymbol, http.StatusNotFound, "unknown_symbol"},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusConflict, "insufficient_funds"},
		{"insufficient holdings", domain.ErrInsufficientHoldings, http.StatusConflict, "insufficient_holdings"},
		{"no price", domain.ErrNoPrice, http.StatusConflict, "no_price"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mapDomainError(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}
