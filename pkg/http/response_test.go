package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func recordResponse(t *testing.T, fn func(c echo.Context) error) APIResponse {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("write response: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("transport status must stay 200, got %d", rec.Code)
	}
	var out APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return out
}

func errorPayload(t *testing.T, out APIResponse) []*AppError {
	t.Helper()
	raw, err := json.Marshal(out.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var errs []*AppError
	if err := json.Unmarshal(raw, &errs); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %d", len(errs))
	}
	return errs
}

func TestAppErrorResponseKeepsAppStatus(t *testing.T) {
	appErr := NotFoundError("account not found")
	out := recordResponse(t, func(c echo.Context) error {
		return AppErrorResponse(c, fmt.Errorf("load account: %w", appErr))
	})
	if out.Status != http.StatusNotFound {
		t.Fatalf("expected app status 404, got %d", out.Status)
	}
	errs := errorPayload(t, out)
	if errs[0].Code != "ERR_NOT_FOUND" {
		t.Fatalf("unexpected code %q", errs[0].Code)
	}
}

func TestAppErrorResponseWrapsUnknownErrors(t *testing.T) {
	out := recordResponse(t, func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("db gone"))
	})
	if out.Status != http.StatusInternalServerError {
		t.Fatalf("expected app status 500, got %d", out.Status)
	}
	errs := errorPayload(t, out)
	if errs[0].Code != "ERR_INTERNAL" {
		t.Fatalf("unexpected code %q", errs[0].Code)
	}
	// Cause detail must not leak to the client.
	if errs[0].Message != "Something went wrong" {
		t.Fatalf("unexpected message %q", errs[0].Message)
	}
}
