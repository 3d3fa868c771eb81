package queue

import (
	"encoding/json"
	"testing"
)

type testPayload struct {
	Symbol string `json:"symbol"`
	Force  bool   `json:"force"`
}

func TestParsePayloadConcreteValue(t *testing.T) {
	p, err := ParsePayload[testPayload](testPayload{Symbol: "NVDA", Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Symbol != "NVDA" || !p.Force {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePayloadFromMap(t *testing.T) {
	p, err := ParsePayload[testPayload](map[string]interface{}{"symbol": "AMD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Symbol != "AMD" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePayloadFromRawJSON(t *testing.T) {
	p, err := ParsePayload[testPayload](json.RawMessage(`{"symbol":"TSLA","force":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Symbol != "TSLA" || !p.Force {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePayloadRejectsUnknownType(t *testing.T) {
	if _, err := ParsePayload[testPayload](42); err == nil {
		t.Fatal("expected error for unsupported payload type")
	}
}
