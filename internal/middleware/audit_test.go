package middleware

import (
	"encoding/json"
	"testing"
)

func TestRedactAuditBodyPayments(t *testing.T) {
	body := []byte(`{"owner":"alice","amount":100,"signature":"deadbeef","signer_key":"cafef00d","nested":{"api_key":"k"}}`)
	out := redactAuditBody("/v1/payments/authorize", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if data["signature"] == "deadbeef" {
		t.Fatalf("signature not redacted")
	}
	if data["signer_key"] == "cafef00d" {
		t.Fatalf("signer_key not redacted")
	}
	if nested, ok := data["nested"].(map[string]interface{}); ok {
		if nested["api_key"] == "k" {
			t.Fatalf("nested api_key not redacted")
		}
	}
	if data["owner"] != "alice" {
		t.Fatalf("non-sensitive field mangled")
	}
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"ok":true}`)
	out := redactAuditBody("/health", body)
	if out != string(body) {
		t.Fatalf("unexpected redaction on non-sensitive path")
	}
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	body := []byte("not-json")
	out := redactAuditBody("/v1/payments/authorize", body)
	if out != "[redacted]" {
		t.Fatalf("expected redacted placeholder for invalid json")
	}
}
