package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement", Output: &buf})

	ctx := logg.WithBookingID(context.Background(), "bk-42")
	ctx = logg.WithField(ctx, "reason", "delivery_confirmed")
	logg.Info(ctx, "release.start")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["booking_id"] != "bk-42" {
		t.Fatalf("booking_id = %v, want bk-42", entry["booking_id"])
	}
	if entry["reason"] != "delivery_confirmed" {
		t.Fatalf("reason = %v", entry["reason"])
	}
	if entry["service"] != "settlement" {
		t.Fatalf("service = %v", entry["service"])
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement", Output: &buf})

	logg.Error(context.Background(), "release.failed", context.DeadlineExceeded)

	if !strings.Contains(buf.String(), "stack") {
		t.Fatal("error log should carry a stack field")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty level should default to info")
	}
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug should parse")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("unknown level should fall back to info")
	}
}
