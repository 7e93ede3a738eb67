package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/engine"
)

type stubFetcher struct {
	boolVal   bool
	stringVal string
	err       error
	lastUser  string
	lastFlag  string
}

func (s *stubFetcher) BoolFlag(_ context.Context, flagKey, userID string) (bool, error) {
	s.lastFlag, s.lastUser = flagKey, userID
	return s.boolVal, s.err
}

func (s *stubFetcher) StringFlag(_ context.Context, flagKey, userID string) (string, error) {
	s.lastFlag, s.lastUser = flagKey, userID
	return s.stringVal, s.err
}

func TestSegmentOnlineAdapter_InitRequiresEnvKey(t *testing.T) {
	a := NewSegmentOnlineAdapter(SegmentOnlineOptions{Timeout: time.Second}, zerolog.Nop())
	if err := a.Init(context.Background()); err == nil {
		t.Fatal("Init with empty env key succeeded, want error")
	}
	if _, err := a.BoolValue(context.Background(), "f", false, "u"); !errors.Is(err, ErrAdapterNotInitialized) {
		t.Fatalf("BoolValue err = %v, want ErrAdapterNotInitialized", err)
	}
}

func TestSegmentOnlineAdapter_HappyPath(t *testing.T) {
	stub := &stubFetcher{boolVal: true, stringVal: "red"}
	a := &SegmentOnlineAdapter{log: zerolog.Nop(), fetcher: stub}

	b, err := a.BoolValue(context.Background(), "new-badge", false, "u-1")
	if err != nil || b != true {
		t.Fatalf("BoolValue = %v, %v; want true", b, err)
	}
	if stub.lastFlag != "new-badge" || stub.lastUser != "u-1" {
		t.Fatalf("fetcher saw flag=%q user=%q", stub.lastFlag, stub.lastUser)
	}

	s, err := a.StringValue(context.Background(), "cta-color", "blue", "u-1")
	if err != nil || s != "red" {
		t.Fatalf("StringValue = %q, %v; want red", s, err)
	}
}

func TestSegmentOnlineAdapter_DegradesToDefaultOnTransportFailure(t *testing.T) {
	stub := &stubFetcher{err: errors.New("connection refused")}
	a := &SegmentOnlineAdapter{log: zerolog.Nop(), fetcher: stub}

	b, err := a.BoolValue(context.Background(), "new-badge", true, "u-1")
	if err != nil {
		t.Fatalf("BoolValue propagated error: %v", err)
	}
	if b != true {
		t.Fatalf("BoolValue = %v, want caller default true", b)
	}

	s, err := a.StringValue(context.Background(), "cta-color", "blue", "u-1")
	if err != nil {
		t.Fatalf("StringValue propagated error: %v", err)
	}
	if s != "blue" {
		t.Fatalf("StringValue = %q, want caller default blue", s)
	}
}

func TestSegmentOnlineAdapter_EmptyStringServesDefault(t *testing.T) {
	stub := &stubFetcher{stringVal: ""}
	a := &SegmentOnlineAdapter{log: zerolog.Nop(), fetcher: stub}

	s, err := a.StringValue(context.Background(), "cta-color", "blue", "u-1")
	if err != nil || s != "blue" {
		t.Fatalf("StringValue = %q, %v; want blue", s, err)
	}
}

func TestSegmentOnlineAdapter_AnonymousIdentity(t *testing.T) {
	stub := &stubFetcher{boolVal: true}
	a := &SegmentOnlineAdapter{log: zerolog.Nop(), fetcher: stub}

	if _, err := a.BoolValue(context.Background(), "new-badge", false, ""); err != nil {
		t.Fatalf("BoolValue: %v", err)
	}
	if stub.lastUser != engine.AnonymousUserID {
		t.Fatalf("identity = %q, want %q", stub.lastUser, engine.AnonymousUserID)
	}
}
