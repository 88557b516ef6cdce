package allegrosync

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/fakturo/invoices_backend/utils"
)

// newOAuthFixture swaps in a real cipher so authenticity of the state
// parameter is exercised, not just its shape.
func newOAuthFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	cipher, err := utils.NewTokenCipher(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	f.service.cipher = cipher
	return f
}

func TestOAuthStateRoundTrip(t *testing.T) {
	f := newOAuthFixture(t)
	state, err := f.service.encodeOAuthState("biz-1", 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f.now = f.now.Add(time.Minute)
	businessId, userId, err := f.service.decodeOAuthState(state)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if businessId != "biz-1" || userId != 7 {
		t.Errorf("decoded = (%q, %d), want (biz-1, 7)", businessId, userId)
	}
}

func TestOAuthStateRejectsStale(t *testing.T) {
	f := newOAuthFixture(t)
	state, err := f.service.encodeOAuthState("biz-1", 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f.now = f.now.Add(16 * time.Minute)
	if _, _, err := f.service.decodeOAuthState(state); err == nil {
		t.Error("expected stale state to be rejected")
	}
}

func TestOAuthStateRejectsForgedState(t *testing.T) {
	f := newOAuthFixture(t)

	// An attacker without the cipher key can only mint plain encodings.
	forged, _ := json.Marshal(oauthState{
		BusinessId: "victim-biz",
		UserId:     1,
		IssuedAt:   f.now.Unix(),
	})
	for _, state := range []string{
		base64.RawURLEncoding.EncodeToString(forged),
		base64.StdEncoding.EncodeToString(forged),
		string(forged),
	} {
		if _, _, err := f.service.decodeOAuthState(state); err == nil {
			t.Errorf("forged state %q was accepted", state)
		}
	}
}

func TestOAuthStateRejectsTampering(t *testing.T) {
	f := newOAuthFixture(t)
	state, err := f.service.encodeOAuthState("biz-1", 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tampered := []byte(state)
	tampered[len(tampered)-2] ^= 'x'
	if _, _, err := f.service.decodeOAuthState(string(tampered)); err == nil {
		t.Error("expected tampered state to be rejected")
	}
}

func TestOAuthStateRejectsGarbage(t *testing.T) {
	f := newOAuthFixture(t)
	for _, state := range []string{"", "not-base64!!", "aGVsbG8"} {
		if _, _, err := f.service.decodeOAuthState(state); err == nil {
			t.Errorf("state %q: expected error", state)
		}
	}
}
