package model

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseVideoRef(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name     string
		raw      string
		wantKind RefKind
		wantErr  bool
	}{
		{"24 hex chars is a primary key", id.Hex(), RefObjectID, false},
		{"uppercase hex is a primary key", "507F1F77BCF86CD799439011", RefObjectID, false},
		{"short alias", "k3j9x0a1bq", RefShortID, false},
		{"23 hex chars falls back to alias", id.Hex()[:23], RefShortID, false},
		{"24 chars with non-hex falls back to alias", "zzzzzzzzzzzzzzzzzzzzzzzz", RefShortID, false},
		{"empty is rejected", "  ", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseVideoRef(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVideoRef() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ref.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", ref.Kind, tt.wantKind)
			}
		})
	}
}

func TestVideoRef_String(t *testing.T) {
	id := primitive.NewObjectID()
	if got := RefForID(id).String(); got != id.Hex() {
		t.Errorf("String() = %q, want %q", got, id.Hex())
	}

	ref, _ := ParseVideoRef("abc123")
	if ref.String() != "abc123" {
		t.Errorf("String() = %q, want abc123", ref.String())
	}
}

func TestNewShortID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewShortID()
		if len(id) != shortIDLength {
			t.Fatalf("len(%q) = %d, want %d", id, len(id), shortIDLength)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate short id %q", id)
		}
		seen[id] = struct{}{}
	}
}
