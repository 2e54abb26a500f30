// file: internal/server/validators_test.go
// version: 2.0.0
// guid: 24941fc7-9702-4dba-b275-77671593002d

package server

import (
	"strings"
	"testing"

	ulid "github.com/oklog/ulid/v2"
)

func TestValidateAliases(t *testing.T) {
	tests := []struct {
		name     string
		aliases  []string
		maxBatch int
		wantCode string
	}{
		{"valid", []string{"WinRAR 6.02", "Microsoft Edge"}, 10, ""},
		{"unbounded", []string{"a", "b", "c"}, 0, ""},
		{"empty", nil, 10, "ALIASES_REQUIRED"},
		{"too many", []string{"a", "b", "c"}, 2, "BATCH_TOO_LARGE"},
		{"blank entry", []string{"a", "   "}, 10, "ALIAS_REQUIRED"},
		{"bad utf8", []string{"a\xffb"}, 10, "ALIAS_ENCODING"},
		{"too long", []string{strings.Repeat("x", MaxAliasLength+1)}, 10, "ALIAS_TOO_LONG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAliases(tt.aliases, tt.maxBatch)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			ve, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Code != tt.wantCode {
				t.Errorf("expected %s code, got %q", tt.wantCode, ve.Code)
			}
		})
	}
}

func TestValidateAliasesReportsIndex(t *testing.T) {
	err := ValidateAliases([]string{"ok", "ok", ""}, 0)
	ve := err.(ValidationError)
	if ve.Field != "aliases[2]" {
		t.Errorf("expected aliases[2], got %q", ve.Field)
	}
}

func TestValidateRunID(t *testing.T) {
	if err := ValidateRunID(ulid.Make().String()); err != nil {
		t.Errorf("expected valid run id, got %v", err)
	}
	if err := ValidateRunID(""); err == nil || err.(ValidationError).Code != "ID_REQUIRED" {
		t.Errorf("expected ID_REQUIRED, got %v", err)
	}
	if err := ValidateRunID("../../etc/passwd"); err == nil || err.(ValidationError).Code != "ID_INVALID" {
		t.Errorf("expected ID_INVALID, got %v", err)
	}
}
