package main

import (
	"errors"
	"testing"
)

// TestValidateArgs verifies the positional argument contract of the three
// tools.
func TestValidateArgs(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		db      string
		args    []string
		wantErr bool
	}{
		{"create-db with source", "create-db", "m.db", []string{"src"}, false},
		{"verify-dir with source", "verify-dir", "m.db", []string{"src"}, false},
		{"merge-dir with source and dest", "merge-dir", "m.db", []string{"src", "dest"}, false},
		{"no tool", "", "m.db", []string{"src"}, true},
		{"unknown tool", "clone-dir", "m.db", []string{"src"}, true},
		{"no db", "create-db", "", []string{"src"}, true},
		{"no source", "create-db", "m.db", nil, true},
		{"too many args", "create-db", "m.db", []string{"a", "b", "c"}, true},
		{"verify-dir with dest", "verify-dir", "m.db", []string{"src", "dest"}, true},
		{"merge-dir without dest", "merge-dir", "m.db", []string{"src"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toolName, dbPath = tt.tool, tt.db
			err := validateArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrArgument) {
				t.Errorf("error not tagged ErrArgument: %v", err)
			}
		})
	}
}
