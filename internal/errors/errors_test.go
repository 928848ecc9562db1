package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(BinaryMissing, "Temp/bin/Debug/Game.dll not found", cause)

	if err.Code != BinaryMissing {
		t.Errorf("Code = %v, want %v", err.Code, BinaryMissing)
	}
	if err.Message != "Temp/bin/Debug/Game.dll not found" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestUpcError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      IOFailure,
			message:   "read Assets/Main.unity",
			cause:     errors.New("permission denied"),
			wantParts: []string{"IO_FAILURE", "read Assets/Main.unity", "permission denied"},
		},
		{
			name:      "without cause",
			code:      SidecarMissing,
			message:   "Assets/Player.cs.meta",
			cause:     nil,
			wantParts: []string{"SIDECAR_MISSING", "Assets/Player.cs.meta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
			if tt.cause == nil && strings.HasSuffix(got, ": ") {
				t.Errorf("Error() = %q has dangling separator", got)
			}
		})
	}
}

func TestUpcError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}

	if Newf(ConfigInvalid, "workers = %d", -1).Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestUpcError_WithDetails(t *testing.T) {
	err := New(IdentityCollision, "collision", nil)
	result := err.WithDetails(map[string]string{"guid": "abc"})

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestCodeOf(t *testing.T) {
	base := New(DuplicateScope, "two definitions in Assets/Game", nil)
	wrapped := fmt.Errorf("compile: %w", base)

	if got := CodeOf(wrapped); got != DuplicateScope {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, DuplicateScope)
	}
	if !IsCode(wrapped, DuplicateScope) {
		t.Error("IsCode(wrapped, DuplicateScope) = false")
	}
	if IsCode(errors.New("plain"), DuplicateScope) {
		t.Error("IsCode(plain) = true")
	}
	if CodeOf(nil) != "" {
		t.Error("CodeOf(nil) should be empty")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{SidecarMissing, false, 1},
		{BinaryMissing, false, 1},
		{IdentityCollision, false, 1},
		{DuplicateScope, false, 1},
		{ResolverUnavailable, false, 1},
		{IOFailure, true, 0},
		{InternalError, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)
			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		SidecarMissing,
		SidecarMalformed,
		DefinitionInvalid,
		BinaryMissing,
		DuplicateScope,
		IdentityCollision,
		IOFailure,
		ResolverUnavailable,
		BuildFailed,
		ConfigInvalid,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true
		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
			if fix.Description == "" {
				t.Errorf("ErrorActions[%v][%d].Description is empty", code, i)
			}
		}
	}
}
