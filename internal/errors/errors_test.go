package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestRegtestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RegtestError
		expected string
	}{
		{
			name:     "message only",
			err:      &RegtestError{Message: "something failed"},
			expected: "something failed",
		},
		{
			name:     "with test",
			err:      &RegtestError{Test: "net1", Message: "engine failed"},
			expected: "[net1] engine failed",
		},
		{
			name:     "with cause",
			err:      &RegtestError{Message: "load settings", Cause: errors.New("no such file")},
			expected: "load settings: no such file",
		},
		{
			name:     "with test and cause",
			err:      &RegtestError{Test: "net2", Message: "open output", Cause: errors.New("denied")},
			expected: "[net2] open output: denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRegtestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &RegtestError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}

	errNoCause := &RegtestError{Message: "no cause"}
	if got := errNoCause.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestRegtestError_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrorKind
		expected int
	}{
		{"runtime", KindRuntime, ExitRuntimeError},
		{"config", KindConfig, ExitConfigError},
		{"validation", KindValidation, ExitConfigError},
		{"not found", KindNotFound, ExitRuntimeError},
		{"environment", KindEnvironment, ExitEnvironmentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &RegtestError{Kind: tt.kind}
			if got := err.ExitCode(); got != tt.expected {
				t.Errorf("ExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *RegtestError
		kind    ErrorKind
		message string
	}{
		{"New", New("test error"), KindRuntime, "test error"},
		{"Newf", Newf("error %d: %s", 42, "details"), KindRuntime, "error 42: details"},
		{"Config", Config("bad tolerance"), KindConfig, "bad tolerance"},
		{"Configf", Configf("field %q: %s", "log", "invalid"), KindConfig, `field "log": invalid`},
		{"Environment", Environment("engine missing"), KindEnvironment, "engine missing"},
		{"Environmentf", Environmentf("engine %q not found", "runepanet"), KindEnvironment, `engine "runepanet" not found`},
		{"NotFound", NotFound("test directory", "/tmp/x"), KindNotFound, "test directory not found: /tmp/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Message != tt.message {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.message)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("original error")
	err := Wrap(cause, "wrapped message")

	if err.Kind != KindRuntime {
		t.Errorf("Kind = %v, want %v", err.Kind, KindRuntime)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Kind of a wrapped RegtestError is preserved.
	inner := fmt.Errorf("context: %w", Environment("engine missing"))
	if got := Wrap(inner, "run").Kind; got != KindEnvironment {
		t.Errorf("Wrap(environment).Kind = %v, want %v", got, KindEnvironment)
	}

	if got := WrapConfig(cause, "settings").ExitCode(); got != ExitConfigError {
		t.Errorf("WrapConfig().ExitCode() = %d, want %d", got, ExitConfigError)
	}
	env := WrapEnvironment(cause, "engine unavailable")
	if got := env.ExitCode(); got != ExitEnvironmentError {
		t.Errorf("WrapEnvironment().ExitCode() = %d, want %d", got, ExitEnvironmentError)
	}
	if !errors.Is(env, cause) {
		t.Error("WrapEnvironment() should keep the cause")
	}
}

func TestTestError(t *testing.T) {
	err := TestError("net3", "size mismatch")

	if err.Test != "net3" {
		t.Errorf("Test = %q, want %q", err.Test, "net3")
	}
	if err.Error() != "[net3] size mismatch" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitSuccess},
		{"runtime", New("runtime"), ExitRuntimeError},
		{"config", Config("config"), ExitConfigError},
		{"validation", &RegtestError{Kind: KindValidation}, ExitConfigError},
		{"wrapped environment", fmt.Errorf("outer: %w", Environment("env")), ExitEnvironmentError},
		{"generic error", errors.New("generic"), ExitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}
