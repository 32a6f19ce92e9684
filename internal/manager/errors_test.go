package manager

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"vramd/pkg/types"
)

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		err  error
		kind string
		code int
	}{
		{CapacityError{Key: qwen, NeedMB: 6144, FreeMB: 100}, "capacity", http.StatusConflict},
		{ProviderLoadError{Key: qwen, Err: errors.New("x")}, "provider_load", http.StatusBadGateway},
		{ProviderUnloadError{Key: qwen, Err: errors.New("x")}, "provider_unload", http.StatusBadGateway},
		{sessionProtectedError{key: qwen, sessions: []string{"s1"}}, "session_protected", http.StatusConflict},
		{unloadUnsupportedError{key: vllm}, "unload_unsupported", http.StatusUnprocessableEntity},
		{notLoadedError{key: qwen}, "not_loaded", http.StatusNotFound},
		{ErrModelNotFound("x"), "not_found", http.StatusNotFound},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("ctx: %w", c.err)
		if got := ErrorKind(wrapped); got != c.kind {
			t.Fatalf("ErrorKind(%v) = %q, want %q", c.err, got, c.kind)
		}
		var sc interface{ StatusCode() int }
		if !errors.As(wrapped, &sc) || sc.StatusCode() != c.code {
			t.Fatalf("%v: expected status %d", c.err, c.code)
		}
	}
	if !IsTooBusy(tooBusyError{depth: 3}) || IsTooBusy(errors.New("x")) {
		t.Fatalf("IsTooBusy mismatch")
	}
	if ErrorKind(ErrRequestCancelled) != "cancelled" || ErrorKind(nil) != "" {
		t.Fatalf("unexpected kinds")
	}
}

func TestCapacityErrorMessageListsEvictions(t *testing.T) {
	err := CapacityError{Key: vllm, NeedMB: 16384, FreeMB: 8192, Evicted: []types.ModelKey{llama}}
	want := "insufficient VRAM for vllm/default: need 16384 MB, 8192 MB free after evicting ollama/llama3.2:3b"
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}
