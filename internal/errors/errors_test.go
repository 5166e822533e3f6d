package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestE_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *E
		want string
	}{
		{
			name: "without cause",
			err:  New(Unauthorized, "bad credentials"),
			want: "unauthorized: bad credentials",
		},
		{
			name: "with cause",
			err:  Wrap(SpawnFailed, "start gateway", stderrors.New("exec: not found")),
			want: "spawn_failed: start gateway: exec: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	cause := stderrors.New("boom")
	wrapped := fmt.Errorf("context: %w", Wrap(RPCFailed, "query", cause))

	if got := KindOf(wrapped); got != RPCFailed {
		t.Errorf("KindOf() = %q, want %q", got, RPCFailed)
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("expected wrapped error to unwrap to its cause")
	}
	if got := KindOf(cause); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}
