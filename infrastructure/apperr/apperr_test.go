package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedErrors(t *testing.T) {
	base := NotFound("product")
	wrapped := fmt.Errorf("load product 7: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("expected not_found, got %s", got)
	}
	if !errors.Is(wrapped, NotFound("product")) {
		t.Fatalf("expected errors.Is to match equivalent sentinel")
	}
	if errors.Is(wrapped, NotFound("category")) {
		t.Fatalf("did not expect match for a different message")
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal for plain errors, got %s", got)
	}
}
