package sliceutils_test

import (
	"testing"

	"github.com/threadcast/threadcast/internal/sliceutils"
)

func TestCut(t *testing.T) {
	t.Run("Given a slice, when cutting with negative start, then return trailing elements", func(t *testing.T) {
		slice := []int{1, 2, 3, 4, 5}
		result := sliceutils.Cut(slice, -3, len(slice))
		if len(result) != 4 {
			t.Errorf("expected 4 elements, got %d", len(result))
		}
		if result[0] != 2 {
			t.Errorf("expected first element 2, got %d", result[0])
		}
	})

	t.Run("Given an empty slice, when cutting, then return the slice unchanged", func(t *testing.T) {
		var slice []int
		result := sliceutils.Cut(slice, -3, 0)
		if len(result) != 0 {
			t.Errorf("expected empty result, got %d elements", len(result))
		}
	})
}
