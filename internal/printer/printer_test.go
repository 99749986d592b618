package printer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects output and disables color for the duration of a test.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}

	prevOut, prevErr, prevNoColor := Out, ErrOut, color.NoColor
	Out, ErrOut, color.NoColor = out, errOut, true
	t.Cleanup(func() {
		Out, ErrOut, color.NoColor = prevOut, prevErr, prevNoColor
	})
	return out, errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)

		err := Error("Test Error", "This is a test error", nil)
		require.EqualError(t, err, "Test Error")
		assert.Equal(t, "Test Error\n\nThis is a test error\n", errOut.String())
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		_, errOut := capture(t)

		Error("Test Error", "Explanation", []string{"Try this fix"})
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)

		Error("Test Error", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)

	err := ErrorWithContext("Room unreachable", "", map[string]string{
		"Redis":     "redis://localhost:6379/0",
		"Namespace": "default",
	}, nil)

	require.EqualError(t, err, "Room unreachable")
	assert.Equal(t, "Room unreachable\n\n\n  Namespace: default\n  Redis: redis://localhost:6379/0\n", errOut.String())
}

func TestMessages(t *testing.T) {
	t.Run("success adds a checkmark once", func(t *testing.T) {
		out, _ := capture(t)
		Success("Created %s\n", "doc_1")
		Success("✓ Already prefixed\n")
		assert.Equal(t, "✓ Created doc_1\n✓ Already prefixed\n", out.String())
	})

	t.Run("notice wraps the error as a warning", func(t *testing.T) {
		out, _ := capture(t)
		Notice(errors.New("failed to persist create: disk full"))
		assert.Contains(t, out.String(), "failed to persist create: disk full")
		assert.Contains(t, out.String(), "kept for this session")
	})

	t.Run("step", func(t *testing.T) {
		out, _ := capture(t)
		Step("Joining %s\n", "room-doc_1")
		assert.Equal(t, "→ Joining room-doc_1\n", out.String())
	})
}

func TestSwatch(t *testing.T) {
	capture(t)
	assert.Equal(t, "AG", Swatch("#ef4444", "AG"))
	assert.Equal(t, "AG", Swatch("not-a-color", "AG"))
}
