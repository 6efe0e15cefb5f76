package reindex

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	t.Run("reports at the configured interval", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProgressTracker(&buf, 10, 5)
		p.Start()

		p.Increment(3)
		assert.Empty(t, buf.String())

		p.Increment(2)
		assert.Contains(t, buf.String(), "5/10 (50.0%)")

		p.Finish()
		assert.Contains(t, buf.String(), "10/10 (100.0%)")
	})

	t.Run("caps progress at the total", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProgressTracker(&buf, 4, 1)
		p.Start()

		p.Increment(10)
		assert.Contains(t, buf.String(), "4/4 (100.0%)")
	})

	t.Run("ignores updates before start", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProgressTracker(&buf, 4, 1)

		p.Increment(2)
		p.Finish()
		assert.Empty(t, buf.String())
		assert.Zero(t, p.Elapsed())
	})

	t.Run("finish always prints a final line", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProgressTracker(&buf, 3, 100)
		p.Start()

		p.Increment(3)
		p.Finish()
		assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	})
}
