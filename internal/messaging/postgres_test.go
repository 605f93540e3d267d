// internal/messaging/postgres_test.go

package messaging

import (
    "strings"
    "testing"
    "unicode/utf8"

    "github.com/stretchr/testify/assert"
)

func TestTruncatePreview(t *testing.T) {
    assert.Equal(t, "hello", truncatePreview("hello", 120))

    long := strings.Repeat("a", 200)
    assert.Equal(t, strings.Repeat("a", 120), truncatePreview(long, 120))

    // A multibyte rune straddling the cut is dropped whole, never split
    padded := strings.Repeat("a", 119) + "héllo"
    got := truncatePreview(padded, 120)
    assert.True(t, utf8.ValidString(got))
    assert.Equal(t, strings.Repeat("a", 119)+"h", got)

    emoji := strings.Repeat("🎉", 40) // 4 bytes each
    got = truncatePreview(emoji, 120)
    assert.True(t, utf8.ValidString(got))
    assert.Equal(t, strings.Repeat("🎉", 30), got)

    // 118 ascii bytes then a 4-byte rune: the rune cannot fit
    tail := strings.Repeat("a", 118) + "🎉"
    got = truncatePreview(tail, 120)
    assert.True(t, utf8.ValidString(got))
    assert.Equal(t, strings.Repeat("a", 118), got)
}
