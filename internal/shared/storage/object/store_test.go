package object

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyLayout(t *testing.T) {
	at := time.Date(2025, time.March, 1, 23, 30, 0, 0, time.UTC)
	key, err := NewKey("tenant:7", "care plan.docx", at)
	require.NoError(t, err)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, SourcesDir, parts[0])
	assert.Len(t, parts[1], 64)
	assert.NotContains(t, key, "tenant:7")
	assert.Equal(t, "20250301", parts[2])
	assert.True(t, strings.HasSuffix(parts[3], "_care plan.docx"))

	other, err := NewKey("tenant:7", "care plan.docx", at)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestNewKeyRejectsTraversal(t *testing.T) {
	_, err := NewKey("tenant:1", "../../etc/passwd", time.Now())
	assert.Error(t, err)
}

func TestSniffReplaysHead(t *testing.T) {
	body := "Section: Nutrition\n" + strings.Repeat("x", 1000)
	mime, r, err := Sniff(strings.NewReader(body))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mime, "text/plain"))

	counter := &CountingReader{R: r}
	data, err := io.ReadAll(counter)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, int64(len(body)), counter.N)
}

func TestSniffEmptyInput(t *testing.T) {
	_, r, err := Sniff(strings.NewReader(""))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, data)
}
