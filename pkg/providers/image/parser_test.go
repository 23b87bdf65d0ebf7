package image

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

type memStore struct {
	saved [][]byte
	err   error
}

func (m *memStore) Save(data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, data)
	return "mem://img" + string(rune('0'+len(m.saved))), nil
}

func TestParserURLImages(t *testing.T) {
	t.Parallel()

	p := NewParser(WithLogger(zaptest.NewLogger(t)))
	chunk := p.Parse([]byte(`{"created":1,"data":[{"url":"https://cdn/x.png","revised_prompt":"a [red] fox"},{"url":"https://cdn/y.png"}]}`))

	assert.Equal(t, llm.FinishReasonStop, chunk.FinishReason)
	assert.Equal(t, "![a (red) fox](https://cdn/x.png)\n\n![image](https://cdn/y.png)", chunk.TextDelta)
}

func TestParserBase64Images(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p := NewParser(WithStore(store))
	b64 := base64.StdEncoding.EncodeToString([]byte("fake-png"))

	chunk := p.Parse([]byte(`{"images":[{"b64_json":"` + b64 + `"}],"usage":{"input_tokens":10,"output_tokens":1000}}`))
	require.Len(t, store.saved, 1)
	assert.Equal(t, []byte("fake-png"), store.saved[0])
	assert.Equal(t, "![image](mem://img1)", chunk.TextDelta)
	assert.Equal(t, 10, *chunk.InputTokens)
	assert.Equal(t, 1000, *chunk.OutputTokens)
}

func TestParserNoImageData(t *testing.T) {
	t.Parallel()

	failing := NewParser(WithStore(&memStore{err: errors.New("disk full")}))
	b64 := base64.StdEncoding.EncodeToString([]byte("x"))

	for _, raw := range []string{
		`{"data":[]}`,
		`{"created":1}`,
		`{"data":[{"b64_json":"%%%not-base64"}]}`,
	} {
		chunk := NewParser(WithStore(&memStore{})).Parse([]byte(raw))
		assert.Equal(t, llm.FinishReasonError, chunk.FinishReason, raw)
		assert.NotEmpty(t, chunk.ErrorMessage)
	}

	chunk := failing.Parse([]byte(`{"data":[{"b64_json":"` + b64 + `"}]}`))
	assert.Equal(t, llm.FinishReasonError, chunk.FinishReason)
}

func TestParserTotality(t *testing.T) {
	t.Parallel()

	p := NewParser(WithStore(&memStore{}))
	assert.Equal(t, llm.FinishReasonErrorParsing, p.Parse(nil).FinishReason)
	assert.Equal(t, llm.FinishReasonErrorParsing, p.Parse([]byte(`{"data":[`)).FinishReason)
	assert.Equal(t, llm.FinishReasonError, p.Parse([]byte(`{"error":{"message":"bad prompt","code":"content_policy_violation"}}`)).FinishReason)
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\n0000")

	url, err := NewFileStore(dir, "https://files.example/img/").Save(png)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://files.example/img/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	path, err := NewFileStore(dir, "").Save(png)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}
