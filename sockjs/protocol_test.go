package sockjs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayFrame(t *testing.T) {
	encoded, err := encodeMessage("hello")
	require.NoError(t, err)
	assert.Equal(t, `a["hello"]`, arrayFrame(encoded))
}

func TestCoalesceFrame(t *testing.T) {
	a, _ := encodeMessage("one")
	b, _ := encodeMessage("two")
	assert.Equal(t, `a["one","two"]`, coalesceFrame([]string{a, b}))
}

func TestCloseFrame(t *testing.T) {
	assert.Equal(t, `c[3000,"Go away!"]`, closeFrame(closeGoAway))
	assert.Equal(t, `c[2010,"Another connection still open"]`, closeFrame(closeAnotherConn))
}

func TestDecodeFrameArray(t *testing.T) {
	messages, err := decodeFrame([]byte(`["a","b"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, messages)
}

func TestDecodeFrameScalarCoercion(t *testing.T) {
	messages, err := decodeFrame([]byte(`"solo"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, messages)
}

func TestDecodeFrameInvalid(t *testing.T) {
	_, err := decodeFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "3000", itoa(3000))
	assert.Equal(t, "-7", itoa(-7))
}
