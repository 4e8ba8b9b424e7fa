package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is empty")
	}
	return nil
}

func TestEncodeValid(t *testing.T) {
	b, err := EncodeValid(&sample{Name: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a"}`, string(b))

	_, err = EncodeValid(&sample{})
	assert.ErrorContains(t, err, "name is empty")
}

func TestDecodeValid(t *testing.T) {
	var s sample
	require.NoError(t, DecodeValid([]byte(`{"name":"b"}`), &s))
	assert.Equal(t, "b", s.Name)

	assert.Error(t, DecodeValid([]byte(`{"name":""}`), &sample{}))
	assert.Error(t, DecodeValid([]byte(`{`), &sample{}))
}
