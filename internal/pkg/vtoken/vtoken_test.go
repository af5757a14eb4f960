package vtoken

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/homehive/homehive-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, 32)
	c, err := NewCodec(key)
	require.NoError(t, err)
	return c
}

func testPayload() Payload {
	now := time.Now().UTC()
	return Payload{
		UserID:     "01HTESTUSER00000000000000",
		Method:     domain.MethodPhone,
		Identifier: "03001234567",
		Remember:   true,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(10 * time.Minute).Unix(),
	}
}

func TestNewCodec_RejectsShortKey(t *testing.T) {
	_, err := NewCodec([]byte("too-short"))
	require.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := testCodec(t)
	p := testPayload()

	token, err := c.Encode(p)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := c.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
}

func TestEncode_TokensAreUnique(t *testing.T) {
	c := testCodec(t)
	p := testPayload()

	t1, err := c.Encode(p)
	require.NoError(t, err)
	t2, err := c.Encode(p)
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2) // fresh nonce per token
}

func TestDecode_SingleByteMutation_Invalid(t *testing.T) {
	c := testCodec(t)
	token, err := c.Encode(testPayload())
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01
		_, err := c.Decode(base64.RawURLEncoding.EncodeToString(mutated))
		assert.ErrorIs(t, err, ErrInvalid, "byte %d", i)
	}
}

func TestDecode_WrongKey_Invalid(t *testing.T) {
	c := testCodec(t)
	token, err := c.Encode(testPayload())
	require.NoError(t, err)

	other, err := NewCodec(bytes.Repeat([]byte{0x24}, 32))
	require.NoError(t, err)
	_, err = other.Decode(token)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecode_Garbage_Invalid(t *testing.T) {
	c := testCodec(t)
	for _, token := range []string{"", "!!not-base64!!", "c2hvcnQ", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		_, err := c.Decode(token)
		assert.ErrorIs(t, err, ErrInvalid)
	}
}

func TestDecode_MissingRequiredFields_Invalid(t *testing.T) {
	c := testCodec(t)

	cases := map[string]Payload{
		"no user id":    {Method: domain.MethodEmail, Identifier: "a@b.com", ExpiresAt: time.Now().Add(time.Minute).Unix()},
		"no identifier": {UserID: "u1", Method: domain.MethodEmail, ExpiresAt: time.Now().Add(time.Minute).Unix()},
		"no expiry":     {UserID: "u1", Method: domain.MethodEmail, Identifier: "a@b.com"},
		"bad method":    {UserID: "u1", Method: "carrier-pigeon", Identifier: "a@b.com", ExpiresAt: time.Now().Add(time.Minute).Unix()},
	}
	for name, p := range cases {
		token, err := c.Encode(p)
		require.NoError(t, err, name)
		_, err = c.Decode(token)
		assert.ErrorIs(t, err, ErrInvalid, name)
	}
}

func TestPayload_Expired(t *testing.T) {
	p := testPayload()
	now := time.Now()
	assert.False(t, p.Expired(now))
	assert.True(t, p.Expired(now.Add(11*time.Minute)))
	assert.True(t, p.Expired(time.Unix(p.ExpiresAt, 0))) // boundary is exclusive for validity
}
