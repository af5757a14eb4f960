package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "03001234567", Normalize("0300 123-4567"))
	assert.Equal(t, "+923001234567", Normalize("+92 (300) 123.4567"))
	assert.Equal(t, "1234", Normalize("12+34")) // '+' only allowed as prefix
}

func TestMask(t *testing.T) {
	assert.Equal(t, "03*******67", Mask("03001234567"))
	assert.Equal(t, "***", Mask("123"))
	assert.Equal(t, "****", Mask("1234"))
	assert.Equal(t, "12*45", Mask("12345"))
	assert.Equal(t, "", Mask(""))
}

func TestSyntheticEmail(t *testing.T) {
	addr := SyntheticEmail("0300 123-4567", "homehive.app")
	assert.Equal(t, "03001234567@phone.homehive.app", addr)
	assert.True(t, IsSyntheticEmail(addr, "homehive.app"))
	assert.False(t, IsSyntheticEmail("alice@example.com", "homehive.app"))
	assert.False(t, IsSyntheticEmail(addr, "other.app"))
}
