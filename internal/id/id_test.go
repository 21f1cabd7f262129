package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixTag)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixTag, PrefixClient, "custom"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			// nanoid default length is 21.
			assert.Len(t, id, len(prefix)+1+21)
			assert.True(t, HasPrefix(id, prefix))
		})
	}
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("tag-abc", "tag"))
	assert.False(t, HasPrefix("tag-", "tag"))
	assert.False(t, HasPrefix("tagabc", "tag"))
	assert.False(t, HasPrefix("client-abc", "tag"))
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate(PrefixClient)
		assert.True(t, HasPrefix(id, PrefixClient))
	})
}

func TestNewAssetID(t *testing.T) {
	a := NewAssetID()
	b := NewAssetID()

	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToUpper(a), a)
	assert.True(t, IsAssetID(a))
}

func TestIsAssetID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"6F9619FF-8B86-D011-B42D-00C04FC964FF", true},
		{"6f9619ff-8b86-d011-b42d-00c04fc964ff", false},
		{"../../etc/passwd", false},
		{"", false},
		{"{6F9619FF-8B86-D011-B42D-00C04FC964FF}", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAssetID(tt.in))
		})
	}
}
