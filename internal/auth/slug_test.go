package auth_test

import (
	"testing"

	"github.com/hugh/inkpress/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane_Doe!!", "jane-doe"},
		{"janedoe", "janedoe"},
		{"  Acme   Blog  ", "acme-blog"},
		{"--a--b--", "a-b"},
		{"Café 2024", "caf-2024"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Slugify(tt.in))
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass")
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, auth.CheckPassword("s3cret-pass", hash))
	assert.False(t, auth.CheckPassword("wrong", hash))
}
