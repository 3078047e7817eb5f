package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"Tenant Admin", TenantAdmin},
		{"tenant admin", TenantAdmin},
		{"  TENANT ADMIN ", TenantAdmin},
		{"Contributor", Contributor},
		{"authenticated", Authenticated},
		{"Public", Public},
		{"Editor", Unknown},
		{"", Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.in))
		})
	}
}

func TestKind_Name(t *testing.T) {
	for _, k := range All() {
		assert.Equal(t, k, Parse(k.Name()))
		assert.NotEmpty(t, k.Description())
	}
	assert.Equal(t, "", Unknown.Name())
	assert.Equal(t, "Unknown", Unknown.String())
}

func TestKind_OwnsTenant(t *testing.T) {
	assert.True(t, TenantAdmin.OwnsTenant())
	assert.False(t, Contributor.OwnsTenant())
	assert.False(t, Unknown.OwnsTenant())
}
