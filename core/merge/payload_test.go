package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `<?xml version="1.0" encoding="UTF-8"?>
<Profile>
    <custom>true</custom>
    <userLicense>Standard</userLicense>
    <fieldPermissions>
        <field>Account.Name</field>
        <editable>true</editable>
    </fieldPermissions>
    <fieldPermissions>
        <field>Account.Owner</field>
        <editable>false</editable>
    </fieldPermissions>
</Profile>
`

func TestParseFlattensElements(t *testing.T) {
	p, root, err := Parse([]byte(sampleProfile))
	require.NoError(t, err)
	assert.Equal(t, "Profile", root)

	assert.Equal(t, "true", p["custom"])
	assert.Equal(t, "Standard", p["userLicense"])
	assert.Contains(t, p, "fieldPermissions:Account.Name")
	assert.Contains(t, p, "fieldPermissions:Account.Owner")
	assert.Len(t, p, 4)
}

func TestParseRejectsMalformedXML(t *testing.T) {
	_, _, err := Parse([]byte("<Profile><custom>true</Profile>"))
	require.Error(t, err)

	_, _, err = Parse([]byte(""))
	require.Error(t, err)
}

func TestRenderRoundTrip(t *testing.T) {
	p, root, err := Parse([]byte(sampleProfile))
	require.NoError(t, err)

	again, root2, err := Parse(p.Render(root))
	require.NoError(t, err)
	assert.Equal(t, root, root2)
	assert.True(t, p.equal(again))
}

func TestRenderIsDeterministic(t *testing.T) {
	p := Payload{"b": "2", "a": "1", "c": "3"}
	first := p.Render("Profile")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Render("Profile"))
	}
}
