package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeNames(t *testing.T) {
	assert.Equal(t, []string{
		"google_workspace",
		"aws_identity_center",
		"github",
		"aws_organizations",
		"gcp_resource_manager",
	}, TypeStrings())
}

func TestParse(t *testing.T) {
	typ, err := Parse("gcp_resource_manager")
	require.NoError(t, err)
	assert.Equal(t, TypeGcpResourceManager, typ)

	typ, err = Parse("GitHub")
	require.NoError(t, err)
	assert.Equal(t, TypeGithub, typ)

	_, err = Parse("okta")
	assert.EqualError(t, err, `unknown provider "okta"`)
}

func TestLinkType(t *testing.T) {
	assert.Equal(t, "GOOGLE_WORKSPACE", TypeGoogleWorkspace.LinkType())
	assert.Equal(t, "AWS_IDENTITY_CENTER", TypeAwsIdentityCenter.LinkType())
	assert.Equal(t, "GITHUB", TypeGithub.LinkType())
	assert.Empty(t, TypeAwsOrganizations.LinkType())
	assert.Empty(t, TypeGcpResourceManager.LinkType())
}
