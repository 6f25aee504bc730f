// Package provider enumerates the external identity providers the pipeline
// ingests from.
package provider

import "fmt"

//go:generate go run github.com/dmarkham/enumer -type Type -trimprefix Type -transform snake -yaml -json -text -output type.gen.go

// Type identifies a provider connector. Its string form is the name used in
// ingestion_runs.provider, CLI flags and scheduler job ids.
type Type int

const (
	TypeGoogleWorkspace Type = iota
	TypeAwsIdentityCenter
	TypeGithub
	TypeAwsOrganizations
	TypeGcpResourceManager
)

// Link provider types as stored in canonical_user_provider_links.provider_type.
const (
	LinkGoogleWorkspace   = "GOOGLE_WORKSPACE"
	LinkAwsIdentityCenter = "AWS_IDENTITY_CENTER"
	LinkGithub            = "GITHUB"
)

// PostProcess is the pseudo-provider name for identity resolution followed by
// the grants rebuild.
const PostProcess = "post-process"

// LinkType returns the canonical link namespace for providers that carry user
// identities, or "" for resource-only providers.
func (t Type) LinkType() string {
	switch t {
	case TypeGoogleWorkspace:
		return LinkGoogleWorkspace
	case TypeAwsIdentityCenter:
		return LinkAwsIdentityCenter
	case TypeGithub:
		return LinkGithub
	default:
		return ""
	}
}

// Parse resolves a provider name, accepting the enum string form.
func Parse(name string) (Type, error) {
	t, err := TypeString(name)
	if err != nil {
		return 0, fmt.Errorf("unknown provider %q", name)
	}
	return t, nil
}
