package connector

import (
	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/connector/awsidc"
	"github.com/alxnderia/ingestion/pkg/connector/awsorgs"
	"github.com/alxnderia/ingestion/pkg/connector/gcp"
	"github.com/alxnderia/ingestion/pkg/connector/github"
	"github.com/alxnderia/ingestion/pkg/connector/googleworkspace"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/provider"
)

// NewRegistry returns a registry holding every provider connector.
func NewRegistry() *ingest.Registry {
	r := ingest.NewRegistry()
	r.Register(provider.TypeGoogleWorkspace, ingest.Factory{
		Configured: func(c *config.Config) bool { return c.GoogleWorkspace != nil },
		New:        googleworkspace.New,
	})
	r.Register(provider.TypeAwsIdentityCenter, ingest.Factory{
		Configured: func(c *config.Config) bool { return c.AwsIdentityCenter != nil },
		New:        awsidc.New,
	})
	r.Register(provider.TypeGithub, ingest.Factory{
		Configured: func(c *config.Config) bool { return c.Github != nil },
		New:        github.New,
	})
	r.Register(provider.TypeAwsOrganizations, ingest.Factory{
		Configured: func(c *config.Config) bool { return c.AwsOrganizations != nil },
		New:        awsorgs.New,
	})
	r.Register(provider.TypeGcpResourceManager, ingest.Factory{
		Configured: func(c *config.Config) bool { return c.Gcp != nil },
		New:        gcp.New,
	})
	return r
}
