// Package secrets resolves secret references held in configuration values.
//
// Supported forms:
//
//	aws-secret://name          AWS Secrets Manager, whole SecretString
//	aws-secret://name#key      AWS Secrets Manager, one key of a JSON secret
//	gcp-secret://projects/...  GCP Secret Manager, full version resource name
//	gcp-secret://name          GCP Secret Manager, latest version in the current project
//
// Any other value is returned unchanged.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/compute/metadata"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	awsPrefix = "aws-secret://"
	gcpPrefix = "gcp-secret://"
)

// AWSClient is the subset of the Secrets Manager API used here.
type AWSClient interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// GCPClient fetches the payload of a Secret Manager version.
type GCPClient interface {
	Access(ctx context.Context, name string) ([]byte, error)
}

// Resolver resolves references lazily, creating cloud clients on first use.
type Resolver struct {
	Region string

	mu        sync.Mutex
	aws       AWSClient
	gcp       GCPClient
	projectID func(ctx context.Context) (string, error)
}

// NewResolver returns a Resolver that talks to the real cloud APIs.
func NewResolver(region string) *Resolver {
	return &Resolver{Region: region, projectID: projectID}
}

// NewResolverWithClients returns a Resolver backed by the given clients.
func NewResolverWithClients(aws AWSClient, gcp GCPClient, project string) *Resolver {
	return &Resolver{
		aws: aws,
		gcp: gcp,
		projectID: func(context.Context) (string, error) {
			return project, nil
		},
	}
}

// Resolve returns the plaintext for value.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	switch {
	case strings.HasPrefix(value, awsPrefix):
		return r.resolveAWS(ctx, strings.TrimPrefix(value, awsPrefix))
	case strings.HasPrefix(value, gcpPrefix):
		return r.resolveGCP(ctx, strings.TrimPrefix(value, gcpPrefix))
	default:
		return value, nil
	}
}

func (r *Resolver) resolveAWS(ctx context.Context, ref string) (string, error) {
	name, key, hasKey := strings.Cut(ref, "#")

	client, err := r.awsClient(ctx)
	if err != nil {
		return "", err
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to read AWS secret %s: %w", name, err)
	}
	secret := aws.ToString(out.SecretString)
	if !hasKey {
		return secret, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(secret), &data); err != nil {
		return "", fmt.Errorf("AWS secret %s is not a JSON object: %w", name, err)
	}
	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("AWS secret %s has no key %q", name, key)
	}
	return fmt.Sprint(val), nil
}

func (r *Resolver) resolveGCP(ctx context.Context, ref string) (string, error) {
	name := ref
	if !strings.HasPrefix(ref, "projects/") {
		project := os.Getenv("GCP_PROJECT_ID")
		if project == "" {
			var err error
			if project, err = r.projectID(ctx); err != nil {
				return "", fmt.Errorf("cannot determine GCP project ID, set GCP_PROJECT_ID: %w", err)
			}
		}
		name = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, ref)
	}

	client, err := r.gcpClient(ctx)
	if err != nil {
		return "", err
	}
	payload, err := client.Access(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to read GCP secret %s: %w", name, err)
	}
	return string(payload), nil
}

func (r *Resolver) awsClient(ctx context.Context) (AWSClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aws != nil {
		return r.aws, nil
	}
	region := r.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	r.aws = secretsmanager.NewFromConfig(cfg)
	return r.aws, nil
}

func (r *Resolver) gcpClient(ctx context.Context) (GCPClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gcp != nil {
		return r.gcp, nil
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP secret manager client: %w", err)
	}
	r.gcp = gcpSecretManager{client: client}
	return r.gcp, nil
}

type gcpSecretManager struct {
	client *secretmanager.Client
}

func (g gcpSecretManager) Access(ctx context.Context, name string) ([]byte, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, err
	}
	return resp.GetPayload().GetData(), nil
}

// projectID asks the metadata server, available on Cloud Run and GCE.
func projectID(ctx context.Context) (string, error) {
	return metadata.ProjectIDWithContext(ctx)
}
