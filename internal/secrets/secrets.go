// Package secrets resolves secret-valued configuration from Google Secret
// Manager at startup. It is a no-op unless GCP_PROJECT_ID is set, so local
// development keeps working from plain environment variables.
package secrets

import (
	"context"
	"fmt"

	"presale/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

type Resolver struct {
	client    *secretmanager.Client
	projectID string
}

func NewResolver(ctx context.Context, projectID string, opts ...option.ClientOption) (*Resolver, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is not set")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &Resolver{client: client, projectID: projectID}, nil
}

func (r *Resolver) Close() error {
	return r.client.Close()
}

// Get returns the latest version of the named secret.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", r.projectID, name)
	result, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

// Apply overwrites the secret-valued config fields that are still empty.
// Values already present in the environment win, which lets deployments
// override individual secrets without touching Secret Manager.
func Apply(ctx context.Context, cfg *config.Config) error {
	if cfg.GCPProjectID == "" {
		return nil
	}
	r, err := NewResolver(ctx, cfg.GCPProjectID)
	if err != nil {
		return err
	}
	defer r.Close()

	fields := []struct {
		name string
		dst  *string
	}{
		{"presale-email-api-key", &cfg.EmailAPIKey},
		{"presale-cron-secret", &cfg.CronSecret},
		{"presale-db-password", &cfg.DBPassword},
	}
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := r.Get(ctx, f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}
