package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// LoadAWS builds the shared AWS client configuration. Region comes
// from store.region, then llm.region, then the SDK's own resolution
// chain. Static credentials from store config override the default
// chain; otherwise the environment and instance role apply.
func LoadAWS(ctx context.Context, cfg *Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	region := cfg.Store.Region
	if region == "" {
		region = cfg.LLM.Region
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	if cfg.Store.AccessKeyID != "" && cfg.Store.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Store.AccessKeyID, cfg.Store.SecretAccessKey, ""),
		))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
