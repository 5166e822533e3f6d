// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package verify

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// AWSIdentity is what a CredentialSource resolves: signing credentials and
// the region requests are scoped to. Either part may be empty.
type AWSIdentity struct {
	Credentials aws.Credentials
	Region      string
}

// CredentialSource resolves AWS credentials and region. A non-nil error
// means credentials could not be resolved at all.
type CredentialSource interface {
	Resolve(ctx context.Context) (AWSIdentity, error)
}

// CredentialSourceFunc adapts a function to CredentialSource.
type CredentialSourceFunc func(ctx context.Context) (AWSIdentity, error)

func (f CredentialSourceFunc) Resolve(ctx context.Context) (AWSIdentity, error) { return f(ctx) }

// StaticCredentials is a fixed CredentialSource.
type StaticCredentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
}

func (s StaticCredentials) Resolve(context.Context) (AWSIdentity, error) {
	return AWSIdentity{
		Credentials: aws.Credentials{
			AccessKeyID:     s.AccessKey,
			SecretAccessKey: s.SecretKey,
			SessionToken:    s.SessionToken,
			Source:          "StaticCredentials",
		},
		Region: s.Region,
	}, nil
}

// chainSource resolves through the standard AWS chain: environment, shared
// config and credentials files, SSO, web identity and instance metadata.
type chainSource struct {
	load      func(ctx context.Context) (aws.Config, error)
	lookupEnv func(key string) (string, bool)
}

// DefaultCredentialSource returns the standard AWS credential and region chain.
func DefaultCredentialSource() CredentialSource {
	return chainSource{
		load: func(ctx context.Context) (aws.Config, error) {
			return config.LoadDefaultConfig(ctx)
		},
		lookupEnv: os.LookupEnv,
	}
}

func (s chainSource) Resolve(ctx context.Context) (AWSIdentity, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return AWSIdentity{}, err
	}
	id := AWSIdentity{Region: cfg.Region}
	if cfg.Credentials == nil {
		return id, s.partialFromEnv(&id, nil)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return id, s.partialFromEnv(&id, err)
	}
	id.Credentials = creds
	return id, nil
}

// partialFromEnv reports an access key set in the environment without its
// secret as partial credentials, so the caller can name the missing part.
// The AWS chain itself skips such half-configured environments.
func (s chainSource) partialFromEnv(id *AWSIdentity, cause error) error {
	if key, ok := s.lookupEnv("AWS_ACCESS_KEY_ID"); ok && key != "" {
		if secret, _ := s.lookupEnv("AWS_SECRET_ACCESS_KEY"); secret == "" {
			id.Credentials = aws.Credentials{AccessKeyID: key, Source: "EnvConfigCredentials"}
			return nil
		}
	}
	return cause
}
