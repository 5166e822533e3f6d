// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package verify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"opensearchsql/cli/internal/errors"
	"opensearchsql/cli/internal/logging"
)

// Messages returned by AWS.
const (
	MsgNoAWSCredentials = "Unable to retrieve AWS credentials."
	MsgNoAWSRegion      = "Unable to retrieve AWS region."
	MsgNoAWSSecretKey   = "missing AWS_SECRET_ACCESS_KEY"
	MsgForbiddenAWS     = "Forbidden 403 please verify your permissions/tokens/keys."
)

// Signing service names.
const (
	ServiceOpenSearch           = "es"
	ServiceOpenSearchServerless = "aoss"
)

// emptyPayloadHash is the SHA-256 of an empty body.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// ServiceName returns the SigV4 service for host: "aoss" for OpenSearch
// Serverless collection endpoints, "es" otherwise.
func ServiceName(host string) string {
	if strings.Contains(host, ".aoss.") {
		return ServiceOpenSearchServerless
	}
	return ServiceOpenSearch
}

// AWS verifies an AWS-hosted cluster at https://host with a SigV4-signed GET.
// On success Identity is the resolved region.
func (v *Verifier) AWS(ctx context.Context, host string) Result {
	host = strings.TrimPrefix(host, "https://")

	id, err := v.credentials.Resolve(ctx)
	if err != nil || id.Credentials.AccessKeyID == "" {
		if err != nil {
			v.logger.Warn("aws credentials not resolved", v.logger.Args("error", logging.Mask(err.Error())))
		}
		return failure(errors.MissingCredentials, MsgNoAWSCredentials)
	}
	if id.Region == "" {
		return failure(errors.MissingRegion, MsgNoAWSRegion)
	}
	if id.Credentials.SecretAccessKey == "" {
		return failure(errors.MissingSecretKey, MsgNoAWSSecretKey)
	}

	url := "https://" + host
	unreachable := failure(errors.Unreachable,
		fmt.Sprintf("Unable to connect AWS server - %s.\nPlease check your AWS Credentials/Configurations", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return unreachable
	}
	service := ServiceName(host)
	req.Header.Set("X-Amz-Content-Sha256", emptyPayloadHash)
	if err := v4.NewSigner().SignHTTP(ctx, id.Credentials, req, emptyPayloadHash, service, id.Region, v.now()); err != nil {
		v.logger.Warn("request signing failed", v.logger.Args("error", logging.Mask(err.Error())))
		return unreachable
	}

	v.logger.Debug("verifying aws cluster", v.logger.Args("url", url, "service", service, "region", id.Region))

	resp, err := v.client(false).Do(req)
	if err != nil {
		v.logger.Warn("aws cluster verification failed", v.logger.Args("url", url, "error", logging.Mask(err.Error())))
		return unreachable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		version := readVersion(resp.Body)
		v.logger.Info("aws cluster verified", v.logger.Args("url", url, "version", version, "region", id.Region))
		return success(version, url, id.Region)
	case http.StatusForbidden:
		return failure(errors.Forbidden, MsgForbiddenAWS)
	default:
		v.logger.Warn("unexpected aws cluster status", v.logger.Args("url", url, "status", resp.StatusCode))
		return failure(errors.UnexpectedStatus, strconv.Itoa(resp.StatusCode))
	}
}
