// Package secrets bootstraps credentials from AWS Secrets Manager into the
// process environment before configuration is loaded.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// EnvSecretID names the variable holding the secret to load.
const EnvSecretID = "SECRETS_MANAGER_SECRET_ID"

// SecretGetter is the subset of the Secrets Manager API used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Bootstrap loads the secret named by SECRETS_MANAGER_SECRET_ID, if set,
// using the default AWS credential chain.
func Bootstrap(ctx context.Context, logger *log.Logger) error {
	secretID := strings.TrimSpace(os.Getenv(EnvSecretID))
	if secretID == "" {
		return nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(os.Getenv("AWS_REGION")); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config for secrets: %w", err)
	}
	_, err = LoadIntoEnv(ctx, secretsmanager.NewFromConfig(cfg), secretID, logger)
	return err
}

// LoadIntoEnv reads a JSON object secret and exports each string entry as an
// environment variable. Variables that are already set are left alone. It
// returns the names that were set.
func LoadIntoEnv(ctx context.Context, client SecretGetter, secretID string, logger *log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			logger.Printf("event=secrets_load status=error secret=%s code=%s", secretID, apiErr.ErrorCode())
		}
		return nil, fmt.Errorf("failed to read secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretID)
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", secretID, err)
	}

	var set []string
	for key, raw := range values {
		value, ok := raw.(string)
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return set, fmt.Errorf("failed to set %s: %w", key, err)
		}
		set = append(set, key)
	}
	sort.Strings(set)
	logger.Printf("event=secrets_load status=ok secret=%s set=%d", secretID, len(set))
	return set, nil
}
