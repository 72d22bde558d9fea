package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"account_service/internal/config"
)

var ErrNoSigningKey = errors.New("signing key is not configured")

// SigningKey resolves the token signing key once at startup. In live
// environments the key lives in SSM Parameter Store; locally it comes
// straight from config. Rotation is not supported — a changed key simply
// invalidates all outstanding tokens.
func SigningKey(ctx context.Context, cfg *config.Config) (string, error) {
	const op = "secrets.SigningKey"

	if !cfg.Secrets.SSMEnabled {
		if cfg.Secrets.SigningKey == "" {
			return "", fmt.Errorf("%s: %w", op, ErrNoSigningKey)
		}

		return cfg.Secrets.SigningKey, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: failed to load aws config: %w", op, err)
	}

	client := ssm.NewFromConfig(awsCfg)

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.Secrets.SigningKeyName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to fetch parameter: %w", op, err)
	}

	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoSigningKey)
	}

	return *out.Parameter.Value, nil
}
