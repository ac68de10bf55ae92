package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterGetter is the subset of the SSM client used at cold start.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadParameterEnv fills envKey from the SSM parameter named by paramEnvKey
// when envKey is unset. An explicit environment value always wins, and a
// missing parameter name leaves the environment untouched.
func LoadParameterEnv(ctx context.Context, client ParameterGetter, envKey, paramEnvKey string) error {
	if os.Getenv(envKey) != "" {
		return nil
	}
	name := os.Getenv(paramEnvKey)
	if name == "" {
		return nil
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("read SSM parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return fmt.Errorf("SSM parameter %s has no value", name)
	}

	if err := os.Setenv(envKey, *out.Parameter.Value); err != nil {
		return fmt.Errorf("set %s: %w", envKey, err)
	}
	slog.Info("loaded setting from SSM", "env", envKey, "param", name)
	return nil
}
