// Package main runs the landings API behind API Gateway (HTTP API, payload
// v2) on AWS Lambda.
//
// Configuration comes from the environment as for the server binary, with
// two differences:
//   - SESSION_BACKEND defaults to dynamodb, since a function instance holds
//     no state between invocations.
//   - DATABASE_URL may be read from SSM Parameter Store at cold start by
//     setting SSM_DATABASE_URL_PARAM to the parameter name.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/JonMunkholm/catchcert/internal/app"
	"github.com/JonMunkholm/catchcert/internal/config"
	"github.com/JonMunkholm/catchcert/internal/logging"
)

func main() {
	ctx := context.Background()

	if os.Getenv("SESSION_BACKEND") == "" {
		os.Setenv("SESSION_BACKEND", config.SessionBackendDynamo)
	}

	if os.Getenv("DATABASE_URL") == "" && os.Getenv("SSM_DATABASE_URL_PARAM") != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if err := app.LoadParameterEnv(ctx, ssm.NewFromConfig(awsCfg), "DATABASE_URL", "SSM_DATABASE_URL_PARAM"); err != nil {
			slog.Error("failed to load database URL", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// CloudWatch indexes JSON lines
	logging.Setup(cfg.Logging.Level, "json")

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	slog.Info("lambda handler initialized", "session_backend", cfg.Session.Backend)

	adapter := httpadapter.NewV2(a.Server.Handler())
	lambda.Start(adapter.ProxyWithContext)
}
