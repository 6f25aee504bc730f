// Command ingest-lambda runs one provider sync per AWS Lambda invocation.
//
// The event names the target:
//
//	{"provider": "github"}
//
// Any provider name, "all" or "post-process" is accepted. An unconfigured
// provider answers 200 with skipped set so scheduled rules for optional
// providers do not alarm.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		logging.Must("info").Error("failed to load configuration", zap.Error(err))
		os.Exit(1)
	}
	logger := logging.Must(cfg.LogLevel)

	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	lambda.Start(NewHandler(app.Runner, logger).Handle)
}
