package integration

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestIngestionFeatures runs the ingestion scenarios under features/ against
// a containerised postgres. INGEST_FEATURE_TAGS narrows the run, e.g.
// "@github && ~@slow".
func TestIngestionFeatures(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("set INTEGRATION_TEST=1 to run the ingestion feature suite")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One database for the whole suite; scenarios isolate themselves by tenant.
	tc, err := NewTestContext(ctx)
	if err != nil {
		t.Fatalf("start ingestion test context: %v", err)
	}
	defer tc.Close(ctx)

	suite := godog.TestSuite{
		Name: "ingestion",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			NewStepsContext(tc).RegisterSteps(sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     os.Getenv("INGEST_FEATURE_TAGS"),
			Strict:   true,
			TestingT: t,
		},
	}

	if status := suite.Run(); status != 0 {
		t.Fatalf("ingestion feature suite exited with status %d", status)
	}
}
