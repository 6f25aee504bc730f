package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/db"
	"github.com/alxnderia/ingestion/pkg/server"
	"github.com/alxnderia/ingestion/pkg/store"
	gormstore "github.com/alxnderia/ingestion/pkg/store/gorm"
)

// StepsContext holds state shared between step definitions of one scenario
type StepsContext struct {
	tc           *TestContext
	tenant       string
	results      store.Counts
	server       *httptest.Server
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.server != nil {
			s.server.Close()
		}
		return ctx, err
	})

	// Tenant steps
	sc.Step(`^a fresh tenant$`, s.aFreshTenant)
	sc.Step(`^I switch to a fresh tenant$`, s.aFreshTenant)
	sc.Step(`^the tenant has (\d+) live rows? in "([^"]*)"$`, s.theTenantHasLiveRowsIn)

	// Upsert steps
	sc.Step(`^I upsert the Google Workspace user "([^"]*)" with email "([^"]*)"$`, s.iUpsertTheGoogleWorkspaceUser)
	sc.Step(`^the Google Workspace user "([^"]*)" has email "([^"]*)"$`, s.theGoogleWorkspaceUserHasEmail)

	// Post-processing steps
	sc.Step(`^a canonical user with email "([^"]*)"$`, s.aCanonicalUserWithEmail)
	sc.Step(`^the AWS account "([^"]*)" named "([^"]*)"$`, s.theAWSAccountNamed)
	sc.Step(`^the AWS Identity Center user "([^"]*)" with email "([^"]*)"$`, s.theAWSIdentityCenterUser)
	sc.Step(`^the AWS group "([^"]*)" named "([^"]*)" containing user "([^"]*)"$`, s.theAWSGroupContainingUser)
	sc.Step(`^the AWS group "([^"]*)" is assigned "([^"]*)" on account "([^"]*)"$`, s.theAWSGroupIsAssigned)
	sc.Step(`^the GitHub user "([^"]*)" with email "([^"]*)"$`, s.theGithubUserWithEmail)
	sc.Step(`^I run post-processing$`, s.iRunPostProcessing)
	sc.Step(`^the result "([^"]*)" should be (\d+)$`, s.theResultShouldBe)
	sc.Step(`^the AWS user "([^"]*)" should be linked to the canonical user "([^"]*)"$`, s.theAWSUserShouldBeLinked)
	sc.Step(`^a live "([^"]*)" grant on account "([^"]*)" should belong to the canonical user "([^"]*)"$`, s.aLiveGrantShouldBelongTo)
	sc.Step(`^(\d+) pending reconciliation entr(?:y|ies) should exist for "([^"]*)"$`, s.pendingReconciliationEntries)

	// Status API steps
	sc.Step(`^a "([^"]*)" run for provider "([^"]*)" with (\d+) records$`, s.aRunForProvider)
	sc.Step(`^the status server is running$`, s.theStatusServerIsRunning)
	sc.Step(`^the status server is running with JWT secret "([^"]*)"$`, s.theStatusServerIsRunningWithSecret)
	sc.Step(`^I GET "([^"]*)"$`, s.iGet)
	sc.Step(`^I GET "([^"]*)" with a token signed by "([^"]*)"$`, s.iGetWithToken)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response should list (\d+) runs? for "([^"]*)"$`, s.theResponseShouldListRuns)
}

func (s *StepsContext) aFreshTenant() error {
	s.tenant = uuid.NewString()
	return nil
}

func (s *StepsContext) theTenantHasLiveRowsIn(expected int, table string) error {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = ? AND deleted_at IS NULL", table)
	if err := s.tc.DB.Raw(query, s.tenant).Scan(&n).Error; err != nil {
		return err
	}
	if n != int64(expected) {
		return fmt.Errorf("expected %d live rows in %s, got %d", expected, table, n)
	}
	return nil
}

// Status API steps

func (s *StepsContext) aRunForProvider(status, providerName string, records int) error {
	runs := gormstore.NewRunStore(s.tc.DB)
	ctx := context.Background()

	id, err := runs.StartRun(ctx, store.RunStart{Tenant: s.tenant, Provider: providerName})
	if err != nil {
		return err
	}
	runStatus, err := store.RunStatusString(status)
	if err != nil {
		return err
	}
	return runs.FinishRun(ctx, store.RunResult{
		ID:              id,
		Tenant:          s.tenant,
		Status:          runStatus,
		RecordsUpserted: int64(records),
	})
}

func (s *StepsContext) theStatusServerIsRunning() error {
	return s.theStatusServerIsRunningWithSecret("")
}

func (s *StepsContext) theStatusServerIsRunningWithSecret(secret string) error {
	srv := server.NewServer(
		server.Config{Tenant: s.tenant, JWTSecret: secret},
		gormstore.NewRunStore(s.tc.DB),
		func(ctx context.Context) error { return db.Ping(ctx, s.tc.DB) },
		nil,
	)
	s.server = httptest.NewServer(srv.Router)
	return nil
}

func (s *StepsContext) iGet(path string) error {
	return s.doGet(path, "")
}

func (s *StepsContext) iGetWithToken(path, secret string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}
	return s.doGet(path, signed)
}

func (s *StepsContext) doGet(path, token string) error {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(field, expected string) error {
	var body map[string]any
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if got := fmt.Sprint(body[field]); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseShouldListRuns(expected int, providerName string) error {
	var body struct {
		Runs []store.Run `json:"runs"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse runs: %w", err)
	}
	if len(body.Runs) != expected {
		return fmt.Errorf("expected %d runs, got %d", expected, len(body.Runs))
	}
	for _, r := range body.Runs {
		if r.Provider != providerName {
			return fmt.Errorf("unexpected run for provider %q", r.Provider)
		}
		if r.TenantID != s.tenant {
			return fmt.Errorf("run %s belongs to tenant %s", r.ID, r.TenantID)
		}
	}
	return nil
}

// app wires the pipeline for the current tenant.
func (s *StepsContext) app() *bootstrap.App {
	cfg := &config.Config{TenantID: s.tenant, BatchSize: store.PageSize}
	return bootstrap.New(cfg, s.tc.DB, nil)
}
