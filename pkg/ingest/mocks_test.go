package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

const testTenant = "8b0f6c1e-3f51-4c4e-9d0a-3a0f0c6b2d11"

// MockRunStore implements store.RunStore for testing using testify/mock
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) StartRun(ctx context.Context, run store.RunStart) (string, error) {
	args := m.Called(run)
	return args.String(0), args.Error(1)
}

func (m *MockRunStore) FinishRun(ctx context.Context, result store.RunResult) error {
	args := m.Called(result)
	return args.Error(0)
}

func (m *MockRunStore) RecentRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	args := m.Called(filter)
	return args.Get(0).([]store.Run), args.Error(1)
}

// fakeConnector returns canned counts or an error, or panics.
type fakeConnector struct {
	typ    provider.Type
	counts store.Counts
	err    error
	panic  any
	calls  int
}

func (f *fakeConnector) Provider() provider.Type { return f.typ }

func (f *fakeConnector) Sync(ctx context.Context) (store.Counts, error) {
	f.calls++
	if f.panic != nil {
		panic(f.panic)
	}
	return f.counts, f.err
}

// recordingUpserter keeps committed batches and drops rolled back ones.
type recordingUpserter struct {
	committed []store.Batch
	pending   []store.Batch
	failOn    int
	calls     int
}

func (u *recordingUpserter) UpsertBatch(ctx context.Context, b store.Batch) (int64, error) {
	u.calls++
	if u.failOn > 0 && u.calls == u.failOn {
		return 0, errors.New("write failed")
	}
	u.pending = append(u.pending, b)
	return int64(len(b.Rows)), nil
}

func (u *recordingUpserter) Transaction(ctx context.Context, fn func(store.Upserter) error) error {
	u.pending = nil
	if err := fn(u); err != nil {
		u.pending = nil
		return err
	}
	u.committed = append(u.committed, u.pending...)
	u.pending = nil
	return nil
}

// memRunStore is an in-memory run ledger.
type memRunStore struct {
	runs []store.Run
}

func (s *memRunStore) StartRun(ctx context.Context, run store.RunStart) (string, error) {
	id := fmt.Sprintf("run-%d", len(s.runs)+1)
	s.runs = append(s.runs, store.Run{ID: id, TenantID: run.Tenant, Provider: run.Provider, Status: store.RunStatusRunning})
	return id, nil
}

func (s *memRunStore) FinishRun(ctx context.Context, result store.RunResult) error {
	for i := range s.runs {
		if s.runs[i].ID == result.ID {
			s.runs[i].Status = result.Status
			s.runs[i].RecordsUpserted = result.RecordsUpserted
			if result.ErrorMessage != "" {
				msg := result.ErrorMessage
				s.runs[i].ErrorMessage = &msg
			}
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memRunStore) RecentRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	return s.runs, nil
}

type stepFunc func(ctx context.Context) (store.Counts, error)

func (f stepFunc) Resolve(ctx context.Context) (store.Counts, error) { return f(ctx) }
func (f stepFunc) Rebuild(ctx context.Context) (store.Counts, error) { return f(ctx) }

type notifierFunc func(ctx context.Context, tenant string, counts store.Counts) error

func (f notifierFunc) PostProcessCompleted(ctx context.Context, tenant string, counts store.Counts) error {
	return f(ctx, tenant, counts)
}

func staticFactory(c Connector, configured bool) Factory {
	return Factory{
		Configured: func(*config.Config) bool { return configured },
		New: func(context.Context, Deps) (Connector, error) {
			return c, nil
		},
	}
}
