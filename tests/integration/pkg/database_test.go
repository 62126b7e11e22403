//go:build integration

package pkg_test

import (
	"testing"
	"time"

	"waterflow/internal/repository"
	"waterflow/migrations"
	"waterflow/pkg/database"
	"waterflow/tests/integration/testutil"
)

func setupRunRepository(t *testing.T) repository.RunRepository {
	t.Helper()
	testutil.SkipIfNotIntegration(t)

	ctx, cancel := testutil.Context(t)
	t.Cleanup(cancel)

	cfg := testutil.PostgresConfig()
	db, err := database.NewPostgresDB(ctx, cfg)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	testutil.Cleanup(t, func() { db.Close() })

	if err := database.RunMigrations(ctx, db.Pool(), cfg, migrations.PostgresMigrations, "postgres"); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	return repository.NewPostgresRunRepository(db)
}

func sampleRun(userID, name string) *repository.Run {
	return &repository.Run{
		UserID:       userID,
		Name:         name,
		Algorithm:    "blocking_flow",
		FlowValue:    42.5,
		Reason:       "converged",
		Iterations:   7,
		DurationMs:   1.25,
		NodeCount:    4,
		EdgeCount:    4,
		RequestData:  []byte(`{"network":{}}`),
		ResponseData: []byte(`{"value":42.5}`),
		Tags:         []string{"integration"},
	}
}

func TestPostgresDB_Connect(t *testing.T) {
	testutil.SkipIfNotIntegration(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	cfg := testutil.PostgresConfig()

	db, err := database.NewPostgresDB(ctx, cfg)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	testutil.Cleanup(t, func() { db.Close() })

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := setupRunRepository(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	userID := testutil.UniqueKey(t, "user")
	run := sampleRun(userID, "integration create")

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	t.Cleanup(func() { repo.Delete(ctx, run.ID) })

	got, err := repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "integration create" {
		t.Errorf("Name = %q, want %q", got.Name, "integration create")
	}
	if got.FlowValue != 42.5 {
		t.Errorf("FlowValue = %v, want 42.5", got.FlowValue)
	}
	if got.Algorithm != "blocking_flow" {
		t.Errorf("Algorithm = %q, want blocking_flow", got.Algorithm)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "integration" {
		t.Errorf("Tags = %v, want [integration]", got.Tags)
	}
}

func TestRunRepository_OwnerAccess(t *testing.T) {
	repo := setupRunRepository(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	owner := testutil.UniqueKey(t, "owner")
	stranger := testutil.UniqueKey(t, "stranger")
	run := sampleRun(owner, "owner access")

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { repo.Delete(ctx, run.ID) })

	if _, err := repo.GetByUserAndID(ctx, owner, run.ID); err != nil {
		t.Errorf("owner should read own run: %v", err)
	}

	if _, err := repo.GetByUserAndID(ctx, stranger, run.ID); err == nil {
		t.Error("stranger should not read foreign run")
	}

	if err := repo.DeleteByUserAndID(ctx, stranger, run.ID); err == nil {
		t.Error("stranger should not delete foreign run")
	}
}

func TestRunRepository_ListAndFilter(t *testing.T) {
	repo := setupRunRepository(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	userID := testutil.UniqueKey(t, "user")

	for i, algorithm := range []string{"blocking_flow", "blocking_flow", "preflow_push"} {
		run := sampleRun(userID, "list run")
		run.Algorithm = algorithm
		run.FlowValue = float64(10 * (i + 1))
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		id := run.ID
		t.Cleanup(func() { repo.Delete(ctx, id) })
	}

	runs, total, err := repo.List(ctx, userID, &repository.ListOptions{
		Limit: 10,
		Sort:  repository.SortByCreatedDesc,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 3 {
		t.Errorf("len(runs) = %d, want 3", len(runs))
	}

	filtered, total, err := repo.List(ctx, userID, &repository.ListOptions{
		Limit:  10,
		Filter: &repository.ListFilter{Algorithm: "preflow_push"},
	})
	if err != nil {
		t.Fatalf("filtered List failed: %v", err)
	}
	if total != 1 || len(filtered) != 1 {
		t.Errorf("filtered: total=%d len=%d, want 1/1", total, len(filtered))
	}
}

func TestRunRepository_Search(t *testing.T) {
	repo := setupRunRepository(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	userID := testutil.UniqueKey(t, "user")
	marker := testutil.RandomString(12)
	run := sampleRun(userID, "pump station "+marker)

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { repo.Delete(ctx, run.ID) })

	found, err := repo.Search(ctx, userID, marker, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Search returned %d runs, want 1", len(found))
	}
	if found[0].ID != run.ID {
		t.Errorf("Search returned run %s, want %s", found[0].ID, run.ID)
	}
}

func TestRunRepository_Statistics(t *testing.T) {
	repo := setupRunRepository(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	userID := testutil.UniqueKey(t, "user")
	run := sampleRun(userID, "stats run")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { repo.Delete(ctx, run.ID) })

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	stats, err := repo.GetStatistics(ctx, userID, &start, &end)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalRuns != 1 {
		t.Errorf("TotalRuns = %d, want 1", stats.TotalRuns)
	}
	if stats.AverageFlowValue != 42.5 {
		t.Errorf("AverageFlowValue = %v, want 42.5", stats.AverageFlowValue)
	}
}

func TestRunRepository_Delete(t *testing.T) {
	repo := setupRunRepository(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	userID := testutil.UniqueKey(t, "user")
	run := sampleRun(userID, "delete run")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(ctx, run.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := repo.GetByID(ctx, run.ID); err == nil {
		t.Error("GetByID after Delete should fail")
	}
}
