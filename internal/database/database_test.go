package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fema-catalog/internal/catalog"
	catalogdb "fema-catalog/internal/catalog/db"
	"fema-catalog/internal/config"
	"fema-catalog/internal/database"
	"fema-catalog/internal/database/migrations"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestOpen_SQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, logger.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.False(t, database.IsPostgres(db))
	require.NoError(t, database.Prepare(ctx, db, logger.NewNopLogger()))
	// Running twice must be harmless.
	require.NoError(t, database.CreateSchema(ctx, db))

	user := &models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	event := &models.Event{DeclarationID: "DR-4000-CA", FemaID: 4000, StateID: "CA"}
	_, err = db.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	link := &models.SavedSearch{UsersID: user.ID, EventsID: event.ID}
	_, err = db.NewInsert().Model(link).Exec(ctx)
	require.NoError(t, err)

	dup := &models.SavedSearch{UsersID: user.ID, EventsID: event.ID}
	_, err = db.NewInsert().Model(dup).Exec(ctx)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"}, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, database.IsUniqueViolation(nil))
	assert.False(t, database.IsUniqueViolation(errors.New("disk I/O error")))
	assert.True(t, database.IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
	assert.True(t, database.IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, database.IsUniqueViolation(&pq.Error{Code: "23503"}))
}

// TestPostgresMigrations applies the embedded migrations to a real postgres
// container, checks the bookmark constraint there and runs the date filters
// under a session zone west of UTC.
func TestPostgresMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "catalog",
				"POSTGRES_PASSWORD": "catalog",
				"POSTGRES_DB":       "disasters",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Docker unavailable: %v", err)
	}
	defer pg.Terminate(ctx)

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	log := logger.NewNopLogger()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver:       "postgres",
		DSN:          fmt.Sprintf("postgres://catalog:catalog@%s:%s/disasters?sslmode=disable&timezone=America/Los_Angeles", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		MaxLifetime:  time.Minute,
	}, log)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, database.IsPostgres(db))
	require.NoError(t, database.Prepare(ctx, db, log))

	user := &models.User{Username: "grace", Email: "grace@example.com", PasswordHash: "x"}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	event := &models.Event{DeclarationID: "DR-4100-OR", FemaID: 4100, StateID: "OR"}
	_, err = db.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&models.SavedSearch{UsersID: user.ID, EventsID: event.ID}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.SavedSearch{UsersID: user.ID, EventsID: event.ID}).Exec(ctx)
	assert.True(t, database.IsUniqueViolation(err))

	var zone string
	require.NoError(t, db.NewRaw("SHOW TIME ZONE").Scan(ctx, &zone))
	require.Equal(t, "America/Los_Angeles", zone)

	store := &catalogdb.DB{Bun: db}
	march := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEvents(ctx, []models.Event{
		{DeclarationID: "DR", FemaID: 4500, StateID: "WA", County: "King", DeclaredOn: march},
		{DeclarationID: "DR", FemaID: 4500, StateID: "WA", County: "Pierce", DeclaredOn: march},
		{DeclarationID: "DR", FemaID: 4501, StateID: "WA", County: "King", DeclaredOn: march.AddDate(0, 0, -15)},
		{DeclarationID: "DR", FemaID: 4502, StateID: "WA", County: "King", DeclaredOn: march.AddDate(1, 0, 0)},
	}))

	cases := []struct {
		month int
		want  []int
	}{
		{3, []int{4500}},
		{2, []int{4501}},
	}
	for _, tc := range cases {
		c := catalog.Criteria{Year: catalog.Int(2020), Month: catalog.Int(tc.month)}

		total, err := store.CountDisasters(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, len(tc.want), total, "month %d", tc.month)

		events, err := store.ListEvents(ctx, c, 0)
		require.NoError(t, err)
		got := make([]int, 0, len(events))
		for _, e := range events {
			got = append(got, e.FemaID)
		}
		assert.Equal(t, tc.want, got, "month %d", tc.month)
	}

	runner := migrations.NewRunner(db, log)
	defer runner.Close()
	require.NoError(t, runner.MigrateDown())

	var exists bool
	err = db.NewRaw("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'events')").Scan(ctx, &exists)
	require.NoError(t, err)
	assert.False(t, exists)
}
