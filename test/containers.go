package test

import (
	"context"
	"database/sql"
	"net"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	_ "github.com/lib/pq"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/postgres"
	"github.com/joao-fontenele/chopflow/internal/telemetry"
)

type PostgresSetup struct {
	ConnStr string
	DB      *sql.DB
	cleanup func()
}

func (p *PostgresSetup) Cleanup() {
	p.cleanup()
}

// SetupPostgres starts a migrated Postgres and opens an instrumented pool
// against it.
func SetupPostgres(ctx context.Context, t *testing.T) *PostgresSetup {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("chopflow"),
		tcpostgres.WithUsername("chopflow"),
		tcpostgres.WithPassword("chopflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := postgres.MigrateUp(migrationsPath(), connStr); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := telemetry.OpenDB(config.DatabaseConfig{URL: connStr, MaxOpenConns: 20, MaxIdleConns: 5})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}

	return &PostgresSetup{ConnStr: connStr, DB: db, cleanup: cleanup}
}

func migrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filename))
	return "file://" + filepath.Join(projectRoot, "migrations")
}

func SetupKafka(ctx context.Context, t *testing.T) ([]string, func()) {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers, cleanup
}

// CreateTopic creates a single-partition topic through the cluster controller
// so producers and consumers do not race auto-creation.
func CreateTopic(ctx context.Context, t *testing.T, brokers []string, topic string) {
	t.Helper()

	conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		t.Fatalf("failed to dial kafka: %v", err)
	}
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	if err != nil {
		t.Fatalf("failed to find kafka controller: %v", err)
	}

	controllerConn, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		t.Fatalf("failed to dial kafka controller: %v", err)
	}
	defer func() { _ = controllerConn.Close() }()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Fatalf("failed to create topic %s: %v", topic, err)
	}
}
