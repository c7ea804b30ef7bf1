package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/cli"
	"quizmaster-web/internal/domain"
	"quizmaster-web/internal/infra/memory"
	"quizmaster-web/internal/infra/postgres"
	infraredis "quizmaster-web/internal/infra/redis"
)

func TestFinishedAttemptIsJournaled(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if err := cli.RunMigrations(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// a second run is a no-op
	if err := cli.RunMigrations(ctx, pgURL); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	journal := postgres.NewJournal(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	loader := memory.NewStaticQuizLoader(map[domain.Subject][]domain.Quiz{domain.SubjectMath: {sampleQuiz()}})
	quizzes := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	attempts := infraredis.NewAttemptStore(redisClient, 5*time.Minute)
	runner := app.NewRunnerService(attempts, quizzes, journal, nil)

	sess := domain.Session{Token: "t1", User: domain.User{Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser}}
	if _, err := runner.Start(ctx, "sid-1", sess, string(domain.SubjectMath)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := runner.Select(ctx, "sid-1", "4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := runner.Next(ctx, "sid-1", sess); err != nil {
		t.Fatalf("next: %v", err)
	}

	recent, err := journal.Recent(ctx, "alice@example.com", 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Score != 1 || recent[0].Total != 1 || recent[0].Subject != domain.SubjectMath {
		t.Fatalf("expected one journaled 1/1 attempt, got %+v", recent)
	}
}

func TestJournalOrdersMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()
	if err := cli.RunMigrations(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	journal := postgres.NewJournal(pool)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := domain.AttemptRecord{
			ID:         uuid.NewString(),
			UserEmail:  "bob@example.com",
			Subject:    domain.SubjectEnglish,
			Score:      i,
			Total:      3,
			FinishedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := journal.Record(ctx, rec); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	recent, err := journal.Recent(ctx, "bob@example.com", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Score != 2 || recent[1].Score != 1 {
		t.Fatalf("expected newest two attempts first, got %+v", recent)
	}
	if others, _ := journal.Recent(ctx, "nobody@example.com", 5); len(others) != 0 {
		t.Fatalf("expected no attempts for another user, got %+v", others)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		Subject: domain.SubjectMath,
		Questions: []domain.Question{
			{
				ID:           "q1",
				Number:       1,
				QuestionText: "What is 2 + 2?",
				Options: []domain.Option{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
					{Text: "5"},
					{Text: "6"},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
