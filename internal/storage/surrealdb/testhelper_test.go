package surrealdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bobmcallan/coinfolio/internal/common"
)

var (
	surrealOnce    sync.Once
	surrealAddress string
	surrealError   error
)

// startSurrealDB starts one SurrealDB container per test process and returns
// its RPC address. Skipped unless COINFOLIO_TEST_DOCKER=true.
func startSurrealDB(t *testing.T) string {
	t.Helper()

	if os.Getenv("COINFOLIO_TEST_DOCKER") != "true" {
		t.Skip("Docker tests disabled (set COINFOLIO_TEST_DOCKER=true to enable)")
	}

	surrealOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		port, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealAddress = fmt.Sprintf("ws://%s:%s/rpc", host, port.Port())
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealAddress
}

// testConfig returns a config pointing at a database unique to this test.
func testConfig(t *testing.T) *common.Config {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "surrealdb"
	cfg.Storage.Address = startSurrealDB(t)
	cfg.Storage.Namespace = "coinfolio_test"
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.Storage.Database = fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
	cfg.Storage.PollInterval = "50ms"
	return cfg
}

// testManager returns a connected Manager closed at test cleanup.
func testManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(common.NewSilentLogger(), testConfig(t))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

