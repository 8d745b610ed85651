//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/joshu-sajeev/destinations/internal/models"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	pgDB   *sql.DB
	pgPort string
)

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	pool.MaxWait = 60 * time.Second

	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	pg, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "17-alpine",
		Env: []string{
			"POSTGRES_USER=testuser",
			"POSTGRES_PASSWORD=testpass",
			"POSTGRES_DB=destinations",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start postgres container: %s", err)
	}

	pgPort = pg.GetPort("5432/tcp")
	dsn := fmt.Sprintf(
		"host=localhost user=testuser password=testpass dbname=destinations port=%s sslmode=disable TimeZone=UTC",
		pgPort,
	)

	if err := pool.Retry(func() error {
		var err error
		pgDB, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := pgDB.PingContext(ctx); err != nil {
			pgDB.Close()
			return err
		}

		if err := Migrate(ctx, pgDB); err != nil {
			log.Printf("Failed to run migrations: %v", err)
			pgDB.Close()
			return err
		}
		return nil
	}); err != nil {
		log.Fatalf("Could not connect to postgres: %s", err)
	}

	os.Setenv("POSTGRES_USER", "testuser")
	os.Setenv("POSTGRES_PASSWORD", "testpass")
	os.Setenv("POSTGRES_DB", "destinations")
	os.Setenv("POSTGRES_HOST", "localhost")
	os.Setenv("POSTGRES_PORT", pgPort)
	os.Setenv("DB_MAX_RETRIES", "3")
	os.Setenv("DB_RETRY_DELAY", "100ms")
	os.Setenv("DB_LOG_LEVEL", "silent")

	code := m.Run()

	if pgDB != nil {
		pgDB.Close()
	}

	if err := pool.Purge(pg); err != nil {
		log.Fatalf("Could not purge postgres container: %s", err)
	}

	os.Exit(code)
}

func pgConfig() *Config {
	return &Config{
		User:           "testuser",
		Password:       "testpass",
		Host:           "localhost",
		Port:           pgPort,
		Database:       "destinations",
		MaxRetries:     3,
		RetryDelay:     100 * time.Millisecond,
		ConnectTimeout: 1,
		LogLevel:       logger.Silent,
	}
}

// setupPostgresRepo connects through ConnectDB and empties the deliveries table.
func setupPostgresRepo(tb testing.TB) (*DeliveryRepository, *gorm.DB) {
	tb.Helper()

	db, err := ConnectDB(context.Background(), pgConfig())
	require.NoError(tb, err)
	require.NoError(tb, db.Exec("TRUNCATE deliveries RESTART IDENTITY").Error)

	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewDeliveryRepository(db), db
}

func TestConnectDB(t *testing.T) {
	withPort := func(port string) *Config {
		cfg := pgConfig()
		cfg.Port = port
		cfg.MaxRetries = 2
		cfg.RetryDelay = 5 * time.Millisecond
		return cfg
	}

	tests := []struct {
		name        string
		config      *Config
		wantErr     bool
		errContains string
	}{
		{name: "loads config from environment"},
		{name: "explicit config", config: pgConfig()},
		{
			name:        "connection refused",
			config:      withPort("19999"),
			wantErr:     true,
			errContains: "database connection failed after 2 attempts",
		},
		{
			name: "invalid credentials",
			config: func() *Config {
				cfg := withPort(pgPort)
				cfg.Password = "wrongpass"
				return cfg
			}(),
			wantErr:     true,
			errContains: "invalid database credentials",
		},
		{
			name: "zero retries",
			config: func() *Config {
				cfg := pgConfig()
				cfg.MaxRetries = 0
				return cfg
			}(),
			wantErr:     true,
			errContains: "no attempts configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := ConnectDB(context.Background(), tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, db)
				return
			}

			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			defer sqlDB.Close()

			var dbName string
			require.NoError(t, db.Raw("SELECT current_database()").Scan(&dbName).Error)
			assert.Equal(t, "destinations", dbName)
			assert.Equal(t, 50, sqlDB.Stats().MaxOpenConnections)
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	require.NoError(t, Migrate(context.Background(), pgDB))

	var indexes []string
	rows, err := pgDB.Query(`SELECT indexname FROM pg_indexes WHERE tablename = 'deliveries' ORDER BY indexname`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	require.NoError(t, rows.Err())

	assert.Subset(t, indexes, []string{
		"idx_deliveries_message_id",
		"idx_deliveries_queue",
		"idx_deliveries_running_locked_at",
	})
}

func TestDeliveryRepository_PostgresDuplicate(t *testing.T) {
	repo, _ := setupPostgresRepo(t)
	ctx := context.Background()

	first := &models.Delivery{MessageID: "msg-1", Destination: "salesforce", Action: "opportunity", Payload: datatypes.JSON(`{}`), AvailableAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, first))

	dup := &models.Delivery{MessageID: "msg-1", Destination: "salesforce", Action: "opportunity", Payload: datatypes.JSON(`{}`), AvailableAt: time.Now().UTC()}
	err := repo.Create(ctx, dup)
	assert.True(t, errors.Is(err, delivery.ErrDuplicateMessage), "got %v", err)
}

func TestDeliveryRepository_PostgresConcurrentAcquire(t *testing.T) {
	repo, _ := setupPostgresRepo(t)
	ctx := context.Background()

	const total = 40
	past := time.Now().UTC().Add(-time.Minute)
	for i := range total {
		require.NoError(t, repo.Create(ctx, &models.Delivery{
			MessageID:   fmt.Sprintf("msg-%d", i),
			Destination: "podscribe",
			Action:      "track",
			Payload:     datatypes.JSON(`{}`),
			Status:      config.DeliveryStatusQueued,
			MaxRetries:  3,
			AvailableAt: past,
		}))
	}

	var (
		mu   sync.Mutex
		seen = map[uint]uint{}
		wg   sync.WaitGroup
	)
	for w := 1; w <= 8; w++ {
		wg.Add(1)
		go func(workerID uint) {
			defer wg.Done()
			for {
				d, err := repo.AcquireNext(ctx, "podscribe", workerID)
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				if d == nil {
					return
				}
				mu.Lock()
				if prev, ok := seen[d.ID]; ok {
					t.Errorf("delivery %d acquired by workers %d and %d", d.ID, prev, workerID)
				}
				seen[d.ID] = workerID
				mu.Unlock()

				if err := repo.MarkCompleted(ctx, d.ID, datatypes.JSON(`{"status_code":200}`)); err != nil {
					t.Errorf("complete: %v", err)
				}
			}
		}(uint(w))
	}
	wg.Wait()

	// A worker that lost every race for its last rows may stop early.
	for {
		d, err := repo.AcquireNext(ctx, "podscribe", 99)
		require.NoError(t, err)
		if d == nil {
			break
		}
		seen[d.ID] = 99
		require.NoError(t, repo.MarkCompleted(ctx, d.ID, nil))
	}

	assert.Len(t, seen, total)

	items, err := repo.List(ctx, "podscribe")
	require.NoError(t, err)
	for _, d := range items {
		assert.Equal(t, config.DeliveryStatusCompleted, d.Status)
		assert.Equal(t, 1, d.Attempts)
		assert.Nil(t, d.LockedBy)
	}
}
