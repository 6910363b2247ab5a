package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInit_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Init()

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 25, cfg.PostsPerPage)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, "microblog-tasks", cfg.KafkaTopic)
	assert.Equal(t, "microblog", cfg.CassandraKeyspace)
	assert.Empty(t, cfg.SMTPHost)
}

func TestInit_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODE", "worker")
	t.Setenv("POSTS_PER_PAGE", "10")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("KAFKA_WRITE_TIMEOUT", "not-a-duration")
	t.Setenv("WORKER_COUNT", "3")

	cfg := Init()

	assert.Equal(t, "worker", cfg.Mode)
	assert.Equal(t, 10, cfg.PostsPerPage)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.KafkaWriteTO, "invalid duration falls back to default")
	assert.Equal(t, 3, cfg.WorkerCount)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
}
