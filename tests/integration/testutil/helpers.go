// Package testutil содержит общие помощники интеграционных тестов.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"waterflow/pkg/config"
)

// Переменные окружения, управляющие интеграционными тестами
const (
	EnvIntegrationTests = "INTEGRATION_TESTS"
	EnvRedisAddr        = "REDIS_TEST_ADDR"
)

// SkipIfNotIntegration пропускает тест вне интеграционного прогона
func SkipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationTests) != "1" {
		t.Skip("skipping integration test; set INTEGRATION_TESTS=1 to run")
	}
}

// RequireRedis возвращает адрес Redis или пропускает тест,
// если сервер не задан либо не отвечает
func RequireRedis(t *testing.T) string {
	t.Helper()
	SkipIfNotIntegration(t)

	addr := os.Getenv(EnvRedisAddr)
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	if err := tryDial(addr); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	return addr
}

// tryDial проверяет, что по адресу кто-то слушает
func tryDial(addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// PostgresConfig собирает конфигурацию тестовой базы из окружения
func PostgresConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:            envStr("POSTGRES_HOST", "localhost"),
		Port:            envInt("POSTGRES_PORT", 5433),
		Database:        envStr("POSTGRES_DB", "waterflow_test"),
		Username:        envStr("POSTGRES_USER", "postgres"),
		Password:        envStr("POSTGRES_PASSWORD", "postgres"),
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
		AutoMigrate:     true,
	}
}

// Context возвращает контекст со стандартным тестовым таймаутом
func Context(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// ContextWithDuration возвращает контекст с заданным таймаутом
func ContextWithDuration(t *testing.T, d time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), d)
}

// Cleanup регистрирует fn на завершение теста
func Cleanup(t *testing.T, fn func()) {
	t.Helper()
	t.Cleanup(fn)
}

// RandomString возвращает hex-строку длиной n символов
func RandomString(n int) string {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)[:n]
}

// UniqueKey строит ключ, не пересекающийся между тестами и прогонами
func UniqueKey(t *testing.T, prefix string) string {
	t.Helper()
	return fmt.Sprintf("%s:%s:%s", prefix, t.Name(), RandomString(8))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
