//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestLivez(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" || len(body.Checks) != 0 {
		t.Fatalf("expected ok without failing checks, got %+v", body)
	}
}

// The API runs against postgres and redis, so readiness covers both.
func TestReadyz_StoreAndLock(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %+v", body)
	}
}

func TestReadyz_RedisOutage(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for several health check rounds")
	}
	ctx := context.Background()

	redis, err := stack.ServiceContainer(ctx, "redis")
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	stopTimeout := 5 * time.Second
	if err := redis.Stop(ctx, &stopTimeout); err != nil {
		t.Fatalf("stop redis: %v", err)
	}
	restarted := false
	t.Cleanup(func() {
		if !restarted {
			_ = redis.Start(context.Background())
		}
	})

	body := waitForReadiness(t, http.StatusServiceUnavailable, 90*time.Second)
	if body.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", body.Status)
	}
	if body.Checks["redis"] == "" {
		t.Errorf("expected a failing redis check, got %v", body.Checks)
	}
	if _, ok := body.Checks["store"]; ok {
		t.Errorf("store check should still pass, got %v", body.Checks)
	}

	live := doGet(t, "/livez")
	live.Body.Close()
	if live.StatusCode != http.StatusOK {
		t.Errorf("liveness must not depend on redis, got %d", live.StatusCode)
	}

	if err := redis.Start(ctx); err != nil {
		t.Fatalf("start redis: %v", err)
	}
	restarted = true
	waitForReadiness(t, http.StatusOK, 90*time.Second)
}

func waitForReadiness(t *testing.T, status int, timeout time.Duration) healthResponse {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var last int
	for time.Now().Before(deadline) {
		resp := doGet(t, "/readyz")
		last = resp.StatusCode
		if resp.StatusCode == status {
			body := decodeJSON[healthResponse](t, resp)
			resp.Body.Close()
			return body
		}
		resp.Body.Close()
		time.Sleep(time.Second)
	}
	t.Fatalf("readyz did not answer %d within %s, last %d", status, timeout, last)
	return healthResponse{}
}
