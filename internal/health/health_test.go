package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("chain_rpc", func(_ context.Context) Status {
		return Status{Name: "chain_rpc", Healthy: false, Detail: "connection refused"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with unhealthy checker should report unhealthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Detail != "connection refused" {
		t.Fatalf("expected detail 'connection refused', got %q", statuses[1].Detail)
	}
}

type failingSource struct{}

func (failingSource) Ping(ctx context.Context) error { return errors.New("rpc unreachable") }

func TestSourceChecker(t *testing.T) {
	status := SourceChecker(failingSource{})(context.Background())
	if status.Healthy {
		t.Fatal("failing source should be unhealthy")
	}
	if status.Name != "chain_rpc" {
		t.Fatalf("expected name chain_rpc, got %q", status.Name)
	}
}

func TestScorerCheckerDegradedStillHealthy(t *testing.T) {
	status := ScorerChecker(false)(context.Background())
	if !status.Healthy {
		t.Fatal("missing model must not fail health")
	}
	if status.Detail == "" {
		t.Fatal("degraded scorer should carry a detail note")
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("checker", func(_ context.Context) Status {
				return Status{Name: "checker", Healthy: true}
			})
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}
