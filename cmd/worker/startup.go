// cmd/worker/startup.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"ticketing-backend/pkg/container"
)

// startServices performs health checks and logs startup information
func startServices(c *container.Container) error {
	log.Println("============================================")
	log.Printf("🚀 %s Worker Starting...", c.Config.App.Name)
	log.Println("============================================")

	checks := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"Postgres Connection", c.DB.HealthCheck},
		{"Redis Connection", c.Redis.HealthCheck},
	}

	for _, check := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		log.Printf("⏳ Checking %s...", check.name)
		err := check.fn(ctx)
		cancel()
		if err != nil {
			log.Printf("❌ %s: %v", check.name, err)
			return err
		}
		log.Printf("✓ %s OK", check.name)
	}

	go startHealthCheckServer()

	return nil
}

// startHealthCheckServer starts HTTP server for health checks
func startHealthCheckServer() {
	http.HandleFunc("/health", healthCheckHandler)
	http.HandleFunc("/ready", readyCheckHandler)

	log.Println("[Health] Starting health check server on :9999")
	if err := http.ListenAndServe(":9999", nil); err != nil {
		log.Printf("[Health] Failed to start: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"UP","service":"ticketing-worker"}`))
}

// readyCheckHandler handles /ready endpoint (Kubernetes readiness probe)
func readyCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"READY"}`))
}
