package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/clock"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	logger := discardLogger()
	sm := NewServiceManager(memory.NewMemoryRepository(), clock.NewMock(t0), events.NewMockEventPublisher(logger), logger, validator.New(),
		ServiceManagerConfig{SweepInterval: time.Minute, DefaultTimeout: time.Second})
	ctx := context.Background()

	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() before Initialize must fail")
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Attempt() before Initialize must panic")
			}
		}()
		sm.Attempt()
	}()

	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sm.Attempt() == nil || sm.Report() == nil || !sm.Sweeper().Enabled() {
		t.Error("services not wired")
	}
	if err := sm.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() after Shutdown must fail")
	}
}

func TestServiceManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServiceManagerConfig
		wantErr bool
	}{
		{name: "defaults", config: ServiceManagerConfig{DefaultTimeout: time.Second}},
		{name: "negative interval", config: ServiceManagerConfig{SweepInterval: -time.Second, DefaultTimeout: time.Second}, wantErr: true},
		{name: "missing timeout", config: ServiceManagerConfig{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
