package tracing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{ServiceName: "forkful-test", Enabled: false})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider should be a no-op, got %v", err)
	}
	if provider.Tracer("x") == nil {
		t.Error("expected a fallback tracer")
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{Enabled: true, SamplingRate: 0.5},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "negative sampling rate",
			cfg:     Config{ServiceName: "svc", Enabled: true, SamplingRate: -0.1},
			wantErr: ErrInvalidSamplingRate,
		},
		{
			name:    "sampling rate above one",
			cfg:     Config{ServiceName: "svc", Enabled: true, SamplingRate: 1.5},
			wantErr: ErrInvalidSamplingRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(Config{
		ServiceName:  "svc",
		Enabled:      true,
		ExporterType: "zipkin",
		SamplingRate: 0.1,
	})
	if err == nil {
		t.Fatal("expected error for unsupported exporter type")
	}
}

func TestNewProvider_Exporters(t *testing.T) {
	for _, exporter := range []string{ExporterOTLPHTTP, ExporterOTLPGRPC, ""} {
		t.Run("exporter "+exporter, func(t *testing.T) {
			provider, err := NewProvider(Config{
				ServiceName:  "forkful-test",
				Enabled:      true,
				Environment:  "test",
				ExporterType: exporter,
				SamplingRate: 0.25,
				InsecureMode: true,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !provider.IsEnabled() {
				t.Error("expected tracing to be enabled")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(ctx)
		})
	}
}
