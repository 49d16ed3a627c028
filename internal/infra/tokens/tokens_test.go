package tokens

import (
	"strings"
	"testing"

	"chromium-pdf/internal/config"
)

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PostgresConfig
		want    string
		wantErr bool
	}{
		{
			name: "url passthrough",
			cfg:  config.PostgresConfig{Host: "postgres://user:pw@db:5432/tokens"},
			want: "postgres://user:pw@db:5432/tokens",
		},
		{
			name: "host and defaults",
			cfg:  config.PostgresConfig{Host: "db", User: "svc", Database: "tokens"},
			want: "postgres://svc@db:5432/tokens",
		},
		{
			name: "explicit port and sslmode",
			cfg:  config.PostgresConfig{Host: "db", Port: 5433, User: "svc", Password: "pw", Database: "tokens", SSLMode: "require"},
			want: "postgres://svc:pw@db:5433/tokens?sslmode=require",
		},
		{
			name: "ipv6 host gets bracketed",
			cfg:  config.PostgresConfig{Host: "::1", User: "svc", Database: "tokens"},
			want: "postgres://svc@[::1]:5432/tokens",
		},
		{name: "missing host", cfg: config.PostgresConfig{User: "svc", Database: "tokens"}, wantErr: true},
		{name: "missing database", cfg: config.PostgresConfig{Host: "db", User: "svc"}, wantErr: true},
		{name: "missing user", cfg: config.PostgresConfig{Host: "db", Database: "tokens"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PostgresDSN(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("PostgresDSN: %v", err)
			}
			if got != tc.want {
				t.Fatalf("PostgresDSN = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStoreLookups(t *testing.T) {
	SetForTest(nil)
	if Ready() {
		t.Fatalf("expected store not ready before load")
	}
	if Validate("any") {
		t.Fatalf("unloaded store must not validate keys")
	}

	SetForTest(map[string]int{"alpha": 10, "beta": 0})
	if !Ready() {
		t.Fatalf("expected store ready after load")
	}
	if !Validate("alpha") || !Validate("beta") {
		t.Fatalf("expected known keys to validate")
	}
	if Validate("gamma") {
		t.Fatalf("unknown key must not validate")
	}
	if got := RateLimit("alpha"); got != 10 {
		t.Fatalf("expected rate limit 10, got %d", got)
	}
	if got := RateLimit("beta"); got != 0 {
		t.Fatalf("expected unlimited (0), got %d", got)
	}
}

func TestLoadFromPostgres_BadConfig(t *testing.T) {
	err := LoadFromPostgres(config.PostgresConfig{})
	if err == nil || !strings.Contains(err.Error(), "host is empty") {
		t.Fatalf("expected empty-host error, got %v", err)
	}
}
