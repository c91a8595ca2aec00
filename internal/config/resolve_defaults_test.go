package config

import "testing"

func TestResolveDefaults_DeriveDriver(t *testing.T) {
	cases := []struct {
		target string
		want   string
	}{
		{"local", "sqlite"},
		{"cloud", "postgres"},
	}
	for _, tc := range cases {
		cfg := &Config{BuildTarget: tc.target, DBDriver: "auto", Timezone: "UTC", PostgresDSN: "postgres://x"}
		if err := cfg.ResolveDefaults(); err != nil {
			t.Fatalf("%s: %v", tc.target, err)
		}
		if cfg.DBDriver != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.target, tc.want, cfg.DBDriver)
		}
	}
}

func TestResolveDefaults_RejectsUnknownTarget(t *testing.T) {
	cfg := &Config{BuildTarget: "mainframe", DBDriver: "auto", Timezone: "UTC"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for unknown build target")
	}
}

func TestResolveDefaults_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "etcd", Timezone: "UTC"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestResolveDefaults_PostgresRequiresDSN(t *testing.T) {
	cfg := &Config{BuildTarget: "cloud", DBDriver: "postgres", Timezone: "UTC"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for missing DSN")
	}
}

func TestResolveDefaults_RejectsBadTimezone(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "memory", Timezone: "Mars/Olympus"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for bad timezone")
	}
}

func TestResolveDefaults_ExplicitDriverWins(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "memory", Timezone: "UTC"}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DBDriver != "memory" {
		t.Fatalf("expected memory, got %s", cfg.DBDriver)
	}
}
