package dbconn

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func localEnv() EnvironmentContext {
	return EnvironmentContext{
		UseLocalDB: true,
		Local: Endpoint{
			Host:     "localhost",
			Port:     "5432",
			Database: "mealplanner_dev",
			User:     "postgres",
			Password: "postgres",
		},
	}
}

func cloudEnv() EnvironmentContext {
	return EnvironmentContext{
		Cloud: Endpoint{
			Host:     "cluster.example.com",
			Database: "mealplanner",
			User:     "admin",
			Password: "secret",
		},
	}
}

func TestResolveLocalDirect(t *testing.T) {
	profile, err := Resolve(localEnv())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if profile.Strategy != StrategyLocalDirect {
		t.Errorf("expected strategy %s, got %s", StrategyLocalDirect, profile.Strategy)
	}
	if !strings.Contains(profile.DSN, "localhost:5432/mealplanner_dev") {
		t.Errorf("DSN missing endpoint: %s", profile.DSN)
	}
	if !profile.Pooling.Pooled() {
		t.Error("local strategy should use a bounded pool")
	}
	if profile.StatementTimeout != 0 {
		t.Errorf("local strategy should keep driver default statement timeout, got %v", profile.StatementTimeout)
	}
	if strings.Contains(profile.DSN, "statement_timeout") {
		t.Errorf("local DSN should not carry statement_timeout: %s", profile.DSN)
	}
}

func TestResolveCloudProxied(t *testing.T) {
	env := cloudEnv()
	env.ServerlessRuntime = true
	env.ProxyEndpoint = "proxy.example.com"

	profile, err := Resolve(env)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if profile.Strategy != StrategyCloudProxied {
		t.Errorf("expected strategy %s, got %s", StrategyCloudProxied, profile.Strategy)
	}
	if profile.Host != "proxy.example.com" {
		t.Errorf("expected proxy host, got %s", profile.Host)
	}
	if profile.Pooling.Pooled() {
		t.Error("proxied strategy must not keep a local pool")
	}
	if profile.StatementTimeout != 60*time.Second {
		t.Errorf("expected 60s statement timeout, got %v", profile.StatementTimeout)
	}
	if !strings.Contains(profile.DSN, "statement_timeout%3D60000") {
		t.Errorf("DSN missing statement timeout option: %s", profile.DSN)
	}
}

func TestResolveCloudDirect(t *testing.T) {
	profile, err := Resolve(cloudEnv())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if profile.Strategy != StrategyCloudDirect {
		t.Errorf("expected strategy %s, got %s", StrategyCloudDirect, profile.Strategy)
	}
	if profile.Pooling != PoolBounded {
		t.Errorf("expected bounded pool, got %+v", profile.Pooling)
	}
}

func TestServerlessMarkerBeatsLocalFlag(t *testing.T) {
	env := cloudEnv()
	env.ServerlessRuntime = true
	env.ProxyEndpoint = "proxy.example.com"
	env.UseLocalDB = true
	env.Local = localEnv().Local

	profile, err := Resolve(env)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if profile.Strategy != StrategyCloudProxied {
		t.Errorf("runtime marker must win over local flag, got %s", profile.Strategy)
	}
}

func TestResolveIdempotent(t *testing.T) {
	env := localEnv()

	first, err := Resolve(env)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := Resolve(env)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("profiles differ:\n%+v\n%+v", first, second)
	}
}

func TestResolvePortDefault(t *testing.T) {
	env := localEnv()
	env.Local.Port = ""

	profile, err := Resolve(env)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if profile.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", profile.Port)
	}
}

func TestResolveMissingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EnvironmentContext)
		field  string
	}{
		{"EmptyCloudHost", func(e *EnvironmentContext) { e.Cloud.Host = "" }, EnvCloudHost},
		{"EmptyCloudPassword", func(e *EnvironmentContext) { e.Cloud.Password = "" }, EnvCloudPassword},
		{"EmptyCloudName", func(e *EnvironmentContext) { e.Cloud.Database = "" }, EnvCloudName},
		{"EmptyCloudUser", func(e *EnvironmentContext) { e.Cloud.User = "" }, EnvCloudUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := cloudEnv()
			tt.mutate(&env)

			profile, err := Resolve(env)
			if profile != nil {
				t.Fatal("profile must not be returned on config error")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
			if cfgErr.Strategy != StrategyCloudDirect {
				t.Errorf("expected strategy %s, got %s", StrategyCloudDirect, cfgErr.Strategy)
			}
		})
	}
}

func TestResolveMissingProxyEndpoint(t *testing.T) {
	env := cloudEnv()
	env.ServerlessRuntime = true

	_, err := Resolve(env)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != EnvProxyEndpoint {
		t.Errorf("expected field %s, got %s", EnvProxyEndpoint, cfgErr.Field)
	}
}

func TestResolveMalformedPort(t *testing.T) {
	env := localEnv()
	env.Local.Port = "not-a-port"

	_, err := Resolve(env)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != EnvLocalPort {
		t.Errorf("expected field %s, got %s", EnvLocalPort, cfgErr.Field)
	}
}

func TestDirectStrategiesShareBounds(t *testing.T) {
	local, err := Resolve(localEnv())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	cloud, err := Resolve(cloudEnv())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if local.Pooling != cloud.Pooling {
		t.Errorf("pool bounds differ: %+v vs %+v", local.Pooling, cloud.Pooling)
	}
}

func TestSSLModeDefaults(t *testing.T) {
	local, _ := Resolve(localEnv())
	if !strings.Contains(local.DSN, "sslmode=disable") {
		t.Errorf("local DSN should disable ssl: %s", local.DSN)
	}

	cloud, _ := Resolve(cloudEnv())
	if !strings.Contains(cloud.DSN, "sslmode=require") {
		t.Errorf("cloud DSN should require ssl: %s", cloud.DSN)
	}

	env := cloudEnv()
	env.SSLMode = "verify-full"
	overridden, _ := Resolve(env)
	if !strings.Contains(overridden.DSN, "sslmode=verify-full") {
		t.Errorf("DSN should honor DB_SSLMODE override: %s", overridden.DSN)
	}
}
