package dbconn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Strategy identifies how the process reaches the database.
type Strategy string

const (
	// StrategyLocalDirect connects to local Docker Postgres.
	StrategyLocalDirect Strategy = "LOCAL_DIRECT"

	// StrategyCloudDirect connects straight to the RDS cluster endpoint.
	// Interactive development path, not built for high concurrency.
	StrategyCloudDirect Strategy = "CLOUD_DIRECT"

	// StrategyCloudProxied connects through RDS Proxy from Lambda.
	StrategyCloudProxied Strategy = "CLOUD_PROXIED"
)

const (
	defaultPort = 5432

	// Cloud connects stay short; the caller retries across the
	// serverless wake-up window, the resolver never sleeps.
	connectTimeout = 10 * time.Second

	// Statement ceiling for the cloud strategies. Local keeps the
	// driver default.
	statementTimeout = 60 * time.Second

	poolMaxOpen     = 10
	poolMaxIdle     = 5
	poolMaxLifetime = time.Hour
)

// PoolingPolicy is the local connection pool shape for a profile.
// The zero value means no local pool: Lambda invocations are short-lived
// and RDS Proxy is the pool.
type PoolingPolicy struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Pooled reports whether the policy keeps a local pool.
func (p PoolingPolicy) Pooled() bool { return p.MaxOpenConns > 0 }

// PoolNone disables local pooling.
var PoolNone = PoolingPolicy{}

// PoolBounded is the shared default for the direct strategies: a small
// base of idle connections, a capped total, recycled hourly so stale
// sockets never linger.
var PoolBounded = PoolingPolicy{
	MaxOpenConns:    poolMaxOpen,
	MaxIdleConns:    poolMaxIdle,
	ConnMaxLifetime: poolMaxLifetime,
}

// ConnectionProfile is the validated output of Resolve. The strategy
// fully determines the pooling policy and timeouts; nothing downstream
// re-derives runtime identity.
type ConnectionProfile struct {
	Strategy Strategy

	Host     string
	Port     int
	Database string
	User     string

	// DSN is the complete postgres URL consumed by the driver.
	DSN string

	Pooling          PoolingPolicy
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

// Resolve applies the strategy decision table to an environment
// snapshot. First match wins: serverless runtime beats the local flag
// unconditionally, local flag beats cloud-direct. Pure and idempotent;
// equal contexts yield equal profiles.
func Resolve(env EnvironmentContext) (*ConnectionProfile, error) {
	switch {
	case env.ServerlessRuntime:
		ep := env.Cloud
		ep.Host = env.ProxyEndpoint
		return buildProfile(StrategyCloudProxied, ep, proxiedFields, PoolNone, statementTimeout, sslMode(env, "require"))

	case env.UseLocalDB:
		return buildProfile(StrategyLocalDirect, env.Local, localFields, PoolBounded, 0, sslMode(env, "disable"))

	default:
		return buildProfile(StrategyCloudDirect, env.Cloud, cloudFields, PoolBounded, statementTimeout, sslMode(env, "require"))
	}
}

// fieldNames maps endpoint fields to the environment variables a
// ConfigError should name for each strategy.
type fieldNames struct {
	host, port, database, user, password string
}

var (
	localFields   = fieldNames{EnvLocalHost, EnvLocalPort, EnvLocalName, EnvLocalUser, EnvLocalPassword}
	cloudFields   = fieldNames{EnvCloudHost, EnvCloudPort, EnvCloudName, EnvCloudUser, EnvCloudPassword}
	proxiedFields = fieldNames{EnvProxyEndpoint, EnvCloudPort, EnvCloudName, EnvCloudUser, EnvCloudPassword}
)

func buildProfile(strategy Strategy, ep Endpoint, fields fieldNames, pooling PoolingPolicy, stmtTimeout time.Duration, ssl string) (*ConnectionProfile, error) {
	required := []struct {
		field string
		value string
	}{
		{fields.host, ep.Host},
		{fields.database, ep.Database},
		{fields.user, ep.User},
		{fields.password, ep.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &ConfigError{Strategy: strategy, Field: r.field}
		}
	}

	port := defaultPort
	if ep.Port != "" {
		p, err := strconv.Atoi(ep.Port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, &ConfigError{
				Strategy: strategy,
				Field:    fields.port,
				Reason:   fmt.Sprintf("must be a valid port, got %q", ep.Port),
			}
		}
		port = p
	}

	return &ConnectionProfile{
		Strategy:         strategy,
		Host:             ep.Host,
		Port:             port,
		Database:         ep.Database,
		User:             ep.User,
		DSN:              buildDSN(ep, port, ssl, stmtTimeout),
		Pooling:          pooling,
		ConnectTimeout:   connectTimeout,
		StatementTimeout: stmtTimeout,
	}, nil
}

// buildDSN assembles the postgres URL the driver consumes.
func buildDSN(ep Endpoint, port int, ssl string, stmtTimeout time.Duration) string {
	q := url.Values{}
	q.Set("sslmode", ssl)
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	if stmtTimeout > 0 {
		q.Set("options", fmt.Sprintf("-c statement_timeout=%d", stmtTimeout.Milliseconds()))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(ep.User, ep.Password),
		Host:     net.JoinHostPort(ep.Host, strconv.Itoa(port)),
		Path:     "/" + ep.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sslMode(env EnvironmentContext, fallback string) string {
	if env.SSLMode != "" {
		return env.SSLMode
	}
	return fallback
}
