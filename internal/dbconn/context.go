package dbconn

import "os"

// Environment variable names consumed by LoadEnvironment.
const (
	EnvLambdaMarker      = "AWS_LAMBDA_FUNCTION_NAME"
	EnvUseLocalDB        = "USE_LOCAL_DB"
	EnvProxyEndpoint     = "RDS_PROXY_ENDPOINT"
	EnvUseSecretsManager = "USE_SECRETS_MANAGER"
	EnvSecretName        = "DB_SECRET_NAME"
	EnvRegion            = "AWS_REGION"
	EnvSSLMode           = "DB_SSLMODE"

	EnvLocalHost     = "LOCAL_DB_HOST"
	EnvLocalPort     = "LOCAL_DB_PORT"
	EnvLocalName     = "LOCAL_DB_NAME"
	EnvLocalUser     = "LOCAL_DB_USER"
	EnvLocalPassword = "LOCAL_DB_PASSWORD"

	EnvCloudHost     = "DB_HOST"
	EnvCloudPort     = "DB_PORT"
	EnvCloudName     = "DB_NAME"
	EnvCloudUser     = "DB_USER"
	EnvCloudPassword = "DB_PASSWORD"
)

// Endpoint is one set of connection coordinates. Port stays a string
// until resolution so a malformed value surfaces as a ConfigError
// rather than a silent zero.
type Endpoint struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// EnvironmentContext is an immutable snapshot of the process environment
// taken at startup. If the environment changes, build a new context and
// a new engine; nothing rereads the environment after this point.
type EnvironmentContext struct {
	// ServerlessRuntime is true when running inside Lambda. It takes
	// precedence over UseLocalDB unconditionally.
	ServerlessRuntime bool

	// UseLocalDB selects the local Docker database for non-serverless runs.
	UseLocalDB bool

	// Local and Cloud are the two endpoint sets. The proxied strategy
	// uses Cloud credentials with ProxyEndpoint as the host.
	Local Endpoint
	Cloud Endpoint

	ProxyEndpoint string

	// Secret sourcing. When UseSecretsManager is set, main swaps the
	// Cloud credentials for a Secrets Manager lookup before resolving.
	UseSecretsManager bool
	SecretName        string
	Region            string

	// SSLMode overrides the per-strategy default when set.
	SSLMode string
}

// LoadEnvironment snapshots the environment through lookup, which
// defaults to os.LookupEnv when nil. Tests pass a map-backed lookup.
func LoadEnvironment(lookup func(string) (string, bool)) EnvironmentContext {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	_, inLambda := lookup(EnvLambdaMarker)

	return EnvironmentContext{
		ServerlessRuntime: inLambda,
		UseLocalDB:        get(EnvUseLocalDB) == "true",
		Local: Endpoint{
			Host:     get(EnvLocalHost),
			Port:     get(EnvLocalPort),
			Database: get(EnvLocalName),
			User:     get(EnvLocalUser),
			Password: get(EnvLocalPassword),
		},
		Cloud: Endpoint{
			Host:     get(EnvCloudHost),
			Port:     get(EnvCloudPort),
			Database: get(EnvCloudName),
			User:     get(EnvCloudUser),
			Password: get(EnvCloudPassword),
		},
		ProxyEndpoint:     get(EnvProxyEndpoint),
		UseSecretsManager: get(EnvUseSecretsManager) == "true",
		SecretName:        get(EnvSecretName),
		Region:            get(EnvRegion),
		SSLMode:           get(EnvSSLMode),
	}
}

// WithCloudCredentials returns a copy of the context with the cloud
// endpoint replaced by creds. Used to splice in Secrets Manager values
// without mutating the original snapshot.
func (e EnvironmentContext) WithCloudCredentials(creds Credentials) EnvironmentContext {
	e.Cloud = Endpoint{
		Host:     creds.Host,
		Port:     creds.Port,
		Database: creds.Database,
		User:     creds.User,
		Password: creds.Password,
	}
	return e
}
