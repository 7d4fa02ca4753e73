package dbconn

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Credentials is one resolved credential set.
type Credentials struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// CredentialSource abstracts where credentials come from so the
// resolver's contract is independent of plain env vars vs a secret
// store.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// EnvCredentialSource serves the cloud credentials already captured in
// an EnvironmentContext.
type EnvCredentialSource struct {
	Env EnvironmentContext
}

// Credentials returns the cloud endpoint from the snapshot.
func (s EnvCredentialSource) Credentials(ctx context.Context) (Credentials, error) {
	return Credentials{
		Host:     s.Env.Cloud.Host,
		Port:     s.Env.Cloud.Port,
		Database: s.Env.Cloud.Database,
		User:     s.Env.Cloud.User,
		Password: s.Env.Cloud.Password,
	}, nil
}

// SecretsAPI is the Secrets Manager surface we depend on.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource fetches credentials from an AWS Secrets Manager
// secret. The secret is the JSON document RDS writes for managed
// credentials: host, port, dbname, username, password.
type SecretsManagerSource struct {
	Client     SecretsAPI
	SecretName string
}

type rdsSecret struct {
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	DBName   string          `json:"dbname"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

// Credentials fetches and decodes the secret.
func (s *SecretsManagerSource) Credentials(ctx context.Context) (Credentials, error) {
	out, err := s.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretName),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("fetch secret %q: %w", s.SecretName, err)
	}
	if out.SecretString == nil {
		return Credentials{}, fmt.Errorf("secret %q has no string value", s.SecretName)
	}

	var sec rdsSecret
	if err := json.Unmarshal([]byte(*out.SecretString), &sec); err != nil {
		return Credentials{}, fmt.Errorf("decode secret %q: %w", s.SecretName, err)
	}

	return Credentials{
		Host:     sec.Host,
		Port:     portString(sec.Port),
		Database: sec.DBName,
		User:     sec.Username,
		Password: sec.Password,
	}, nil
}

// portString tolerates the secret storing port as number or string.
func portString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.Itoa(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
