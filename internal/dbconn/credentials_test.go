package dbconn

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type fakeSecretsAPI struct {
	secret string
	err    error
}

func (f *fakeSecretsAPI) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.secret)}, nil
}

func TestSecretsManagerSource(t *testing.T) {
	t.Run("NumericPort", func(t *testing.T) {
		src := &SecretsManagerSource{
			Client:     &fakeSecretsAPI{secret: `{"host":"db.example.com","port":5432,"dbname":"mealplanner","username":"admin","password":"s3cret"}`},
			SecretName: "meal-planner/rds/credentials",
		}

		creds, err := src.Credentials(context.Background())
		if err != nil {
			t.Fatalf("Credentials failed: %v", err)
		}
		if creds.Host != "db.example.com" || creds.Port != "5432" {
			t.Errorf("unexpected credentials: %+v", creds)
		}
		if creds.User != "admin" || creds.Password != "s3cret" {
			t.Errorf("unexpected user/password: %+v", creds)
		}
	})

	t.Run("StringPort", func(t *testing.T) {
		src := &SecretsManagerSource{
			Client:     &fakeSecretsAPI{secret: `{"host":"db.example.com","port":"6432","dbname":"mealplanner","username":"admin","password":"x"}`},
			SecretName: "s",
		}

		creds, err := src.Credentials(context.Background())
		if err != nil {
			t.Fatalf("Credentials failed: %v", err)
		}
		if creds.Port != "6432" {
			t.Errorf("expected port 6432, got %s", creds.Port)
		}
	})

	t.Run("FetchError", func(t *testing.T) {
		src := &SecretsManagerSource{
			Client:     &fakeSecretsAPI{err: errors.New("access denied")},
			SecretName: "s",
		}

		if _, err := src.Credentials(context.Background()); err == nil {
			t.Fatal("expected error from failed fetch")
		}
	})

	t.Run("MalformedSecret", func(t *testing.T) {
		src := &SecretsManagerSource{
			Client:     &fakeSecretsAPI{secret: `not-json`},
			SecretName: "s",
		}

		if _, err := src.Credentials(context.Background()); err == nil {
			t.Fatal("expected error for malformed secret")
		}
	})
}

func TestClassifyAcquire(t *testing.T) {
	err := classifyAcquire(context.DeadlineExceeded)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("deadline during acquire should classify as pool exhaustion, got %v", err)
	}

	other := errors.New("connection refused")
	if classifyAcquire(other) != other {
		t.Error("non-deadline errors must pass through unchanged")
	}
}
