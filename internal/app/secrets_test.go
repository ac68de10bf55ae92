package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	values map[string]string
	calls  []string
	err    error
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls = append(f.calls, aws.ToString(in.Name))
	if f.err != nil {
		return nil, f.err
	}
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("expected decryption")
	}
	v, ok := f.values[aws.ToString(in.Name)]
	if !ok {
		return &ssm.GetParameterOutput{}, nil
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func TestLoadParameterEnv(t *testing.T) {
	const dsn = "postgres://u:p@db/landings"

	tests := []struct {
		name      string
		env       string
		param     string
		client    *fakeSSM
		want      string
		wantCalls int
		wantErr   string
	}{
		{
			name:   "explicit env wins",
			env:    "postgres://local",
			param:  "/landings/db",
			client: &fakeSSM{values: map[string]string{"/landings/db": dsn}},
			want:   "postgres://local",
		},
		{
			name:   "no parameter configured",
			client: &fakeSSM{},
		},
		{
			name:      "loaded from SSM",
			param:     "/landings/db",
			client:    &fakeSSM{values: map[string]string{"/landings/db": dsn}},
			want:      dsn,
			wantCalls: 1,
		},
		{
			name:      "SSM error",
			param:     "/landings/db",
			client:    &fakeSSM{err: errors.New("access denied")},
			wantCalls: 1,
			wantErr:   "access denied",
		},
		{
			name:      "parameter without value",
			param:     "/landings/missing",
			client:    &fakeSSM{},
			wantCalls: 1,
			wantErr:   "has no value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DATABASE_URL", tt.env)
			t.Setenv("TEST_DATABASE_URL_PARAM", tt.param)

			err := LoadParameterEnv(context.Background(), tt.client, "TEST_DATABASE_URL", "TEST_DATABASE_URL_PARAM")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := os.Getenv("TEST_DATABASE_URL"); tt.wantErr == "" && got != tt.want {
				t.Errorf("env = %q, want %q", got, tt.want)
			}
			if len(tt.client.calls) != tt.wantCalls {
				t.Errorf("calls = %v, want %d", tt.client.calls, tt.wantCalls)
			}
		})
	}
}
