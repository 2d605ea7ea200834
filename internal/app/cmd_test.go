package app

import (
	"io"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"empty defaults to serve", []string{}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"bootstrap", []string{"bootstrap"}, CommandBootstrap},
		{"create-admin", []string{"create-admin", "--username", "root"}, CommandCreateAdmin},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"unknown defaults to serve", []string{"unknown"}, CommandServe},
		{"extra args ignored", []string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCreateAdminArgs(t *testing.T) {
	creds, err := parseCreateAdminArgs([]string{"--username", " root ", "--password", "s3cret"}, nil, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Username != "root" || creds.Password != "s3cret" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestParseCreateAdminArgs_PasswordFromEnv(t *testing.T) {
	getenv := func(key string) string {
		if key == "ADMIN_PASSWORD" {
			return "from-env"
		}
		return ""
	}

	creds, err := parseCreateAdminArgs([]string{"-username=root"}, getenv, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Password != "from-env" {
		t.Errorf("password = %q, want from-env", creds.Password)
	}
}

func TestParseCreateAdminArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing username", []string{"--password", "x"}},
		{"missing password", []string{"--username", "root"}},
		{"unknown flag", []string{"--username", "root", "--password", "x", "--role", "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCreateAdminArgs(tt.args, func(string) string { return "" }, io.Discard); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
