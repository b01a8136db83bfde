package gcp

import (
	"testing"

	"github.com/yungbote/tossup-backend/internal/config"
)

func TestSpeechClientOptions(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if got := speechClientOptions(config.SpeechConfig{}); len(got) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(got))
	}
	if got := speechClientOptions(config.SpeechConfig{Endpoint: "eu-speech.googleapis.com:443"}); len(got) != 1 {
		t.Fatalf("endpoint only: %d options", len(got))
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/env/creds.json")
	got := speechClientOptions(config.SpeechConfig{
		CredentialsFile: "/etc/tossup/speech.json",
		Endpoint:        "eu-speech.googleapis.com:443",
	})
	if len(got) != 2 {
		t.Fatalf("file + endpoint: %d options", len(got))
	}
}

func TestCredentialsOptionSources(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if credentialsOption("") != nil {
		t.Fatalf("expected nil without any credentials")
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)
	if credentialsOption("") == nil {
		t.Fatalf("inline JSON ignored")
	}
	if credentialsOption("/etc/tossup/speech.json") == nil {
		t.Fatalf("explicit file ignored")
	}
}
