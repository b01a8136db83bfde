package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/tossup-backend/internal/config"
)

// speechClientOptions builds the speech client options. An explicit
// credentials file wins over the environment; no credentials at all means
// application default credentials.
func speechClientOptions(cfg config.SpeechConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cred := credentialsOption(cfg.CredentialsFile); cred != nil {
		opts = append(opts, cred)
	}
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts
}

func credentialsOption(file string) option.ClientOption {
	creds := strings.TrimSpace(file)
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	}
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return option.WithCredentialsJSON([]byte(creds))
	default:
		return option.WithCredentialsFile(creds)
	}
}
