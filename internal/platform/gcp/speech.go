package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/platform/ctxutil"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
)

// ErrUnsupportedAudio is returned for content types the recognizer cannot decode.
var ErrUnsupportedAudio = errors.New("unsupported audio encoding")

// Transcript is a spoken answer. Alternatives follow Primary in the
// recognizer's confidence order and never repeat it.
type Transcript struct {
	Primary      string   `json:"primary"`
	Alternatives []string `json:"alternatives,omitempty"`
	Confidence   float32  `json:"confidence,omitempty"`
}

// Candidates returns Primary followed by Alternatives.
func (t *Transcript) Candidates() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, 1+len(t.Alternatives))
	out = append(out, t.Primary)
	return append(out, t.Alternatives...)
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

type Speech struct {
	log        *logger.Logger
	client     *speech.Client
	recognize  recognizeFunc
	cfg        config.SpeechConfig
	maxRetries int
	backoff    time.Duration
}

func NewSpeech(ctx context.Context, cfg config.SpeechConfig, log *logger.Logger) (*Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := speech.NewClient(ctx, speechClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	s := newSpeech(cfg, log, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	})
	s.client = c
	return s, nil
}

func newSpeech(cfg config.SpeechConfig, log *logger.Logger, fn recognizeFunc) *Speech {
	return &Speech{
		log:        log.With("service", "gcp.Speech"),
		recognize:  fn,
		cfg:        cfg,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

func (s *Speech) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Transcribe runs synchronous recognition; answers are a few seconds long.
func (s *Speech) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error) {
	ctx = ctxutil.Default(ctx)
	if s.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout.Duration)
		defer cancel()
	}

	if len(audio) == 0 {
		return &Transcript{}, nil
	}

	rc := buildRecognitionConfig(mimeType, s.cfg)
	if rc.Encoding == speechpb.RecognitionConfig_ENCODING_UNSPECIFIED {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAudio, mimeType)
	}
	req := &speechpb.RecognizeRequest{
		Config: rc,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	resp, err := s.retry(ctx, func() (*speechpb.RecognizeResponse, error) {
		return s.recognize(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("speech recognize: %w", err)
	}
	out := parseRecognizeResponse(resp)
	s.log.Debug("transcribed answer", "transcript", out.Primary, "alternatives", len(out.Alternatives))
	return out, nil
}

func buildRecognitionConfig(mimeType string, cfg config.SpeechConfig) *speechpb.RecognitionConfig {
	lang := strings.TrimSpace(cfg.LanguageCode)
	if lang == "" {
		lang = "en-US"
	}
	alts := cfg.MaxAlternatives
	if alts <= 0 {
		alts = 1
	}
	if alts > 30 {
		alts = 30
	}
	return &speechpb.RecognitionConfig{
		LanguageCode:    lang,
		Model:           cfg.Model,
		Encoding:        inferSpeechEncoding(mimeType),
		MaxAlternatives: int32(alts),
	}
}

func inferSpeechEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// parseRecognizeResponse joins the top alternative of each result into
// Primary. Alternatives come from the first result only.
func parseRecognizeResponse(resp *speechpb.RecognizeResponse) *Transcript {
	out := &Transcript{}
	if resp == nil || len(resp.Results) == 0 {
		return out
	}

	var full strings.Builder
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		txt := strings.TrimSpace(r.Alternatives[0].Transcript)
		if txt == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		} else {
			out.Confidence = r.Alternatives[0].Confidence
		}
		full.WriteString(txt)
	}
	out.Primary = full.String()

	seen := map[string]bool{strings.ToLower(out.Primary): true}
	for _, alt := range resp.Results[0].GetAlternatives() {
		txt := strings.TrimSpace(alt.GetTranscript())
		if txt == "" || seen[strings.ToLower(txt)] {
			continue
		}
		seen[strings.ToLower(txt)] = true
		out.Alternatives = append(out.Alternatives, txt)
	}
	return out
}

func (s *Speech) retry(ctx context.Context, fn func() (*speechpb.RecognizeResponse, error)) (*speechpb.RecognizeResponse, error) {
	backoff := s.backoff
	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
	return nil, last
}
