package gcp

import (
	"context"
	"errors"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
)

func TestInferSpeechEncoding(t *testing.T) {
	cases := []struct {
		mime string
		want speechpb.RecognitionConfig_AudioEncoding
	}{
		{"audio/wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/x-wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/flac", speechpb.RecognitionConfig_FLAC},
		{"audio/mpeg", speechpb.RecognitionConfig_MP3},
		{"audio/webm;codecs=opus", speechpb.RecognitionConfig_WEBM_OPUS},
		{"audio/ogg", speechpb.RecognitionConfig_OGG_OPUS},
		{"video/mp4", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
		{"", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	}
	for _, tc := range cases {
		if got := inferSpeechEncoding(tc.mime); got != tc.want {
			t.Fatalf("inferSpeechEncoding(%q)=%v want %v", tc.mime, got, tc.want)
		}
	}
}

func TestParseRecognizeResponse(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: " Sinai ", Confidence: 0.8},
				{Transcript: "sinai"},
				{Transcript: "Sign I"},
			}},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: "peninsula"},
			}},
		},
	}
	got := parseRecognizeResponse(resp)
	if got.Primary != "Sinai peninsula" {
		t.Fatalf("primary=%q", got.Primary)
	}
	if got.Confidence != 0.8 {
		t.Fatalf("confidence=%v", got.Confidence)
	}
	if len(got.Alternatives) != 2 || got.Alternatives[0] != "Sinai" || got.Alternatives[1] != "Sign I" {
		t.Fatalf("alternatives=%q", got.Alternatives)
	}
	if c := got.Candidates(); len(c) != 3 || c[0] != "Sinai peninsula" {
		t.Fatalf("candidates=%q", c)
	}

	if empty := parseRecognizeResponse(nil); empty.Primary != "" || len(empty.Alternatives) != 0 {
		t.Fatalf("nil response: %+v", empty)
	}
}

func TestTranscribeRetriesTransientErrors(t *testing.T) {
	calls := 0
	s := newSpeech(config.SpeechConfig{MaxAlternatives: 3}, logger.Nop(), func(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		calls++
		if req.GetConfig().GetMaxAlternatives() != 3 || req.GetConfig().GetLanguageCode() != "en-US" {
			t.Errorf("unexpected config: %+v", req.GetConfig())
		}
		if calls < 3 {
			return nil, status.Error(codes.Unavailable, "try again")
		}
		return &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "Versailles"}}},
		}}, nil
	})
	s.backoff = 0

	got, err := s.Transcribe(context.Background(), []byte("RIFF"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Primary != "Versailles" || calls != 3 {
		t.Fatalf("got=%+v calls=%d", got, calls)
	}
}

func TestTranscribeStopsOnPermanentError(t *testing.T) {
	calls := 0
	s := newSpeech(config.SpeechConfig{}, logger.Nop(), func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		calls++
		return nil, status.Error(codes.InvalidArgument, "bad audio")
	})
	s.backoff = 0
	if _, err := s.Transcribe(context.Background(), []byte("x"), "audio/flac"); err == nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestTranscribeRejectsUnknownEncoding(t *testing.T) {
	s := newSpeech(config.SpeechConfig{}, logger.Nop(), func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		t.Fatalf("recognizer should not be called")
		return nil, nil
	})
	if _, err := s.Transcribe(context.Background(), []byte("x"), "application/octet-stream"); !errors.Is(err, ErrUnsupportedAudio) {
		t.Fatalf("expected ErrUnsupportedAudio, got %v", err)
	}
	got, err := s.Transcribe(context.Background(), nil, "audio/wav")
	if err != nil || got.Primary != "" {
		t.Fatalf("empty audio: got=%+v err=%v", got, err)
	}
}
