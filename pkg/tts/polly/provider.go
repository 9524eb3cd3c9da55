// Package polly implements tts.Provider for Amazon Polly.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"

	"walkumentary/pkg/config"
	"walkumentary/pkg/tracker"
	"walkumentary/pkg/tts"
)

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Provider implements tts.Provider for Amazon Polly. Credentials come
// from the standard AWS environment/credential chain.
type Provider struct {
	mu      sync.Mutex
	client  synthClient
	cfg     config.PollyConfig
	tracker *tracker.Tracker
}

// NewProvider creates a new Polly provider.
func NewProvider(cfg config.PollyConfig, t *tracker.Tracker) *Provider {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = "Joanna"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	return &Provider{cfg: cfg, tracker: t}
}

// NewProviderWithClient injects a synthesis client. Tests only.
func NewProviderWithClient(cfg config.PollyConfig, client synthClient, t *tracker.Tracker) *Provider {
	p := NewProvider(cfg, t)
	p.client = client
	return p
}

func (p *Provider) Name() string { return "polly" }

// Synthesize generates speech from text using Amazon Polly.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*tts.Result, error) {
	client, err := p.resolveClient()
	if err != nil {
		return nil, tts.NewFatalError(0, fmt.Sprintf("polly client init failed: %v", err))
	}

	vid := p.cfg.Voice
	if voice != "" {
		vid = voice
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(p.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	output, err := client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(vid),
	})
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("polly")
		}
		return nil, normalizeError(err)
	}
	if output == nil || output.AudioStream == nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("polly")
		}
		return nil, tts.NewFatalError(0, "polly returned empty audio stream")
	}
	defer output.AudioStream.Close()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("polly")
		}
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}

	if p.tracker != nil {
		p.tracker.TrackAPISuccess("polly")
	}
	return &tts.Result{Audio: audio, Format: "mp3"}, nil
}

// normalizeError maps Polly API errors onto the fallback contract:
// overload and server errors are fatal (try the next engine), client
// errors about the input are not (the next engine would fail too).
func normalizeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException":
			return tts.NewFatalError(429, fmt.Sprintf("polly overloaded: %v", err))
		case "InvalidSsmlException", "TextLengthExceededException", "LexiconNotFoundException",
			"MarksNotSupportedForFormatException", "InvalidSampleRateException":
			return fmt.Errorf("polly rejected input: %w", err)
		default:
			return tts.NewFatalError(500, fmt.Sprintf("polly server error: %v", err))
		}
	}
	return tts.NewFatalError(0, fmt.Sprintf("polly transport error: %v", err))
}

// Voices returns the commonly used neural narration voices.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "Joanna", Name: "Joanna", Language: "en-US", IsNeural: true},
		{ID: "Matthew", Name: "Matthew", Language: "en-US", IsNeural: true},
		{ID: "Amy", Name: "Amy", Language: "en-GB", IsNeural: true},
		{ID: "Vicki", Name: "Vicki", Language: "de-DE", IsNeural: true},
	}, nil
}

func (p *Provider) resolveClient() (synthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(p.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p.client = polly.NewFromConfig(awsCfg)
	return p.client, nil
}
