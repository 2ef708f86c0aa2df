package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	signerv4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/threadcast/threadcast/errors"
)

type (
	synthClient interface {
		SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
	}

	objectClient interface {
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	presignClient interface {
		PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*signerv4.PresignedHTTPRequest, error)
	}

	// Clip is one synthesized sentence, uploaded to the object store and
	// retrievable through a time-limited URL.
	Clip struct {
		Key string
		URL string
	}

	// Synthesizer turns a sentence into an uploaded audio clip.
	Synthesizer struct {
		logger    *slog.Logger
		polly     synthClient
		objects   objectClient
		presigner presignClient
		bucket    string
		urlTTL    time.Duration
	}
)

func NewSynthesizer(
	logger *slog.Logger,
	pollyClient synthClient,
	objects objectClient,
	presigner presignClient,
	bucket string,
	urlTTL time.Duration,
) *Synthesizer {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &Synthesizer{
		logger:    logger,
		polly:     pollyClient,
		objects:   objects,
		presigner: presigner,
		bucket:    bucket,
		urlTTL:    urlTTL,
	}
}

// Synthesize strips markup from the sentence, synthesizes it with the given
// voice, uploads the artifact and returns its presigned location. A sentence
// that is empty after stripping yields a nil clip.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) (*Clip, error) {
	stripped := strings.TrimSpace(StripMarkdown(text))
	if stripped == "" {
		return nil, nil
	}

	output, err := s.polly.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       pollytypes.EngineNeural,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         aws.String(stripped),
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(voice),
	})
	if err != nil {
		return nil, normalizeSynthError(err)
	}
	if output.AudioStream == nil {
		return nil, errors.Errorf("voice %s returned no audio", voice)
	}
	defer output.AudioStream.Close()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read audio stream")
	}

	key := fmt.Sprintf("clips/%s.mp3", uuid.NewString())
	if _, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(audio),
		ContentType: aws.String("audio/mpeg"),
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to upload audio clip %s", key)
	}

	signed, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlTTL
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to presign audio clip %s", key)
	}

	s.logger.Debug("synthesized audio clip", "key", key, "voice", voice, "bytes", len(audio))

	return &Clip{Key: key, URL: signed.URL}, nil
}

func normalizeSynthError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrapf(err, "speech synthesis failed (%s)", apiErr.ErrorCode())
	}
	return errors.Wrapf(err, "speech synthesis failed")
}
