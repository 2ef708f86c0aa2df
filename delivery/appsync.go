package delivery

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	signerv4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
)

// sendChunkMutation is resolved by a pass-through resolver; subscriptions on
// onChunk filter by userId and threadId equality.
const sendChunkMutation = `mutation SendChunk($input: ChunkInput!) {
  sendChunk(input: $input) {
    userId
    threadId
    chunkType
  }
}`

type (
	// AppSync publishes chunks by posting a SigV4-signed GraphQL mutation.
	AppSync struct {
		logger     *slog.Logger
		endpoint   string
		region     string
		creds      aws.CredentialsProvider
		signer     *signerv4.Signer
		httpClient *http.Client
	}

	AppSyncOption func(*AppSync)
)

var _ Publisher = (*AppSync)(nil)

func WithHTTPClient(client *http.Client) AppSyncOption {
	return func(a *AppSync) {
		a.httpClient = client
	}
}

func NewAppSync(logger *slog.Logger, endpoint, region string, creds aws.CredentialsProvider, opts ...AppSyncOption) *AppSync {
	a := &AppSync{
		logger:     logger,
		endpoint:   endpoint,
		region:     region,
		creds:      creds,
		signer:     signerv4.NewSigner(),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AppSync) SendChunk(ctx context.Context, chunk entity.Chunk) error {
	body, err := json.Marshal(struct {
		Query     string `json:"query"`
		Variables struct {
			Input entity.Chunk `json:"input"`
		} `json:"variables"`
	}{
		Query: sendChunkMutation,
		Variables: struct {
			Input entity.Chunk `json:"input"`
		}{Input: chunk},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to marshal chunk mutation")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to create chunk request")
	}
	req.Header.Set("Content-Type", "application/json")

	credentials, err := a.creds.Retrieve(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve credentials")
	}

	hash := sha256.Sum256(body)
	if err := a.signer.SignHTTP(ctx, credentials, req, hex.EncodeToString(hash[:]), "appsync", a.region, time.Now()); err != nil {
		return errors.Wrapf(err, "failed to sign chunk request")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to send chunk")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return errors.Errorf("chunk mutation returned %d: %s", resp.StatusCode, raw)
	}

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrapf(err, "failed to decode chunk response")
	}
	if len(result.Errors) > 0 {
		return errors.Errorf("chunk mutation rejected: %s", result.Errors[0].Message)
	}

	return nil
}
