// Package bedrock implements backend.Backend on the Bedrock runtime
// InvokeModel and InvokeModelWithResponseStream operations.
package bedrock

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/papercomputeco/chatrelay/pkg/backend"
)

// API is the subset of the Bedrock runtime client used by Backend.
type API interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// eventReader is satisfied by *bedrockruntime.InvokeModelWithResponseStreamEventStream.
type eventReader interface {
	Events() <-chan types.ResponseStream
	Close() error
	Err() error
}

// Backend invokes Bedrock foundation models.
type Backend struct {
	client API
	logger *slog.Logger

	// streamOf extracts the event reader from a stream output.
	streamOf func(*bedrockruntime.InvokeModelWithResponseStreamOutput) eventReader
}

// New creates a Bedrock backend over client.
func New(client API, logger *slog.Logger) *Backend {
	return &Backend{
		client: client,
		logger: logger,
		streamOf: func(out *bedrockruntime.InvokeModelWithResponseStreamOutput) eventReader {
			if s := out.GetStream(); s != nil {
				return s
			}
			return nil
		},
	}
}

// NewFromConfig creates a Bedrock backend from an aws.Config. A non-empty
// endpoint overrides the resolved service endpoint.
func NewFromConfig(cfg aws.Config, endpoint string, logger *slog.Logger) *Backend {
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(client, logger)
}

// InvokeStream implements backend.Backend.
func (b *Backend) InvokeStream(ctx context.Context, modelID string, body []byte) (backend.ChunkStream, error) {
	out, err := b.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(backend.ContentType),
		Accept:      aws.String(backend.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("invoking %s with response stream: %w", modelID, err)
	}

	events := b.streamOf(out)
	if events == nil {
		return nil, backend.ErrNilStream
	}

	b.logger.Debug("bedrock stream opened", "model", modelID)
	return &chunkStream{events: events, logger: b.logger}, nil
}

// Invoke implements backend.Backend.
func (b *Backend) Invoke(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(backend.ContentType),
		Accept:      aws.String(backend.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", modelID, err)
	}
	return out.Body, nil
}

// chunkStream yields the payload bytes of each chunk event.
type chunkStream struct {
	events eventReader
	logger *slog.Logger
	closed bool
}

func (s *chunkStream) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case ev, ok := <-s.events.Events():
			if !ok {
				if err := s.events.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}

			switch v := ev.(type) {
			case *types.ResponseStreamMemberChunk:
				if len(v.Value.Bytes) == 0 {
					continue
				}
				return v.Value.Bytes, nil
			default:
				s.logger.Debug("skipping unknown bedrock stream event", "type", fmt.Sprintf("%T", ev))
			}
		}
	}
}

func (s *chunkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.events.Close()
}
