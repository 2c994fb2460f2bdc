// Package sagemaker implements backend.Backend on hosted inference
// endpoints through the SageMaker runtime.
//
// Text-generation containers stream server-sent events, and SageMaker cuts
// that byte stream into payload parts at arbitrary offsets. The chunk stream
// reassembles lines across part boundaries and yields one JSON document per
// SSE data event (or per bare JSON line, for containers that stream JSON
// lines).
package sagemaker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime/types"

	"github.com/papercomputeco/chatrelay/pkg/backend"
	"github.com/papercomputeco/chatrelay/pkg/sse"
)

// API is the subset of the SageMaker runtime client used by Backend.
type API interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
	InvokeEndpointWithResponseStream(ctx context.Context, params *sagemakerruntime.InvokeEndpointWithResponseStreamInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointWithResponseStreamOutput, error)
}

// eventReader is satisfied by *sagemakerruntime.InvokeEndpointWithResponseStreamEventStream.
type eventReader interface {
	Events() <-chan types.ResponseStream
	Close() error
	Err() error
}

// Backend invokes hosted inference endpoints. The model identifier is the
// endpoint name.
type Backend struct {
	client API
	logger *slog.Logger

	streamOf func(*sagemakerruntime.InvokeEndpointWithResponseStreamOutput) eventReader
}

// New creates a hosted endpoint backend over client.
func New(client API, logger *slog.Logger) *Backend {
	return &Backend{
		client: client,
		logger: logger,
		streamOf: func(out *sagemakerruntime.InvokeEndpointWithResponseStreamOutput) eventReader {
			if s := out.GetStream(); s != nil {
				return s
			}
			return nil
		},
	}
}

// NewFromConfig creates a hosted endpoint backend from an aws.Config.
func NewFromConfig(cfg aws.Config, endpoint string, logger *slog.Logger) *Backend {
	client := sagemakerruntime.NewFromConfig(cfg, func(o *sagemakerruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(client, logger)
}

// InvokeStream implements backend.Backend.
func (b *Backend) InvokeStream(ctx context.Context, endpointName string, body []byte) (backend.ChunkStream, error) {
	out, err := b.client.InvokeEndpointWithResponseStream(ctx, &sagemakerruntime.InvokeEndpointWithResponseStreamInput{
		EndpointName: aws.String(endpointName),
		Body:         body,
		ContentType:  aws.String(backend.ContentType),
		Accept:       aws.String(backend.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("invoking endpoint %s with response stream: %w", endpointName, err)
	}

	events := b.streamOf(out)
	if events == nil {
		return nil, backend.ErrNilStream
	}

	b.logger.Debug("hosted endpoint stream opened", "endpoint", endpointName)
	return &chunkStream{events: events, logger: b.logger}, nil
}

// Invoke implements backend.Backend.
func (b *Backend) Invoke(ctx context.Context, endpointName string, body []byte) ([]byte, error) {
	out, err := b.client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpointName),
		Body:         body,
		ContentType:  aws.String(backend.ContentType),
		Accept:       aws.String(backend.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("invoking endpoint %s: %w", endpointName, err)
	}
	return out.Body, nil
}

// chunkStream reassembles payload parts into complete documents.
type chunkStream struct {
	events eventReader
	logger *slog.Logger

	partial []byte   // bytes after the last newline seen
	ready   [][]byte // documents waiting to be returned
	dec     sse.Decoder
	done    bool
	closed  bool
}

func (s *chunkStream) Next(ctx context.Context) ([]byte, error) {
	for len(s.ready) == 0 {
		if s.done {
			return nil, io.EOF
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case ev, ok := <-s.events.Events():
			if !ok {
				if err := s.events.Err(); err != nil {
					return nil, err
				}
				s.finish()
				continue
			}

			part, isPart := ev.(*types.ResponseStreamMemberPayloadPart)
			if !isPart {
				s.logger.Debug("skipping unknown hosted stream event", "type", fmt.Sprintf("%T", ev))
				continue
			}
			s.feed(part.Value.Bytes)
		}
	}

	doc := s.ready[0]
	s.ready = s.ready[1:]
	return doc, nil
}

// feed appends a payload part and queues every document completed by it.
func (s *chunkStream) feed(part []byte) {
	s.partial = append(s.partial, part...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			return
		}
		line := string(s.partial[:i])
		s.partial = s.partial[i+1:]
		s.line(line)
	}
}

func (s *chunkStream) line(raw string) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		s.push(trimmed)
		return
	}

	if ev, ok := s.dec.Line(raw); ok {
		s.pushEvent(ev)
	}
}

// finish flushes a trailing line and event when the stream closes.
func (s *chunkStream) finish() {
	s.done = true
	if len(s.partial) > 0 {
		s.line(string(s.partial))
		s.partial = nil
	}
	if ev := s.dec.Flush(); ev != nil {
		s.pushEvent(ev)
	}
}

func (s *chunkStream) pushEvent(ev *sse.Event) {
	if ev.IsDone() {
		return
	}
	s.push(ev.Data)
}

func (s *chunkStream) push(doc string) {
	if strings.TrimSpace(doc) == "" {
		return
	}
	s.ready = append(s.ready, []byte(doc))
}

func (s *chunkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.events.Close()
}
