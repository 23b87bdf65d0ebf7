package bedrock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

const defaultRegion = "us-east-1"

// runtimeAPI is the part of the Bedrock runtime client the opener uses
type runtimeAPI interface {
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// controlAPI is the part of the Bedrock control-plane client used for health checks
type controlAPI interface {
	ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
}

// eventReader is satisfied by the SDK's response event stream
type eventReader interface {
	Events() <-chan types.ResponseStream
	Close() error
	Err() error
}

// Opener opens Bedrock response streams
type Opener struct {
	runtime runtimeAPI
	control controlAPI
	model   string
	logger  *zap.Logger
}

// Option configures an Opener
type Option func(*Opener)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Opener) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOpener loads the AWS configuration and creates the Bedrock clients.
// Extra["region"] selects the region; BaseURL or Extra["bedrock_runtime_endpoint"]
// override the runtime endpoint and Extra["bedrock_endpoint"] the control endpoint.
func NewOpener(ctx context.Context, cfg llm.BackendConfig, opts ...Option) (*Opener, error) {
	region := defaultRegion
	if r := cfg.Extra["region"]; r != "" {
		region = r
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, &llm.Error{
			Code:    "aws_config_error",
			Message: fmt.Sprintf("failed to load AWS configuration: %v", err),
			Type:    llm.ErrorTypeAuthentication,
			Err:     err,
		}
	}

	control := bedrock.NewFromConfig(awsConfig, func(o *bedrock.Options) {
		if endpoint := cfg.Extra["bedrock_endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	runtime := bedrockruntime.NewFromConfig(awsConfig, func(o *bedrockruntime.Options) {
		if endpoint := cfg.Extra["bedrock_runtime_endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.BaseURL != "" {
			o.BaseEndpoint = aws.String(cfg.BaseURL)
		}
	})

	return newOpener(runtime, control, cfg.Model, opts...), nil
}

func newOpener(runtime runtimeAPI, control controlAPI, model string, opts ...Option) *Opener {
	o := &Opener{runtime: runtime, control: control, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open invokes the model with the payload and returns its chunk stream
func (o *Opener) Open(ctx context.Context, payload llm.Payload, _ string) (llm.EventStream, error) {
	contentType := payload.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	resp, err := o.runtime.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(o.model),
		ContentType: aws.String(contentType),
		Accept:      aws.String("application/json"),
		Body:        payload.Body,
	})
	if err != nil {
		return nil, convertError(ctx, err)
	}
	return newEventStream(ctx, resp.GetStream(), o.logger), nil
}

// Ping checks that the Bedrock control plane is reachable with the loaded credentials
func (o *Opener) Ping(ctx context.Context) error {
	if _, err := o.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{}); err != nil {
		return convertError(ctx, err)
	}
	return nil
}

// eventStream adapts the SDK event channel to llm.EventStream
type eventStream struct {
	ctx    context.Context
	reader eventReader
	logger *zap.Logger
}

func newEventStream(ctx context.Context, reader eventReader, logger *zap.Logger) *eventStream {
	return &eventStream{ctx: ctx, reader: reader, logger: logger}
}

func (s *eventStream) Recv() ([]byte, error) {
	for {
		select {
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		case event, ok := <-s.reader.Events():
			if !ok {
				if err := s.reader.Err(); err != nil {
					return nil, convertError(s.ctx, err)
				}
				return nil, io.EOF
			}
			switch v := event.(type) {
			case *types.ResponseStreamMemberChunk:
				return v.Value.Bytes, nil
			case *types.UnknownUnionMember:
				s.logger.Debug("skipping unknown bedrock stream member", zap.String("tag", v.Tag))
			}
		}
	}
}

func (s *eventStream) Close() error {
	return s.reader.Close()
}

// convertError maps AWS API errors onto the llm error taxonomy
func convertError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return llm.NewNetworkError(err)
	}

	status := http.StatusInternalServerError
	switch apiErr.ErrorCode() {
	case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
		status = http.StatusTooManyRequests
	case "ServiceUnavailableException", "ModelNotReadyException", "ModelTimeoutException":
		status = http.StatusServiceUnavailable
	case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
		status = http.StatusForbidden
	case "ResourceNotFoundException":
		status = http.StatusNotFound
	case "ValidationException", "ModelErrorException":
		status = http.StatusBadRequest
	}

	e := llm.NewErrorFromStatus(status, "bedrock: "+apiErr.ErrorMessage())
	e.Code = apiErr.ErrorCode()
	e.Err = err
	return e
}
