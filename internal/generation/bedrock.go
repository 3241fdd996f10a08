package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	"github.com/cenkalti/backoff/v4"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const anthropicVersion = "bedrock-2023-05-31"

// ModelInvoker is the part of the Bedrock runtime API the client uses.
type ModelInvoker interface {
	InvokeModelWithContext(ctx aws.Context, input *bedrockruntime.InvokeModelInput, opts ...request.Option) (*bedrockruntime.InvokeModelOutput, error)
}

// retryableCodes are Bedrock error codes worth retrying.
var retryableCodes = map[string]struct{}{
	"ThrottlingException":         {},
	"ServiceUnavailableException": {},
	"ModelTimeoutException":       {},
	"InternalServerException":     {},
	"ModelNotReadyException":      {},
}

// BedrockClient completes prompts with an Anthropic model on Amazon Bedrock.
type BedrockClient struct {
	invoker     ModelInvoker
	modelID     string
	maxTokens   int
	temperature float64
	maxRetries  uint64
	timeout     time.Duration

	newBackOff func() backoff.BackOff
}

// NewBedrockClient creates a client from the configuration.
// Static credentials are used when set, otherwise the default AWS credential chain.
func NewBedrockClient(cfg config.BedrockConfig) (*BedrockClient, error) {
	awsConfig := aws.NewConfig().
		WithRegion(cfg.Region).
		WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)})
	if cfg.AccessKeyID != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return NewBedrockClientWithInvoker(bedrockruntime.New(sess), cfg), nil
}

func NewBedrockClientWithInvoker(invoker ModelInvoker, cfg config.BedrockConfig) *BedrockClient {
	return &BedrockClient{
		invoker:     invoker,
		modelID:     cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		timeout:     cfg.Timeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 20 * time.Second
			return b
		},
	}
}

var _ Model = (*BedrockClient)(nil)

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

// Complete sends the prompt and returns the text of the reply.
// Transient failures are retried with exponential backoff; when retries run out
// the error wraps ErrModelUnavailable.
func (c *BedrockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("bedrock.model_id", c.modelID),
			attribute.Int("prompt.length", len(prompt)),
		))
	defer span.End()

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		System:           system,
		Messages: []anthropicMessage{
			{Role: "user", Content: []anthropicContent{{Type: "text", Text: prompt}}},
		},
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to encode request")
		span.RecordError(err)
		return "", fmt.Errorf("encode request: %w", err)
	}

	var output *bedrockruntime.InvokeModelOutput
	operation := func() error {
		callCtx, cancel := c.callContext(ctx)
		defer cancel()

		out, err := c.invoker.InvokeModelWithContext(callCtx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			if isRetryable(err) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}

		output = out
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err = backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		metrics.RecordGenerationRetry()
		slog.Warn("bedrock call failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Model invocation failed")
		span.RecordError(err)
		if isRetryable(err) {
			return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("invoke model: %w", err)
	}

	var response anthropicResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		span.SetStatus(otelcodes.Error, "Failed to decode response")
		span.RecordError(err)
		return "", fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	for _, content := range response.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	span.SetAttributes(attribute.String("bedrock.stop_reason", response.StopReason))
	span.SetStatus(otelcodes.Ok, "Model invoked")
	return text.String(), nil
}

func (c *BedrockClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		if _, ok := retryableCodes[awsErr.Code()]; ok {
			return true
		}
		if awsErr.Code() == request.CanceledErrorCode && errors.Is(awsErr.OrigErr(), context.DeadlineExceeded) {
			return true
		}
	}

	return false
}
