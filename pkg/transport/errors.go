package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// maxErrorBodyBytes bounds how much of an error response is read
const maxErrorBodyBytes = 1 << 20

// parseError converts a non-2xx response into an *llm.Error
func parseError(backend llm.Backend, resp *http.Response) error {
	body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if rerr != nil {
		e := llm.NewErrorFromStatus(resp.StatusCode, fmt.Sprintf("%s: http %d (also failed to read error body: %v)", backend, resp.StatusCode, rerr))
		e.RetryAfter = retryAfter(resp.Header)
		return e
	}

	msg := strings.TrimSpace(string(body))
	code := ""
	var er openai.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil && strings.TrimSpace(er.Error.Message) != "" {
		msg = strings.TrimSpace(er.Error.Message)
		if er.Error.Code != nil {
			code = fmt.Sprint(er.Error.Code)
		}
		if code == "" {
			code = er.Error.Type
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	e := llm.NewErrorFromStatus(resp.StatusCode, fmt.Sprintf("%s: %s", backend, msg))
	if code != "" {
		e.Code = code
	}
	e.RetryAfter = retryAfter(resp.Header)
	return e
}

func retryAfter(h http.Header) time.Duration {
	d, _ := llm.ParseRetryAfter(h.Get("Retry-After"), time.Now())
	return d
}

// wrapTransportError keeps cancellation recognizable and classifies the rest as network errors
func wrapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return ctxErr
		}
		return llm.NewNetworkError(fmt.Errorf("stream timeout: %w", ctxErr))
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return llm.NewNetworkError(err)
}
