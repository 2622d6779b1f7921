package cheshirecat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amoylab/catclient/internal/common/cnst"
	errs "github.com/amoylab/catclient/pkg/errors"
	"github.com/amoylab/catclient/pkg/version"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// APIError is returned for every non-2xx response.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Status     string
	Body       []byte
}

// Detail is the server's explanation, read from {"detail": "..."} or
// {"detail": {"error": "..."}}. Empty when the body carries neither.
func (e *APIError) Detail() string {
	d := gjson.GetBytes(e.Body, "detail")
	switch {
	case d.Type == gjson.String:
		return d.String()
	case d.IsObject():
		return d.Get("error").String()
	}
	return ""
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Endpoint, e.Status, bytes.TrimSpace(e.Body))
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// request describes one REST call. route is the path template used for
// metrics and span names; it defaults to path.
type request struct {
	method  string
	path    string
	route   string
	agentID string
	userID  string
	chatID  string
	query   map[string]string
	body    any
	form    *form
	// anonymous requests skip the credential check and auth headers.
	anonymous bool
}

func (r *request) endpoint() string {
	if r.route != "" {
		return r.route
	}
	return r.path
}

// call runs req and decodes a JSON response into T.
func call[T any](ctx context.Context, c *Client, req request) (*T, error) {
	data, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errs.ErrDecodeResponse(req.endpoint(), err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	secret, isToken := "", false
	if !req.anonymous {
		var err error
		if secret, isToken, err = c.credential(); err != nil {
			return nil, err
		}
	}

	endpoint := req.endpoint()
	scope := c.tracer.Start(ctx, cnst.SpanEndpointPrefix+req.method+" "+endpoint)
	defer scope.End()
	scope.WithAttrs(
		attribute.String(cnst.AttrHTTPMethod, req.method),
		attribute.String(cnst.AttrHTTPRoute, endpoint),
		attribute.String(cnst.AttrAgentID, req.agentID),
		attribute.String(cnst.AttrUserID, req.userID),
		attribute.String(cnst.AttrChatID, req.chatID),
	)

	body, contentType, err := req.encode()
	if err != nil {
		scope.Span.RecordError(err)
		scope.Span.SetStatus(codes.Error, err.Error())
		return nil, errs.ErrEncodeRequest(endpoint, err)
	}

	target := c.httpURI().WithPath(req.path).WithQuery(req.query).String()
	httpReq, err := http.NewRequestWithContext(scope.Ctx, req.method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if !req.anonymous {
		httpReq.Header.Set(cnst.HeaderAuthorization, cnst.BearerPrefix+secret)
		if req.agentID != "" {
			httpReq.Header.Set(cnst.HeaderAgentID, req.agentID)
		}
		if req.userID != "" && !isToken {
			httpReq.Header.Set(cnst.HeaderUserID, req.userID)
		}
		if req.chatID != "" {
			httpReq.Header.Set(cnst.HeaderChatID, req.chatID)
		}
	}

	start := time.Now()
	c.metrics.APIReqStart(endpoint)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.APIReqDone(req.method, endpoint, 0, start)
		scope.Span.RecordError(err)
		scope.Span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", req.method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.metrics.APIReqDone(req.method, endpoint, resp.StatusCode, start)
	scope.WithAttrs(attribute.Int(cnst.AttrHTTPStatusCode, resp.StatusCode))
	c.logger.Debug("request done",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		apiErr := &APIError{
			Method:     req.method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       data,
		}
		if reason := apiErr.Detail(); reason != "" {
			scope.WithAttrs(attribute.String(cnst.AttrErrorReason, reason))
		}
		scope.Span.SetStatus(codes.Error, resp.Status)
		return nil, apiErr
	}
	return data, nil
}

func (r *request) encode() (io.Reader, string, error) {
	if r.form != nil {
		return r.form.encode()
	}
	if r.body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}
