package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"pqxdh/internal/domain"
)

// Client talks to a directory Server over HTTP.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a Client for the directory at base, e.g. "http://localhost:8080".
func NewClient(base string) *Client {
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: http.DefaultClient}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Msg    string
}

func (e *StatusError) Error() string {
	msg := "directory " + strings.ToLower(e.Method) + " " + e.URL + ": " + strconv.Itoa(e.Status) + " " + http.StatusText(e.Status)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

func (c *Client) PublishBundle(ctx context.Context, b domain.PublishedBundle) error {
	return c.do(ctx, http.MethodPost, "/bundles/"+url.PathEscape(b.Username), b, nil)
}

// FetchBundle returns ErrNotFound if username has not published.
func (c *Client) FetchBundle(ctx context.Context, username string) (domain.KeyBundle, error) {
	var out domain.KeyBundle
	err := c.do(ctx, http.MethodGet, "/bundles/"+url.PathEscape(username), nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return domain.KeyBundle{}, errors.Wrap(ErrNotFound, username)
	}
	if err != nil {
		return domain.KeyBundle{}, err
	}
	return out, nil
}

func (c *Client) SendEnvelope(ctx context.Context, env domain.Envelope) error {
	return c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(env.To), env, nil)
}

func (c *Client) FetchEnvelopes(ctx context.Context, username string, limit int) ([]domain.Envelope, error) {
	path := "/messages/" + url.PathEscape(username)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (c *Client) AckEnvelopes(ctx context.Context, username string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(username)+"/ack", ackRequest{IDs: ids}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = buf
	}
	u := c.Base + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "directory %s %s", strings.ToLower(method), u)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &StatusError{Method: method, URL: u, Status: resp.StatusCode, Msg: e.Error}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}

var _ domain.Directory = (*Client)(nil)
