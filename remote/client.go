package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// HTTPClient is the client to use for communication.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// A Client implements API against a REST resource server:
//
//   POST   {endpoint}/resources        create
//   GET    {endpoint}/resources/{id}   read
//   PATCH  {endpoint}/resources/{id}   update
//   DELETE {endpoint}/resources/{id}   delete
//
// The zero value is not usable; Endpoint must be set. If HTTPClient is nil,
// http.DefaultClient is used. The underlying HTTP client is shared read-only
// between all per-name workers and is safe for concurrent use.
type Client struct {
	Endpoint   string
	HTTPClient HTTPClient

	// Tokens supplies the bearer credential attached to every request. The
	// credential is fixed at construction time; it is not part of the
	// per-call interface. If nil, requests are sent unauthenticated.
	Tokens oauth2.TokenSource
}

func (c *Client) httpClient() HTTPClient {
	cli := c.HTTPClient
	if cli == nil {
		cli = http.DefaultClient
	}
	return cli
}

// Create implements API.
func (c *Client) Create(ctx context.Context, req *CreateRequest) (*Resource, error) {
	httpreq, err := c.request(ctx, http.MethodPost, c.collectionURL(), req.Attrs)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		httpreq.Header.Set("Idempotency-Key", req.Name+"/"+req.Token)
	}
	return c.resource(httpreq)
}

// Read implements API.
func (c *Client) Read(ctx context.Context, id string) (*Resource, error) {
	httpreq, err := c.request(ctx, http.MethodGet, c.resourceURL(id), nil)
	if err != nil {
		return nil, err
	}
	return c.resource(httpreq)
}

// Update implements API.
func (c *Client) Update(ctx context.Context, id string, attrs map[string]interface{}) (*Resource, error) {
	httpreq, err := c.request(ctx, http.MethodPatch, c.resourceURL(id), attrs)
	if err != nil {
		return nil, err
	}
	return c.resource(httpreq)
}

// Delete implements API. A 404 response is mapped to an error for which
// IsNotFound returns true; the adapter treats it as success.
func (c *Client) Delete(ctx context.Context, id string) error {
	httpreq, err := c.request(ctx, http.MethodDelete, c.resourceURL(id), nil)
	if err != nil {
		return err
	}
	resp, body, err := c.do(httpreq)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusAccepted:
		return nil
	default:
		return &Error{Method: httpreq.Method, URL: httpreq.URL.String(), StatusCode: resp.StatusCode, Body: body}
	}
}

func (c *Client) collectionURL() string {
	return strings.TrimSuffix(c.Endpoint, "/") + "/resources"
}

func (c *Client) resourceURL(id string) string {
	return c.collectionURL() + "/" + id
}

func (c *Client) request(ctx context.Context, method, url string, payload map[string]interface{}) (*http.Request, error) {
	var body *bytes.Buffer
	if payload != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return nil, fmt.Errorf("encode request: %v", err)
		}
	}
	var httpreq *http.Request
	var err error
	if body != nil {
		httpreq, err = http.NewRequest(method, url, body)
	} else {
		httpreq, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request: %v", err)
	}
	httpreq = httpreq.WithContext(ctx)
	if body != nil {
		httpreq.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		tok, err := c.Tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("get credential: %v", err)
		}
		tok.SetAuthHeader(httpreq)
	}
	return httpreq, nil
}

func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %v", err)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body, nil
}

func (c *Client) resource(req *http.Request) (*Resource, error) {
	resp, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		var res Resource
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("decode response: %v", err)
		}
		return &res, nil
	default:
		return nil, &Error{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: body}
	}
}

var _ API = (*Client)(nil)
