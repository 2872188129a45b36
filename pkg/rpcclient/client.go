package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/BukiOffor/registry/pkg/ccdrpc"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout    = 4 * time.Second
	defaultRequestTimeout = 4 * time.Second
	// Number of historic instance info entries kept by default.
	defaultInstanceCacheSize = 128
)

// Client represents the middleman for executing JSON-RPC calls to a
// Concordium node proxy. Client is thread-safe and can be used from multiple
// goroutines.
type Client struct {
	cli      *http.Client
	endpoint *url.URL
	ctx      context.Context
	opts     Options
	log      *zap.Logger
	requestF func(*ccdrpc.Request) (*ccdrpc.Response, error)

	// instances keeps instance info requested at some fixed block, it
	// never changes for the given block.
	instances *lru.Cache

	latestReqID *atomic.Uint64
	// getNextRequestID returns an ID to be used for the subsequent request creation.
	// It is defined on Client, so that our testing code can override this method
	// for the sake of more predictable request IDs generation behavior.
	getNextRequestID func() uint64
}

// Options defines options for the RPC client.
// All values are optional. If any duration is not specified,
// a default of 4 seconds will be used.
type Options struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// Limit total number of connections per host. No limit by default.
	MaxConnsPerHost int
	// InstanceCacheSize is the number of historic instance info entries
	// cached, 128 by default.
	InstanceCacheSize int
	// Logger is used for debug messages, nothing is logged if it's nil.
	Logger *zap.Logger
}

// New returns a new Client ready to use. Context is used for all requests
// made by the client, cancelling it aborts them.
func New(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.InstanceCacheSize <= 0 {
		opts.InstanceCacheSize = defaultInstanceCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cache, err := lru.New(opts.InstanceCacheSize)
	if err != nil {
		return nil, err
	}

	cl := &Client{
		cli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.DialTimeout,
				}).DialContext,
				MaxConnsPerHost: opts.MaxConnsPerHost,
			},
			Timeout: opts.RequestTimeout,
		},
		endpoint:    u,
		ctx:         ctx,
		opts:        opts,
		log:         opts.Logger,
		instances:   cache,
		latestReqID: atomic.NewUint64(0),
	}
	cl.getNextRequestID = cl.getRequestID
	cl.requestF = cl.makeHTTPRequest
	return cl, nil
}

func (c *Client) getRequestID() uint64 {
	return c.latestReqID.Inc()
}

// Endpoint returns the client endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Close closes unused underlying networks connections.
func (c *Client) Close() {
	c.cli.CloseIdleConnections()
}

func (c *Client) performRequest(method string, p []any, v any) error {
	if p == nil {
		p = []any{}
	}
	var r = ccdrpc.Request{
		JSONRPC: ccdrpc.JSONRPCVersion,
		Method:  method,
		Params:  p,
		ID:      c.getNextRequestID(),
	}

	start := time.Now()
	raw, err := c.requestF(&r)
	addReqTimeMetric(method, time.Since(start))

	if raw != nil && raw.Error != nil {
		c.log.Debug("RPC error", zap.String("method", method), zap.Error(raw.Error))
		return raw.Error
	} else if err != nil {
		c.log.Debug("RPC request failed", zap.String("method", method), zap.Error(err))
		return err
	} else if raw == nil || len(raw.Result) == 0 || bytes.Equal(raw.Result, []byte("null")) {
		return errors.New("no result returned")
	}
	return json.Unmarshal(raw.Result, v)
}

func (c *Client) makeHTTPRequest(r *ccdrpc.Request) (*ccdrpc.Response, error) {
	var (
		buf = new(bytes.Buffer)
		raw = new(ccdrpc.Response)
	)

	if err := json.NewEncoder(buf).Encode(r); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.endpoint.String(), buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The node might send us a proper JSON anyway, so look there first and if
	// it parses, it has more relevant data than HTTP error code.
	err = json.NewDecoder(resp.Body).Decode(raw)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			err = fmt.Errorf("HTTP %d/%s", resp.StatusCode, http.StatusText(resp.StatusCode))
		} else {
			err = fmt.Errorf("JSON decoding: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Ping attempts to create a connection to the endpoint
// and returns an error if there is any.
func (c *Client) Ping() error {
	conn, err := net.DialTimeout("tcp", c.endpoint.Host, c.opts.DialTimeout)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}
