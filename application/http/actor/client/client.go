// Package client executes HTTP/1.1 requests, one connection per call.
package client

import (
	"context"
	"io"
	"log/slog"

	"nano-get/application/http"
	"nano-get/application/http/semantic"
	"nano-get/application/http/semantic/status"
	"nano-get/application/util/locator"
	"nano-get/session/tls"
	"nano-get/transport"
	"nano-get/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrUnsupportedScheme = errors.New("no dialer for scheme")

// Dialers picks the dialer by the scheme of the request.
type Dialers map[locator.Scheme]transport.ConnDialer

// NewDialers returns plain TCP for http and TLS over TCP for https.
func NewDialers(tlsOpts tls.Options) Dialers {
	plain := &tcp.Dialer{}
	return Dialers{
		locator.SchemeHTTP:  plain,
		locator.SchemeHTTPS: tls.NewDialer(plain, tlsOpts),
	}
}

func DefaultDialers() Dialers { return NewDialers(tls.Options{}) }

// Default is used by the package-level [Get] and [Execute].
var Default = New(nil, slog.New(slog.DiscardHandler), clock.New(), DefaultOptions)

// Get fetches rawURL with [Default] and returns the body as text.
func Get(rawURL string) (string, error) {
	return Default.Get(context.Background(), rawURL)
}

// Execute runs request with [Default].
func Execute(request *semantic.Request) (*semantic.Response, error) {
	return Default.Execute(context.Background(), request)
}

type Client struct {
	dialers Dialers

	opts Options

	logger *slog.Logger
	clock  clock.Clock
}

// New creates a client. Nil dialers means dialers built from opts.TLS.
func New(dialers Dialers, logger *slog.Logger, clock clock.Clock, opts Options) *Client {
	if dialers == nil {
		dialers = NewDialers(opts.TLS)
	}
	return &Client{
		dialers: dialers,
		opts:    opts,
		logger:  logger,
		clock:   clock,
	}
}

// Get sends a default GET request for rawURL and returns the response body as text.
// Invalid UTF-8 in the body is replaced, use [Client.Execute] for the raw bytes.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	request, err := semantic.DefaultGetRequest(rawURL)
	if err != nil {
		return "", err
	}
	if ua := c.opts.Send.UserAgent; ua != "" {
		request.AddHeader("User-Agent", ua)
	}

	response, err := c.Execute(ctx, request)
	if err != nil {
		return "", err
	}
	return response.Text(), nil
}

// Execute dials the request's host, writes the request and reads the whole response.
// The connection is closed before returning.
//
// ctx bounds the dial only. Reads and writes are bounded by [TimeoutOptions].
func (c *Client) Execute(ctx context.Context, request *semantic.Request) (*semantic.Response, error) {
	start := c.clock.Now()
	scheme := string(request.Locator.Scheme)

	logger := c.logger.With(
		slog.String("call_id", uuid.NewString()),
		slog.String("method", string(request.Method)),
		slog.String("url", request.Locator.String()),
	)

	response, kind, err := c.execute(ctx, request, logger)
	elapsed := c.clock.Since(start)

	if err != nil {
		logger.Warn("call failed",
			slog.String("error", err.Error()),
			slog.String("kind", kind),
			slog.Duration("elapsed", elapsed),
		)
		c.opts.Metrics.observeFailure(scheme, kind, elapsed)
		return nil, err
	}

	logger.Debug("call completed",
		slog.Uint64("status", uint64(response.Status.Code)),
		slog.Int("body_size", len(response.Body)),
		slog.Duration("elapsed", elapsed),
	)
	c.opts.Metrics.observeResponse(scheme, string(request.Method), response.Class().String(), len(response.Body), elapsed)

	return response, nil
}

func (c *Client) execute(ctx context.Context, request *semantic.Request, logger *slog.Logger) (_ *semantic.Response, kind string, _ error) {
	dialer, ok := c.dialers[request.Locator.Scheme]
	if !ok {
		return nil, "unsupported_scheme", errors.Wrapf(ErrUnsupportedScheme, "%q", request.Locator.Scheme)
	}

	conn, err := c.dial(ctx, dialer, request.Locator)
	if err != nil {
		logger.Warn("dial failed", slog.String("addr", request.Locator.HostWithPort()))
		return nil, "dial", err
	}
	defer conn.Close()

	if d := c.opts.Timeout.Write; d > 0 {
		conn.SetWriteDeadLine(c.clock.Now().Add(d))
	}
	if d := c.opts.Timeout.Read; d > 0 {
		conn.SetReadDeadLine(c.clock.Now().Add(d))
	}

	encoder := http.NewRequestEncoder(conn, c.opts.Send.Encode)
	if err := encoder.Encode(request.RawRequest()); err != nil {
		err = errors.Wrap(err, "writing request")
		return nil, http.Kind(err), err
	}

	opts := c.opts.Receive.Parse
	opts.RequestMethod = request.Method

	response, err := semantic.ReadResponse(&connClosedReader{r: conn}, opts)
	if err != nil {
		err = errors.Wrap(err, "reading response")
		return nil, http.Kind(err), err
	}

	if !c.opts.Receive.UseReceivedReasonPhrase {
		// Overwrite the reason phrase with default one.
		if status, ok := status.FromCode(response.Status.Code); ok {
			response.Status = status
		}
	}

	return response, "", nil
}

func (c *Client) dial(ctx context.Context, dialer transport.ConnDialer, loc locator.Locator) (transport.Conn, error) {
	if d := c.opts.Timeout.Dial; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = c.clock.WithTimeout(ctx, d)
		defer cancel()
	}

	addr := transport.HostPortAddr{Host: loc.Host, Port: loc.Port}
	conn, err := dialer.Dial(ctx, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr.String())
	}
	return conn, nil
}

// connClosedReader overwrites [transport.ErrConnClosed] as [io.EOF].
// A peer closing the connection is how a body without framing ends.
// [transport.ErrConnReset] is not a close and stays an error.
type connClosedReader struct{ r io.Reader }

func (r *connClosedReader) Read(p []byte) (n int, err error) {
	n, err = r.r.Read(p)
	if errors.Is(err, transport.ErrConnClosed) {
		return n, io.EOF
	}
	return n, err
}
