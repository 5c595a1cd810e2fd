package alertapi

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/httpserver"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

// responseMargin is the time left after a full inference budget to run the
// sinks and write the response.
const responseMargin = 15 * time.Second

// WriteTimeout returns the server write timeout that still lets a response
// through after an inference that uses its whole budget.
func WriteTimeout(inference time.Duration) time.Duration {
	wt := inference + responseMargin
	if wt < httpserver.DefaultWriteTimeout {
		return httpserver.DefaultWriteTimeout
	}
	return wt
}

// NewServer creates an http.Server with the default timeouts, except the
// write timeout, which is sized to the inference budget.
func NewServer(addr string, handler http.Handler, inference time.Duration) *http.Server {
	srv := httpserver.NewServer(addr, handler)
	srv.WriteTimeout = WriteTimeout(inference)
	return srv
}

// Start listens on addr and serves handler until stop is called.
// When opts is non-nil and opts.TLSConfig is set, the server uses TLS.
func Start(ctx context.Context, addr string, handler http.Handler, logger log.Logger, opts *httpserver.Options, inference time.Duration) (func(context.Context) error, error) {
	if handler == nil {
		return nil, xerrors.New("handler is required")
	}
	if logger == nil {
		logger = log.Nop()
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp4", addr)
	if err != nil {
		return nil, xerrors.EnsureTrace(err)
	}
	return serve(ctx, ln, NewServer(addr, handler, inference), logger, opts), nil
}

func serve(ctx context.Context, ln net.Listener, srv *http.Server, logger log.Logger, opts *httpserver.Options) func(context.Context) error {
	if opts != nil && opts.TLSConfig != nil {
		srv.TLSConfig = opts.TLSConfig
		ln = tls.NewListener(ln, srv.TLSConfig)
	}
	logger.Info(ctx, "http server listening",
		"addr", ln.Addr().String(),
		"tls", srv.TLSConfig != nil,
		"write_timeout", srv.WriteTimeout.String(),
	)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, err, "http server error")
		}
	}()

	// shutdown is bounded by the caller's context so in-flight triages get
	// the whole per-component budget
	var once sync.Once
	return func(sctx context.Context) (retErr error) {
		once.Do(func() {
			logger.Info(sctx, "http server shutting down")
			retErr = srv.Shutdown(sctx)
		})
		return retErr
	}
}
