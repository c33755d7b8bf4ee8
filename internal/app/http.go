package app

import (
	"time"

	"github.com/valyala/fasthttp"

	"guardcomms/pkg/api"
)

func (a *App) handlers() *api.Handlers {
	return &api.Handlers{
		Store:       a.store,
		Provisioner: a.provisioner,
		Directory:   a.directory,
		Messages:    a.messages,
		Archiver:    a.archive,
	}
}

// startHTTP builds and starts the fasthttp server, returning a channel that delivers errors.
func (a *App) startHTTP() <-chan error {
	cfg := a.eff.Config

	const (
		readBufferSize       = 64 * 1024        // 64 KiB read buffer per connection
		writeTimeout         = 10 * time.Second // timeout for writing response
		idleTimeout          = 30 * time.Second // max keep-alive idle duration per connection
		maxKeepaliveDuration = 2 * time.Minute  // max duration for keep-alive connection
	)
	a.srvFast = &fasthttp.Server{
		Name:                 "guardcomms",
		Handler:              api.Handler(a.handlers(), cfg.Security),
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(cfg.Server.MaxBodySize.Int64()),
		ReadTimeout:          cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srvFast.ListenAndServe(a.eff.Addr)
	}()
	return errCh
}
