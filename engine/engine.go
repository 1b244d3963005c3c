// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engine assembles the de-globalized top-level value: the content
// store, the dispatcher and its worker pool, and the admin HTTP server,
// built from one confengine.Config the way controller.Controller assembles
// its own sub-components from the same config tree.
package engine

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/apiserverd/actions"
	"github.com/packetd/apiserverd/common"
	"github.com/packetd/apiserverd/confengine"
	"github.com/packetd/apiserverd/contentstore"
	"github.com/packetd/apiserverd/dispatcher"
	"github.com/packetd/apiserverd/internal/sigs"
	"github.com/packetd/apiserverd/logger"
	"github.com/packetd/apiserverd/server"
)

// Engine owns every piece of process-wide state the connection multiplexer
// and its handlers need: the content store, the dispatcher, and (if
// enabled) the admin server. Nothing here is a package-level global — a
// process that wanted two independent engines could construct two.
type Engine struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       Config
	buildInfo common.BuildInfo

	store     *contentstore.Store
	actionCtx *actions.Context
	disp      *dispatcher.Dispatcher
	svr       *server.Server

	dispDone chan struct{}
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "apiserverd.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// New assembles an Engine from conf without starting anything. buildInfo is
// threaded through unchanged and is what the admin /-/build route reports.
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Engine, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("engine", &cfg); err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	store := contentstore.New(cfg.storeRoot())

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		store:     store,
		actionCtx: &actions.Context{Store: store},
		svr:       svr,
	}

	disp, err := dispatcher.New(cfg.Dispatcher, e.staticHandler, e.dynamicHandler)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "engine: constructing dispatcher")
	}
	e.disp = disp

	return e, nil
}

// Start launches the admin server (if enabled) in the background, binds the
// dispatcher's listening socket (synchronously, so a bind failure surfaces
// immediately) and then runs the dispatcher's poll loop in the background.
func (e *Engine) Start() error {
	if e.svr != nil {
		e.setupAdminRoutes()
		go func() {
			if err := e.svr.ListenAndServe(); err != nil {
				logger.Errorf("engine: admin server stopped: %v", err)
			}
		}()
	}

	if err := e.disp.Listen(); err != nil {
		return errors.Wrap(err, "engine: dispatcher listen")
	}

	e.dispDone = make(chan struct{})
	go func() {
		defer close(e.dispDone)
		if err := e.disp.Serve(e.ctx); err != nil {
			logger.Errorf("engine: dispatcher stopped: %v", err)
		}
	}()

	return nil
}

// Addr returns the dispatcher's bound listen address. Valid only after
// Start has returned successfully.
func (e *Engine) Addr() string {
	return e.disp.Addr()
}

// Reload re-applies whatever configuration can safely change on a running
// engine without dropping in-flight connections: logging, today. Dispatcher
// concerns such as the listen address or worker pool size take effect only
// on the next restart (§8, scenario 8) since they're load-bearing on
// already-running goroutines and pipes. Failures from independent reload
// steps are aggregated rather than short-circuited, so one bad section
// doesn't hide another.
func (e *Engine) Reload(conf *confengine.Config) error {
	var result *multierror.Error

	if err := setupLogger(conf); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "logger"))
	}

	var cfg Config
	if err := conf.UnpackChild("engine", &cfg); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "engine"))
	}

	return result.ErrorOrNil()
}

// Stop cancels the dispatcher's context and waits for its poll loop to
// finish closing every live connection and worker before returning. The
// admin server, like controller.Controller's, is left running — it answers
// scrape requests from outside the process and matches the existing split
// between "the thing being measured" and "the thing measuring it".
func (e *Engine) Stop() {
	e.cancel()
	if e.dispDone != nil {
		<-e.dispDone
	}
}

func (e *Engine) setupAdminRoutes() {
	e.svr.RegisterGetRoute("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	e.svr.RegisterGetRoute("/-/build", func(w http.ResponseWriter, r *http.Request) {
		info := e.buildInfo
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"` + info.Version + `","gitHash":"` + info.GitHash + `","time":"` + info.Time + `"}`))
	})
	e.svr.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		logger.SetLoggerLevel(r.FormValue("level"))
		_, _ = w.Write([]byte(`{"status": "success"}`))
	})
	e.svr.RegisterPostRoute("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := sigs.SelfReload(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
		}
	})
}
