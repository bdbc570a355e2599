// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpserver_test

import (
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/juju/loggo/v2"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/userrelay/internal/worker/httpserver"
)

type workerSuite struct {
	listener net.Listener
	config   httpserver.Config
}

var _ = gc.Suite(&workerSuite{})

func (s *workerSuite) SetUpTest(c *gc.C) {
	var err error
	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, jc.ErrorIsNil)
	s.config = httpserver.Config{
		Listener: s.listener,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			fmt.Fprintf(w, "hello %s", req.URL.Path)
		}),
		Logger: loggo.GetLogger("userrelay.httpserver.test"),
	}
}

func (s *workerSuite) TearDownTest(c *gc.C) {
	_ = s.listener.Close()
}

func (s *workerSuite) get(c *gc.C, w *httpserver.Worker, path string) string {
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(fmt.Sprintf("http://%s%s", w.Addr(), path))
	c.Assert(err, jc.ErrorIsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, jc.ErrorIsNil)
	return string(body)
}

func (s *workerSuite) TestServes(c *gc.C) {
	w, err := httpserver.NewWorker(s.config)
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.DirtyKill(c, w)

	c.Check(s.get(c, w, "/there"), gc.Equals, "hello /there")
	workertest.CleanKill(c, w)
}

func (s *workerSuite) TestKillClosesListener(c *gc.C) {
	w, err := httpserver.NewWorker(s.config)
	c.Assert(err, jc.ErrorIsNil)
	addr := w.Addr().String()

	workertest.CleanKill(c, w)
	_, err = net.Dial("tcp", addr)
	c.Check(err, gc.NotNil)
}

func (s *workerSuite) TestServeFailureKillsWorker(c *gc.C) {
	c.Assert(s.listener.Close(), jc.ErrorIsNil)

	w, err := httpserver.NewWorker(s.config)
	c.Assert(err, jc.ErrorIsNil)
	err = workertest.CheckKilled(c, w)
	c.Check(err, gc.ErrorMatches, "serving http: .*")
}

func (s *workerSuite) TestValidate(c *gc.C) {
	tests := []struct {
		mutate func(*httpserver.Config)
		err    string
	}{{
		mutate: func(cfg *httpserver.Config) { cfg.Listener = nil },
		err:    "nil Listener not valid",
	}, {
		mutate: func(cfg *httpserver.Config) { cfg.Handler = nil },
		err:    "nil Handler not valid",
	}, {
		mutate: func(cfg *httpserver.Config) { cfg.Logger = nil },
		err:    "nil Logger not valid",
	}, {
		mutate: func(cfg *httpserver.Config) { cfg.ShutdownTimeout = -1 },
		err:    "negative ShutdownTimeout not valid",
	}}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.err)
		config := s.config
		test.mutate(&config)
		c.Check(config.Validate(), gc.ErrorMatches, test.err)
		_, err := httpserver.NewWorker(config)
		c.Check(err, gc.ErrorMatches, test.err)
	}
}
