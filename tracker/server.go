package tracker

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/tylerb/graceful"

	"github.com/aescarias/apricot/internal/trackerstats"
)

// responseHandler is an HTTP handler that reports the status code it
// produced, so makeHandler can log and record stats uniformly.
type responseHandler func(http.ResponseWriter, *http.Request, httprouter.Params) (int, error)

// Server serves the /announce endpoint and a /stats introspection
// endpoint over HTTP.
type Server struct {
	Addr     string
	Registry *Registry
	Config   Config
	Stats    *trackerstats.Stats

	grace *graceful.Server
}

// NewServer constructs a Server bound to addr, backed by reg and
// configured per cfg. stats may be nil to disable the /stats endpoint.
func NewServer(addr string, reg *Registry, cfg Config, stats *trackerstats.Stats) *Server {
	return &Server{Addr: addr, Registry: reg, Config: cfg, Stats: stats}
}

func (s *Server) makeHandler(handler responseHandler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		start := time.Now()
		status, err := handler(w, r, p)
		duration := time.Since(start)

		if err != nil {
			glog.Errorf("[HTTP %9s] %s %s (%d - %v)", duration, r.Method, r.URL.Path, status, err)
		} else if glog.V(2) {
			glog.Infof("[HTTP %9s] %s %s (%d)", duration, r.Method, r.URL.Path, status)
		}

		if s.Stats != nil {
			s.Stats.RecordEvent(trackerstats.HandledRequest)
			if err != nil {
				s.Stats.RecordEvent(trackerstats.ErroredRequest)
			}
			s.Stats.RecordTiming(duration)
		}
	}
}

func (s *Server) router() *httprouter.Router {
	r := httprouter.New()
	r.GET("/announce", s.makeHandler(s.serveAnnounce))
	r.GET("/stats", s.makeHandler(s.serveStats))
	r.GET("/", s.makeHandler(s.serveIndex))
	return r
}

// Serve runs the HTTP server, blocking until Stop is called or the
// listener fails.
func (s *Server) Serve() error {
	s.grace = &graceful.Server{
		Server: &http.Server{
			Addr:    s.Addr,
			Handler: s.router(),
		},
		Timeout: 10 * time.Second,
	}

	glog.Infof("tracker listening on %s", s.Addr)
	return s.grace.ListenAndServe()
}

// Stop begins a graceful shutdown, allowing in-flight requests up to
// the server's configured timeout to complete.
func (s *Server) Stop() {
	if s.grace != nil {
		s.grace.Stop(s.grace.Timeout)
	}
}
