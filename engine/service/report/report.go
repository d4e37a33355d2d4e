// Package report exposes a computed link graph over HTTP as JSON.
package report

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"Rank_Engine/engine/service"
	"Rank_Engine/linkgraph/graph"
	"Rank_Engine/pagerank"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	ranksEndpoint    = "/ranks"
	sinksEndpoint    = "/sinks"
	danglingEndpoint = "/dangling"
	summaryEndpoint  = "/summary"
)

var _ service.Service = (*Service)(nil)

// GraphAPI defines the read-only view of the link graph used by the service.
type GraphAPI interface {
	Entries() []*graph.Entry
	Ranks() []float64
	SinkComponents() [][]string
	DanglingNodes() []string
}

// Config encapsulates the settings for configuring the report service.
type Config struct {
	// The graph whose ranks are reported.
	Store GraphAPI

	// The outcome of the rank computation.
	Result pagerank.Result

	// The address to listen for incoming requests.
	ListenAddr string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Store == nil {
		err = multierror.Append(err, xerrors.Errorf("graph store has not been provided"))
	}
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// RankedURL is a single entry of the /ranks response.
type RankedURL struct {
	ID   string  `json:"id"`
	URL  string  `json:"url"`
	Rank float64 `json:"rank"`
}

// Summary is the /summary response.
type Summary struct {
	URLs       int     `json:"urls"`
	Iterations int     `json:"iterations"`
	Error      float64 `json:"error"`
	State      string  `json:"state"`
	RankMass   float64 `json:"rank_mass"`
	Elapsed    string  `json:"elapsed"`
	Sinks      int     `json:"sinks"`
	Dangling   int     `json:"dangling"`
}

// Service serves the ranks, sinks and dangling nodes of a link graph.
type Service struct {
	cfg    Config
	router *mux.Router
}

// NewService creates a new report service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("report service: config validation failed: %w", err)
	}

	svc := &Service{
		cfg:    cfg,
		router: mux.NewRouter(),
	}
	svc.router.HandleFunc(ranksEndpoint, svc.renderRanks).Methods("GET")
	svc.router.HandleFunc(sinksEndpoint, svc.renderSinks).Methods("GET")
	svc.router.HandleFunc(danglingEndpoint, svc.renderDangling).Methods("GET")
	svc.router.HandleFunc(summaryEndpoint, svc.renderSummary).Methods("GET")
	svc.router.NotFoundHandler = http.HandlerFunc(svc.renderNotFound)
	return svc, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "report" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:              svc.cfg.ListenAddr,
		Handler:           svc.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	svc.cfg.Logger.WithField("addr", l.Addr().String()).Info("serving rank report")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}
	return err
}

// ServeHTTP lets the service be mounted on an existing server.
func (svc *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	svc.router.ServeHTTP(w, r)
}

// renderRanks lists URLs by decreasing rank. The optional "top" query
// parameter limits the number of returned entries.
func (svc *Service) renderRanks(w http.ResponseWriter, r *http.Request) {
	entries := svc.cfg.Store.Entries()
	ranks := svc.cfg.Store.Ranks()

	list := make([]RankedURL, len(entries))
	for i, e := range entries {
		list[i] = RankedURL{ID: e.ID.String(), URL: e.URL, Rank: ranks[e.Index]}
	}
	sort.SliceStable(list, func(l, r int) bool {
		if list[l].Rank != list[r].Rank {
			return list[l].Rank > list[r].Rank
		}
		return list[l].URL < list[r].URL
	})

	if topParam := r.URL.Query().Get("top"); topParam != "" {
		top, err := strconv.Atoi(topParam)
		if err != nil || top < 0 {
			svc.renderError(w, http.StatusBadRequest, xerrors.Errorf("invalid value for top: %q", topParam))
			return
		}
		if top < len(list) {
			list = list[:top]
		}
	}
	svc.renderJSON(w, list)
}

func (svc *Service) renderSinks(w http.ResponseWriter, _ *http.Request) {
	sinks := svc.cfg.Store.SinkComponents()
	if sinks == nil {
		sinks = [][]string{}
	}
	svc.renderJSON(w, sinks)
}

func (svc *Service) renderDangling(w http.ResponseWriter, _ *http.Request) {
	svc.renderJSON(w, svc.cfg.Store.DanglingNodes())
}

func (svc *Service) renderSummary(w http.ResponseWriter, _ *http.Request) {
	res := svc.cfg.Result
	svc.renderJSON(w, Summary{
		URLs:       len(svc.cfg.Store.Entries()),
		Iterations: res.Iterations,
		Error:      res.Error,
		State:      res.State.String(),
		RankMass:   res.RankMass,
		Elapsed:    res.Elapsed.String(),
		Sinks:      len(svc.cfg.Store.SinkComponents()),
		Dangling:   len(svc.cfg.Store.DanglingNodes()),
	})
}

func (svc *Service) renderNotFound(w http.ResponseWriter, r *http.Request) {
	svc.renderError(w, http.StatusNotFound, xerrors.Errorf("no such endpoint: %s", r.URL.Path))
}

func (svc *Service) renderError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (svc *Service) renderJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		svc.cfg.Logger.WithField("err", err).Error("unable to render response")
	}
}
