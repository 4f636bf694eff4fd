package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/guidoenr/lanechart/internal/analyzer"
	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/config"
	"github.com/guidoenr/lanechart/internal/decode"
	"github.com/guidoenr/lanechart/internal/params"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one uploaded file and, once analyzed, its chart.
type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`
	Preset    string    `json:"preset"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	NoteCount int       `json:"note_count"`
	Created   time.Time `json:"created"`

	chart *chart.Chart
}

// Stats counts jobs by outcome.
type Stats struct {
	Jobs      int `json:"jobs"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type event struct {
	Type  string `json:"type"`
	Job   *Job   `json:"job,omitempty"`
	Stats *Stats `json:"stats,omitempty"`
}

// Server accepts audio uploads, analyzes them in the background and serves
// the resulting charts. Job changes are pushed to websocket clients.
type Server struct {
	cfg config.Config
	log *log.Logger

	mu   sync.RWMutex
	jobs map[string]*Job

	clientsMu sync.RWMutex
	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	statsSoon func(func())

	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer builds the service. Call Start to listen, or mount Handler.
func NewServer(cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[web] ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		log:       logger,
		jobs:      make(map[string]*Job),
		clients:   make(map[*websocketClient]bool),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		statsSoon: debounce.New(200 * time.Millisecond),
		slots:     make(chan struct{}, max(cfg.MaxJobs, 1)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Handler returns the routed API with CORS enabled for every origin.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleJob).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}/midi", s.handleMIDI).Methods(http.MethodGet)
	api.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)
	api.HandleFunc("/params", s.handleParams).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	return cors.AllowAll().Handler(r)
}

// Start serves on the configured port until ctx is cancelled, then drains
// running jobs.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.broadcastLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.Printf("server starting on http://0.0.0.0%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close cancels running jobs and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	preset := r.URL.Query().Get("preset")
	p, err := s.parameters(preset)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	if limit := s.cfg.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		httpError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) == 0 {
		httpError(w, http.StatusBadRequest, errors.New("empty upload"))
		return
	}

	name := filepath.Base(r.Header.Get("X-Filename"))
	if preset == "" {
		preset = s.cfg.Preset
	}
	job := &Job{
		ID:      uuid.New().String(),
		Source:  strings.TrimPrefix(name, "."),
		Preset:  preset,
		Status:  StatusQueued,
		Created: time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	s.publish(job)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job, name, data, p)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"id": job.ID, "status": string(StatusQueued)})
}

// run waits for a free slot, then decodes and analyzes one upload, updating
// the job as it goes.
func (s *Server) run(job *Job, name string, data []byte, p params.Parameters) {
	select {
	case s.slots <- struct{}{}:
	case <-s.ctx.Done():
		s.update(job, StatusFailed, "server shutting down", nil)
		return
	}
	defer func() { <-s.slots }()

	s.update(job, StatusAnalyzing, "", nil)

	buf, err := decode.Bytes(s.ctx, name, data, s.cfg.DecodeOptions())
	if err != nil {
		s.log.Printf("job %s: decode failed: %v", job.ID, err)
		s.update(job, StatusFailed, err.Error(), nil)
		return
	}

	a, err := analyzer.New(analyzer.Config{Params: p, Log: s.log})
	if err != nil {
		s.update(job, StatusFailed, err.Error(), nil)
		return
	}
	notes, err := a.Analyze(buf)
	if err != nil {
		s.log.Printf("job %s: analysis failed: %v", job.ID, err)
		s.update(job, StatusFailed, err.Error(), nil)
		return
	}

	c := &chart.Chart{
		ID:         job.ID,
		Source:     job.Source,
		SampleRate: buf.SampleRate,
		Duration:   buf.Duration(),
		Preset:     job.Preset,
		Notes:      notes,
	}
	s.update(job, StatusCompleted, fmt.Sprintf("%d notes", len(notes)), c)
}

func (s *Server) update(job *Job, status Status, message string, c *chart.Chart) {
	s.mu.Lock()
	job.Status = status
	job.Message = message
	if c != nil {
		job.chart = c
		job.NoteCount = len(c.Notes)
	}
	s.mu.Unlock()
	s.publish(job)
}

// parameters resolves a preset name against the configured parameter file
// and worker count.
func (s *Server) parameters(preset string) (params.Parameters, error) {
	cfg := s.cfg
	if preset != "" {
		cfg.Preset = preset
	}
	return cfg.Parameters()
}

// snapshot copies a job under the read lock.
func (s *Server) snapshot(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (s *Server) stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Jobs: len(s.jobs)}
	for _, job := range s.jobs {
		switch job.Status {
		case StatusCompleted:
			st.Completed++
		case StatusFailed:
			st.Failed++
		}
	}
	return st
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	s.mu.RUnlock()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Created.Before(jobs[j].Created)
	})
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.snapshot(mux.Vars(r)["id"])
	if !ok {
		httpError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) completedChart(w http.ResponseWriter, r *http.Request) (*chart.Chart, bool) {
	job, ok := s.snapshot(mux.Vars(r)["id"])
	if !ok {
		httpError(w, http.StatusNotFound, errors.New("job not found"))
		return nil, false
	}
	if job.Status != StatusCompleted || job.chart == nil {
		httpError(w, http.StatusNotFound, fmt.Errorf("job is %s", job.Status))
		return nil, false
	}
	return job.chart, true
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.completedChart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleMIDI(w http.ResponseWriter, r *http.Request) {
	c, ok := s.completedChart(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.ID+".mid"))
	if err := c.WriteMIDI(w); err != nil {
		s.log.Printf("midi export %s: %v", c.ID, err)
	}
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, params.PresetNames())
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	p, err := params.Preset(r.URL.Query().Get("preset"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
