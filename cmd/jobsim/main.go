// jobsim is a reference job-queue server implementing the API the
// scenario validators probe: job submission, priority scheduling,
// timeouts, retries and worker autoscaling. It exists so validator
// development does not require a finished challenge solution.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
	"gopkg.in/inconshreveable/log15.v2"
)

var (
	portFlag     = flag.Int("port", 8080, "Port to listen on")
	workersFlag  = flag.Int("workers", 4, "Initial worker count")
	loglevelFlag = flag.Int("loglevel", 3, "Log level to use for displaying system events")
)

type server struct {
	pool   *Pool
	logger log15.Logger
	start  time.Time
}

func main() {
	flag.Parse()
	log15.Root().SetHandler(log15.LvlFilterHandler(log15.Lvl(*loglevelFlag), log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
	logger := log15.New("module", "jobsim")

	s := &server{
		pool:   NewPool(*workersFlag, logger),
		logger: logger,
		start:  time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/jobs", s.submitJob).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}", s.getJob).Methods(http.MethodGet)
	router.HandleFunc("/workers", s.getWorkers).Methods(http.MethodGet)
	router.HandleFunc("/workers/scale", s.scaleWorkers).Methods(http.MethodPost)
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.stats).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *portFlag),
		Handler: gzipMiddleware(router),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr, "workers", *workersFlag)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.pool.Autoscale()
			case <-ctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.pool.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Crit("server failed", "err", err)
		os.Exit(1)
	}
}

func (s *server) submitJob(w http.ResponseWriter, r *http.Request) {
	var job Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}
	if job.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing job type"})
		return
	}
	submitted := s.pool.Submit(&job)
	s.logger.Debug("job submitted", "id", submitted.ID, "type", submitted.Type, "priority", submitted.Priority)

	snapshot, _ := s.pool.Snapshot(submitted.ID)
	writeJSON(w, http.StatusCreated, snapshot)
}

func (s *server) getJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snapshot, ok := s.pool.Snapshot(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *server) getWorkers(w http.ResponseWriter, r *http.Request) {
	workers, active, queued, _ := s.pool.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"count":  workers,
		"active": active,
		"queued": queued,
	})
}

func (s *server) scaleWorkers(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid count parameter"})
		return
	}
	s.pool.Scale(count)
	s.logger.Info("scaled workers", "count", count)
	workers, _, _, _ := s.pool.Stats()
	writeJSON(w, http.StatusOK, map[string]int{"count": workers})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	workers, active, queued, total := s.pool.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workers": map[string]int{
			"total":  workers,
			"active": active,
		},
		"jobs": map[string]int{
			"total":  total,
			"queued": queued,
		},
		"uptime_seconds": int(time.Since(s.start).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// gzipMiddleware compresses responses for clients that accept it.
func gzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzip.NewWriter(w)
		defer gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}
