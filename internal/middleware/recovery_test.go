package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aditya/rideshare/pkg/logger"
	"github.com/go-chi/chi/v5"
)

func TestRecoveryReturnsGeneric500(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})

	h := Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("db password is hunter2")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Error("panic value leaked to the client")
	}
	if !strings.Contains(buf.String(), "hunter2") {
		t.Error("panic value should be logged")
	}
}

func TestLoggerRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})

	r := chi.NewRouter()
	r.Use(Logger(log), Metrics)
	r.Get("/rides/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rides/42", nil))

	out := buf.String()
	if !strings.Contains(out, `"route":"/rides/{id}"`) || !strings.Contains(out, `"status":404`) {
		t.Errorf("log line = %s", out)
	}
}
