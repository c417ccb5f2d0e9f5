package printrelay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labelgw/label-gateway/internal/model"
)

func TestSubmit_ThermalRaw(t *testing.T) {
	var got printJobReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "PNK_test" {
			t.Errorf("basic auth user = %q", user)
		}
		if r.URL.Path != "/printjobs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(int64(473))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	art := model.LabelArtifact{Content: []byte("^XA^XZ"), Format: model.FormatZPL}

	job, err := c.Submit(context.Background(), "PNK_test", 70001234, art, "Shipping Label - 9400TEST (acct_A)")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.RelayJobID != 473 {
		t.Fatalf("job id = %d", job.RelayJobID)
	}
	if got.ContentType != "raw_base64" {
		t.Fatalf("contentType = %q, want raw_base64", got.ContentType)
	}
	if got.PrinterID != 70001234 {
		t.Fatalf("printerId = %d", got.PrinterID)
	}
	decoded, _ := base64.StdEncoding.DecodeString(got.Content)
	if string(decoded) != "^XA^XZ" {
		t.Fatal("content must be the base64 artifact bytes")
	}
}

func TestSubmit_PDFContentType(t *testing.T) {
	var got printJobReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(int64(1))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	art := model.LabelArtifact{Content: []byte("%PDF"), Format: model.FormatPDF}
	if _, err := c.Submit(context.Background(), "k", 1, art, "t"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.ContentType != "pdf_base64" {
		t.Fatalf("contentType = %q, want pdf_base64", got.ContentType)
	}
}

func TestSubmit_ErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"printer missing", http.StatusNotFound, ErrPrinterNotFound},
		{"bad key", http.StatusUnauthorized, ErrAuthFailed},
		{"relay down", http.StatusServiceUnavailable, ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			art := model.LabelArtifact{Content: []byte("x"), Format: model.FormatZPL}
			_, err := c.Submit(context.Background(), "k", 1, art, "t")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
