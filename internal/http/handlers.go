package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"rentbook/internal/log"
)

const readyTimeout = 2 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.svc.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, newTenantViews(s.svc.Tenants()))
}

func (s *Server) handleUnpaidTenants(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, newTenantViews(s.svc.UnpaidTenants()))
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.FindTenant(pathParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newTenantView(t))
}

func (s *Server) handleAddTenant(w http.ResponseWriter, r *http.Request) {
	var req addTenantRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toTenant()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.AddTenant(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/tenants/"+url.PathEscape(t.Name))
	writeSuccess(w, http.StatusCreated, newTenantView(t))
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, newTenantViews(s.svc.Payments()))
}

func (s *Server) handleApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req applyPaymentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.ApplyPayment(r.Context(), in.name, in.method, in.tag, in.amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newTenantView(updated))
}

// handleStoreInvoice accepts a multipart upload with a "file" part and an
// optional "invoice_name" field. Without a name the file name is the label.
func (s *Server) handleStoreInvoice(w http.ResponseWriter, r *http.Request) {
	// room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.maxInvoiceBytes+1<<20)
	if err := r.ParseMultipartForm(s.maxInvoiceBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, &tooLargeError{limit: s.maxInvoiceBytes})
			return
		}
		writeError(w, r, newValidationError("body", "expected multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, newValidationError("file", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxInvoiceBytes+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > s.maxInvoiceBytes {
		writeError(w, r, &tooLargeError{limit: s.maxInvoiceBytes})
		return
	}

	label := strings.TrimSpace(r.FormValue("invoice_name"))
	if label == "" {
		label = filepath.Base(header.Filename)
	}

	if err := s.svc.StoreInvoice(r.Context(), label, data); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/invoices/"+url.PathEscape(label))
	writeSuccess(w, http.StatusCreated, map[string]any{
		"label":      label,
		"size_bytes": len(data),
	})
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListInvoices(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newInvoiceViews(list))
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.GetInvoice(r.Context(), pathParam(r, "label"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", inv.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": inv.Label}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(inv.Content)
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.ExportRoster(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int{"rows": rows})
}

// pathParam returns the unescaped route parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
