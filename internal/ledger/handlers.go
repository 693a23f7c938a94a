package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// uploadError is one failed file in a batch upload.
type uploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// uploadResponse reports a batch upload: processed receipts plus the
// files that were skipped. One bad receipt never aborts the batch.
type uploadResponse struct {
	Receipts []*ReceiptResult `json:"receipts"`
	Errors   []uploadError    `json:"errors,omitempty"`
}

// handleUploadReceipts processes one or more uploaded receipt images.
// Files arrive as repeated "file" parts; an optional "date" form field
// (YYYY-MM-DD) overrides the OCR-reported date for every file in the
// request.
func (s *Server) handleUploadReceipts(w http.ResponseWriter, r *http.Request) {
	// 50MB cap to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	dateOverride := r.FormValue("date")
	if dateOverride != "" {
		if _, err := time.Parse("2006-01-02", dateOverride); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file was selected. Please choose at least one file to upload."})
		return
	}

	resp := uploadResponse{Receipts: make([]*ReceiptResult, 0, len(files))}
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			resp.Errors = append(resp.Errors, uploadError{Filename: header.Filename, Error: "opening upload"})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			resp.Errors = append(resp.Errors, uploadError{Filename: header.Filename, Error: "reading upload"})
			continue
		}

		contentType := header.Header.Get("Content-Type")
		result, err := s.service.ProcessReceipt(header.Filename, data, contentType, dateOverride)
		if err != nil {
			slog.Error("Skipping receipt", "filename", header.Filename, "error", err)
			resp.Errors = append(resp.Errors, uploadError{Filename: header.Filename, Error: err.Error()})
			continue
		}
		resp.Receipts = append(resp.Receipts, result)
	}

	status := http.StatusCreated
	if len(resp.Receipts) == 0 {
		// Every file failed upstream; nothing was added to the ledger.
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// handleListReceipts returns all persisted receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleGetReceipt returns a single receipt with its entries
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetReceiptFile serves the stored receipt image
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		corsError(w, "Receipt file not found", http.StatusNotFound)
		return
	}
	setCORSHeaders(w)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt removes a receipt and its file
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// ledgerResponse is the combined ledger view: one row per canonical
// entry plus the running grand total.
type ledgerResponse struct {
	Rows       []Row   `json:"rows"`
	GrandTotal float64 `json:"grand_total"`
}

// handleLedger returns the combined ledger for the batch
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l := s.service.Ledger()
	writeJSON(w, http.StatusOK, ledgerResponse{
		Rows:       l.Rows(),
		GrandTotal: l.GrandTotal(),
	})
}

// handleExportCSV streams the ledger as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	if err := s.service.Ledger().WriteCSV(w); err != nil {
		slog.Error("Error writing CSV export", "error", err)
	}
}

// handleExportXLSX serves the ledger as an XLSX workbook
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Ledger().ExportXLSX()
	if err != nil {
		slog.Error("Error building XLSX export", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the stylesheet
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(appCSS)
}

// handleStaticJS serves the frontend script
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
