package conversion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/zombor/rema-xlsx/internal/invoice"
	"github.com/zombor/rema-xlsx/internal/sheet"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Conversion-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes an {"error": message} body
func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeConversionError maps pipeline failures to client or server errors
func writeConversionError(w http.ResponseWriter, err error) {
	var unreadable *invoice.UnreadablePDFError
	switch {
	case errors.As(err, &unreadable), errors.Is(err, invoice.ErrNoInvoiceData):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Conversion failed", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// contentDisposition builds an attachment header that survives non-ASCII names
func contentDisposition(filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	if ascii == filename {
		return fmt.Sprintf(`attachment; filename="%s"`, filename)
	}
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, url.PathEscape(filename))
}

func isPDFUpload(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/pdf")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxUploadSize>>20)
}

// handleIndex serves the upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleConvert converts an uploaded PDF and returns the workbook
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		if isTooLarge(err) {
			writeJSONError(w, s.tooLargeMessage(), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "No file provided", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		// A file input submitted without a selection arrives as an empty value
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeJSONError(w, "No file selected", http.StatusBadRequest)
			return
		}
		writeJSONError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if !isPDFUpload(header.Filename, header.Header.Get("Content-Type")) {
		writeJSONError(w, "File must be a PDF", http.StatusBadRequest)
		return
	}
	if header.Size > s.maxUploadSize {
		writeJSONError(w, s.tooLargeMessage(), http.StatusRequestEntityTooLarge)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	result, err := s.service.Convert(header.Filename, data)
	if err != nil {
		writeConversionError(w, err)
		return
	}

	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(result.Filename))
	if result.Conversion != nil {
		w.Header().Set("X-Conversion-ID", result.Conversion.ID)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(result.Workbook)
}

// handleListConversions returns the conversion history
func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	conversions, err := s.service.ListConversions()
	if err != nil {
		slog.Error("Error listing conversions", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if conversions == nil {
		conversions = []*Conversion{}
	}
	writeJSON(w, http.StatusOK, conversions)
}

// handleGetConversion returns a single conversion
func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	conversion, err := s.service.GetConversion(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, "Conversion not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, conversion)
}

// handleGetConversionFile returns the stored workbook
func (s *Server) handleGetConversionFile(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.service.GetConversionFile(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.Write(data)
}

// handleDeleteConversion deletes a conversion and its workbook
func (s *Server) handleDeleteConversion(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteConversion(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSONError(w, "Conversion not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting conversion", "error", err)
		writeJSONError(w, "Error deleting conversion", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
