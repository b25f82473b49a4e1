package conversion

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zombor/rema-xlsx/internal/pipeline"
)

// IDGenerator generates unique IDs for conversions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Converter turns PDF bytes into a rendered conversion
type Converter interface {
	Run(pdfData []byte) (*pipeline.Output, error)
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Result is a finished conversion ready for download
type Result struct {
	Conversion *Conversion // nil when the history could not be written
	Filename   string
	Workbook   []byte
}

// Service handles conversion operations
type Service struct {
	db          DB
	converter   Converter
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, converter Converter, storage Storage) *Service {
	return &Service{
		db:          db,
		converter:   converter,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, converter Converter, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		converter:   converter,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Convert runs an uploaded PDF through the pipeline and records it in the history
func (s *Service) Convert(filename string, data []byte) (*Result, error) {
	out, err := s.converter.Run(data)
	if err != nil {
		slog.Error("Failed to convert document",
			"filename", filename,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("converting %s: %w", filename, err)
	}

	outputName := OutputFilename(filename)
	conversion := newConversion(s.idGenerator.Generate(), filename, outputName, out.Result, s.timeSource.Now())

	result := &Result{Filename: outputName, Workbook: out.Workbook}
	if s.record(conversion, out.Workbook) {
		result.Conversion = conversion
	}
	return result, nil
}

// record stores the workbook and its history entry. Failures are logged and reported as false.
func (s *Service) record(conversion *Conversion, workbook []byte) bool {
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", conversion.ID, conversion.OutputFilename), workbook)
	if err != nil {
		slog.Warn("Failed to store workbook", "id", conversion.ID, "error", err)
		return false
	}
	conversion.StoragePath = savedPath

	if err := s.db.SaveConversion(conversion); err != nil {
		slog.Warn("Failed to save conversion", "id", conversion.ID, "error", err)
		if err := s.storage.Delete(savedPath); err != nil {
			slog.Warn("Failed to delete file", "path", savedPath, "error", err)
		}
		return false
	}
	return true
}

// GetConversion retrieves a conversion by ID
func (s *Service) GetConversion(id string) (*Conversion, error) {
	conversion, err := s.db.GetConversion(id)
	if err != nil {
		return nil, fmt.Errorf("getting conversion: %w", err)
	}
	return conversion, nil
}

// ListConversions returns all conversions
func (s *Service) ListConversions() ([]*Conversion, error) {
	conversions, err := s.db.ListConversions()
	if err != nil {
		return nil, fmt.Errorf("listing conversions: %w", err)
	}
	return conversions, nil
}

// DeleteConversion removes a conversion and its workbook
func (s *Service) DeleteConversion(id string) error {
	conversion, err := s.db.GetConversion(id)
	if err != nil {
		return fmt.Errorf("getting conversion for deletion: %w", err)
	}

	if err := s.storage.Delete(conversion.StoragePath); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "path", conversion.StoragePath, "error", err)
	}

	if err := s.db.DeleteConversion(id); err != nil {
		return fmt.Errorf("deleting conversion from database: %w", err)
	}
	return nil
}

// GetConversionFile retrieves the stored workbook and its download name
func (s *Service) GetConversionFile(id string) ([]byte, string, error) {
	conversion, err := s.db.GetConversion(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting conversion: %w", err)
	}

	data, err := s.storage.Get(conversion.StoragePath)
	if err != nil {
		return nil, "", fmt.Errorf("getting conversion file: %w", err)
	}

	return data, conversion.OutputFilename, nil
}
