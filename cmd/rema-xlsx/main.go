package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/rema-xlsx/internal/conversion"
	"github.com/zombor/rema-xlsx/internal/pipeline"
	"github.com/zombor/rema-xlsx/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Load .env file if it exists
	godotenv.Load()

	fs := ff.NewFlagSet("rema-xlsx")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "rema-xlsx.db", "Conversion history database file path")
		storageType = fs.StringLong("storage", "local", "Workbook storage: 'local' or 's3'")
		storagePath = fs.StringLong("storage-path", "./konverteringer", "Local workbook storage directory")
		s3Endpoint  = fs.StringLong("s3-endpoint", "localhost:9000", "S3 endpoint (host:port)")
		s3AccessKey = fs.StringLong("s3-access-key", "", "S3 access key")
		s3SecretKey = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3Bucket    = fs.StringLong("s3-bucket", "rema-xlsx", "S3 bucket name")
		s3Region    = fs.StringLong("s3-region", "us-east-1", "S3 region")
		s3UseSSL    = fs.BoolLong("s3-use-ssl", "Use TLS for the S3 endpoint")
		extractor   = fs.StringLong("extractor", scanning.BackendFitz, "PDF text extractor: 'fitz' or 'pdf'")
		ocrType     = fs.StringLong("ocr", "none", "OCR fallback for scanned PDFs: 'none', 'tesseract', 'gemini' or 'ollama'")
		ocrLanguage = fs.StringLong("ocr-language", "nor", "Tesseract language")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		input       = fs.StringLong("input", "", "Convert this PDF and exit instead of starting the server")
		outputDir   = fs.StringLong("output-dir", "./XLSX", "Output directory for --input")
		maxUploadMB = fs.IntLong("max-upload-mb", 50, "Maximum upload size in MB")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat   = fs.StringLong("log-format", "text", "Log format: 'text' or 'json'")
		_           = fs.StringLong("config", "", "Config file (flag value pairs, one per line)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("REMA_XLSX"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Initialize text extraction
	textExtractor, err := scanning.NewExtractor(*extractor)
	if err != nil {
		slog.Error("Failed to initialize extractor", "error", err)
		os.Exit(1)
	}

	recognizer, err := newRecognizer(*ocrType, *ocrLanguage, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize OCR", "ocr", *ocrType, "error", err)
		os.Exit(1)
	}
	if recognizer != nil {
		textExtractor = scanning.NewOCR(textExtractor, recognizer)
	}

	pipe := pipeline.New(textExtractor)
	defer pipe.Close()

	if *input != "" {
		if err := convertFile(pipe, *input, *outputDir); err != nil {
			slog.Error("Conversion failed", "input", *input, "error", err)
			pipe.Close()
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := conversion.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "type", *storageType)
	var store conversion.Storage
	switch *storageType {
	case "local":
		store, err = conversion.NewLocalStorage(*storagePath)
	case "s3":
		store, err = newS3Storage(conversion.S3Config{
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Bucket:    *s3Bucket,
			Region:    *s3Region,
			UseSSL:    *s3UseSSL,
		})
	default:
		err = fmt.Errorf("invalid storage type %q, valid: local or s3", *storageType)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := conversion.NewService(db, pipe, store)
	server := conversion.NewServer(service, int64(*maxUploadMB)<<20)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// newLogger builds the process logger from the level and format flags
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q, valid: text or json", format)
}

// newRecognizer returns the OCR backend for scanned PDFs, or nil when OCR is off
func newRecognizer(ocrType, language, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Recognizer, error) {
	switch ocrType {
	case "", "none":
		return nil, nil
	case "tesseract":
		slog.Info("Initializing Tesseract OCR...", "language", language)
		return scanning.NewTesseract(language), nil
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini OCR...", "model", geminiModel)
		return scanning.NewGemini(apiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama OCR...", "url", ollamaURL, "model", ollamaModel)
		return scanning.NewOllama(ollamaURL, ollamaModel)
	}
	return nil, fmt.Errorf("invalid ocr type %q, valid: none, tesseract, gemini or ollama", ocrType)
}

func newS3Storage(cfg conversion.S3Config) (*conversion.S3Storage, error) {
	store, err := conversion.NewS3Storage(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// convertFile runs one PDF through the pipeline and writes the workbook next to the others
func convertFile(pipe *pipeline.Pipeline, input, outputDir string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	out, err := pipe.Run(data)
	if err != nil {
		return err
	}

	path, err := conversion.WriteFile(outputDir, conversion.OutputFilename(input), out.Workbook)
	if err != nil {
		return err
	}

	summary := out.Result.Summary
	slog.Info("Wrote workbook",
		"path", path,
		"items", len(out.Result.Items),
		"flagged", out.Result.FlaggedCount(),
		"sum_25", summary.Sum25.StringFixed(2),
		"sum_15", summary.Sum15.StringFixed(2),
		"sum_0", summary.Sum0.StringFixed(2),
		"total", summary.Total.StringFixed(2),
	)
	fmt.Println(path)
	return nil
}
