// Command autorag ingests documents into the retrieval index and answers
// questions over them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/autorag/autorag/config"
	"github.com/autorag/autorag/rag"
	"github.com/autorag/autorag/schema"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := config.LoadApp()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	service, err := rag.NewService(app)
	if err != nil {
		logger.Error("failed to start service", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	watcher, err := config.NewWatcher(service.ConfigStore(), service.InvalidateConfig)
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		watcher.Start(watchCtx)
	}

	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, service, os.Args[2:])
	case "query":
		err = runQuery(ctx, service, os.Args[2:])
	case "configure":
		err = runConfigure(ctx, service, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: autorag <command> [flags]

commands:
  ingest     chunk, embed, and index text files
  query      answer a question over the indexed documents
  configure  persist model and retrieval configuration`)
}

func runIngest(ctx context.Context, service *rag.Service, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("path", "", "file or directory to ingest")
	replace := fs.Bool("replace", false, "rebuild the index instead of appending")
	mimeTypes := fs.String("mime", "", "comma-separated MIME types to keep, empty keeps all")
	storage := fs.String("storage", "", "index storage location: local or remote")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("ingest requires -path")
	}

	docs, err := loadDocuments(*path)
	if err != nil {
		return err
	}

	opts := rag.IngestOptions{
		Replace:         *replace,
		StorageLocation: *storage,
	}
	if *mimeTypes != "" {
		opts.MimeTypes = strings.Split(*mimeTypes, ",")
	}

	chunks, err := service.Ingest(ctx, docs, opts)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d documents as %d chunks\n", len(docs), chunks)
	return nil
}

func runQuery(ctx context.Context, service *rag.Service, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	question := fs.String("q", "", "question to answer")
	mode := fs.String("mode", "", "search mode: semantic, hybrid, or reranking")
	storage := fs.String("storage", "", "index storage location: local or remote")
	sources := fs.Bool("sources", false, "include source snippets in the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *question == "" {
		return fmt.Errorf("query requires -q")
	}

	answer, err := service.Query(ctx, *question, rag.QueryOptions{
		SearchMode:      *mode,
		StorageLocation: *storage,
		IncludeSources:  *sources,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runConfigure(ctx context.Context, service *rag.Service, args []string) error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	provider := fs.String("provider", "", "model provider: local, hosted_free, hosted_paid, enterprise")
	model := fs.String("model", "", "model name")
	credential := fs.String("credential", "", "provider API key or token")
	endpoint := fs.String("endpoint", "", "enterprise endpoint URL")
	deployment := fs.String("deployment", "", "enterprise deployment name")
	apiVersion := fs.String("api-version", "", "enterprise API version")
	search := fs.String("search", "", "default search mode")
	storage := fs.String("storage", "", "default storage location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := service.ConfigStore().Load()
	if *provider != "" {
		cfg.Model.Provider = *provider
	}
	if *model != "" {
		cfg.Model.ModelName = *model
	}
	if *credential != "" {
		cfg.Model.Credential = *credential
	}
	if *endpoint != "" {
		cfg.Model.Endpoint = *endpoint
	}
	if *deployment != "" {
		cfg.Model.Deployment = *deployment
	}
	if *apiVersion != "" {
		cfg.Model.APIVersion = *apiVersion
	}
	if *search != "" {
		cfg.Retrieval.SearchOption = *search
	}
	if *storage != "" {
		cfg.Retrieval.StorageLocation = *storage
	}

	if err := service.UpdateConfig(ctx, cfg); err != nil {
		return err
	}

	fmt.Println("configuration saved")
	return nil
}

// loadDocuments reads a file or every regular file under a directory into
// documents with source and MIME metadata.
func loadDocuments(path string) ([]schema.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var files []string
	if info.IsDir() {
		err := filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{path}
	}

	docs := make([]schema.Document, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		mimeType := mime.TypeByExtension(filepath.Ext(file))
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
		if mimeType == "" {
			mimeType = "text/plain"
		}

		docs = append(docs, schema.NewDocument(string(data), map[string]string{
			schema.MetadataKeySource:   filepath.Base(file),
			schema.MetadataKeyMimeType: mimeType,
		}))
	}

	return docs, nil
}
