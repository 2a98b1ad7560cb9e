// Package main replays a CSV of speaker and session ids against the embedding maintenance API,
// the way the entity CRUD service does after an import.
//
// The CSV needs an entity_type column (speaker or session) and an entity_id column (uuid).
//
// Usage:
//
//	go run ./scripts/regenerate-csv -file /path/to/entities.csv -api-url http://localhost:8080 -api-key YOUR_API_KEY
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the CLI configuration
type Config struct {
	FilePath   string
	APIBaseURL string
	APIKey     string
	DelayMS    int
	DryRun     bool
}

type regenerateRequest struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

// Stats tracks replay statistics
type Stats struct {
	TotalRows       int
	SkippedInvalid  int
	SuccessfulPosts int
	FailedPosts     int
}

var errMissingColumn = errors.New("missing column")

func main() {
	cfg := parseFlags()

	if cfg.FilePath == "" {
		fmt.Println("Error: -file is required")
		flag.Usage()
		os.Exit(1)
	}

	if cfg.APIKey == "" && !cfg.DryRun {
		fmt.Println("Error: -api-key is required")
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("eventhub embedding regeneration replay\n")
	fmt.Printf("   API URL: %s\n", cfg.APIBaseURL)
	fmt.Printf("   CSV File: %s\n", cfg.FilePath)
	fmt.Printf("   Delay: %dms between requests\n", cfg.DelayMS)

	if cfg.DryRun {
		fmt.Printf("   DRY RUN MODE - no API calls will be made\n")
	}

	fmt.Println()

	stats, err := processCSV(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Summary")
	fmt.Printf("   Total rows processed:  %d\n", stats.TotalRows)
	fmt.Printf("   Skipped (invalid):     %d\n", stats.SkippedInvalid)
	fmt.Printf("   Enqueued:              %d\n", stats.SuccessfulPosts)
	fmt.Printf("   Failed:                %d\n", stats.FailedPosts)

	if stats.FailedPosts > 0 {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.FilePath, "file", "", "Path to CSV file (required)")
	flag.StringVar(&cfg.APIBaseURL, "api-url", "http://localhost:8080", "eventhub API base URL")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for authentication (required unless -dry-run)")
	flag.IntVar(&cfg.DelayMS, "delay", 50, "Delay in milliseconds between API calls")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Parse CSV but don't make API calls")

	flag.Parse()

	return cfg
}

// columnIndex maps the header to the two columns we need.
func columnIndex(header []string) (typeCol, idCol int, err error) {
	typeCol, idCol = -1, -1

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "entity_type", "entitytype":
			typeCol = i
		case "entity_id", "entityid":
			idCol = i
		}
	}

	if typeCol < 0 {
		return 0, 0, fmt.Errorf("%w: entity_type", errMissingColumn)
	}

	if idCol < 0 {
		return 0, 0, fmt.Errorf("%w: entity_id", errMissingColumn)
	}

	return typeCol, idCol, nil
}

// parseRow returns the request for one row, or false when the row is not usable.
func parseRow(row []string, typeCol, idCol int) (regenerateRequest, bool) {
	entityType := strings.ToLower(strings.TrimSpace(safeGet(row, typeCol)))
	if entityType != "speaker" && entityType != "session" {
		return regenerateRequest{}, false
	}

	id, err := uuid.Parse(strings.TrimSpace(safeGet(row, idCol)))
	if err != nil || id == uuid.Nil {
		return regenerateRequest{}, false
	}

	return regenerateRequest{EntityType: entityType, EntityID: id.String()}, true
}

func processCSV(cfg Config) (Stats, error) {
	stats := Stats{}

	file, err := os.Open(cfg.FilePath)
	if err != nil {
		return stats, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}

	typeCol, idCol, err := columnIndex(header)
	if err != nil {
		return stats, err
	}

	client := &http.Client{Timeout: 10 * time.Second}

	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			fmt.Printf("   Row %d: error reading: %v\n", rowNum, err)

			continue
		}

		stats.TotalRows++

		req, ok := parseRow(row, typeCol, idCol)
		if !ok {
			fmt.Printf("   Row %d: skipped (need speaker|session and a uuid)\n", rowNum)
			stats.SkippedInvalid++

			continue
		}

		if cfg.DryRun {
			fmt.Printf("   [DRY] Row %d: would enqueue %s %s\n", rowNum, req.EntityType, req.EntityID)
			stats.SuccessfulPosts++

			continue
		}

		if err := postRegenerate(client, cfg, req); err != nil {
			fmt.Printf("   Row %d (%s %s): %v\n", rowNum, req.EntityType, req.EntityID, err)
			stats.FailedPosts++
		} else {
			fmt.Printf("   Row %d: enqueued %s %s\n", rowNum, req.EntityType, req.EntityID)
			stats.SuccessfulPosts++
		}

		time.Sleep(time.Duration(cfg.DelayMS) * time.Millisecond)
	}

	return stats, nil
}

func postRegenerate(client *http.Client, cfg Config, req regenerateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/v1/embeddings/regenerate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}

func safeGet(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}

	return ""
}
