package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // LINKMESH_DATABASE_URL (required)
	HTTPAddr    string // LINKMESH_HTTP_ADDR (default ":8080")
	NATSURL     string // LINKMESH_NATS_URL (optional, empty = no events)
	AuthToken   string // LINKMESH_AUTH_TOKEN (optional, empty = auth disabled)
	RulesFile   string // LINKMESH_RULES_FILE (optional TOML detection rule overrides)

	// Structure service (network snapshots)
	StructureURL   string // LINKMESH_STRUCTURE_URL (required for detection runs)
	StructureToken string // LINKMESH_STRUCTURE_TOKEN (optional)

	// Optimizer service (remediation tasks)
	OptimizerURL   string // LINKMESH_OPTIMIZER_URL (optional, empty = task creation disabled)
	OptimizerToken string // LINKMESH_OPTIMIZER_TOKEN (optional)

	// Sync settings
	SyncInterval   time.Duration // LINKMESH_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // LINKMESH_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // LINKMESH_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // LINKMESH_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // LINKMESH_SYNC_S3_KEY (default "linkmesh/conflicts.jsonl")
	SyncGitRepo    string        // LINKMESH_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // LINKMESH_SYNC_GIT_FILE (default "conflicts.jsonl")
	SyncGitBranch  string        // LINKMESH_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("LINKMESH_DATABASE_URL"),
		HTTPAddr:       envOrDefault("LINKMESH_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("LINKMESH_NATS_URL"),
		AuthToken:      os.Getenv("LINKMESH_AUTH_TOKEN"),
		RulesFile:      os.Getenv("LINKMESH_RULES_FILE"),
		StructureURL:   os.Getenv("LINKMESH_STRUCTURE_URL"),
		StructureToken: os.Getenv("LINKMESH_STRUCTURE_TOKEN"),
		OptimizerURL:   os.Getenv("LINKMESH_OPTIMIZER_URL"),
		OptimizerToken: os.Getenv("LINKMESH_OPTIMIZER_TOKEN"),
		SyncS3Bucket:   os.Getenv("LINKMESH_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("LINKMESH_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("LINKMESH_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("LINKMESH_SYNC_S3_KEY", "linkmesh/conflicts.jsonl"),
		SyncGitRepo:    os.Getenv("LINKMESH_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("LINKMESH_SYNC_GIT_FILE", "conflicts.jsonl"),
		SyncGitBranch:  envOrDefault("LINKMESH_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("LINKMESH_DATABASE_URL is required")
	}
	if c.StructureURL == "" {
		return nil, fmt.Errorf("LINKMESH_STRUCTURE_URL is required")
	}

	intervalStr := envOrDefault("LINKMESH_SYNC_INTERVAL", "3m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("LINKMESH_SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
