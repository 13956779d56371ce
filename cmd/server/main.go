package main

import (
	"context"
	"log"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/apigateway"
	"literacy-screening-platform/backend/internal/auth"
	"literacy-screening-platform/backend/internal/config"
	"literacy-screening-platform/backend/internal/contentsource"
	"literacy-screening-platform/backend/internal/coreengine/screeningengine"
	"literacy-screening-platform/backend/internal/objectstore"
	"literacy-screening-platform/backend/internal/sessionmanagement"
	"literacy-screening-platform/backend/internal/sessionstore"
	"literacy-screening-platform/backend/internal/transcribers"
	"literacy-screening-platform/backend/internal/workflowgate"
)

func main() {
	cfg := config.Load()
	auth.LoadAdminCredentials()

	// Session persistence: PostgreSQL when configured, in-memory otherwise.
	var store sessionstore.Store
	if cfg.DatabaseURL != "" {
		pg, err := sessionstore.OpenPG(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer pg.Close()
		store = pg
		log.Println("Session store: PostgreSQL")
	} else {
		store = sessionstore.NewMemoryStore()
		log.Println("Session store: in-memory (no DATABASE_URL set)")
	}

	// Recording archive is optional; without MinIO credentials captures are
	// simply not archived.
	var archive *objectstore.RecordingArchive
	if cfg.MinioEndpoint != "" {
		a, err := objectstore.NewRecordingArchive(context.Background(),
			cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("Failed to initialize recording archive: %v", err)
		}
		archive = a
	} else {
		log.Println("Recording archive disabled (no MINIO_ENDPOINT set)")
	}

	client := analysisservice.NewClient(cfg.AnalysisBaseURL)
	registry := transcribers.NewRegistry(client, cfg.DeepgramAPIKey, cfg.GoogleCredsFile)
	transcriber := registry.Get(cfg.TranscriberVendor)
	log.Printf("Transcriber vendor: %s", transcriber.Name())

	provider := contentsource.NewProvider(client)
	service, err := sessionmanagement.NewService(sessionmanagement.Config{
		Provider:    provider,
		Transcriber: transcriber,
		Engine:      screeningengine.New(client),
		Gate:        workflowgate.New(client),
		Store:       store,
		Reporter:    client,
		Archive:     archive,
		Identity:    sessionstore.NewIdentity(cfg.SessionIDFile),
	})
	if err != nil {
		log.Fatalf("Failed to build session service: %v", err)
	}

	router := apigateway.SetupRouter(service, provider)
	log.Printf("Starting server on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
