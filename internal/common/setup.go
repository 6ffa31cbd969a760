package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"fraction-presale-go/internal/api"
	"fraction-presale-go/internal/database"
	"fraction-presale-go/internal/formance"
	"fraction-presale-go/internal/mirror"
	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/presale"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	DbService  *database.Service
	Engine     *presale.Engine
	ApiService *api.PresaleService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	programID, err := ParseProgramID(cfg.Presale.ProgramId)
	if err != nil {
		return nil, err
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Presale engine ready", zap.String("program_id", programID.String()))
	return NewServices(dbService, programID), nil
}

// NewServices wires the engine and read API on top of an open database
func NewServices(dbService *database.Service, programID solana.PublicKey, opts ...presale.Option) *Services {
	return &Services{
		DbService:  dbService,
		Engine:     presale.New(dbService, programID, opts...),
		ApiService: api.NewPresaleService(dbService, programID),
	}
}

// InitializeMirror connects to Formance and returns a mirror draining this database's outbox
func InitializeMirror(ctx context.Context, cfg *models.Config, dbService *database.Service) (*mirror.Mirror, *formance.Service, error) {
	sink, err := formance.NewService(ctx, cfg.Mirror.Formance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize formance: %w", err)
	}
	return mirror.New(dbService, sink, cfg.Mirror), sink, nil
}

// ParseProgramID falls back to the default program when value is empty
func ParseProgramID(value string) (solana.PublicKey, error) {
	if value == "" {
		return presale.DefaultProgramID, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid PRESALE_PROGRAM_ID %q: %w", value, err)
	}
	return key, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
