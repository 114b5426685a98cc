package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/storage"
)

// TournamentSnapshot is the exported state of a tournament: enough to
// reconstruct standings and every round offline.
type TournamentSnapshot struct {
	ExportedAt time.Time          `json:"exported_at"`
	Tournament *models.Tournament `json:"tournament"`
	Standings  []StandingRow      `json:"standings"`
}

type ExportResult struct {
	Key       string `json:"key"`
	PublicURL string `json:"public_url,omitempty"`
}

type ExportService interface {
	// ExportSnapshot serializes the tournament to JSON and uploads it.
	// Returns ErrExportUnavailable when no object storage is configured.
	ExportSnapshot(ctx context.Context, tournamentID int) (*ExportResult, error)
}

type exportService struct {
	tournaments TournamentService
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewExportService(tournaments TournamentService, uploader storage.FileUploader, logger *slog.Logger) ExportService {
	return &exportService{tournaments: tournaments, uploader: uploader, logger: logger}
}

func (s *exportService) ExportSnapshot(ctx context.Context, tournamentID int) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, ErrExportUnavailable
	}

	t, err := s.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.tournaments.Standings(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	snapshot := TournamentSnapshot{
		ExportedAt: time.Now().UTC(),
		Tournament: t,
		Standings:  rows,
	}
	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tournament snapshot: %w", err)
	}

	key := fmt.Sprintf("tournaments/%d/snapshot-%s.json", tournamentID, snapshot.ExportedAt.Format("20060102T150405Z"))
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament snapshot: %w", err)
	}

	s.logger.Info("tournament snapshot exported",
		slog.Int("tournament_id", tournamentID),
		slog.String("key", result.Key))
	return &ExportResult{Key: result.Key, PublicURL: result.Location}, nil
}
