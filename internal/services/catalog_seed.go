package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

// SeedCatalogFile loads quiz definitions from a JSON file into the catalog
func SeedCatalogFile(ctx context.Context, repo repositories.Repository, v *validator.Validator, logger *slog.Logger, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return SeedCatalog(ctx, repo, v, logger, f)
}

// SeedCatalog reads a JSON array of quiz definitions and creates every quiz
// that is not in the catalog yet. Definitions are validated before anything is
// written; one invalid definition rejects the whole seed.
func SeedCatalog(ctx context.Context, repo repositories.Repository, v *validator.Validator, logger *slog.Logger, r io.Reader) (int, error) {
	var defs []validator.QuizDefinition
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return 0, fmt.Errorf("failed to decode quiz definitions: %w", err)
	}

	for i := range defs {
		if err := v.ValidateQuizDefinition(&defs[i]); err != nil {
			return 0, fmt.Errorf("quiz definition %d (%q): %w", i, defs[i].Title, err)
		}
	}

	created := 0
	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for i := range defs {
			def := &defs[i]
			if def.ID != 0 {
				if _, err := tx.Quiz().GetByID(ctx, nil, def.ID); err == nil {
					logger.Debug("Quiz already seeded", "quiz_id", def.ID)
					continue
				} else if !repositories.IsNotFoundError(err) {
					return err
				}
			}

			quiz := def.ToModel()
			if err := tx.Quiz().Create(ctx, nil, quiz); err != nil {
				return err
			}
			created++

			logger.Info("Quiz seeded",
				"quiz_id", quiz.ID,
				"title", quiz.Title,
				"questions", len(quiz.Questions))
		}
		return nil
	})
	if err != nil {
		return 0, storageError("seed catalog", err)
	}

	return created, nil
}
