package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/yukikurage/tasktide/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrLabelNotFound = errors.New("label not found")
	ErrLabelInUse    = errors.New("label is in use")
)

// LookupService manages the shared status and origin labels.
type LookupService struct {
	lookupRepo repository.LookupRepository
}

// NewLookupService creates a new LookupService
func NewLookupService(lookupRepo repository.LookupRepository) *LookupService {
	return &LookupService{lookupRepo: lookupRepo}
}

// Distinct lists the labels of kind. With onlyActive, only labels used by
// creator's tasks are returned.
func (s *LookupService) Distinct(kind repository.LookupKind, creator string, onlyActive bool) ([]string, error) {
	activeFor := ""
	if onlyActive {
		activeFor = creator
	}
	labels, err := s.lookupRepo.List(kind, activeFor)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s labels: %w", kind, err)
	}
	return labels, nil
}

// Delete removes an unreferenced label.
func (s *LookupService) Delete(kind repository.LookupKind, label string) error {
	if err := s.lookupRepo.Delete(kind, label); err != nil {
		switch {
		case errors.Is(err, repository.ErrLookupInUse):
			return fmt.Errorf("%w: %v", ErrLabelInUse, err)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrLabelNotFound
		default:
			return fmt.Errorf("failed to delete %s label: %w", kind, err)
		}
	}
	slog.Info("label deleted", slog.String("kind", string(kind)), slog.String("label", label))
	return nil
}

// PruneUnused deletes every label nothing references and returns how many
// were removed.
func (s *LookupService) PruneUnused() (int64, error) {
	removed, err := s.lookupRepo.PruneUnused()
	if err != nil {
		return 0, fmt.Errorf("failed to prune labels: %w", err)
	}
	slog.Info("unused labels pruned", slog.Int64("removed", removed))
	return removed, nil
}
