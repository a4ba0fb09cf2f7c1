package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// GormLookupRepository is a GORM implementation of LookupRepository
type GormLookupRepository struct {
	db *gorm.DB
}

// NewLookupRepository creates a new LookupRepository
func NewLookupRepository(db *gorm.DB) LookupRepository {
	return &GormLookupRepository{db: db}
}

// lookupTable maps a kind to its table and the task column referencing it.
// Table names come from this closed set only, never from callers.
func lookupTable(kind LookupKind) (table, taskColumn string, err error) {
	switch kind {
	case LookupStatus:
		return "status", "status", nil
	case LookupOrigin:
		return "origin", "origin", nil
	}
	return "", "", fmt.Errorf("unknown lookup kind %q", kind)
}

// resolveLookup is an idempotent get-or-create guarded by the unique
// description constraint, so concurrent callers never insert twice.
func resolveLookup(tx *gorm.DB, kind LookupKind, label string) (*int64, error) {
	if label == "" {
		return nil, nil
	}
	table, _, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}

	if err := tx.Exec("INSERT INTO "+table+" (description) VALUES (?) ON CONFLICT(description) DO NOTHING", label).Error; err != nil {
		return nil, fmt.Errorf("failed to insert %s label: %w", table, err)
	}

	var ids []int64
	if err := tx.Raw("SELECT id FROM "+table+" WHERE description = ?", label).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve %s label: %w", table, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("failed to resolve %s label %q", table, label)
	}
	return &ids[0], nil
}

// GetOrCreate returns the id of label, inserting it if absent
func (r *GormLookupRepository) GetOrCreate(kind LookupKind, label string) (*int64, error) {
	var id *int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = resolveLookup(tx, kind, label)
		return err
	})
	return id, err
}

// List returns labels ordered alphabetically
func (r *GormLookupRepository) List(kind LookupKind, activeFor string) ([]string, error) {
	table, column, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}

	labels := []string{}
	var query *gorm.DB
	if activeFor == "" {
		query = r.db.Raw("SELECT description FROM " + table + " ORDER BY description")
	} else {
		query = r.db.Raw("SELECT DISTINCT l.description FROM "+table+" l JOIN tasks t ON l.id = t."+column+
			" WHERE t.creator = ? ORDER BY l.description", activeFor)
	}
	if err := query.Scan(&labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}

// Delete removes label when nothing references it
func (r *GormLookupRepository) Delete(kind LookupKind, label string) error {
	table, column, err := lookupTable(kind)
	if err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var ids []int64
		if err := tx.Raw("SELECT id FROM "+table+" WHERE description = ?", label).Scan(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}
		id := ids[0]

		var inUse int64
		if err := tx.Raw("SELECT COUNT(*) FROM tasks WHERE "+column+" = ?", id).Scan(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("%w: referenced by %d task(s)", ErrLookupInUse, inUse)
		}

		if kind == LookupStatus {
			if err := tx.Raw("SELECT COUNT(*) FROM milestones WHERE status = ?", id).Scan(&inUse).Error; err != nil {
				return err
			}
			if inUse > 0 {
				return fmt.Errorf("%w: referenced by %d milestone(s)", ErrLookupInUse, inUse)
			}
		}

		return tx.Exec("DELETE FROM "+table+" WHERE id = ?", id).Error
	})
}

// PruneUnused deletes status and origin rows nothing references
func (r *GormLookupRepository) PruneUnused() (int64, error) {
	var total int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`DELETE FROM status
			WHERE id NOT IN (SELECT status FROM tasks WHERE status IS NOT NULL)
			AND id NOT IN (SELECT status FROM milestones WHERE status IS NOT NULL)`)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Exec(`DELETE FROM origin
			WHERE id NOT IN (SELECT origin FROM tasks WHERE origin IS NOT NULL)`)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
