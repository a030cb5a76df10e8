package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

type claimRow struct {
	ClaimID      string    `db:"claim_id"`
	PolicyNumber string    `db:"policy_number"`
	PolicyStatus string    `db:"policy_status"`
	HolderName   string    `db:"policy_holder_name"`
	IncidentTime string    `db:"incident_date_time"`
	Description  string    `db:"incident_description"`
	StatusID     int64     `db:"status_id"`
	StatusName   string    `db:"status_name"`
	Payload      string    `db:"payload"`
	CreatedAt    time.Time `db:"created_at"`
	CreatedBy    string    `db:"created_by"`
	UpdatedAt    time.Time `db:"updated_at"`
	UpdatedBy    string    `db:"updated_by"`
}

func (row *claimRow) record() (*domain.ClaimRecord, error) {
	rec := &domain.ClaimRecord{
		ClaimID:      row.ClaimID,
		PolicyNumber: row.PolicyNumber,
		PolicyStatus: row.PolicyStatus,
		HolderName:   row.HolderName,
		IncidentTime: row.IncidentTime,
		Description:  row.Description,
		StatusID:     row.StatusID,
		StatusName:   row.StatusName,
		CreatedAt:    row.CreatedAt,
		CreatedBy:    row.CreatedBy,
		UpdatedAt:    row.UpdatedAt,
		UpdatedBy:    row.UpdatedBy,
	}
	if row.Payload != "" {
		var fnol domain.FNOL
		if err := json.Unmarshal([]byte(row.Payload), &fnol); err != nil {
			return nil, fmt.Errorf("claim %s: corrupt payload: %w", row.ClaimID, err)
		}
		rec.Payload = &fnol
	}
	return rec, nil
}

type photoRow struct {
	ClaimID   string `db:"claim_id"`
	PhotoPath string `db:"photo_path"`
}

const claimSelect = `
	SELECT c.claim_id, c.policy_number, c.policy_status, c.policy_holder_name,
		   c.incident_date_time, c.incident_description, c.status_id,
		   COALESCE(s.status_name, '') AS status_name, c.payload,
		   c.created_at, c.created_by, c.updated_at, c.updated_by
	FROM fnol_claims c
	LEFT JOIN claim_status s ON s.id = c.status_id
`

// SaveClaim upserts an FNOL. New claims start in status Open. When the payload
// carries a photo list it replaces the stored photo records.
func (r *SQLRepository) SaveClaim(ctx context.Context, fnol *domain.FNOL, userID string) (bool, error) {
	claimID := strings.TrimSpace(fnol.ClaimID)
	if claimID == "" {
		return false, fmt.Errorf("%w: claim_id is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(fnol)
	if err != nil {
		return false, fmt.Errorf("failed to encode payload: %w", err)
	}

	now := time.Now().UTC()
	created := false

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count,
			tx.Rebind(`SELECT COUNT(*) FROM fnol_claims WHERE claim_id = ?`), claimID); err != nil {
			return err
		}

		if count == 0 {
			query := `
				INSERT INTO fnol_claims (
					claim_id, policy_number, policy_status, policy_holder_name,
					incident_date_time, incident_description, status_id, payload,
					created_at, created_by, updated_at, updated_by
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			if _, err := tx.ExecContext(ctx, tx.Rebind(query),
				claimID, fnol.Policy.PolicyNumber, fnol.Policy.PolicyStatus, fnol.Claimant.DriverName,
				fnol.Incident.DateTimeOfLoss, fnol.Incident.LossDescription, domain.ClaimStatusOpen, string(payload),
				now, userID, now, userID,
			); err != nil {
				return err
			}
			created = true
		} else {
			query := `
				UPDATE fnol_claims SET
					policy_number = ?, policy_status = ?, policy_holder_name = ?,
					incident_date_time = ?, incident_description = ?, payload = ?,
					updated_at = ?, updated_by = ?
				WHERE claim_id = ?
			`
			if _, err := tx.ExecContext(ctx, tx.Rebind(query),
				fnol.Policy.PolicyNumber, fnol.Policy.PolicyStatus, fnol.Claimant.DriverName,
				fnol.Incident.DateTimeOfLoss, fnol.Incident.LossDescription, string(payload),
				now, userID, claimID,
			); err != nil {
				return err
			}
		}

		if fnol.Documents.Photos == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`DELETE FROM fnol_damage_photos WHERE claim_id = ?`), claimID); err != nil {
			return err
		}
		for _, path := range fnol.Documents.Photos {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				tx.Rebind(`INSERT INTO fnol_damage_photos (claim_id, photo_path) VALUES (?, ?)`),
				claimID, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to save claim %s: %w", claimID, err)
	}
	return created, nil
}

// GetClaim retrieves a stored claim with its photo paths.
func (r *SQLRepository) GetClaim(ctx context.Context, claimID string) (*domain.ClaimRecord, error) {
	var row claimRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(claimSelect+` WHERE c.claim_id = ?`), claimID); err != nil {
		return nil, notFound(err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	records := []*domain.ClaimRecord{rec}
	if err := r.attachPhotos(ctx, records); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListClaims returns every stored claim, latest loss first.
func (r *SQLRepository) ListClaims(ctx context.Context) ([]*domain.ClaimRecord, error) {
	return r.listClaims(ctx, claimSelect+` ORDER BY c.incident_date_time DESC, c.claim_id DESC`)
}

// ListEvaluatedClaims returns the claims that have at least one evaluation.
func (r *SQLRepository) ListEvaluatedClaims(ctx context.Context) ([]*domain.ClaimRecord, error) {
	return r.listClaims(ctx, claimSelect+`
		WHERE c.claim_id IN (SELECT DISTINCT claim_id FROM claim_evaluations)
		ORDER BY c.incident_date_time DESC, c.claim_id DESC`)
}

func (r *SQLRepository) listClaims(ctx context.Context, query string) ([]*domain.ClaimRecord, error) {
	var rows []claimRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	records := make([]*domain.ClaimRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := r.attachPhotos(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *SQLRepository) attachPhotos(ctx context.Context, records []*domain.ClaimRecord) error {
	if len(records) == 0 {
		return nil
	}

	byID := make(map[string]*domain.ClaimRecord, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		byID[rec.ClaimID] = rec
		ids = append(ids, rec.ClaimID)
	}

	query, args, err := sqlx.In(`SELECT claim_id, photo_path FROM fnol_damage_photos WHERE claim_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}

	var photos []photoRow
	if err := r.db.SelectContext(ctx, &photos, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, p := range photos {
		if rec, ok := byID[p.ClaimID]; ok {
			rec.Photos = append(rec.Photos, p.PhotoPath)
		}
	}
	return nil
}

// HasPhoto reports whether the claim has at least one non-empty photo record.
func (r *SQLRepository) HasPhoto(ctx context.Context, claimID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM fnol_damage_photos WHERE claim_id = ? AND TRIM(photo_path) <> ''`
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), claimID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetClaimStatus moves a claim to the given status.
func (r *SQLRepository) SetClaimStatus(ctx context.Context, claimID string, statusID int64) error {
	return setClaimStatus(ctx, r.db, claimID, statusID)
}

func setClaimStatus(ctx context.Context, ex sqlx.ExtContext, claimID string, statusID int64) error {
	var known int
	if err := sqlx.GetContext(ctx, ex, &known,
		ex.Rebind(`SELECT COUNT(*) FROM claim_status WHERE id = ?`), statusID); err != nil {
		return err
	}
	if known == 0 {
		return fmt.Errorf("%w: unknown claim status %d", ErrInvalidInput, statusID)
	}

	result, err := ex.ExecContext(ctx,
		ex.Rebind(`UPDATE fnol_claims SET status_id = ?, updated_at = ? WHERE claim_id = ?`),
		statusID, time.Now().UTC(), claimID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListClaimStatuses returns the status lookup table.
func (r *SQLRepository) ListClaimStatuses(ctx context.Context) ([]*domain.ClaimStatus, error) {
	var statuses []*domain.ClaimStatus
	if err := r.db.SelectContext(ctx, &statuses, `SELECT id, status_name FROM claim_status ORDER BY id`); err != nil {
		return nil, err
	}
	return statuses, nil
}
