package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"lending-engine/internal/domain/participation"
	"lending-engine/internal/pkg/apperrors"
)

type ParticipationRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ participation.Repository = (*ParticipationRepository)(nil)

func NewParticipationRepository(db DBPool, logger *slog.Logger) *ParticipationRepository {
	return &ParticipationRepository{db: db, logger: logger.With("component", "ParticipationRepository")}
}

func (r *ParticipationRepository) CreateParticipation(ctx context.Context, p *participation.Participation) (*participation.Participation, error) {
	sql := `
        INSERT INTO loan_participations (loan_id, lender_id, amount, proof_url, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, loan_id, lender_id, amount, proof_url, created_at`

	var created participation.Participation
	err := r.db.QueryRow(ctx, sql, p.LoanID, p.LenderID, p.Amount, p.ProofURL).Scan(
		&created.ID, &created.LoanID, &created.LenderID, &created.Amount,
		&created.ProofURL, &created.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert participation", "loan_id", p.LoanID, "lender_id", p.LenderID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Participation created in DB", "participation_id", created.ID, "loan_id", created.LoanID)
	return &created, nil
}

func (r *ParticipationRepository) GetParticipationsByLoanID(ctx context.Context, loanID int64) ([]participation.Participation, error) {
	query := `
        SELECT id, loan_id, lender_id, amount, proof_url, created_at
        FROM loan_participations
        WHERE loan_id = $1
        ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query participations", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	participations := make([]participation.Participation, 0)
	for rows.Next() {
		var p participation.Participation
		err := rows.Scan(&p.ID, &p.LoanID, &p.LenderID, &p.Amount, &p.ProofURL, &p.CreatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan participation row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		participations = append(participations, p)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating participation rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return participations, nil
}

func (r *ParticipationRepository) UpdateParticipationProofURL(ctx context.Context, participationID int64, url string) error {
	sql := `UPDATE loan_participations SET proof_url = $1 WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, sql, url, participationID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update participation proof URL", "participation_id", participationID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ParticipationRepository) HasLenderParticipation(ctx context.Context, loanID, lenderID int64) (bool, error) {
	query := `SELECT 1 FROM loan_participations WHERE loan_id = $1 AND lender_id = $2 LIMIT 1`

	var one int
	err := r.db.QueryRow(ctx, query, loanID, lenderID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.ErrorContext(ctx, "Failed to check lender participation", "loan_id", loanID, "lender_id", lenderID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return true, nil
}
