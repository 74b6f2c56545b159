package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = `id, borrower_id, alias, comment, principal, annual_interest_rate, annual_overdue_rate, term_months, start_date, status, created_at, updated_at`

const movementColumns = `id, loan_id, type, amount, interest, principal, balance, due_date, movement_date, paid, processed, comment, proof_url, generation, superseded_at, created_at, updated_at`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	sql := `
        INSERT INTO loans (borrower_id, alias, comment, principal, annual_interest_rate, annual_overdue_rate, term_months, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING ` + loanColumns

	var created loan.Loan
	err := r.db.QueryRow(ctx, sql,
		l.BorrowerID, l.Alias, l.Comment, l.Principal, l.AnnualInterestRate,
		l.AnnualOverdueRate, l.TermMonths, l.Status,
	).Scan(
		&created.ID, &created.BorrowerID, &created.Alias, &created.Comment,
		&created.Principal, &created.AnnualInterestRate, &created.AnnualOverdueRate,
		&created.TermMonths, &created.StartDate, &created.Status,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return &created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var l loan.Loan
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.BorrowerID, &l.Alias, &l.Comment,
		&l.Principal, &l.AnnualInterestRate, &l.AnnualOverdueRate,
		&l.TermMonths, &l.StartDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) ListLoansByStatus(ctx context.Context, status loan.LoanStatus) ([]*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans by status", "status", status, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		var l loan.Loan
		err := rows.Scan(
			&l.ID, &l.BorrowerID, &l.Alias, &l.Comment,
			&l.Principal, &l.AnnualInterestRate, &l.AnnualOverdueRate,
			&l.TermMonths, &l.StartDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, &l)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) UpdateLoanStatus(ctx context.Context, loanID int64, status loan.LoanStatus, comment string) error {
	sql := `UPDATE loans SET status = $1, comment = $2, updated_at = NOW() WHERE id = $3`
	cmdTag, err := r.db.Exec(ctx, sql, status, comment, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan status", "loan_id", loanID, "status", status, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.WarnContext(ctx, "Loan status update affected zero rows", "loan_id", loanID, "status", status)
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Loan status updated in DB", "loan_id", loanID, "new_status", status)
	return nil
}

// DisburseLoan sets the start date, moves the loan to DISBURSED and batch
// inserts the full installment schedule in a single transaction.
func (r *LoanRepository) DisburseLoan(ctx context.Context, loanID int64, startDate time.Time, schedule []loan.Movement) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer r.RollbackTx(ctx, tx)

	loanSQL := `UPDATE loans SET status = $1, start_date = $2, updated_at = NOW() WHERE id = $3`
	cmdTag, err := tx.Exec(ctx, loanSQL, loan.StatusDisbursed, startDate, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark loan disbursed", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return apperrors.ErrNotFound
	}

	if err := r.batchInsertMovements(ctx, tx, loanID, schedule); err != nil {
		return err
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Loan disbursed with schedule", "loan_id", loanID, "num_installments", len(schedule))
	return nil
}

func (r *LoanRepository) CreateMovement(ctx context.Context, m *loan.Movement) (*loan.Movement, error) {
	sql := `
        INSERT INTO movements (loan_id, type, amount, interest, principal, balance, due_date, movement_date, paid, processed, comment, proof_url, generation, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
        RETURNING ` + movementColumns

	var created loan.Movement
	err := r.db.QueryRow(ctx, sql,
		m.LoanID, m.Type, m.Amount, m.Interest, m.Principal, m.Balance,
		m.DueDate, m.MovementDate, m.Paid, m.Processed, m.Comment, m.ProofURL, m.Generation,
	).Scan(movementScanTargets(&created)...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert movement", "loan_id", m.LoanID, "type", m.Type, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return &created, nil
}

func (r *LoanRepository) CreateMovements(ctx context.Context, loanID int64, movements []loan.Movement) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer r.RollbackTx(ctx, tx)

	if err := r.batchInsertMovements(ctx, tx, loanID, movements); err != nil {
		return err
	}
	return r.CommitTx(ctx, tx)
}

func (r *LoanRepository) GetMovementByID(ctx context.Context, movementID int64) (*loan.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`

	var m loan.Movement
	err := r.db.QueryRow(ctx, query, movementID).Scan(movementScanTargets(&m)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get movement by ID", "movement_id", movementID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}

func (r *LoanRepository) GetMovementsByLoanID(ctx context.Context, loanID int64, includeSuperseded bool) ([]loan.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE loan_id = $1`
	if !includeSuperseded {
		query += ` AND superseded_at IS NULL`
	}
	query += ` ORDER BY due_date ASC, id ASC`

	return r.queryMovements(ctx, query, loanID)
}

func (r *LoanRepository) GetUnpaidInstallments(ctx context.Context, loanID int64) ([]loan.Movement, error) {
	query := `SELECT ` + movementColumns + `
        FROM movements
        WHERE loan_id = $1 AND type = $2 AND paid = FALSE AND superseded_at IS NULL
        ORDER BY due_date ASC`

	return r.queryMovements(ctx, query, loanID, loan.MovementLoanInstallment)
}

func (r *LoanRepository) GetUnpaidOverdueInterest(ctx context.Context, loanID int64, onOrBefore time.Time) ([]loan.Movement, error) {
	query := `SELECT ` + movementColumns + `
        FROM movements
        WHERE loan_id = $1 AND type = $2 AND paid = FALSE AND superseded_at IS NULL AND due_date <= $3
        ORDER BY due_date ASC`

	return r.queryMovements(ctx, query, loanID, loan.MovementOverdueInterest, onOrBefore)
}

func (r *LoanRepository) GetOverdueChargeDates(ctx context.Context, loanID int64) ([]time.Time, error) {
	query := `SELECT due_date FROM movements WHERE loan_id = $1 AND type = $2 ORDER BY due_date`

	rows, err := r.db.Query(ctx, query, loanID, loan.MovementOverdueInterest)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query overdue charge dates", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	dates := make([]time.Time, 0)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		dates = append(dates, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return dates, nil
}

func (r *LoanRepository) GetLatestPaidInstallmentDueDate(ctx context.Context, loanID int64) (time.Time, error) {
	query := `
        SELECT due_date FROM movements
        WHERE loan_id = $1 AND type = $2 AND paid = TRUE AND superseded_at IS NULL
        ORDER BY due_date DESC
        LIMIT 1`

	var d time.Time
	err := r.db.QueryRow(ctx, query, loanID, loan.MovementLoanInstallment).Scan(&d)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get latest paid installment due date", "loan_id", loanID, "error", err)
		return time.Time{}, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return d, nil
}

func (r *LoanRepository) UpdateMovementProofURL(ctx context.Context, movementID int64, url string) error {
	sql := `UPDATE movements SET proof_url = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, sql, url, movementID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update movement proof URL", "movement_id", movementID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) GetPaymentForUpdate(ctx context.Context, tx pgx.Tx, movementID int64) (*loan.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1 FOR UPDATE`

	var m loan.Movement
	err := tx.QueryRow(ctx, query, movementID).Scan(movementScanTargets(&m)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock payment movement", "movement_id", movementID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}

func (r *LoanRepository) MarkMovementsPaidInTx(ctx context.Context, tx pgx.Tx, movementIDs []int64) error {
	sql := `UPDATE movements SET paid = TRUE, updated_at = NOW() WHERE id = ANY($1)`
	cmdTag, err := tx.Exec(ctx, sql, movementIDs)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark movements paid", "count", len(movementIDs), "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != int64(len(movementIDs)) {
		r.logger.ErrorContext(ctx, "Marking movements paid affected unexpected row count",
			"expected", len(movementIDs), "affected", cmdTag.RowsAffected())
		return fmt.Errorf("%w: expected %d rows updated, got %d", apperrors.ErrDatabase, len(movementIDs), cmdTag.RowsAffected())
	}
	return nil
}

func (r *LoanRepository) SupersedeInstallmentsInTx(ctx context.Context, tx pgx.Tx, movementIDs []int64) error {
	sql := `UPDATE movements SET superseded_at = NOW(), updated_at = NOW() WHERE id = ANY($1) AND superseded_at IS NULL`
	cmdTag, err := tx.Exec(ctx, sql, movementIDs)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to supersede installments", "count", len(movementIDs), "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != int64(len(movementIDs)) {
		return fmt.Errorf("%w: expected %d installments superseded, got %d", apperrors.ErrDatabase, len(movementIDs), cmdTag.RowsAffected())
	}
	return nil
}

func (r *LoanRepository) CreateMovementsInTx(ctx context.Context, tx pgx.Tx, loanID int64, movements []loan.Movement) error {
	return r.batchInsertMovements(ctx, tx, loanID, movements)
}

func (r *LoanRepository) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error) {
	query := `SELECT COUNT(*) FROM movements WHERE loan_id = $1 AND type = $2 AND paid = FALSE AND superseded_at IS NULL`

	var count int
	if err := tx.QueryRow(ctx, query, loanID, loan.MovementLoanInstallment).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count unpaid installments", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) MarkPaymentProcessedInTx(ctx context.Context, tx pgx.Tx, movementID int64, comment string) error {
	sql := `UPDATE movements SET processed = TRUE, comment = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := tx.Exec(ctx, sql, comment, movementID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark payment processed", "movement_id", movementID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status loan.LoanStatus) error {
	sql := `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := tx.Exec(ctx, sql, status, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan status", "loan_id", loanID, "status", status, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan status update affected zero rows", "loan_id", loanID, "status", status)
		return fmt.Errorf("%w: loan status update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan status updated in DB", "loan_id", loanID, "new_status", status)
	return nil
}

func (r *LoanRepository) batchInsertMovements(ctx context.Context, tx pgx.Tx, loanID int64, movements []loan.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	sql := `
        INSERT INTO movements (loan_id, type, amount, interest, principal, balance, due_date, movement_date, paid, processed, comment, proof_url, generation, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

	batch := &pgx.Batch{}
	for _, m := range movements {
		batch.Queue(sql, loanID, m.Type, m.Amount, m.Interest, m.Principal, m.Balance,
			m.DueDate, m.MovementDate, m.Paid, m.Processed, m.Comment, m.ProofURL, m.Generation)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range movements {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing movement batch insert", "error", err, "entry_index", i, "loan_id", loanID)
			return fmt.Errorf("%w: failed inserting movement %d: %w", apperrors.ErrDatabase, i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing movement batch results", "error", err, "loan_id", loanID)
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) queryMovements(ctx context.Context, query string, args ...any) ([]loan.Movement, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query movements", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	movements := make([]loan.Movement, 0)
	for rows.Next() {
		var m loan.Movement
		if err := rows.Scan(movementScanTargets(&m)...); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan movement row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		movements = append(movements, m)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating movement rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return movements, nil
}

func movementScanTargets(m *loan.Movement) []any {
	return []any{
		&m.ID, &m.LoanID, &m.Type, &m.Amount, &m.Interest, &m.Principal, &m.Balance,
		&m.DueDate, &m.MovementDate, &m.Paid, &m.Processed, &m.Comment, &m.ProofURL,
		&m.Generation, &m.SupersededAt, &m.CreatedAt, &m.UpdatedAt,
	}
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}
		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
