// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/kiosk/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/kiosk/internal/triage/pgstore")

//go:embed schema.sql
var schema string

const pingTimeout = 3 * time.Second

// PostgreSQL error codes the store maps onto the triage error taxonomy.
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	classDataException      = "22"
)

// Store persists patients and triage records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store. The
// caller owns the pool and closes it.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const (
	patientColumns = `id, full_name, national_id, birth_date, registered_at`
	recordColumns  = `id, patient_id, symptoms_text, priority_tier, justification, triaged_at`
)

// AddPatient inserts a patient. A national id that is already registered is
// not an error: the existing patient's id is returned and nothing is written.
func (s *Store) AddPatient(ctx context.Context, p triage.NewPatient) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.AddPatient", "INSERT")
	defer span.End()

	if err := p.Validate(); err != nil {
		return 0, fail(span, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fail(span, translate("begin tx", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO patients (full_name, national_id, birth_date)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (national_id) DO NOTHING
		 RETURNING id`,
		p.FullName, p.NationalID, p.BirthDate,
	).Scan(&id)

	existing := false
	if errors.Is(err, pgx.ErrNoRows) {
		existing = true
		err = tx.QueryRow(ctx, `SELECT id FROM patients WHERE national_id = $1`, p.NationalID).Scan(&id)
	}
	if err != nil {
		return 0, fail(span, translate("insert patient", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fail(span, translate("commit", err))
	}

	span.SetAttributes(
		attribute.Int64("kiosk.patient.id", id),
		attribute.Bool("kiosk.patient.existing", existing),
	)
	return id, nil
}

// AddTriage inserts a triage record; triaged_at is assigned by the database.
func (s *Store) AddTriage(ctx context.Context, t triage.NewTriage) (*triage.Record, error) {
	ctx, span := startSpan(ctx, "pgstore.AddTriage", "INSERT")
	defer span.End()

	if err := t.Validate(); err != nil {
		return nil, fail(span, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fail(span, translate("begin tx", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	rec := triage.Record{
		PatientID:     t.PatientID,
		Symptoms:      t.Symptoms,
		Tier:          t.Tier,
		Justification: t.Justification,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO triage_records (patient_id, symptoms_text, priority_tier, justification)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, triaged_at`,
		t.PatientID, t.Symptoms, string(t.Tier), t.Justification,
	).Scan(&rec.ID, &rec.TriagedAt)
	if err != nil {
		return nil, fail(span, translate("insert triage", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fail(span, translate("commit", err))
	}

	span.SetAttributes(attribute.Int64("kiosk.triage.id", rec.ID))
	return &rec, nil
}

// FindPatientByNationalID looks up a patient by exact national id.
func (s *Store) FindPatientByNationalID(ctx context.Context, nationalID string) (*triage.Patient, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.FindPatientByNationalID", "SELECT")
	defer span.End()

	var p triage.Patient
	err := s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE national_id = $1`, nationalID,
	).Scan(&p.ID, &p.FullName, &p.NationalID, &p.BirthDate, &p.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail(span, translate("select patient", err))
	}
	return &p, true, nil
}

// ListTriageForPatient returns the patient's records, newest first.
func (s *Store) ListTriageForPatient(ctx context.Context, patientID int64) ([]triage.Record, error) {
	ctx, span := startSpan(ctx, "pgstore.ListTriageForPatient", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM triage_records
		 WHERE patient_id = $1
		 ORDER BY triaged_at DESC, id DESC`,
		patientID,
	)
	if err != nil {
		return nil, fail(span, translate("query triage records", err))
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fail(span, translate("scan triage records", err))
	}
	if records == nil {
		records = []triage.Record{}
	}
	span.SetAttributes(attribute.Int("db.response.returned_rows", len(records)))
	return records, nil
}

// ListLatestByPriority joins every patient to their most recent triage record.
func (s *Store) ListLatestByPriority(ctx context.Context, tier triage.Tier) ([]triage.QueueEntry, error) {
	ctx, span := startSpan(ctx, "pgstore.ListLatestByPriority", "SELECT")
	defer span.End()

	if tier != "" && !tier.Valid() {
		return nil, fail(span, fmt.Errorf("%w: unknown priority tier %q", triage.ErrValidation, tier))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.full_name, p.national_id, p.birth_date, p.registered_at,
		        t.id, t.priority_tier, t.justification, t.triaged_at
		 FROM patients p
		 JOIN LATERAL (
		     SELECT id, priority_tier, justification, triaged_at
		     FROM triage_records
		     WHERE patient_id = p.id
		     ORDER BY triaged_at DESC, id DESC
		     LIMIT 1
		 ) t ON true
		 WHERE $1::text = '' OR t.priority_tier = $1::text
		 ORDER BY
		     CASE t.priority_tier
		         WHEN 'Emergency' THEN 1
		         WHEN 'Urgent'    THEN 2
		         WHEN 'Priority'  THEN 3
		         WHEN 'Routine'   THEN 4
		     END,
		     t.triaged_at DESC,
		     t.id DESC`,
		string(tier),
	)
	if err != nil {
		return nil, fail(span, translate("query queue", err))
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (triage.QueueEntry, error) {
		var (
			e    triage.QueueEntry
			tier string
		)
		err := row.Scan(
			&e.Patient.ID, &e.Patient.FullName, &e.Patient.NationalID, &e.Patient.BirthDate, &e.Patient.RegisteredAt,
			&e.TriageID, &tier, &e.Justification, &e.TriagedAt,
		)
		e.Tier = triage.Tier(tier)
		return e, err
	})
	if err != nil {
		return nil, fail(span, translate("scan queue", err))
	}
	if entries == nil {
		entries = []triage.QueueEntry{}
	}
	span.SetAttributes(attribute.Int("db.response.returned_rows", len(entries)))
	return entries, nil
}

// CheckConnectivity runs SELECT 1 with a short timeout.
func (s *Store) CheckConnectivity(ctx context.Context) bool {
	if s == nil || s.pool == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return false
	}
	return one == 1
}

func scanRecord(row pgx.CollectableRow) (triage.Record, error) {
	var (
		r    triage.Record
		tier string
	)
	err := row.Scan(&r.ID, &r.PatientID, &r.Symptoms, &tier, &r.Justification, &r.TriagedAt)
	r.Tier = triage.Tier(tier)
	return r, err
}

// translate maps a pgx/pgconn failure onto the triage error taxonomy. Only the
// message of a *pgconn.PgError survives; the driver type does not escape.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, triage.ErrReference)
		case pgErr.Code == codeCheckViolation,
			pgErr.Code == codeNotNullViolation,
			pgErr.Code == codeUniqueViolation,
			strings.HasPrefix(pgErr.Code, classDataException):
			return fmt.Errorf("%s: %w: %s (%s)", op, triage.ErrValidation, pgErr.Message, pgErr.ConstraintName)
		default:
			return fmt.Errorf("%s: %w: %s (sqlstate %s)", op, triage.ErrConnectivity, pgErr.Message, pgErr.Code)
		}
	}
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, ctxErr) {
			return fmt.Errorf("%s: %w: %w", op, triage.ErrConnectivity, ctxErr)
		}
	}
	return fmt.Errorf("%s: %w: %s", op, triage.ErrConnectivity, err.Error())
}

func startSpan(ctx context.Context, name, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", operation),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
