package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhub/edhub/internal/domain/bed"
	"github.com/edhub/edhub/internal/domain/resource"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, first_name, last_name, date_of_birth, triage_level, assigned_doctor_id,
	bed_id, status, queue_number, admitted_at, discharged_at, chief_complaint, notes,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.TriageLevel,
		&p.AssignedDoctorID, &p.BedID, &p.Status, &p.QueueNumber, &p.AdmittedAt,
		&p.DischargedAt, &p.ChiefComplaint, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, date_of_birth, triage_level,
			assigned_doctor_id, bed_id, status, queue_number, admitted_at, chief_complaint, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.TriageLevel,
		p.AssignedDoctorID, p.BedID, p.Status, p.QueueNumber, p.AdmittedAt, p.ChiefComplaint, p.Notes)
	return resource.FromStore(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

const patientUpdateSQL = `
	UPDATE patient SET triage_level=$2, assigned_doctor_id=$3, bed_id=$4, status=$5,
		discharged_at=$6, chief_complaint=$7, notes=$8, updated_at=NOW()
	WHERE id = $1`

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, patientUpdateSQL,
		p.ID, p.TriageLevel, p.AssignedDoctorID, p.BedID, p.Status,
		p.DischargedAt, p.ChiefComplaint, p.Notes)
	if err != nil {
		return resource.FromStore(err)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *repoPG) MaxQueueNumber(ctx context.Context, dayStart, dayEnd time.Time) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(queue_number), 0) FROM patient
		WHERE admitted_at >= $1 AND admitted_at < $2`, dayStart, dayEnd).Scan(&max)
	if err != nil {
		return 0, resource.FromStore(err)
	}
	return max, nil
}

func (r *repoPG) CountReferencingBed(ctx context.Context, bedID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE bed_id = $1`, bedID).Scan(&n)
	if err != nil {
		return 0, resource.FromStore(err)
	}
	return n, nil
}

// SavePair writes all rows inside one transaction so a crash cannot leave an
// occupied bed with no owning patient or vice versa.
func (r *repoPG) SavePair(ctx context.Context, p *Patient, beds ...*bed.Bed) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return resource.FromStore(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, patientUpdateSQL,
		p.ID, p.TriageLevel, p.AssignedDoctorID, p.BedID, p.Status,
		p.DischargedAt, p.ChiefComplaint, p.Notes)
	if err != nil {
		return resource.FromStore(err)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}

	for _, b := range beds {
		tag, err = tx.Exec(ctx, `
			UPDATE bed SET status=$2, is_available=$3, updated_at=NOW() WHERE id = $1`,
			b.ID, b.Status, b.IsAvailable)
		if err != nil {
			return resource.FromStore(err)
		}
		if tag.RowsAffected() == 0 {
			return resource.ErrNotFound
		}
	}

	return resource.FromStore(tx.Commit(ctx))
}
