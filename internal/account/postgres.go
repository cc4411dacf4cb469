package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/theodoreromeos/account-management/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Profiles() ProfileStore           { return &profileStore{db: s.db} }
func (s *PGStore) Organizations() OrganizationStore { return &orgStore{db: s.db} }
func (s *PGStore) Processes() ProcessStore          { return &processStore{db: s.db} }
func (s *PGStore) Requests() RequestStore           { return &requestStore{db: s.db} }

const uniqueViolation = "23505"

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// Profile store -------------------------------------------------------------

type profileStore struct{ db *sql.DB }

func (s *profileStore) Create(ctx context.Context, p *Profile) error {
	var birth sql.NullTime
	if !p.BirthDate.IsZero() {
		birth = sql.NullTime{Time: p.BirthDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into user_profile(id, email, mobile_number, name, surname, birth_date, organization)
		values ($1,$2,$3,$4,$5,$6,nullif($7,''))
	`, p.ID, p.Email, p.MobileNumber, p.Name, p.Surname, birth, p.OrgID)
	return translateErr(err)
}

func (s *profileStore) Find(ctx context.Context, id string) (*Profile, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, email, mobile_number, name, surname, birth_date, coalesce(organization,''), created_at, updated_at
		from user_profile where id=$1
	`, id))
}

func (s *profileStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, email, mobile_number, name, surname, birth_date, coalesce(organization,''), created_at, updated_at
		from user_profile where email=$1
	`, email))
}

func (s *profileStore) scanOne(row *sql.Row) (*Profile, error) {
	var p Profile
	var birth sql.NullTime
	err := row.Scan(&p.ID, &p.Email, &p.MobileNumber, &p.Name, &p.Surname, &birth, &p.OrgID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if birth.Valid {
		p.BirthDate = birth.Time
	}
	return &p, nil
}

func (s *profileStore) ExistsByEmailAndMobile(ctx context.Context, email, mobile string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from user_profile where email=$1 and mobile_number=$2)
	`, email, mobile).Scan(&exists)
	return exists, err
}

func (s *profileStore) Update(ctx context.Context, p *Profile) error {
	res, err := s.db.ExecContext(ctx, `
		update user_profile
		set email=$2, mobile_number=$3, name=$4, surname=$5, updated_at=now()
		where id=$1
	`, p.ID, p.Email, p.MobileNumber, p.Name, p.Surname)
	if err != nil {
		return translateErr(err)
	}
	return requireRow(res)
}

func (s *profileStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from user_profile where id=$1`, id)
	return err
}

// Organization store ---------------------------------------------------------

type orgStore struct{ db *sql.DB }

func (s *orgStore) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into organization(id, name, registration_number, email, country, emergency_phone)
		values ($1,$2,$3,$4,$5,$6)
	`, org.ID, org.Name, org.RegistrationNumber, org.Email, org.Country, org.EmergencyPhone)
	return translateErr(err)
}

func (s *orgStore) FindByRegistrationNumber(ctx context.Context, regNumber string) (*Organization, error) {
	var org Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, registration_number, email, country, coalesce(emergency_phone,''), created_at, updated_at
		from organization where registration_number=$1
	`, regNumber).Scan(&org.ID, &org.Name, &org.RegistrationNumber, &org.Email, &org.Country,
		&org.EmergencyPhone, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *orgStore) ExistsByRegistrationNumber(ctx context.Context, regNumber string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from organization where registration_number=$1)
	`, regNumber).Scan(&exists)
	return exists, err
}

func (s *orgStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from organization where id=$1`, id)
	return err
}

// Registration process store --------------------------------------------------

type processStore struct{ db *sql.DB }

func (s *processStore) Create(ctx context.Context, p *RegistrationProcess) error {
	if p.Decision == "" {
		p.Decision = DecisionPending
	}
	err := s.db.QueryRowContext(ctx, `
		insert into organization_registration_process
			(organization_name, registration_number, country, org_admin_email, org_admin_phone, org_admin_name, org_admin_surname, admin_approved)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		returning id
	`, p.OrganizationName, p.RegistrationNumber, p.Country, p.AdminEmail, p.AdminPhone,
		p.AdminName, p.AdminSurname, p.Decision).Scan(&p.ID)
	return translateErr(err)
}

func (s *processStore) Find(ctx context.Context, id int64) (*RegistrationProcess, error) {
	var p RegistrationProcess
	err := s.db.QueryRowContext(ctx, `
		select id, organization_name, registration_number, country, org_admin_email, org_admin_phone,
		       org_admin_name, org_admin_surname, admin_approved, created_at, updated_at
		from organization_registration_process where id=$1
	`, id).Scan(&p.ID, &p.OrganizationName, &p.RegistrationNumber, &p.Country, &p.AdminEmail,
		&p.AdminPhone, &p.AdminName, &p.AdminSurname, &p.Decision, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *processStore) UpdateDecision(ctx context.Context, id int64, decision RegistrationDecision) error {
	res, err := s.db.ExecContext(ctx, `
		update organization_registration_process
		set admin_approved=$2, updated_at=now()
		where id=$1 and admin_approved=$3
	`, id, decision, DecisionPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *processStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `delete from organization_registration_process where id=$1`, id)
	return err
}

func (s *processStore) Search(ctx context.Context, filter ProcessFilter, page, pageSize int) (*ProcessPage, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	where, args := buildProcessFilter(filter)

	var total int64
	countQuery := `select count(*) from organization_registration_process` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `
		select id, organization_name, registration_number, country, org_admin_email, org_admin_phone,
		       org_admin_name, org_admin_surname, admin_approved, created_at, updated_at
		from organization_registration_process` + where +
		fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, pageSize, page*pageSize)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*RegistrationProcess
	for rows.Next() {
		var p RegistrationProcess
		if err := rows.Scan(&p.ID, &p.OrganizationName, &p.RegistrationNumber, &p.Country,
			&p.AdminEmail, &p.AdminPhone, &p.AdminName, &p.AdminSurname, &p.Decision,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &ProcessPage{
		Items:         items,
		PageNumber:    page,
		PageSize:      pageSize,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

func buildProcessFilter(filter ProcessFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.OrganizationName != "" {
		args = append(args, "%"+filter.OrganizationName+"%")
		conds = append(conds, fmt.Sprintf("organization_name ilike $%d", len(args)))
	}
	if filter.RegistrationNumber != "" {
		args = append(args, filter.RegistrationNumber)
		conds = append(conds, fmt.Sprintf("registration_number = $%d", len(args)))
	}
	if filter.Decision != "" {
		args = append(args, filter.Decision)
		conds = append(conds, fmt.Sprintf("admin_approved = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

// Registration request store --------------------------------------------------

type requestStore struct{ db *sql.DB }

func (s *requestStore) Create(ctx context.Context, r *RegistrationRequest) error {
	if r.Status == "" {
		r.Status = StatusPendingEmployee
	}
	err := s.db.QueryRowContext(ctx, `
		insert into registration_request(user_email, org_registration_number, status)
		values ($1,$2,$3)
		returning id
	`, r.UserEmail, r.RegistrationNumber, r.Status).Scan(&r.ID)
	return translateErr(err)
}

func (s *requestStore) FindByUserEmail(ctx context.Context, email string) (*RegistrationRequest, error) {
	var r RegistrationRequest
	err := s.db.QueryRowContext(ctx, `
		select id, user_email, org_registration_number, status, created_at, updated_at
		from registration_request where user_email=$1
	`, email).Scan(&r.ID, &r.UserEmail, &r.RegistrationNumber, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *requestStore) Advance(ctx context.Context, id int64, from, to RequestStatus) error {
	res, err := s.db.ExecContext(ctx, `
		update registration_request set status=$3, updated_at=now()
		where id=$1 and status=$2
	`, id, from, to)
	if err != nil {
		return err
	}
	return invalidStateOnZero(res)
}

func (s *requestStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `delete from registration_request where id=$1`, id)
	return err
}

// helpers ---------------------------------------------------------------------

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func invalidStateOnZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

// Open opens a PostgreSQL pool with tuned defaults.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
