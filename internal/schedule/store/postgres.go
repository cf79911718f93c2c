package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"zonegrid/internal/schedule/models"
	zonemodels "zonegrid/internal/zone/models"
	txcontext "zonegrid/pkg/platform/tx"
)

// Postgres persists schedules in PostgreSQL. The unique (zone_id, weekday)
// constraint is the authoritative guard against duplicate weekday rows.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed schedule store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// ReplaceForZone deletes every schedule row for the zone and inserts the
// replacements. It must run inside the caller's transaction so a duplicate
// weekday in the input rolls the delete back too.
func (s *Postgres) ReplaceForZone(ctx context.Context, zoneID uuid.UUID, schedules []*models.Schedule) error {
	execer := s.execer(ctx)
	if _, err := execer.ExecContext(ctx, `DELETE FROM zone_schedules WHERE zone_id = $1`, zoneID); err != nil {
		return fmt.Errorf("delete zone schedules: %w", err)
	}
	const insert = `
		INSERT INTO zone_schedules (id, zone_id, weekday, deliveries_enabled, visits_enabled, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, schedule := range schedules {
		_, err := execer.ExecContext(ctx, insert,
			schedule.ID, schedule.ZoneID, schedule.Weekday,
			schedule.DeliveriesEnabled, schedule.VisitsEnabled,
			schedule.CreatedAt, schedule.CreatedBy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateWeekday
			}
			return fmt.Errorf("insert zone schedule: %w", err)
		}
	}
	return nil
}

// Upsert writes the (zone_id, weekday) row and returns it as persisted. When
// the pair already exists only the flags change; the stored row keeps its
// id, created_at, and created_by, which RETURNING reports back.
func (s *Postgres) Upsert(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	const query = `
		INSERT INTO zone_schedules (id, zone_id, weekday, deliveries_enabled, visits_enabled, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (zone_id, weekday) DO UPDATE
		SET deliveries_enabled = EXCLUDED.deliveries_enabled,
			visits_enabled = EXCLUDED.visits_enabled
		RETURNING id, created_at, created_by`
	persisted := *schedule
	err := s.execer(ctx).QueryRowContext(ctx, query,
		schedule.ID, schedule.ZoneID, schedule.Weekday,
		schedule.DeliveriesEnabled, schedule.VisitsEnabled,
		schedule.CreatedAt, schedule.CreatedBy,
	).Scan(&persisted.ID, &persisted.CreatedAt, &persisted.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("upsert zone schedule: %w", err)
	}
	return &persisted, nil
}

// FindByZoneDay returns the single row for a (zone, weekday) pair.
func (s *Postgres) FindByZoneDay(ctx context.Context, zoneID uuid.UUID, weekday int) (*models.Schedule, error) {
	const query = `
		SELECT id, zone_id, weekday, deliveries_enabled, visits_enabled, created_at, created_by
		FROM zone_schedules
		WHERE zone_id = $1 AND weekday = $2`
	schedule, err := scanSchedule(s.execer(ctx).QueryRowContext(ctx, query, zoneID, weekday))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find zone schedule: %w", err)
	}
	return schedule, nil
}

// FindByZone returns the zone's schedule rows ordered by weekday.
func (s *Postgres) FindByZone(ctx context.Context, zoneID uuid.UUID) ([]*models.Schedule, error) {
	const query = `
		SELECT id, zone_id, weekday, deliveries_enabled, visits_enabled, created_at, created_by
		FROM zone_schedules
		WHERE zone_id = $1
		ORDER BY weekday ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list zone schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone schedules: %w", err)
	}
	return schedules, nil
}

// ZonesByWeekday returns the active zones with the requested flag enabled on
// that weekday, ordered by zone code.
func (s *Postgres) ZonesByWeekday(ctx context.Context, weekday int, serviceType models.ServiceType) ([]*zonemodels.Zone, error) {
	flag := "deliveries_enabled"
	if serviceType == models.ServiceVisit {
		flag = "visits_enabled"
	}
	query := fmt.Sprintf(`
		SELECT z.id, z.code, z.name, z.description, z.active,
			ST_AsGeoJSON(z.geometry), z.version,
			z.created_by, z.updated_by, z.created_at, z.updated_at, z.deleted_at
		FROM zones z
		JOIN zone_schedules s ON s.zone_id = z.id
		WHERE z.deleted_at IS NULL AND z.active
			AND s.weekday = $1 AND s.%s
		ORDER BY z.code ASC`, flag)

	rows, err := s.execer(ctx).QueryContext(ctx, query, weekday)
	if err != nil {
		return nil, fmt.Errorf("list zones by weekday: %w", err)
	}
	defer rows.Close()

	var zones []*zonemodels.Zone
	for rows.Next() {
		zone, err := scanZoneRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var schedule models.Schedule
	err := row.Scan(
		&schedule.ID, &schedule.ZoneID, &schedule.Weekday,
		&schedule.DeliveriesEnabled, &schedule.VisitsEnabled,
		&schedule.CreatedAt, &schedule.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func scanZoneRow(row rowScanner) (*zonemodels.Zone, error) {
	var (
		zone      zonemodels.Zone
		geoJSON   sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&zone.ID, &zone.Code, &zone.Name, &zone.Description, &zone.Active,
		&geoJSON, &zone.Version,
		&zone.CreatedBy, &zone.UpdatedBy, &zone.CreatedAt, &zone.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if geoJSON.Valid {
		var geometry zonemodels.MultiPolygon
		if err := json.Unmarshal([]byte(geoJSON.String), &geometry); err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		zone.Geometry = &geometry
	}
	if deletedAt.Valid {
		zone.DeletedAt = &deletedAt.Time
	}
	return &zone, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
