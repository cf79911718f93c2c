package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"zonegrid/internal/zone/models"
	txcontext "zonegrid/pkg/platform/tx"
)

// Postgres persists zones in PostgreSQL with PostGIS geometry. Geometry
// crosses the boundary as GeoJSON; containment and overlap predicates run in
// the database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed zone store.
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

const zoneColumns = `
	id, code, name, description, active,
	ST_AsGeoJSON(geometry), version,
	created_by, updated_by, created_at, updated_at, deleted_at`

// geomExpr turns a GeoJSON text parameter into a typed PostGIS value, passing
// NULL through untouched.
const geomExpr = `CASE WHEN %[1]s::text IS NULL THEN NULL
	ELSE ST_SetSRID(ST_GeomFromGeoJSON(%[1]s::text), 4326) END`

func geometryParam(geometry *models.MultiPolygon) (any, error) {
	if geometry == nil {
		return nil, nil
	}
	raw, err := json.Marshal(geometry)
	if err != nil {
		return nil, fmt.Errorf("marshal geometry: %w", err)
	}
	return string(raw), nil
}

// CreateIfCodeAvailable inserts the zone. A concurrent insert with the same
// code loses to the partial unique index and surfaces as ErrCodeTaken; the
// service-level pre-check alone is not race-free.
func (s *Postgres) CreateIfCodeAvailable(ctx context.Context, zone *models.Zone) error {
	geom, err := geometryParam(zone.Geometry)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO zones (id, code, name, description, active, geometry, version,
			created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, %s, $7, $8, $9, $10, $11)`,
		fmt.Sprintf(geomExpr, "$6"))
	_, err = s.execer(ctx).ExecContext(ctx, query,
		zone.ID, zone.Code, zone.Name, zone.Description, zone.Active, geom,
		zone.Version, zone.CreatedBy, zone.UpdatedBy, zone.CreatedAt, zone.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert zone: %w", err)
	}
	return nil
}

// FindByID returns a zone that is not soft-deleted.
func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	query := `SELECT` + zoneColumns + `
		FROM zones
		WHERE id = $1 AND deleted_at IS NULL`
	zone, err := scanZone(s.execer(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find zone: %w", err)
	}
	return zone, nil
}

// CodeInUse reports whether another not-deleted zone already uses code.
func (s *Postgres) CodeInUse(ctx context.Context, code string, excludeID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM zones
			WHERE code = $1 AND deleted_at IS NULL AND id <> $2
		)`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, code, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check zone code: %w", err)
	}
	return exists, nil
}

// FindPage returns one page of not-deleted zones plus the total match count.
// Sort column and order come pre-validated from the whitelist in models.
func (s *Postgres) FindPage(ctx context.Context, filter models.ListFilter, page models.PageRequest) ([]*models.Zone, int, error) {
	where := `deleted_at IS NULL`
	args := []any{}
	switch filter.Status {
	case models.StatusActive:
		where += ` AND active`
	case models.StatusInactive:
		where += ` AND NOT active`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (code ILIKE $%d OR name ILIKE $%d)`, len(args), len(args))
	}

	var total int
	countQuery := `SELECT count(*) FROM zones WHERE ` + where
	if err := s.execer(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count zones: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT`+zoneColumns+`
		FROM zones
		WHERE %s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d`,
		where, page.SortBy, sortDirection(page.SortOrder), len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var zones []*models.Zone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, total, nil
}

// Update writes the mutated zone with a compare-and-swap on the version the
// caller read. Zero rows updated means either the zone vanished (ErrNotFound)
// or a concurrent writer got there first (ErrStaleVersion).
func (s *Postgres) Update(ctx context.Context, zone *models.Zone, expectedVersion int) error {
	geom, err := geometryParam(zone.Geometry)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE zones
		SET code = $2, name = $3, description = $4, active = $5,
			geometry = %s, version = $7,
			updated_by = $8, updated_at = $9, deleted_at = $10
		WHERE id = $1 AND deleted_at IS NULL AND version = $11`,
		fmt.Sprintf(geomExpr, "$6"))
	result, err := s.execer(ctx).ExecContext(ctx, query,
		zone.ID, zone.Code, zone.Name, zone.Description, zone.Active, geom,
		zone.Version, zone.UpdatedBy, zone.UpdatedAt, zone.DeletedAt, expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("update zone: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update zone rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM zones WHERE id = $1 AND deleted_at IS NULL)`
		if err := s.execer(ctx).QueryRowContext(ctx, check, zone.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check zone existence: %w", err)
		}
		if exists {
			return ErrStaleVersion
		}
		return ErrNotFound
	}
	return nil
}

// FindByPoint resolves the active zone containing the coordinate. Active
// geometries are non-overlapping by invariant; if the database still returns
// several matches the lowest code wins, a stable tie-break.
func (s *Postgres) FindByPoint(ctx context.Context, lat, lon float64) (*models.Zone, error) {
	query := `SELECT` + zoneColumns + `
		FROM zones
		WHERE deleted_at IS NULL AND active AND geometry IS NOT NULL
			AND ST_Contains(geometry, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY code ASC
		LIMIT 1`
	zone, err := scanZone(s.execer(ctx).QueryRowContext(ctx, query, lon, lat))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve zone by point: %w", err)
	}
	return zone, nil
}

// AnyActiveGeometryIntersecting reports whether the candidate geometry shares
// interior points with any other active zone's geometry. Touching borders do
// not count as overlap.
func (s *Postgres) AnyActiveGeometryIntersecting(ctx context.Context, excludeID uuid.UUID, geometry *models.MultiPolygon) (bool, error) {
	geom, err := geometryParam(geometry)
	if err != nil {
		return false, err
	}
	if geom == nil {
		return false, nil
	}
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM zones
			WHERE deleted_at IS NULL AND active AND geometry IS NOT NULL AND id <> $1
				AND ST_Intersects(geometry, %[1]s)
				AND NOT ST_Touches(geometry, %[1]s)
		)`, fmt.Sprintf(geomExpr, "$2"))
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, excludeID, geom).Scan(&exists); err != nil {
		return false, fmt.Errorf("check geometry overlap: %w", err)
	}
	return exists, nil
}

func sortDirection(order models.SortOrder) string {
	if order == models.SortDesc {
		return "DESC"
	}
	return "ASC"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner) (*models.Zone, error) {
	var (
		zone      models.Zone
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
		var geometry models.MultiPolygon
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
