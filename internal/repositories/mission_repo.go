package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	intconfig "backoffice/internal/config"
	intdb "backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

// MissionRepo owns every read and write on the missions table.
type MissionRepo struct {
	DB *sql.DB
}

func (r MissionRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const missionColumns = `id, organization_id, order_id, quote_id, quote_line_id,
	day_index, COALESCE(ref, ''), COALESCE(status, ''), start_at, end_at,
	is_internal, source_data, COALESCE(notes, ''), created_at`

// SpawnedLineIDs returns the set of quote line ids that already produced at
// least one mission for the order. Internal missions carry no line id and
// never appear here.
func (r MissionRepo) SpawnedLineIDs(orderID int64) (map[int64]bool, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "db not available"}
	}
	rows, err := db.Query(`
		SELECT DISTINCT quote_line_id
		FROM missions
		WHERE order_id = ? AND quote_line_id IS NOT NULL
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// InsertBatch persists every mission of a spawn run in one transaction.
// INSERT IGNORE against uniq_line_day silently drops rows a concurrent
// invocation already wrote, so two racing spawns for the same order cannot
// duplicate work. After commit it re-reads the rows for the attempted line
// ids, ordered by start time.
func (r MissionRepo) InsertBatch(missions []models.Mission) ([]models.Mission, error) {
	if len(missions) == 0 {
		return []models.Mission{}, nil
	}
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "db not available"}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	placeholders := make([]string, 0, len(missions))
	args := make([]any, 0, len(missions)*12)
	for _, m := range missions {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())")
		args = append(args,
			m.OrganizationID, m.OrderID, m.QuoteID, nullInt(m.QuoteLineID),
			m.DayIndex, m.Ref, m.Status, m.StartAt, nullTime(m.EndAt),
			m.IsInternal, intdb.NullIfEmpty(string(m.SourceData)), intdb.NullIfEmpty(m.Notes),
		)
	}

	q := `INSERT IGNORE INTO missions
		(organization_id, order_id, quote_id, quote_line_id, day_index, ref, status, start_at, end_at, is_internal, source_data, notes, created_at)
		VALUES ` + strings.Join(placeholders, ", ")

	if _, err := tx.Exec(q, args...); err != nil {
		return nil, fmt.Errorf("insert missions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	return r.listByLineIDs(missions[0].OrderID, lineIDSet(missions))
}

// InsertOne writes a single mission (manual or internal spawn) and returns
// the stored row.
func (r MissionRepo) InsertOne(m models.Mission) (models.Mission, error) {
	db := r.db()
	if db == nil {
		return models.Mission{}, domain.InternalError{Msg: "db not available"}
	}
	res, err := db.Exec(`
		INSERT INTO missions
			(organization_id, order_id, quote_id, quote_line_id, day_index, ref, status, start_at, end_at, is_internal, source_data, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`,
		m.OrganizationID, m.OrderID, m.QuoteID, nullInt(m.QuoteLineID),
		m.DayIndex, m.Ref, m.Status, m.StartAt, nullTime(m.EndAt),
		m.IsInternal, intdb.NullIfEmpty(string(m.SourceData)), intdb.NullIfEmpty(m.Notes),
	)
	if err != nil {
		return models.Mission{}, fmt.Errorf("insert mission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Mission{}, err
	}
	return r.byID(id)
}

// ExistsForLine reports whether a mission is already linked to the line.
func (r MissionRepo) ExistsForLine(lineID int64) (bool, error) {
	db := r.db()
	if db == nil {
		return false, domain.InternalError{Msg: "db not available"}
	}
	var one int
	err := db.QueryRow(`SELECT 1 FROM missions WHERE quote_line_id = ? LIMIT 1`, lineID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountByOrder counts missions already created for the order.
func (r MissionRepo) CountByOrder(orderID int64) (int, error) {
	db := r.db()
	if db == nil {
		return 0, domain.InternalError{Msg: "db not available"}
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM missions WHERE order_id = ?`, orderID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListByOrder returns the order's missions ordered by start time.
func (r MissionRepo) ListByOrder(orderID, orgID int64) ([]models.Mission, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "db not available"}
	}
	rows, err := db.Query(`
		SELECT `+missionColumns+`
		FROM missions
		WHERE order_id = ? AND organization_id = ?
		ORDER BY start_at ASC, id ASC
	`, orderID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissions(rows)
}

// ListWindow returns the tenant's missions starting inside [from, to],
// ordered by start time. The dispatch collaborator reads through this.
func (r MissionRepo) ListWindow(orgID int64, from, to time.Time) ([]models.Mission, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "db not available"}
	}
	rows, err := db.Query(`
		SELECT `+missionColumns+`
		FROM missions
		WHERE organization_id = ? AND start_at >= ? AND start_at <= ?
		ORDER BY start_at ASC, id ASC
	`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissions(rows)
}

func (r MissionRepo) byID(id int64) (models.Mission, error) {
	db := r.db()
	rows, err := db.Query(`SELECT `+missionColumns+` FROM missions WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return models.Mission{}, err
	}
	defer rows.Close()
	ms, err := scanMissions(rows)
	if err != nil {
		return models.Mission{}, err
	}
	if len(ms) == 0 {
		return models.Mission{}, domain.NotFoundError{Resource: "mission"}
	}
	return ms[0], nil
}

func (r MissionRepo) listByLineIDs(orderID int64, lineIDs []int64) ([]models.Mission, error) {
	if len(lineIDs) == 0 {
		return []models.Mission{}, nil
	}
	db := r.db()

	placeholders := make([]string, len(lineIDs))
	args := make([]any, 0, len(lineIDs)+1)
	args = append(args, orderID)
	for i, id := range lineIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	rows, err := db.Query(`
		SELECT `+missionColumns+`
		FROM missions
		WHERE order_id = ? AND quote_line_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY start_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissions(rows)
}

func scanMissions(rows *sql.Rows) ([]models.Mission, error) {
	out := []models.Mission{}
	for rows.Next() {
		var m models.Mission
		var lineID sql.NullInt64
		var endAt sql.NullTime
		var sourceData sql.NullString
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.OrderID, &m.QuoteID, &lineID,
			&m.DayIndex, &m.Ref, &m.Status, &m.StartAt, &endAt,
			&m.IsInternal, &sourceData, &m.Notes, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		if lineID.Valid {
			v := lineID.Int64
			m.QuoteLineID = &v
		}
		if endAt.Valid {
			t := endAt.Time
			m.EndAt = &t
		}
		if sourceData.Valid {
			m.SourceData = []byte(sourceData.String)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func lineIDSet(missions []models.Mission) []int64 {
	seen := map[int64]bool{}
	out := []int64{}
	for _, m := range missions {
		if m.QuoteLineID == nil || seen[*m.QuoteLineID] {
			continue
		}
		seen[*m.QuoteLineID] = true
		out = append(out, *m.QuoteLineID)
	}
	return out
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
