package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

// OrderRepo loads orders and their quote/line trees, always scoped to one
// tenant. A mismatched organization id behaves exactly like a missing row.
type OrderRepo struct {
	DB *sql.DB
}

func (r OrderRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// HeaderByID fetches the order row without its quotes.
func (r OrderRepo) HeaderByID(orderID, orgID int64) (models.Order, error) {
	if orderID <= 0 {
		return models.Order{}, domain.ValidationError{Field: "order_id", Msg: "must be positive"}
	}
	db := r.db()
	if db == nil {
		return models.Order{}, domain.InternalError{Msg: "db not available"}
	}

	var o models.Order
	err := db.QueryRow(`
		SELECT id, organization_id, COALESCE(reference, ''), COALESCE(status, '')
		FROM orders
		WHERE id = ? AND organization_id = ?
		LIMIT 1
	`, orderID, orgID).Scan(&o.ID, &o.OrganizationID, &o.Reference, &o.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, domain.NotFoundError{Resource: "order"}
		}
		return models.Order{}, err
	}
	return o, nil
}

// TreeByID loads the order with its eligible quotes (TRANSFER/DISPO only)
// and, per quote, the dispatchable top-level CALCULATED/GROUP lines with up
// to two levels of nested children. Never returns partial data: any error
// aborts the whole load.
func (r OrderRepo) TreeByID(orderID, orgID int64) (models.Order, error) {
	order, err := r.HeaderByID(orderID, orgID)
	if err != nil {
		return models.Order{}, err
	}

	db := r.db()
	rows, err := db.Query(`
		SELECT q.id, q.order_id, q.trip_type,
		       q.pickup_at, q.estimated_end_at,
		       COALESCE(q.pickup_address, ''), q.pickup_lat, q.pickup_lng,
		       COALESCE(q.dropoff_address, ''), q.dropoff_lat, q.dropoff_lng,
		       q.passenger_count, q.luggage_count,
		       q.vehicle_category_id, COALESCE(vc.name, ''),
		       q.is_round_trip, COALESCE(q.pricing_mode, '')
		FROM quotes q
		LEFT JOIN vehicle_categories vc ON vc.id = q.vehicle_category_id
		WHERE q.order_id = ? AND q.trip_type IN ('TRANSFER', 'DISPO')
		ORDER BY q.id ASC
	`, orderID)
	if err != nil {
		return models.Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return models.Order{}, err
		}
		order.Quotes = append(order.Quotes, q)
	}
	if err := rows.Err(); err != nil {
		return models.Order{}, err
	}

	for i := range order.Quotes {
		lines, err := r.topLevelLines(order.Quotes[i].ID)
		if err != nil {
			return models.Order{}, err
		}
		for j := range lines {
			if err := r.loadChildren(&lines[j], 1); err != nil {
				return models.Order{}, err
			}
		}
		order.Quotes[i].Lines = lines
	}

	return order, nil
}

// FirstQuote returns the lowest-id quote of the order, regardless of trip
// type. Internal missions hang off it to satisfy the quote relation.
func (r OrderRepo) FirstQuote(orderID int64) (models.Quote, error) {
	db := r.db()
	if db == nil {
		return models.Quote{}, domain.InternalError{Msg: "db not available"}
	}
	var q models.Quote
	err := db.QueryRow(`
		SELECT id, order_id, COALESCE(trip_type, '')
		FROM quotes
		WHERE order_id = ?
		ORDER BY id ASC
		LIMIT 1
	`, orderID).Scan(&q.ID, &q.OrderID, &q.TripType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Quote{}, domain.NotFoundError{Resource: "quote"}
		}
		return models.Quote{}, err
	}
	return q, nil
}

// LineWithQuote loads one quote line together with its parent quote and the
// owning order, scoped to the tenant. Used by manual spawn validation.
func (r OrderRepo) LineWithQuote(lineID, orgID int64) (models.QuoteLine, models.Quote, models.Order, error) {
	db := r.db()
	if db == nil {
		return models.QuoteLine{}, models.Quote{}, models.Order{}, domain.InternalError{Msg: "db not available"}
	}

	var (
		line  models.QuoteLine
		order models.Order
	)
	var parentID sql.NullInt64
	var sourceData sql.NullString
	err := db.QueryRow(`
		SELECT l.id, l.quote_id, l.parent_id, l.type, l.dispatchable,
		       l.sort_order, COALESCE(l.label, ''), COALESCE(l.total_price, 0), l.source_data,
		       o.id, o.organization_id, COALESCE(o.reference, ''), COALESCE(o.status, '')
		FROM quote_lines l
		JOIN quotes q ON q.id = l.quote_id
		JOIN orders o ON o.id = q.order_id
		WHERE l.id = ? AND o.organization_id = ?
		LIMIT 1
	`, lineID, orgID).Scan(
		&line.ID, &line.QuoteID, &parentID, &line.Type, &line.Dispatchable,
		&line.SortOrder, &line.Label, &line.TotalPrice, &sourceData,
		&order.ID, &order.OrganizationID, &order.Reference, &order.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QuoteLine{}, models.Quote{}, models.Order{}, domain.NotFoundError{Resource: "quote line"}
		}
		return models.QuoteLine{}, models.Quote{}, models.Order{}, err
	}
	if parentID.Valid {
		v := parentID.Int64
		line.ParentID = &v
	}
	if sourceData.Valid {
		line.SourceData = []byte(sourceData.String)
	}

	quote, err := r.quoteByID(line.QuoteID)
	if err != nil {
		return models.QuoteLine{}, models.Quote{}, models.Order{}, err
	}
	return line, quote, order, nil
}

// MarkConfirmed moves the order status after a successful spawn. The write
// is tenant-scoped like every other order access.
func (r OrderRepo) MarkConfirmed(orderID, orgID int64) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "db not available"}
	}
	res, err := db.Exec(`UPDATE orders SET status = 'confirmed' WHERE id = ? AND organization_id = ?`, orderID, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already confirmed counts as success; a missing row does not.
		var one int
		if err := db.QueryRow(`SELECT 1 FROM orders WHERE id = ? AND organization_id = ?`, orderID, orgID).Scan(&one); err != nil {
			return domain.NotFoundError{Resource: "order"}
		}
	}
	return nil
}

func (r OrderRepo) quoteByID(quoteID int64) (models.Quote, error) {
	db := r.db()
	row := db.QueryRow(`
		SELECT q.id, q.order_id, q.trip_type,
		       q.pickup_at, q.estimated_end_at,
		       COALESCE(q.pickup_address, ''), q.pickup_lat, q.pickup_lng,
		       COALESCE(q.dropoff_address, ''), q.dropoff_lat, q.dropoff_lng,
		       q.passenger_count, q.luggage_count,
		       q.vehicle_category_id, COALESCE(vc.name, ''),
		       q.is_round_trip, COALESCE(q.pricing_mode, '')
		FROM quotes q
		LEFT JOIN vehicle_categories vc ON vc.id = q.vehicle_category_id
		WHERE q.id = ?
		LIMIT 1
	`, quoteID)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Quote{}, domain.NotFoundError{Resource: "quote"}
		}
		return models.Quote{}, err
	}
	return q, nil
}

func (r OrderRepo) topLevelLines(quoteID int64) ([]models.QuoteLine, error) {
	db := r.db()
	rows, err := db.Query(`
		SELECT id, quote_id, parent_id, type, dispatchable,
		       sort_order, COALESCE(label, ''), COALESCE(total_price, 0), source_data
		FROM quote_lines
		WHERE quote_id = ?
		  AND parent_id IS NULL
		  AND dispatchable = 1
		  AND type IN ('CALCULATED', 'GROUP')
		ORDER BY sort_order ASC, id ASC
	`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

// loadChildren fills line.Children down to two nested levels. Children are
// loaded unfiltered; the collector decides what materializes.
func (r OrderRepo) loadChildren(line *models.QuoteLine, depth int) error {
	if line.Type != models.LineGroup || depth > 2 {
		return nil
	}
	db := r.db()
	rows, err := db.Query(`
		SELECT id, quote_id, parent_id, type, dispatchable,
		       sort_order, COALESCE(label, ''), COALESCE(total_price, 0), source_data
		FROM quote_lines
		WHERE parent_id = ?
		ORDER BY sort_order ASC, id ASC
	`, line.ID)
	if err != nil {
		return err
	}
	children, err := scanLines(rows)
	rows.Close()
	if err != nil {
		return err
	}
	for i := range children {
		if err := r.loadChildren(&children[i], depth+1); err != nil {
			return err
		}
	}
	line.Children = children
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (models.Quote, error) {
	var q models.Quote
	var pickupAt, endAt sql.NullTime
	var pLat, pLng, dLat, dLng sql.NullFloat64
	var vcID sql.NullInt64
	err := row.Scan(
		&q.ID, &q.OrderID, &q.TripType,
		&pickupAt, &endAt,
		&q.PickupAddress, &pLat, &pLng,
		&q.DropoffAddress, &dLat, &dLng,
		&q.PassengerCount, &q.LuggageCount,
		&vcID, &q.VehicleCategoryName,
		&q.IsRoundTrip, &q.PricingMode,
	)
	if err != nil {
		return models.Quote{}, err
	}
	if pickupAt.Valid {
		t := pickupAt.Time
		q.PickupAt = &t
	}
	if endAt.Valid {
		t := endAt.Time
		q.EstimatedEndAt = &t
	}
	q.PickupLat = nullFloat(pLat)
	q.PickupLng = nullFloat(pLng)
	q.DropoffLat = nullFloat(dLat)
	q.DropoffLng = nullFloat(dLng)
	if vcID.Valid {
		v := vcID.Int64
		q.VehicleCategoryID = &v
	}
	return q, nil
}

func scanLines(rows *sql.Rows) ([]models.QuoteLine, error) {
	out := []models.QuoteLine{}
	for rows.Next() {
		var l models.QuoteLine
		var parentID sql.NullInt64
		var sourceData sql.NullString
		if err := rows.Scan(
			&l.ID, &l.QuoteID, &parentID, &l.Type, &l.Dispatchable,
			&l.SortOrder, &l.Label, &l.TotalPrice, &sourceData,
		); err != nil {
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		if parentID.Valid {
			v := parentID.Int64
			l.ParentID = &v
		}
		if sourceData.Valid {
			l.SourceData = []byte(sourceData.String)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
