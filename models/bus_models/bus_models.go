package bus_models

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/shared_models"
)

// Bus owns its stops, fare table and schedule. The fare table is a derived
// view of the stop list and base prices; it is regenerated wholesale on any
// stop or price edit.
type Bus struct {
	ID           uuid.UUID        `json:"id"`
	BusNumber    string           `json:"bus_number"`
	OperatorID   uuid.UUID        `json:"operator_id"`
	Route        string           `json:"route"`
	PriceNormal  int              `json:"price_normal"`
	PriceLuxury  int              `json:"price_luxury"`
	PermitID     string           `json:"permit_id"`
	PermitStatus string           `json:"permit_status"`
	Stops        []Stop           `json:"stops"`
	Fares        []FareEntry      `json:"fares"`
	Schedule     []*ScheduleEntry `json:"schedule"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ScheduleInput is one trip as supplied by an operator or admin.
type ScheduleInput struct {
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Capacity    int       `json:"capacity"`
	LockedSeats []int     `json:"locked_seats"`
}

// NewBus validates operator input, derives the fare table and builds the
// trip ledgers. A fresh permit ID is issued with status pending.
func NewBus(busNumber, route string, operatorID uuid.UUID, priceNormal, priceLuxury int, stops []Stop, schedule []ScheduleInput) (*Bus, error) {
	fares, err := GenerateFareMatrix(stops, priceNormal, priceLuxury)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate bus ID: %w", err)
	}

	entries := make([]*ScheduleEntry, 0, len(schedule))
	for _, item := range schedule {
		entry, err := NewScheduleEntry(id, item.Date, item.Time, item.Capacity, item.LockedSeats)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	now := time.Now()
	return &Bus{
		ID:           id,
		BusNumber:    busNumber,
		OperatorID:   operatorID,
		Route:        route,
		PriceNormal:  priceNormal,
		PriceLuxury:  priceLuxury,
		PermitID:     generatePermitID(),
		PermitStatus: shared_models.PermitStatusPending,
		Stops:        stops,
		Fares:        fares,
		Schedule:     entries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func generatePermitID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}

// CreateBus inserts a bus together with its stops, fare table and trips in
// one transaction.
func CreateBus(ctx context.Context, db *pgxpool.Pool, bus *Bus) error {
	logger.InfoLogger.Infof("Creating bus %s on route %s", bus.BusNumber, bus.Route)

	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM buses WHERE bus_number = $1)`, bus.BusNumber).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check bus number: %w", err)
	}
	if exists {
		return ErrBusNumberInUse
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO buses (id, bus_number, operator_id, route, price_normal, price_luxury, permit_id, permit_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		bus.ID, bus.BusNumber, bus.OperatorID, bus.Route, bus.PriceNormal, bus.PriceLuxury,
		bus.PermitID, bus.PermitStatus, bus.CreatedAt, bus.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bus: %w", err)
	}

	if err := insertStopsAndFares(ctx, tx, bus.ID, bus.Stops, bus.Fares); err != nil {
		return err
	}
	if err := insertTrips(ctx, tx, bus.Schedule); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bus creation: %w", err)
	}

	logger.InfoLogger.Infof("Bus %s created with %d fare entries and %d trips", bus.BusNumber, len(bus.Fares), len(bus.Schedule))
	return nil
}

func insertStopsAndFares(ctx context.Context, tx pgx.Tx, busID uuid.UUID, stops []Stop, fares []FareEntry) error {
	for i, stop := range stops {
		_, err := tx.Exec(ctx, `
			INSERT INTO bus_stops (bus_id, position, name, distance)
			VALUES ($1, $2, $3, $4)`,
			busID, i, stop.Name, stop.Distance,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stop %q: %w", stop.Name, err)
		}
	}
	for _, fare := range fares {
		_, err := tx.Exec(ctx, `
			INSERT INTO bus_fares (bus_id, name, from_stop, to_stop, distance, fare_normal, fare_luxury)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			busID, fare.Name, fare.FromStop, fare.ToStop, fare.Distance, fare.FareNormal, fare.FareLuxury,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fare entry %q: %w", fare.Name, err)
		}
	}
	return nil
}

func insertTrips(ctx context.Context, tx pgx.Tx, trips []*ScheduleEntry) error {
	for _, trip := range trips {
		_, err := tx.Exec(ctx, `
			INSERT INTO trips (id, bus_id, trip_date, trip_time, capacity, booked_seats, locked_seats, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			trip.ID, trip.BusID, trip.Date, trip.Time, trip.Capacity,
			toInt32Slice(trip.BookedSeats), toInt32Slice(trip.LockedSeats), trip.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trip %s %s: %w", trip.Date.Format("2006-01-02"), trip.Time, err)
		}
	}
	return nil
}

// GetBusByNumber fetches a bus and assembles its stops, fares and schedule.
func GetBusByNumber(ctx context.Context, db *pgxpool.Pool, busNumber string) (*Bus, error) {
	bus := &Bus{}
	err := db.QueryRow(ctx, `
		SELECT id, bus_number, operator_id, route, price_normal, price_luxury, permit_id, permit_status, created_at, updated_at
		FROM buses
		WHERE bus_number = $1`, busNumber).Scan(
		&bus.ID, &bus.BusNumber, &bus.OperatorID, &bus.Route, &bus.PriceNormal, &bus.PriceLuxury,
		&bus.PermitID, &bus.PermitStatus, &bus.CreatedAt, &bus.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("database error fetching bus: %w", err)
	}
	return loadBusChildren(ctx, db, bus)
}

// GetBusByID fetches a bus by its primary key.
func GetBusByID(ctx context.Context, db *pgxpool.Pool, busID uuid.UUID) (*Bus, error) {
	bus := &Bus{}
	err := db.QueryRow(ctx, `
		SELECT id, bus_number, operator_id, route, price_normal, price_luxury, permit_id, permit_status, created_at, updated_at
		FROM buses
		WHERE id = $1`, busID).Scan(
		&bus.ID, &bus.BusNumber, &bus.OperatorID, &bus.Route, &bus.PriceNormal, &bus.PriceLuxury,
		&bus.PermitID, &bus.PermitStatus, &bus.CreatedAt, &bus.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("database error fetching bus: %w", err)
	}
	return loadBusChildren(ctx, db, bus)
}

func loadBusChildren(ctx context.Context, db *pgxpool.Pool, bus *Bus) (*Bus, error) {
	rows, err := db.Query(ctx, `
		SELECT name, distance FROM bus_stops WHERE bus_id = $1 ORDER BY position`, bus.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stops: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stop Stop
		if err := rows.Scan(&stop.Name, &stop.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		bus.Stops = append(bus.Stops, stop)
	}
	rows.Close()

	rows, err = db.Query(ctx, `
		SELECT name, from_stop, to_stop, distance, fare_normal, fare_luxury
		FROM bus_fares WHERE bus_id = $1 ORDER BY from_stop, distance`, bus.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fares: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fare FareEntry
		if err := rows.Scan(&fare.Name, &fare.FromStop, &fare.ToStop, &fare.Distance, &fare.FareNormal, &fare.FareLuxury); err != nil {
			return nil, fmt.Errorf("failed to scan fare entry: %w", err)
		}
		bus.Fares = append(bus.Fares, fare)
	}
	rows.Close()

	bus.Schedule, err = loadTrips(ctx, db, bus.ID)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func loadTrips(ctx context.Context, db *pgxpool.Pool, busID uuid.UUID) ([]*ScheduleEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, bus_id, trip_date, trip_time, capacity, booked_seats, locked_seats, version
		FROM trips WHERE bus_id = $1 ORDER BY trip_date, trip_time`, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trips: %w", err)
	}
	defer rows.Close()

	var trips []*ScheduleEntry
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func scanTrip(row pgx.Row) (*ScheduleEntry, error) {
	trip := &ScheduleEntry{}
	var booked, locked []int32
	err := row.Scan(&trip.ID, &trip.BusID, &trip.Date, &trip.Time, &trip.Capacity, &booked, &locked, &trip.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trip: %w", err)
	}
	trip.BookedSeats = fromInt32Slice(booked)
	trip.LockedSeats = fromInt32Slice(locked)
	return trip, nil
}

// FindTrip resolves one (date, time) trip for a bus.
func FindTrip(ctx context.Context, db *pgxpool.Pool, busID uuid.UUID, date time.Time, tm string) (*ScheduleEntry, error) {
	trip, err := scanTrip(db.QueryRow(ctx, `
		SELECT id, bus_id, trip_date, trip_time, capacity, booked_seats, locked_seats, version
		FROM trips WHERE bus_id = $1 AND trip_date = $2 AND trip_time = $3`,
		busID, date.Truncate(24*time.Hour), tm))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetTripByID fetches one trip ledger.
func GetTripByID(ctx context.Context, db *pgxpool.Pool, tripID uuid.UUID) (*ScheduleEntry, error) {
	trip, err := scanTrip(db.QueryRow(ctx, `
		SELECT id, bus_id, trip_date, trip_time, capacity, booked_seats, locked_seats, version
		FROM trips WHERE id = $1`, tripID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// UpdateStops regenerates the fare table from a new stop list and replaces
// stops and fares in one transaction. Fares are derived data, so the whole
// table is rewritten rather than patched.
func UpdateStops(ctx context.Context, db *pgxpool.Pool, bus *Bus, stops []Stop) error {
	fares, err := GenerateFareMatrix(stops, bus.PriceNormal, bus.PriceLuxury)
	if err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM bus_stops WHERE bus_id = $1`, bus.ID); err != nil {
		return fmt.Errorf("failed to clear stops: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bus_fares WHERE bus_id = $1`, bus.ID); err != nil {
		return fmt.Errorf("failed to clear fares: %w", err)
	}
	if err := insertStopsAndFares(ctx, tx, bus.ID, stops, fares); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE buses SET updated_at = now() WHERE id = $1`, bus.ID); err != nil {
		return fmt.Errorf("failed to touch bus: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stop update: %w", err)
	}

	bus.Stops = stops
	bus.Fares = fares
	logger.InfoLogger.Infof("Bus %s stops updated, %d fare entries regenerated", bus.BusNumber, len(fares))
	return nil
}

// ReplaceSchedule applies an operator's bulk schedule replacement. Incoming
// trips that match an existing trip by (date, time) keep that trip's ID and
// occupancy via MergeSchedules, so sold seats survive the replace.
func ReplaceSchedule(ctx context.Context, db *pgxpool.Pool, bus *Bus, inputs []ScheduleInput) error {
	incoming := make([]*ScheduleEntry, 0, len(inputs))
	for _, item := range inputs {
		entry, err := NewScheduleEntry(bus.ID, item.Date, item.Time, item.Capacity, item.LockedSeats)
		if err != nil {
			return err
		}
		incoming = append(incoming, entry)
	}

	existing, err := loadTrips(ctx, db, bus.ID)
	if err != nil {
		return err
	}
	merged, err := MergeSchedules(existing, incoming)
	if err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM trips WHERE bus_id = $1`, bus.ID); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}
	if err := insertTrips(ctx, tx, merged); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE buses SET updated_at = now() WHERE id = $1`, bus.ID); err != nil {
		return fmt.Errorf("failed to touch bus: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schedule replace: %w", err)
	}

	bus.Schedule = merged
	logger.InfoLogger.Infof("Bus %s schedule replaced with %d trips (occupancy preserved for matching trips)", bus.BusNumber, len(merged))
	return nil
}

// UpdateBusDetails replaces route metadata, stops, prices and schedule in one
// operation. The fare table is regenerated and the schedule replacement
// preserves occupancy for matching trips.
func UpdateBusDetails(ctx context.Context, db *pgxpool.Pool, bus *Bus, route string, priceNormal, priceLuxury int, stops []Stop, schedule []ScheduleInput) error {
	bus.PriceNormal = priceNormal
	bus.PriceLuxury = priceLuxury

	_, err := db.Exec(ctx, `
		UPDATE buses SET route = $2, price_normal = $3, price_luxury = $4, updated_at = now()
		WHERE id = $1`, bus.ID, route, priceNormal, priceLuxury)
	if err != nil {
		return fmt.Errorf("failed to update bus details: %w", err)
	}
	bus.Route = route

	if err := UpdateStops(ctx, db, bus, stops); err != nil {
		return err
	}
	return ReplaceSchedule(ctx, db, bus, schedule)
}

// ReplaceBusNumber renames a bus, rejecting numbers already in use.
func ReplaceBusNumber(ctx context.Context, db *pgxpool.Pool, bus *Bus, newNumber string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM buses WHERE bus_number = $1)`, newNumber).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check bus number: %w", err)
	}
	if exists {
		return ErrBusNumberInUse
	}

	cmdTag, err := db.Exec(ctx, `UPDATE buses SET bus_number = $2, updated_at = now() WHERE id = $1`, bus.ID, newNumber)
	if err != nil {
		return fmt.Errorf("failed to replace bus number: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBusNotFound
	}
	bus.BusNumber = newNumber
	return nil
}

// UpdatePermitStatus records a permit decision. The workflow that produced
// the decision is outside this service.
func UpdatePermitStatus(ctx context.Context, db *pgxpool.Pool, busNumber, status string) (*Bus, error) {
	if status != shared_models.PermitStatusGranted && status != shared_models.PermitStatusRevoked {
		return nil, fmt.Errorf("invalid permit status %q", status)
	}

	bus, err := GetBusByNumber(ctx, db, busNumber)
	if err != nil {
		return nil, err
	}
	if bus.PermitID == "" {
		bus.PermitID = generatePermitID()
	}

	_, err = db.Exec(ctx, `
		UPDATE buses SET permit_id = $2, permit_status = $3, updated_at = now() WHERE id = $1`,
		bus.ID, bus.PermitID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update permit status: %w", err)
	}
	bus.PermitStatus = status
	return bus, nil
}

// PermitSummary is the operator-facing view of a bus permit.
type PermitSummary struct {
	BusNumber    string `json:"bus_number"`
	PermitID     string `json:"permit_id"`
	PermitStatus string `json:"permit_status"`
}

// GetPermitStatuses lists permit state for all buses run by an operator.
func GetPermitStatuses(ctx context.Context, db *pgxpool.Pool, operatorID uuid.UUID) ([]PermitSummary, error) {
	rows, err := db.Query(ctx, `
		SELECT bus_number, permit_id, permit_status FROM buses WHERE operator_id = $1 ORDER BY bus_number`, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permits: %w", err)
	}
	defer rows.Close()

	var out []PermitSummary
	for rows.Next() {
		var p PermitSummary
		if err := rows.Scan(&p.BusNumber, &p.PermitID, &p.PermitStatus); err != nil {
			return nil, fmt.Errorf("failed to scan permit: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// TripSearchResult is one schedule entry returned by a commuter search.
// AvailableSeats is derived at read time and is best-effort: correctness
// depends only on the write-time check in the reservation path.
type TripSearchResult struct {
	BusNumber      string    `json:"bus_number"`
	Route          string    `json:"route"`
	TripID         uuid.UUID `json:"trip_id"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	Capacity       int       `json:"capacity"`
	AvailableSeats int       `json:"available_seats"`
}

// SearchTrips finds scheduled trips by route and optional date/time filters.
func SearchTrips(ctx context.Context, db *pgxpool.Pool, route string, date *time.Time, tm string) ([]TripSearchResult, error) {
	query := `
		SELECT b.bus_number, b.route, t.id, t.trip_date, t.trip_time, t.capacity, t.capacity - cardinality(t.booked_seats)
		FROM trips t
		JOIN buses b ON t.bus_id = b.id
		WHERE b.route = $1`
	args := []interface{}{route}
	if date != nil {
		args = append(args, date.Truncate(24*time.Hour))
		query += fmt.Sprintf(" AND t.trip_date = $%d", len(args))
	}
	if tm != "" {
		args = append(args, tm)
		query += fmt.Sprintf(" AND t.trip_time = $%d", len(args))
	}
	query += " ORDER BY t.trip_date, t.trip_time"

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}
	defer rows.Close()

	var out []TripSearchResult
	for rows.Next() {
		var r TripSearchResult
		if err := rows.Scan(&r.BusNumber, &r.Route, &r.TripID, &r.Date, &r.Time, &r.Capacity, &r.AvailableSeats); err != nil {
			return nil, fmt.Errorf("failed to scan trip search row: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func toInt32Slice(seats []int) []int32 {
	out := make([]int32, len(seats))
	for i, s := range seats {
		out[i] = int32(s)
	}
	return out
}

func fromInt32Slice(seats []int32) []int {
	if len(seats) == 0 {
		return nil
	}
	out := make([]int, len(seats))
	for i, s := range seats {
		out[i] = int(s)
	}
	return out
}
