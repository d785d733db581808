package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// querier *sql.DB 与 *sql.Tx 的公共部分
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresInventoryRepo 库存仓库的 Postgres 实现
type PostgresInventoryRepo struct {
	pgReader
	db          *sql.DB
	lockTimeout time.Duration
}

// NewPostgresInventoryRepo lockTimeout > 0 时写事务内 SET LOCAL lock_timeout
func NewPostgresInventoryRepo(db *sql.DB, lockTimeout time.Duration) *PostgresInventoryRepo {
	return &PostgresInventoryRepo{
		pgReader:    pgReader{q: db},
		db:          db,
		lockTimeout: lockTimeout,
	}
}

// InTx 事务模板：BeginTx -> defer Rollback -> fn -> Commit
func (r *PostgresInventoryRepo) InTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.lockTimeout > 0 {
		// SET 不支持参数占位符
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock_timeout: %w", err)
		}
	}

	if err := fn(&pgTx{pgReader: pgReader{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPQError(err))
	}
	return nil
}

// DeactivateExpiredBlockedWindows 单条 UPDATE，WHERE active = TRUE 保证并发重复执行只翻转一次
func (r *PostgresInventoryRepo) DeactivateExpiredBlockedWindows(ctx context.Context, today time.Time) ([]*domain.BlockedWindow, error) {
	q := `
		UPDATE blocked_windows
		SET active = FALSE, updated_at = NOW()
		WHERE active = TRUE
		  AND expiry_date <= $1
		RETURNING ` + blockedWindowColumns
	rows, err := r.db.QueryContext(ctx, q, domain.Day(today))
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate expired blocked windows: %w", mapPQError(err))
	}
	defer rows.Close()
	out, err := scanBlockedWindows(rows)
	if err != nil {
		return nil, err
	}
	sortWindows(out)
	return out, nil
}

// mapPQError 55P03 lock_not_available / 40P01 deadlock_detected -> ErrLockTimeout，23505 unique_violation -> ErrConflict
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03", "40P01":
			return fmt.Errorf("%w: %s", domain.ErrLockTimeout, pqErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Message)
		}
	}
	return err
}

// ============================================
// 读操作
// ============================================

type pgReader struct {
	q querier
}

const roomTypeColumns = `room_type_id::text, name, kind, min_occupancy, max_occupancy, nightly_rate, unit_count`

const roomUnitColumns = `room_unit_id::text, room_type_id::text, unit_number, status, COALESCE(notes, ''), created_at, updated_at`

const reservationColumns = `reservation_id::text, status, kind, source, check_in, check_out, updated_at`

const linkColumns = `link_id::text, reservation_id::text, room_type_id::text, room_unit_id::text, quantity`

var blockedWindowColumns = blockedWindowCols("")

// blockedWindowCols 带表别名的列清单
func blockedWindowCols(alias string) string {
	a := ""
	if alias != "" {
		a = alias + "."
	}
	return a + "blocked_window_id::text, " + a + "room_unit_id::text, " +
		a + "start_date, " + a + "end_date, " + a + "expiry_date, " + a + "active, " +
		"COALESCE(" + a + "notes, ''), " + a + "created_at, " + a + "updated_at"
}

// occupancySelect 占用中的已分配关联；day_tour 的结束日按 check_in + 1 计算
const occupancySelect = `
		SELECT
			l.link_id::text,
			l.reservation_id::text,
			l.room_unit_id::text,
			l.room_type_id::text,
			r.status,
			r.kind,
			r.source,
			r.check_in,
			r.check_out
		FROM reservation_unit_links l
		JOIN reservations r ON r.reservation_id = l.reservation_id
		WHERE l.room_unit_id IS NOT NULL
		  AND r.status = ANY($1)
		  AND r.check_in < $3
		  AND (CASE WHEN r.kind = 'day_tour' THEN r.check_in + 1 ELSE r.check_out END) > $2`

func occupyingStatusArray() any {
	out := make([]string, 0, len(domain.OccupyingStatuses))
	for _, s := range domain.OccupyingStatuses {
		out = append(out, string(s))
	}
	return pq.Array(out)
}

func (r pgReader) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	return r.getRoomType(ctx, id, "")
}

func (r pgReader) getRoomType(ctx context.Context, id, suffix string) (*domain.RoomType, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFoundError("room_type", id)
	}
	q := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE room_type_id = $1` + suffix
	var rt domain.RoomType
	err := r.q.QueryRowContext(ctx, q, id).Scan(
		&rt.RoomTypeID, &rt.Name, &rt.Kind, &rt.MinOccupancy, &rt.MaxOccupancy, &rt.NightlyRate, &rt.UnitCount,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("room_type", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room type: %w", mapPQError(err))
	}
	return &rt, nil
}

func (r pgReader) ListRoomTypes(ctx context.Context, id string) ([]*domain.RoomType, error) {
	q := `SELECT ` + roomTypeColumns + ` FROM room_types`
	args := []any{}
	if id != "" {
		q += ` WHERE room_type_id::text = $1`
		args = append(args, id)
	}
	q += ` ORDER BY name, room_type_id`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	defer rows.Close()

	out := []*domain.RoomType{}
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(&rt.RoomTypeID, &rt.Name, &rt.Kind, &rt.MinOccupancy, &rt.MaxOccupancy, &rt.NightlyRate, &rt.UnitCount); err != nil {
			return nil, err
		}
		out = append(out, &rt)
	}
	return out, rows.Err()
}

func scanUnit(row interface{ Scan(...any) error }) (*domain.RoomUnit, error) {
	var u domain.RoomUnit
	if err := row.Scan(&u.RoomUnitID, &u.RoomTypeID, &u.UnitNumber, &u.Status, &u.Notes, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r pgReader) GetUnit(ctx context.Context, id string) (*domain.RoomUnit, error) {
	return r.getUnit(ctx, id, "")
}

func (r pgReader) getUnit(ctx context.Context, id, suffix string) (*domain.RoomUnit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFoundError("room_unit", id)
	}
	q := `SELECT ` + roomUnitColumns + ` FROM room_units WHERE room_unit_id = $1` + suffix
	u, err := scanUnit(r.q.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("room_unit", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room unit: %w", mapPQError(err))
	}
	return u, nil
}

// ListUnits 单元号自然顺序在应用层排序（SQL 无法表达 "A9" < "A10"）
func (r pgReader) ListUnits(ctx context.Context, f UnitFilters) ([]*domain.RoomUnit, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1
	if f.RoomTypeID != "" {
		where = append(where, fmt.Sprintf("room_type_id::text = $%d", argN))
		args = append(args, f.RoomTypeID)
		argN++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, string(f.Status))
		argN++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(unit_number ILIKE $%d OR COALESCE(notes, '') ILIKE $%d)", argN, argN))
		args = append(args, "%"+s+"%")
		argN++
	}
	q := `SELECT ` + roomUnitColumns + ` FROM room_units WHERE ` + strings.Join(where, " AND ")
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list room units: %w", err)
	}
	defer rows.Close()

	out := []*domain.RoomUnit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	domain.SortUnits(out)
	return out, nil
}

func (r pgReader) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.getReservation(ctx, id, "")
}

func (r pgReader) getReservation(ctx context.Context, id, suffix string) (*domain.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFoundError("reservation", id)
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = $1` + suffix
	var res domain.Reservation
	err := r.q.QueryRowContext(ctx, q, id).Scan(
		&res.ReservationID, &res.Status, &res.Kind, &res.Source, &res.CheckIn, &res.CheckOut, &res.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("reservation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", mapPQError(err))
	}
	res.CheckIn, res.CheckOut = domain.Day(res.CheckIn), domain.Day(res.CheckOut)
	return &res, nil
}

func scanLink(row interface{ Scan(...any) error }) (*domain.ReservationUnitLink, error) {
	var l domain.ReservationUnitLink
	var unitID sql.NullString
	if err := row.Scan(&l.LinkID, &l.ReservationID, &l.RoomTypeID, &unitID, &l.Quantity); err != nil {
		return nil, err
	}
	if unitID.Valid {
		l.RoomUnitID = &unitID.String
	}
	return &l, nil
}

func (r pgReader) GetLink(ctx context.Context, id string) (*domain.ReservationUnitLink, error) {
	return r.getLink(ctx, id, "")
}

func (r pgReader) getLink(ctx context.Context, id, suffix string) (*domain.ReservationUnitLink, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFoundError("reservation_unit_link", id)
	}
	q := `SELECT ` + linkColumns + ` FROM reservation_unit_links WHERE link_id = $1` + suffix
	l, err := scanLink(r.q.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("reservation_unit_link", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation unit link: %w", mapPQError(err))
	}
	return l, nil
}

func (r pgReader) ListReservationLinks(ctx context.Context, reservationID string) ([]*domain.ReservationUnitLink, error) {
	q := `SELECT ` + linkColumns + ` FROM reservation_unit_links WHERE reservation_id::text = $1 ORDER BY link_id`
	rows, err := r.q.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservation links: %w", err)
	}
	defer rows.Close()

	out := []*domain.ReservationUnitLink{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r pgReader) ListUnitReservationIDs(ctx context.Context, unitID string) ([]string, error) {
	q := `
		SELECT DISTINCT reservation_id::text
		FROM reservation_unit_links
		WHERE room_unit_id::text = $1
		ORDER BY 1
	`
	rows, err := r.q.QueryContext(ctx, q, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit reservations: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanOccupancies(rows *sql.Rows) ([]*domain.Occupancy, error) {
	out := []*domain.Occupancy{}
	for rows.Next() {
		var o domain.Occupancy
		if err := rows.Scan(&o.LinkID, &o.ReservationID, &o.RoomUnitID, &o.RoomTypeID,
			&o.Status, &o.Kind, &o.Source, &o.CheckIn, &o.CheckOut); err != nil {
			return nil, err
		}
		o.CheckIn, o.CheckOut = domain.Day(o.CheckIn), domain.Day(o.CheckOut)
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r pgReader) ListUnitOccupancies(ctx context.Context, unitID string, window domain.DateRange) ([]*domain.Occupancy, error) {
	q := occupancySelect + `
		  AND l.room_unit_id::text = $4
		ORDER BY r.check_in, l.link_id`
	rows, err := r.q.QueryContext(ctx, q, occupyingStatusArray(), window.Start, window.End, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit occupancies: %w", mapPQError(err))
	}
	defer rows.Close()
	return scanOccupancies(rows)
}

// ListOccupanciesInRange 日历单次查询：占用中预订联表关联，按房型过滤
func (r pgReader) ListOccupanciesInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.Occupancy, error) {
	q := occupancySelect
	args := []any{occupyingStatusArray(), window.Start, window.End}
	if roomTypeID != "" {
		q += `
		  AND EXISTS (SELECT 1 FROM room_units u WHERE u.room_unit_id = l.room_unit_id AND u.room_type_id::text = $4)`
		args = append(args, roomTypeID)
	}
	q += `
		ORDER BY r.check_in, l.link_id`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupancies in range: %w", err)
	}
	defer rows.Close()
	return scanOccupancies(rows)
}

func scanBlockedWindow(row interface{ Scan(...any) error }) (*domain.BlockedWindow, error) {
	var w domain.BlockedWindow
	if err := row.Scan(&w.BlockedWindowID, &w.RoomUnitID, &w.StartDate, &w.EndDate, &w.ExpiryDate,
		&w.Active, &w.Notes, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.StartDate, w.EndDate, w.ExpiryDate = domain.Day(w.StartDate), domain.Day(w.EndDate), domain.Day(w.ExpiryDate)
	return &w, nil
}

func scanBlockedWindows(rows *sql.Rows) ([]*domain.BlockedWindow, error) {
	out := []*domain.BlockedWindow{}
	for rows.Next() {
		w, err := scanBlockedWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListUnitBlockedWindows 闭区间 [start_date, end_date] 与 [$1, $2) 重叠：start_date < $2 AND end_date >= $1
func (r pgReader) ListUnitBlockedWindows(ctx context.Context, unitID string, window domain.DateRange) ([]*domain.BlockedWindow, error) {
	q := `
		SELECT ` + blockedWindowColumns + `
		FROM blocked_windows
		WHERE active = TRUE
		  AND start_date < $2
		  AND end_date >= $1
		  AND room_unit_id::text = $3
		ORDER BY start_date, blocked_window_id
	`
	rows, err := r.q.QueryContext(ctx, q, window.Start, window.End, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit blocked windows: %w", mapPQError(err))
	}
	defer rows.Close()
	return scanBlockedWindows(rows)
}

func (r pgReader) ListBlockedWindowsInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.BlockedWindow, error) {
	q := `
		SELECT ` + blockedWindowCols("w") + `
		FROM blocked_windows w
		JOIN room_units u ON u.room_unit_id = w.room_unit_id
		WHERE w.active = TRUE
		  AND w.start_date < $2
		  AND w.end_date >= $1`
	args := []any{window.Start, window.End}
	if roomTypeID != "" {
		q += `
		  AND u.room_type_id::text = $3`
		args = append(args, roomTypeID)
	}
	q += `
		ORDER BY w.start_date, w.blocked_window_id`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked windows in range: %w", err)
	}
	defer rows.Close()
	return scanBlockedWindows(rows)
}

func (r pgReader) GetBlockedWindow(ctx context.Context, id string) (*domain.BlockedWindow, error) {
	return r.getBlockedWindow(ctx, id, "")
}

func (r pgReader) getBlockedWindow(ctx context.Context, id, suffix string) (*domain.BlockedWindow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFoundError("blocked_window", id)
	}
	q := `SELECT ` + blockedWindowColumns + ` FROM blocked_windows WHERE blocked_window_id = $1` + suffix
	w, err := scanBlockedWindow(r.q.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("blocked_window", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked window: %w", mapPQError(err))
	}
	return w, nil
}

func (r pgReader) ListBlockedWindows(ctx context.Context, f BlockedWindowFilters) ([]*domain.BlockedWindow, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1
	if f.RoomUnitID != "" {
		where = append(where, fmt.Sprintf("w.room_unit_id::text = $%d", argN))
		args = append(args, f.RoomUnitID)
		argN++
	}
	if f.RoomTypeID != "" {
		where = append(where, fmt.Sprintf("u.room_type_id::text = $%d", argN))
		args = append(args, f.RoomTypeID)
		argN++
	}
	if f.ActiveOnly {
		where = append(where, "w.active = TRUE")
	}
	q := `
		SELECT ` + blockedWindowCols("w") + `
		FROM blocked_windows w
		JOIN room_units u ON u.room_unit_id = w.room_unit_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY w.start_date, w.blocked_window_id`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked windows: %w", err)
	}
	defer rows.Close()
	return scanBlockedWindows(rows)
}

func (r pgReader) CountOccupiedUnits(ctx context.Context, roomTypeID string, today time.Time) (int, error) {
	q := `
		SELECT COUNT(DISTINCT l.room_unit_id)
		FROM reservation_unit_links l
		JOIN reservations r ON r.reservation_id = l.reservation_id
		WHERE l.room_unit_id IS NOT NULL
		  AND l.room_type_id::text = $1
		  AND r.status = ANY($2)
		  AND (CASE WHEN r.kind = 'day_tour' THEN r.check_in + 1 ELSE r.check_out END) > $3
	`
	var n int
	if err := r.q.QueryRowContext(ctx, q, roomTypeID, occupyingStatusArray(), domain.Day(today)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count occupied units: %w", err)
	}
	return n, nil
}

// ============================================
// 写事务
// ============================================

type pgTx struct {
	pgReader
}

func (t *pgTx) LockRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	return t.getRoomType(ctx, id, " FOR UPDATE")
}

func (t *pgTx) LockUnit(ctx context.Context, id string) (*domain.RoomUnit, error) {
	return t.getUnit(ctx, id, " FOR UPDATE")
}

// LockUnits 固定按 id 顺序加锁，避免批量操作之间互相死锁
func (t *pgTx) LockUnits(ctx context.Context, ids []string) ([]*domain.RoomUnit, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make([]*domain.RoomUnit, 0, len(sorted))
	for _, id := range sorted {
		u, err := t.LockUnit(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (t *pgTx) LockReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return t.getReservation(ctx, id, " FOR UPDATE")
}

func (t *pgTx) LockLink(ctx context.Context, id string) (*domain.ReservationUnitLink, error) {
	return t.getLink(ctx, id, " FOR UPDATE")
}

func (t *pgTx) LockBlockedWindow(ctx context.Context, id string) (*domain.BlockedWindow, error) {
	return t.getBlockedWindow(ctx, id, " FOR UPDATE")
}

func execOne(ctx context.Context, q querier, entity, id, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, mapPQError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

func (t *pgTx) SetLinkUnit(ctx context.Context, linkID, unitID string) error {
	return execOne(ctx, t.q, "reservation_unit_link", linkID,
		`UPDATE reservation_unit_links SET room_unit_id = $2 WHERE link_id::text = $1`, linkID, unitID)
}

func (t *pgTx) UpdateReservationDates(ctx context.Context, reservationID string, checkIn, checkOut time.Time) error {
	return execOne(ctx, t.q, "reservation", reservationID,
		`UPDATE reservations SET check_in = $2, check_out = $3, updated_at = NOW() WHERE reservation_id::text = $1`,
		reservationID, domain.Day(checkIn), domain.Day(checkOut))
}

func (t *pgTx) InsertBlockedWindow(ctx context.Context, w *domain.BlockedWindow) error {
	if w.BlockedWindowID == "" {
		w.BlockedWindowID = uuid.NewString()
	}
	q := `
		INSERT INTO blocked_windows (blocked_window_id, room_unit_id, start_date, end_date, expiry_date, active, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING created_at, updated_at
	`
	err := t.q.QueryRowContext(ctx, q, w.BlockedWindowID, w.RoomUnitID,
		domain.Day(w.StartDate), domain.Day(w.EndDate), domain.Day(w.ExpiryDate), w.Active, w.Notes,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert blocked window: %w", mapPQError(err))
	}
	return nil
}

func (t *pgTx) UpdateBlockedWindow(ctx context.Context, w *domain.BlockedWindow) error {
	return execOne(ctx, t.q, "blocked_window", w.BlockedWindowID, `
		UPDATE blocked_windows
		SET start_date = $2, end_date = $3, expiry_date = $4, active = $5, notes = NULLIF($6, ''), updated_at = NOW()
		WHERE blocked_window_id::text = $1
	`, w.BlockedWindowID, domain.Day(w.StartDate), domain.Day(w.EndDate), domain.Day(w.ExpiryDate), w.Active, w.Notes)
}

func (t *pgTx) DeleteBlockedWindow(ctx context.Context, id string) error {
	return execOne(ctx, t.q, "blocked_window", id,
		`DELETE FROM blocked_windows WHERE blocked_window_id::text = $1`, id)
}

func (t *pgTx) InsertUnits(ctx context.Context, units []*domain.RoomUnit) error {
	q := `
		INSERT INTO room_units (room_unit_id, room_type_id, unit_number, status, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at, updated_at
	`
	for _, u := range units {
		if u.RoomUnitID == "" {
			u.RoomUnitID = uuid.NewString()
		}
		if u.Status == "" {
			u.Status = domain.UnitStatusAvailable
		}
		err := t.q.QueryRowContext(ctx, q, u.RoomUnitID, u.RoomTypeID, u.UnitNumber, string(u.Status), u.Notes).
			Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			err = mapPQError(err)
			if errors.Is(err, domain.ErrConflict) {
				return &domain.ConflictError{Kind: domain.ConflictUnitNumber, UnitNumber: u.UnitNumber}
			}
			return fmt.Errorf("failed to insert room unit %s: %w", u.UnitNumber, err)
		}
	}
	return nil
}

func (t *pgTx) UpdateUnitStatus(ctx context.Context, unitID string, status domain.UnitStatus, notes string) error {
	return execOne(ctx, t.q, "room_unit", unitID,
		`UPDATE room_units SET status = $2, notes = NULLIF($3, ''), updated_at = NOW() WHERE room_unit_id::text = $1`,
		unitID, string(status), notes)
}

func (t *pgTx) DeleteUnit(ctx context.Context, unitID string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM blocked_windows WHERE room_unit_id::text = $1`, unitID); err != nil {
		return fmt.Errorf("failed to delete unit blocked windows: %w", mapPQError(err))
	}
	return execOne(ctx, t.q, "room_unit", unitID,
		`DELETE FROM room_units WHERE room_unit_id::text = $1`, unitID)
}

var (
	_ InventoryRepository = (*PostgresInventoryRepo)(nil)
	_ InventoryTx         = (*pgTx)(nil)
)
