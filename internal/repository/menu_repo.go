package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
)

const menuColumns = `id, menu_date, total_child_count, notes, created_by, template_id, created_at, updated_at`

// MenuRepository handles daily menus, their meal slots and consumption logs.
type MenuRepository struct {
	db *sql.DB
}

// NewMenuRepository creates a new menu repository.
func NewMenuRepository(db *sql.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// Create inserts the menu header, all four meal slots and their dishes.
// A second menu for the same date returns models.ErrDuplicateDate.
func (r *MenuRepository) Create(ctx context.Context, tx *sql.Tx, m *models.DailyMenu) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	q := conn(r.db, tx)
	_, err := q.ExecContext(ctx, `INSERT INTO daily_menus (`+menuColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.DateKey(), m.TotalChildCount, m.Notes, m.CreatedBy, nullableString(m.TemplateID),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("menu for %s: %w", m.DateKey(), models.ErrDuplicateDate)
		}
		return fmt.Errorf("inserting menu: %w", err)
	}

	for _, mt := range models.MealTypes {
		meal := m.Meal(mt)
		var servedAt sql.NullString
		var servedCount sql.NullInt64
		if meal.Served != nil {
			servedAt = sql.NullString{String: formatTime(meal.Served.At), Valid: true}
			servedCount = sql.NullInt64{Int64: int64(meal.Served.ChildCount), Valid: true}
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO menu_meals (menu_id, meal_type, served_at, served_child_count) VALUES (?, ?, ?, ?)`,
			m.ID, string(mt), servedAt, servedCount); err != nil {
			return fmt.Errorf("inserting %s slot: %w", mt, err)
		}
		if err := insertMealDishes(ctx, q, m.ID, mt, meal.DishIDs); err != nil {
			return err
		}
	}
	return nil
}

func insertMealDishes(ctx context.Context, q dbtx, menuID string, mt models.MealType, dishIDs []string) error {
	for i, id := range dishIDs {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO menu_meal_dishes (menu_id, meal_type, position, dish_id) VALUES (?, ?, ?, ?)`,
			menuID, string(mt), i, id); err != nil {
			return fmt.Errorf("adding dish %s to %s: %w", id, mt, err)
		}
	}
	return nil
}

// GetByID loads a menu with its slots, served state and logs.
func (r *MenuRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.DailyMenu, error) {
	q := conn(r.db, tx)
	m, err := scanMenu(q.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM daily_menus WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "menu", id)
	}
	if err := loadMenuDetails(ctx, q, map[string]*models.DailyMenu{m.ID: m}); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByDate loads the menu for a calendar date.
func (r *MenuRepository) GetByDate(ctx context.Context, tx *sql.Tx, date time.Time) (*models.DailyMenu, error) {
	key := models.DateOnly(date).Format(models.DateLayout)
	q := conn(r.db, tx)
	m, err := scanMenu(q.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM daily_menus WHERE menu_date = ?`, key))
	if err != nil {
		return nil, notFound(err, "menu", key)
	}
	if err := loadMenuDetails(ctx, q, map[string]*models.DailyMenu{m.ID: m}); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns fully loaded menus with dates in [start, end], ordered by date.
func (r *MenuRepository) List(ctx context.Context, start, end time.Time) ([]*models.DailyMenu, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+menuColumns+` FROM daily_menus
		WHERE menu_date >= ? AND menu_date <= ?
		ORDER BY menu_date`,
		models.DateOnly(start).Format(models.DateLayout), models.DateOnly(end).Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying menus: %w", err)
	}

	var menus []*models.DailyMenu
	byID := make(map[string]*models.DailyMenu)
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning menu row: %w", err)
		}
		menus = append(menus, m)
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := loadMenuDetails(ctx, r.db, byID); err != nil {
		return nil, err
	}
	return menus, nil
}

// ExistingDates returns the menu dates already present in [start, end] as DateLayout keys.
func (r *MenuRepository) ExistingDates(ctx context.Context, tx *sql.Tx, start, end time.Time) (map[string]bool, error) {
	rows, err := conn(r.db, tx).QueryContext(ctx, `
		SELECT menu_date FROM daily_menus WHERE menu_date >= ? AND menu_date <= ?`,
		models.DateOnly(start).Format(models.DateLayout), models.DateOnly(end).Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying menu dates: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning menu date: %w", err)
		}
		dates[d] = true
	}
	return dates, rows.Err()
}

// UpdateHeader writes notes and total child count.
func (r *MenuRepository) UpdateHeader(ctx context.Context, tx *sql.Tx, m *models.DailyMenu) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := conn(r.db, tx).ExecContext(ctx, `
		UPDATE daily_menus SET total_child_count = ?, notes = ?, updated_at = ? WHERE id = ?`,
		m.TotalChildCount, m.Notes, formatTime(m.UpdatedAt), m.ID)
	if err != nil {
		return fmt.Errorf("updating menu: %w", err)
	}
	return expectOneRow(res, "menu", m.ID)
}

// ReplaceMealDishes overwrites the dish list of one slot.
func (r *MenuRepository) ReplaceMealDishes(ctx context.Context, tx *sql.Tx, menuID string, mt models.MealType, dishIDs []string) error {
	q := conn(r.db, tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM menu_meal_dishes WHERE menu_id = ? AND meal_type = ?`,
		menuID, string(mt)); err != nil {
		return fmt.Errorf("clearing %s dishes: %w", mt, err)
	}
	if err := insertMealDishes(ctx, q, menuID, mt, dishIDs); err != nil {
		return err
	}
	return r.touch(ctx, q, menuID)
}

// MarkServed records the served state of a slot.
func (r *MenuRepository) MarkServed(ctx context.Context, tx *sql.Tx, menuID string, mt models.MealType, at time.Time, childCount int) error {
	q := conn(r.db, tx)
	res, err := q.ExecContext(ctx, `
		UPDATE menu_meals SET served_at = ?, served_child_count = ?
		WHERE menu_id = ? AND meal_type = ? AND served_at IS NULL`,
		formatTime(at), childCount, menuID, string(mt))
	if err != nil {
		return fmt.Errorf("marking %s served: %w", mt, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking served update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("menu %s %s: %w", menuID, mt, models.ErrAlreadyServed)
	}
	return r.touch(ctx, q, menuID)
}

// ClearServed returns a slot to unserved.
func (r *MenuRepository) ClearServed(ctx context.Context, tx *sql.Tx, menuID string, mt models.MealType) error {
	q := conn(r.db, tx)
	res, err := q.ExecContext(ctx, `
		UPDATE menu_meals SET served_at = NULL, served_child_count = NULL
		WHERE menu_id = ? AND meal_type = ? AND served_at IS NOT NULL`,
		menuID, string(mt))
	if err != nil {
		return fmt.Errorf("clearing %s served state: %w", mt, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking served update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("menu %s %s: %w", menuID, mt, models.ErrNotServed)
	}
	return r.touch(ctx, q, menuID)
}

// InsertLogs writes consumption log entries.
func (r *MenuRepository) InsertLogs(ctx context.Context, tx *sql.Tx, logs []models.ConsumptionLog) error {
	q := conn(r.db, tx)
	for _, l := range logs {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO consumption_logs (id, menu_id, meal_type, product_id, product_name, quantity, unit, consumed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.MenuID, string(l.MealType), l.ProductID, l.ProductName, l.Quantity.String(), l.Unit,
			formatTime(l.ConsumedAt)); err != nil {
			return fmt.Errorf("inserting consumption log for %s: %w", l.ProductName, err)
		}
	}
	return nil
}

// DeleteLogs removes every log owned by a slot and returns how many were removed.
func (r *MenuRepository) DeleteLogs(ctx context.Context, tx *sql.Tx, menuID string, mt models.MealType) (int64, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM consumption_logs WHERE menu_id = ? AND meal_type = ?`,
		menuID, string(mt))
	if err != nil {
		return 0, fmt.Errorf("deleting %s logs: %w", mt, err)
	}
	return res.RowsAffected()
}

// Delete removes a menu and, by cascade, its slots, dishes and logs.
func (r *MenuRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM daily_menus WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting menu: %w", err)
	}
	return expectOneRow(res, "menu", id)
}

func (r *MenuRepository) touch(ctx context.Context, q dbtx, menuID string) error {
	if _, err := q.ExecContext(ctx, `UPDATE daily_menus SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), menuID); err != nil {
		return fmt.Errorf("touching menu: %w", err)
	}
	return nil
}

func scanMenu(row rowScanner) (*models.DailyMenu, error) {
	var id, dateStr, createdStr, updatedStr string
	var total int
	var notes, createdBy string
	var templateID sql.NullString

	if err := row.Scan(&id, &dateStr, &total, &notes, &createdBy, &templateID, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("menu %s date %q: %w", id, dateStr, err)
	}

	m := models.NewDailyMenu(id, date)
	m.TotalChildCount = total
	m.Notes = notes
	m.CreatedBy = createdBy
	m.TemplateID = stringPtr(templateID)
	m.CreatedAt = parseTime(createdStr)
	m.UpdatedAt = parseTime(updatedStr)
	return m, nil
}

// loadMenuDetails fills slots, dishes and logs for every menu in byID in three queries.
func loadMenuDetails(ctx context.Context, q dbtx, byID map[string]*models.DailyMenu) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	in := placeholders(len(ids))
	args := stringArgs(ids)

	rows, err := q.QueryContext(ctx, `
		SELECT menu_id, meal_type, served_at, served_child_count FROM menu_meals
		WHERE menu_id IN (`+in+`)`, args...)
	if err != nil {
		return fmt.Errorf("querying meal slots: %w", err)
	}
	for rows.Next() {
		var menuID, mt string
		var servedAt sql.NullString
		var servedCount sql.NullInt64
		if err := rows.Scan(&menuID, &mt, &servedAt, &servedCount); err != nil {
			rows.Close()
			return fmt.Errorf("scanning meal slot: %w", err)
		}
		if servedAt.Valid {
			byID[menuID].Meal(models.MealType(mt)).Served = &models.ServedState{
				At:         parseTime(servedAt.String),
				ChildCount: int(servedCount.Int64),
			}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `
		SELECT menu_id, meal_type, dish_id FROM menu_meal_dishes
		WHERE menu_id IN (`+in+`)
		ORDER BY menu_id, meal_type, position`, args...)
	if err != nil {
		return fmt.Errorf("querying meal dishes: %w", err)
	}
	for rows.Next() {
		var menuID, mt, dishID string
		if err := rows.Scan(&menuID, &mt, &dishID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning meal dish: %w", err)
		}
		meal := byID[menuID].Meal(models.MealType(mt))
		meal.DishIDs = append(meal.DishIDs, dishID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	logs, err := queryLogs(ctx, q, `
		SELECT id, menu_id, meal_type, product_id, product_name, quantity, unit, consumed_at
		FROM consumption_logs
		WHERE menu_id IN (`+in+`)
		ORDER BY consumed_at, product_name, id`, args...)
	if err != nil {
		return err
	}
	for _, l := range logs {
		m := byID[l.MenuID]
		m.ConsumptionLogs = append(m.ConsumptionLogs, l)
		if served := m.Meal(l.MealType).Served; served != nil {
			served.LogIDs = append(served.LogIDs, l.ID)
		}
	}
	return nil
}

func queryLogs(ctx context.Context, q dbtx, query string, args ...any) ([]models.ConsumptionLog, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying consumption logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ConsumptionLog
	for rows.Next() {
		var l models.ConsumptionLog
		var mt, qty, consumedStr string
		if err := rows.Scan(&l.ID, &l.MenuID, &mt, &l.ProductID, &l.ProductName, &qty, &l.Unit, &consumedStr); err != nil {
			return nil, fmt.Errorf("scanning consumption log: %w", err)
		}
		if err := decodeDecimals(decimalField{qty, &l.Quantity}); err != nil {
			return nil, fmt.Errorf("consumption log %s: %w", l.ID, err)
		}
		l.MealType = models.MealType(mt)
		l.ConsumedAt = parseTime(consumedStr)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
