package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
)

const templateColumns = `id, name, description, default_child_count, is_active, created_by, created_at, updated_at`

// TemplateRepository handles weekly menu templates.
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template and its slots.
func (r *TemplateRepository) Create(ctx context.Context, tx *sql.Tx, t *models.WeeklyMenuTemplate) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	q := conn(r.db, tx)
	_, err := q.ExecContext(ctx, `INSERT INTO weekly_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.DefaultChildCount, boolToInt(t.IsActive), t.CreatedBy,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return insertSlots(ctx, q, t)
}

// Update rewrites a template and replaces all of its slots.
func (r *TemplateRepository) Update(ctx context.Context, tx *sql.Tx, t *models.WeeklyMenuTemplate) error {
	t.UpdatedAt = time.Now().UTC()

	q := conn(r.db, tx)
	res, err := q.ExecContext(ctx, `
		UPDATE weekly_templates SET name = ?, description = ?, default_child_count = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Description, t.DefaultChildCount, boolToInt(t.IsActive), formatTime(t.UpdatedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if err := expectOneRow(res, "template", t.ID); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM template_slots WHERE template_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clearing template slots: %w", err)
	}
	return insertSlots(ctx, q, t)
}

func insertSlots(ctx context.Context, q dbtx, t *models.WeeklyMenuTemplate) error {
	for day := models.Monday; day <= models.Sunday; day++ {
		for _, mt := range models.MealTypes {
			for i, dishID := range t.DishIDsFor(day, mt) {
				if _, err := q.ExecContext(ctx, `
					INSERT INTO template_slots (template_id, weekday, meal_type, position, dish_id)
					VALUES (?, ?, ?, ?, ?)`,
					t.ID, int(day), string(mt), i, dishID); err != nil {
					return fmt.Errorf("inserting %s %s slot: %w", day, mt, err)
				}
			}
		}
	}
	return nil
}

// GetByID retrieves a template with all of its slots.
func (r *TemplateRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.WeeklyMenuTemplate, error) {
	q := conn(r.db, tx)
	t, err := scanTemplate(q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM weekly_templates WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "template", id)
	}
	if err := loadSlots(ctx, q, map[string]*models.WeeklyMenuTemplate{t.ID: t}); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns templates ordered by name.
func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*models.WeeklyMenuTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM weekly_templates`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	var templates []*models.WeeklyMenuTemplate
	byID := make(map[string]*models.WeeklyMenuTemplate)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning template row: %w", err)
		}
		templates = append(templates, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := loadSlots(ctx, r.db, byID); err != nil {
		return nil, err
	}
	return templates, nil
}

// SetActive toggles whether a template can be applied.
func (r *TemplateRepository) SetActive(ctx context.Context, tx *sql.Tx, id string, active bool) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE weekly_templates SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	return expectOneRow(res, "template", id)
}

// Delete removes a template. Menus it created keep their copy of the plan.
func (r *TemplateRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM weekly_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	return expectOneRow(res, "template", id)
}

func scanTemplate(row rowScanner) (*models.WeeklyMenuTemplate, error) {
	var t models.WeeklyMenuTemplate
	var active int
	var createdStr, updatedStr string
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DefaultChildCount, &active, &t.CreatedBy, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	t.IsActive = active == 1
	t.Days = make(map[models.Weekday]map[models.MealType][]string)
	t.CreatedAt = parseTime(createdStr)
	t.UpdatedAt = parseTime(updatedStr)
	return &t, nil
}

func loadSlots(ctx context.Context, q dbtx, byID map[string]*models.WeeklyMenuTemplate) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT template_id, weekday, meal_type, dish_id FROM template_slots
		WHERE template_id IN (`+placeholders(len(ids))+`)
		ORDER BY template_id, weekday, meal_type, position`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("querying template slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var templateID, mt, dishID string
		var day int
		if err := rows.Scan(&templateID, &day, &mt, &dishID); err != nil {
			return fmt.Errorf("scanning template slot: %w", err)
		}
		t := byID[templateID]
		wd, meal := models.Weekday(day), models.MealType(mt)
		t.SetDishes(wd, meal, append(t.DishIDsFor(wd, meal), dishID))
	}
	return rows.Err()
}
