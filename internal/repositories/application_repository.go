package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"admithub/internal/database"
	"admithub/internal/models"

	"go.uber.org/zap"
)

// applicationRepository implements ApplicationRepository over the
// applications table (one row per applicant, sections as JSONB).
type applicationRepository struct {
	*BaseRepository
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *database.Manager, logger *zap.Logger) ApplicationRepository {
	return &applicationRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// sectionColumns maps API section names to their JSONB columns. Only
// names present here ever reach a query string.
var sectionColumns = map[string]string{
	models.SectionWarmUp:      "warm_up",
	models.SectionCommitment:  "commitment",
	models.SectionPurpose:     "purpose",
	models.SectionExclusivity: "exclusivity",
	models.SectionOptional:    "optional",
}

const applicationColumns = `
	a.id, a.user_id, a.warm_up, a.commitment, a.purpose, a.exclusivity,
	a.optional, a.status, a.completion_percentage, a.submitted_at,
	a.reviewed_at, a.admin_notes, a.current_section, a.selected_plan,
	a.video_metadata, a.created_at, a.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var currentSection sql.NullString
	var adminNotes sql.NullString
	var plan models.SelectedPlan
	var planSet, metaSet sql.NullString

	// selected_plan and video_metadata arrive as raw JSONB or NULL.
	err := row.Scan(
		&app.ID, &app.UserID,
		&app.WarmUp, &app.Commitment, &app.Purpose, &app.Exclusivity,
		&app.Optional, &app.Status, &app.CompletionPercentage,
		&app.SubmittedAt, &app.ReviewedAt, &adminNotes,
		&currentSection, &planSet, &metaSet,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if adminNotes.Valid {
		app.AdminNotes = &adminNotes.String
	}
	if currentSection.Valid {
		app.CurrentSection = currentSection.String
	}
	if planSet.Valid {
		if err := plan.Scan(planSet.String); err == nil {
			app.SelectedPlan = &plan
		}
	}
	if metaSet.Valid {
		var meta models.VideoMetadata
		if err := meta.Scan(metaSet.String); err == nil {
			app.VideoMetadata = &meta
		}
	}

	return &app, nil
}

// ===============================
// CRUD
// ===============================

// Create inserts an empty Draft application for the user. The UNIQUE
// constraint on user_id makes concurrent creates fail with a unique
// violation, which callers recover by re-fetching.
func (r *applicationRepository) Create(ctx context.Context, userID int64) (*models.Application, error) {
	query := `
		INSERT INTO applications (user_id)
		VALUES ($1)
		RETURNING ` + strings.ReplaceAll(applicationColumns, "a.", "")

	app, err := scanApplication(r.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	r.GetLogger().Info("Application created",
		zap.Int64("application_id", app.ID),
		zap.Int64("user_id", userID),
	)

	return app, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `, u.email, u.first_name || ' ' || u.last_name
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1`

	return r.getJoined(ctx, query, id)
}

func (r *applicationRepository) GetByUserID(ctx context.Context, userID int64) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications a
		WHERE a.user_id = $1`

	app, err := scanApplication(r.QueryRowContext(ctx, query, userID))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application by user: %w", err)
	}

	return app, nil
}

func (r *applicationRepository) getJoined(ctx context.Context, query string, args ...interface{}) (*models.Application, error) {
	row := r.QueryRowContext(ctx, query, args...)

	var app models.Application
	var currentSection, adminNotes sql.NullString
	var planSet, metaSet sql.NullString

	err := row.Scan(
		&app.ID, &app.UserID,
		&app.WarmUp, &app.Commitment, &app.Purpose, &app.Exclusivity,
		&app.Optional, &app.Status, &app.CompletionPercentage,
		&app.SubmittedAt, &app.ReviewedAt, &adminNotes,
		&currentSection, &planSet, &metaSet,
		&app.CreatedAt, &app.UpdatedAt,
		&app.ApplicantEmail, &app.ApplicantName,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	if adminNotes.Valid {
		app.AdminNotes = &adminNotes.String
	}
	if currentSection.Valid {
		app.CurrentSection = currentSection.String
	}
	if planSet.Valid {
		var plan models.SelectedPlan
		if err := plan.Scan(planSet.String); err == nil {
			app.SelectedPlan = &plan
		}
	}
	if metaSet.Valid {
		var meta models.VideoMetadata
		if err := meta.Scan(metaSet.String); err == nil {
			app.VideoMetadata = &meta
		}
	}

	return &app, nil
}

// ===============================
// SECTION UPDATES
// ===============================

// MergeSection shallow-merges fields into the section document in a
// single statement, so concurrent saves to different fields of the same
// section cannot clobber each other. Keys set to JSON null are stripped,
// which is how clients clear an answer.
func (r *applicationRepository) MergeSection(ctx context.Context, userID int64, section string, fields models.SectionData) (*models.Application, error) {
	column, ok := sectionColumns[section]
	if !ok {
		return nil, fmt.Errorf("unknown section %q", section)
	}

	query := fmt.Sprintf(`
		UPDATE applications
		SET %s = jsonb_strip_nulls(COALESCE(%s, '{}'::jsonb) || $2::jsonb),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+strings.ReplaceAll(applicationColumns, "a.", ""), column, column)

	app, err := scanApplication(r.QueryRowContext(ctx, query, userID, fields))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to merge section %s: %w", section, err)
	}

	return app, nil
}

func (r *applicationRepository) SetCompletion(ctx context.Context, id int64, percentage int) error {
	query := `UPDATE applications SET completion_percentage = $2 WHERE id = $1`
	if _, err := r.ExecContext(ctx, query, id, percentage); err != nil {
		return fmt.Errorf("failed to set completion: %w", err)
	}
	return nil
}

func (r *applicationRepository) SetCurrentSection(ctx context.Context, userID int64, section string) error {
	query := `UPDATE applications SET current_section = $2, updated_at = NOW() WHERE user_id = $1`
	result, err := r.ExecContext(ctx, query, userID, section)
	if err != nil {
		return fmt.Errorf("failed to set current section: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *applicationRepository) SetSelectedPlan(ctx context.Context, userID int64, plan *models.SelectedPlan) error {
	query := `UPDATE applications SET selected_plan = $2, updated_at = NOW() WHERE user_id = $1`
	result, err := r.ExecContext(ctx, query, userID, plan)
	if err != nil {
		return fmt.Errorf("failed to set selected plan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *applicationRepository) SetVideoMetadata(ctx context.Context, userID int64, meta *models.VideoMetadata) error {
	query := `UPDATE applications SET video_metadata = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.ExecContext(ctx, query, userID, meta); err != nil {
		return fmt.Errorf("failed to set video metadata: %w", err)
	}
	return nil
}

// ClearVideo removes both video fields and the derived metadata.
func (r *applicationRepository) ClearVideo(ctx context.Context, userID int64) error {
	query := `
		UPDATE applications
		SET optional = COALESCE(optional, '{}'::jsonb) - 'videoRecording' - 'videoUrl',
		    video_metadata = NULL,
		    updated_at = NOW()
		WHERE user_id = $1`
	result, err := r.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear video: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ===============================
// STATUS TRANSITIONS
// ===============================

// MarkInReviewIfDraft is the automatic submit. The status guard in the
// WHERE clause makes the transition happen at most once no matter how
// many concurrent saves observe a complete application.
func (r *applicationRepository) MarkInReviewIfDraft(ctx context.Context, userID int64) (bool, error) {
	query := `
		UPDATE applications
		SET status = $2, submitted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND status = $3`

	result, err := r.ExecContext(ctx, query, userID, models.StatusInReview, models.StatusDraft)
	if err != nil {
		return false, fmt.Errorf("failed to mark application in review: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *applicationRepository) SetStatus(ctx context.Context, id int64, status models.ApplicationStatus, adminNotes *string, stampReviewed bool) (*models.Application, error) {
	query := `
		UPDATE applications
		SET status = $2,
		    admin_notes = COALESCE($3, admin_notes),
		    reviewed_at = CASE WHEN $4 THEN NOW() ELSE reviewed_at END,
		    submitted_at = CASE WHEN submitted_at IS NULL AND $2 <> 'Draft' THEN NOW() ELSE submitted_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + strings.ReplaceAll(applicationColumns, "a.", "")

	app, err := scanApplication(r.QueryRowContext(ctx, query, id, status, adminNotes, stampReviewed))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to set application status: %w", err)
	}

	r.GetLogger().Info("Application status updated",
		zap.Int64("application_id", id),
		zap.String("status", string(status)),
	)

	return app, nil
}

// ===============================
// ADMIN LISTING / STATS
// ===============================

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int64, error) {
	filter.Normalize()

	where := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("a.status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.HasVideo != nil {
		cond := `(COALESCE(a.optional->>'videoRecording', '') <> '' OR COALESCE(a.optional->>'videoUrl', '') <> '')`
		if !*filter.HasVideo {
			cond = "NOT " + cond
		}
		where = append(where, cond)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf(
			"(u.email ILIKE $%d OR u.first_name || ' ' || u.last_name ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(where, " AND ")

	countQuery := `
		SELECT COUNT(*)
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE ` + whereClause
	total, err := r.GetTotalCount(ctx, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, u.email, u.first_name || ' ' || u.last_name
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE %s%s
		LIMIT $%d OFFSET $%d`,
		applicationColumns, whereClause,
		strings.ReplaceAll(r.BuildOrderClause(filter.PaginationParams), "ORDER BY ", "ORDER BY a."),
		argIndex, argIndex+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		var app models.Application
		var currentSection, adminNotes sql.NullString
		var planSet, metaSet sql.NullString

		err := rows.Scan(
			&app.ID, &app.UserID,
			&app.WarmUp, &app.Commitment, &app.Purpose, &app.Exclusivity,
			&app.Optional, &app.Status, &app.CompletionPercentage,
			&app.SubmittedAt, &app.ReviewedAt, &adminNotes,
			&currentSection, &planSet, &metaSet,
			&app.CreatedAt, &app.UpdatedAt,
			&app.ApplicantEmail, &app.ApplicantName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}

		if adminNotes.Valid {
			app.AdminNotes = &adminNotes.String
		}
		if currentSection.Valid {
			app.CurrentSection = currentSection.String
		}
		if planSet.Valid {
			var plan models.SelectedPlan
			if err := plan.Scan(planSet.String); err == nil {
				app.SelectedPlan = &plan
			}
		}
		if metaSet.Valid {
			var meta models.VideoMetadata
			if err := meta.Scan(metaSet.String); err == nil {
				app.VideoMetadata = &meta
			}
		}

		apps = append(apps, &app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}

func (r *applicationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *applicationRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.ExecContext(ctx, `DELETE FROM applications WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete application for user: %w", err)
	}
	return nil
}

func (r *applicationRepository) Stats(ctx context.Context) (*models.ApplicationStats, error) {
	stats := &models.ApplicationStats{
		ByStatus: make(map[models.ApplicationStatus]int64),
	}

	rows, err := r.QueryContext(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.ApplicationStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
		if status == models.StatusDraft {
			stats.Draft = count
		} else {
			stats.Completed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary := `
		SELECT
			COUNT(*) FILTER (WHERE COALESCE(optional->>'videoRecording', '') <> ''
				OR COALESCE(optional->>'videoUrl', '') <> ''),
			COALESCE(AVG(completion_percentage), 0)
		FROM applications`
	err = r.QueryRowContext(ctx, summary).Scan(&stats.WithVideo, &stats.AverageCompletion)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate application stats: %w", err)
	}

	return stats, nil
}
