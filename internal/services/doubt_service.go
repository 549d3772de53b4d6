package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DoubtService is the marketplace: students post priced doubts, tutors apply and
// the student accepts exactly one tutor.
type DoubtService struct {
	db     *sql.DB
	events  *EventPublisher
	notices *NotificationService
	now    func() time.Time
}

func NewDoubtService(db *sql.DB, events *EventPublisher, notices *NotificationService) *DoubtService {
	return &DoubtService{db: db, events: events, notices: notices, now: time.Now}
}

type CreateDoubtRequest struct {
	Title         string               `json:"title" validate:"required,min=5,max=200" example:"Projectile range on an incline"`
	Description   string               `json:"description" validate:"required,min=10" example:"Why does the range peak at 45 minus half the incline angle?"`
	Subject       string               `json:"subject" validate:"required,max=60" example:"physics"`
	Price         int64                `json:"price" validate:"required,gt=0,lte=100000" example:"100"`
	PreferredMode models.PreferredMode `json:"preferredMode" validate:"omitempty,oneof=text call both" example:"both"`
}

type ApplyRequest struct {
	Message string `json:"message" validate:"max=1000" example:"I teach JEE mechanics and can explain this on a call."`
}

type DoubtFilter struct {
	Subject string
	Status  models.DoubtStatus
	Limit   int
}

const doubtColumns = `id, student_id, title, description, subject, price, status, preferred_mode, accepted_tutor_id, created_at, updated_at`

func (s *DoubtService) CreateDoubt(ctx context.Context, callerID string, req CreateDoubtRequest) (*models.Doubt, error) {
	if err := s.requireRole(ctx, callerID, models.RoleStudent); err != nil {
		return nil, err
	}

	mode := req.PreferredMode
	if mode == "" {
		mode = models.ModeBoth
	}

	now := s.now()
	doubt := &models.Doubt{
		ID:            uuid.NewString(),
		StudentID:     callerID,
		Title:         req.Title,
		Description:   req.Description,
		Subject:       req.Subject,
		Price:         req.Price,
		Status:        models.DoubtStatusOpen,
		PreferredMode: mode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doubts (id, student_id, title, description, subject, price, status, preferred_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		doubt.ID, doubt.StudentID, doubt.Title, doubt.Description, doubt.Subject,
		doubt.Price, string(doubt.Status), string(doubt.PreferredMode), now)
	if err != nil {
		return nil, storeError("failed to create doubt", err)
	}

	log.Printf("[DOUBTS] Doubt %s posted by %s for %d", doubt.ID, callerID, doubt.Price)
	return doubt, nil
}

func (s *DoubtService) ListDoubts(ctx context.Context, filter DoubtFilter) ([]models.Doubt, error) {
	status := filter.Status
	if status == "" {
		status = models.DoubtStatusOpen
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+doubtColumns+`
		FROM doubts
		WHERE status = $1 AND ($2::text = '' OR subject = $2)
		ORDER BY created_at DESC
		LIMIT $3`, string(status), filter.Subject, limit)
	if err != nil {
		return nil, storeError("failed to list doubts", err)
	}
	defer rows.Close()

	doubts := []models.Doubt{}
	for rows.Next() {
		d, err := scanDoubt(rows)
		if err != nil {
			return nil, storeError("failed to read doubt", err)
		}
		doubts = append(doubts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list doubts", err)
	}
	return doubts, nil
}

// GetDoubt returns the doubt with its applications.
func (s *DoubtService) GetDoubt(ctx context.Context, doubtID string) (*models.Doubt, error) {
	doubt, err := scanDoubt(s.db.QueryRowContext(ctx, `SELECT `+doubtColumns+` FROM doubts WHERE id = $1`, doubtID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("doubt not found")
	}
	if err != nil {
		return nil, storeError("failed to load doubt", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doubt_id, tutor_id, message, status, created_at
		FROM doubt_applications WHERE doubt_id = $1
		ORDER BY created_at`, doubtID)
	if err != nil {
		return nil, storeError("failed to load applications", err)
	}
	defer rows.Close()

	doubt.Applications = []models.DoubtApplication{}
	for rows.Next() {
		var a models.DoubtApplication
		if err := rows.Scan(&a.ID, &a.DoubtID, &a.TutorID, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			return nil, storeError("failed to read application", err)
		}
		doubt.Applications = append(doubt.Applications, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to load applications", err)
	}
	return doubt, nil
}

func (s *DoubtService) ApplyToDoubt(ctx context.Context, callerID, doubtID string, req ApplyRequest) (*models.DoubtApplication, error) {
	if err := s.requireRole(ctx, callerID, models.RoleTutor); err != nil {
		return nil, err
	}

	var studentID string
	var status models.DoubtStatus
	err := s.db.QueryRowContext(ctx, `SELECT student_id, status FROM doubts WHERE id = $1`, doubtID).
		Scan(&studentID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("doubt not found")
	}
	if err != nil {
		return nil, storeError("failed to load doubt", err)
	}
	if status != models.DoubtStatusOpen {
		return nil, preconditionFailed(fmt.Sprintf("doubt is %s and no longer takes applications", status))
	}

	app := &models.DoubtApplication{
		ID:        uuid.NewString(),
		DoubtID:   doubtID,
		TutorID:   callerID,
		Message:   req.Message,
		Status:    models.ApplicationPending,
		CreatedAt: s.now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO doubt_applications (id, doubt_id, tutor_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		app.ID, app.DoubtID, app.TutorID, app.Message, string(app.Status), app.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, preconditionFailed("you have already applied to this doubt")
		}
		return nil, storeError("failed to create application", err)
	}

	s.events.Publish(ctx, EventApplicationCreated, doubtID, callerID,
		map[string]any{"applicationId": app.ID, "tutorId": callerID}, studentID)
	s.notices.Notify(ctx, Notice{
		UserID: studentID,
		Type:   models.NotificationApplication,
		Title:  "New tutor application",
		Link:   doubtLink(doubtID),
	})
	log.Printf("[DOUBTS] Tutor %s applied to doubt %s", callerID, doubtID)
	return app, nil
}

// AcceptApplication assigns the applying tutor to the doubt. The doubt, the chosen
// application and every sibling application change together or not at all.
func (s *DoubtService) AcceptApplication(ctx context.Context, callerID, doubtID, applicationID string) (*models.Doubt, error) {
	if callerID == "" {
		return nil, unauthenticated()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	doubt, err := scanDoubt(tx.QueryRowContext(ctx, `SELECT `+doubtColumns+` FROM doubts WHERE id = $1 FOR UPDATE`, doubtID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("doubt not found")
	}
	if err != nil {
		return nil, storeError("failed to load doubt", err)
	}
	if doubt.StudentID != callerID {
		return nil, forbidden("only the student who posted this doubt can accept a tutor")
	}
	if doubt.Status != models.DoubtStatusOpen {
		return nil, preconditionFailed(fmt.Sprintf("doubt is %s, expected open", doubt.Status))
	}

	var tutorID string
	var appStatus models.ApplicationStatus
	err = tx.QueryRowContext(ctx, `
		SELECT tutor_id, status FROM doubt_applications
		WHERE id = $1 AND doubt_id = $2 FOR UPDATE`, applicationID, doubtID).
		Scan(&tutorID, &appStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("application not found")
	}
	if err != nil {
		return nil, storeError("failed to load application", err)
	}
	if appStatus != models.ApplicationPending {
		return nil, preconditionFailed(fmt.Sprintf("application is %s", appStatus))
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE doubt_applications SET status = 'accepted' WHERE id = $1`, applicationID); err != nil {
		return nil, storeError("failed to accept application", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE doubt_applications SET status = 'rejected'
		WHERE doubt_id = $1 AND id <> $2 AND status = 'pending'`, doubtID, applicationID); err != nil {
		return nil, storeError("failed to reject other applications", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE doubts SET status = 'accepted', accepted_tutor_id = $1, updated_at = $2
		WHERE id = $3 AND status = 'open'`, tutorID, now, doubtID)
	if err != nil {
		return nil, storeError("failed to accept tutor", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, preconditionFailed("doubt is no longer open")
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("failed to commit acceptance", err)
	}

	doubt.Status = models.DoubtStatusAccepted
	doubt.AcceptedTutorID = &tutorID
	doubt.UpdatedAt = now

	s.events.Publish(ctx, EventApplicationAccepted, doubtID, callerID,
		map[string]any{"applicationId": applicationID, "tutorId": tutorID}, tutorID)
	s.notices.Notify(ctx, Notice{
		UserID:  tutorID,
		Type:    models.NotificationAccepted,
		Title:   "Application accepted",
		Message: doubt.Title,
		Link:    doubtLink(doubtID),
	})
	log.Printf("[DOUBTS] Doubt %s accepted tutor %s", doubtID, tutorID)
	return doubt, nil
}

func (s *DoubtService) ListMyApplications(ctx context.Context, callerID string) ([]models.DoubtApplication, error) {
	if callerID == "" {
		return nil, unauthenticated()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doubt_id, tutor_id, message, status, created_at
		FROM doubt_applications WHERE tutor_id = $1
		ORDER BY created_at DESC`, callerID)
	if err != nil {
		return nil, storeError("failed to list applications", err)
	}
	defer rows.Close()

	apps := []models.DoubtApplication{}
	for rows.Next() {
		var a models.DoubtApplication
		if err := rows.Scan(&a.ID, &a.DoubtID, &a.TutorID, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			return nil, storeError("failed to read application", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list applications", err)
	}
	return apps, nil
}

func doubtLink(doubtID string) string {
	return "/doubts/" + doubtID
}

// participantDoubt loads a doubt and checks that callerID is its student or accepted tutor.
func participantDoubt(ctx context.Context, db *sql.DB, callerID, doubtID string) (*models.Doubt, error) {
	if callerID == "" {
		return nil, unauthenticated()
	}

	doubt, err := scanDoubt(db.QueryRowContext(ctx, `SELECT `+doubtColumns+` FROM doubts WHERE id = $1`, doubtID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("doubt not found")
	}
	if err != nil {
		return nil, storeError("failed to load doubt", err)
	}
	if !doubt.IsParticipant(callerID) {
		return nil, forbidden("only the student and the accepted tutor can access this doubt")
	}
	return doubt, nil
}

func (s *DoubtService) requireRole(ctx context.Context, callerID string, role models.Role) error {
	if callerID == "" {
		return unauthenticated()
	}

	var actual models.Role
	err := s.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = $1`, callerID).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return unauthenticated()
	}
	if err != nil {
		return storeError("failed to load profile", err)
	}
	if actual != role {
		return forbidden(fmt.Sprintf("only a %s can do this", role))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoubt(row rowScanner) (*models.Doubt, error) {
	var d models.Doubt
	var tutorID sql.NullString
	err := row.Scan(&d.ID, &d.StudentID, &d.Title, &d.Description, &d.Subject, &d.Price,
		&d.Status, &d.PreferredMode, &tutorID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tutorID.Valid {
		d.AcceptedTutorID = &tutorID.String
	}
	return &d, nil
}
