package apitest

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

type userRow struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type clientRow struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	ContactEmail string
	Phone        string
	Notes        string
	CreatedAt    time.Time
}

func (clientRow) TableName() string { return "clients" }

type workerRow struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Skills       string
	Availability string
	ContactEmail string
	CreatedAt    time.Time
}

func (workerRow) TableName() string { return "workers" }

type taskRow struct {
	ID               int64  `gorm:"primaryKey"`
	Description      string `gorm:"not null"`
	DueDate          *string
	Status           string `gorm:"not null;default:TODO"`
	Notes            string
	ClientID         *int64
	Client           *clientRow `gorm:"foreignKey:ClientID"`
	AssignedWorkerID *int64
	AssignedWorker   *workerRow `gorm:"foreignKey:AssignedWorkerID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (taskRow) TableName() string { return "tasks" }

// openDB opens a private in-memory database. Each server gets its own name so
// parallel tests never share rows.
func openDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:apitest-%s?mode=memory&cache=shared", ulid.Make().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// A single connection keeps the shared in-memory database alive and
	// serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRow{}, &clientRow{}, &workerRow{}, &taskRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (r *clientRow) toModel() models.Client {
	return models.Client{
		ID:           r.ID,
		Name:         r.Name,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (r *workerRow) toModel() models.Worker {
	return models.Worker{
		ID:           r.ID,
		Name:         r.Name,
		Skills:       r.Skills,
		Availability: r.Availability,
		ContactEmail: r.ContactEmail,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// taskView is the read shape of a task: nested relations, nullable date
type taskView struct {
	ID             int64          `json:"id"`
	Description    string         `json:"description"`
	DueDate        *string        `json:"due_date"`
	Status         string         `json:"status"`
	Notes          string         `json:"notes"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Client         *models.Client `json:"client"`
	AssignedWorker *models.Worker `json:"assigned_worker"`
}

func (r *taskRow) toView() taskView {
	v := taskView{
		ID:          r.ID,
		Description: r.Description,
		DueDate:     r.DueDate,
		Status:      r.Status,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.Client != nil {
		c := r.Client.toModel()
		v.Client = &c
	}
	if r.AssignedWorker != nil {
		w := r.AssignedWorker.toModel()
		v.AssignedWorker = &w
	}
	return v
}

func taskFromInput(in models.TaskInput) taskRow {
	return taskRow{
		Description:      in.Description.String(),
		DueDate:          in.DueDate,
		Status:           string(in.Status),
		Notes:            in.Notes,
		ClientID:         in.ClientID,
		AssignedWorkerID: in.AssignedWorkerID,
	}
}

func (r *taskRow) apply(p models.TaskPatch) {
	if p.Description != nil {
		r.Description = p.Description.String()
	}
	if p.Status != nil {
		r.Status = string(*p.Status)
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.DueDate.Set {
		if p.DueDate.Null || p.DueDate.Value == "" {
			r.DueDate = nil
		} else {
			d := p.DueDate.Value
			r.DueDate = &d
		}
	}
	if p.ClientID.Set {
		r.Client = nil
		r.ClientID = nullableID(p.ClientID)
	}
	if p.AssignedWorkerID.Set {
		r.AssignedWorker = nil
		r.AssignedWorkerID = nullableID(p.AssignedWorkerID)
	}
}

func nullableID(f models.Field[int64]) *int64 {
	if f.Null {
		return nil
	}
	id := f.Value
	return &id
}

func (r *clientRow) apply(p models.ClientPatch) {
	setString(&r.Name, p.Name)
	setString(&r.ContactEmail, p.ContactEmail)
	setString(&r.Phone, p.Phone)
	setString(&r.Notes, p.Notes)
}

func (r *workerRow) apply(p models.WorkerPatch) {
	setString(&r.Name, p.Name)
	setString(&r.Skills, p.Skills)
	setString(&r.Availability, p.Availability)
	setString(&r.ContactEmail, p.ContactEmail)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
