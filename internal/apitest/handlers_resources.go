package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/validation"
)

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}

// bindValid decodes the body into dst and answers 400 on failure
func bindValid(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("JSON parse error - %v", err)})
		return false
	}
	return respondInvalid(c, validation.Struct(dst))
}

// respondInvalid answers 400 for a validation failure and reports whether
// the request may proceed
func respondInvalid(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, verrs.FieldErrors())
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	return false
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		notFound(c)
		return 0, false
	}
	return id, true
}

// first loads the row for the :id parameter, answering 404 when missing
func (s *Server) first(c *gin.Context, q *gorm.DB, dst any) bool {
	id, ok := pathID(c)
	if !ok {
		return false
	}
	if err := q.First(dst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
			return false
		}
		s.logger.Error().Err(err).Msg("Failed to load row")
		internalError(c)
		return false
	}
	return true
}

// relationsExist reports DRF-style errors for dangling foreign keys
func (s *Server) relationsExist(c *gin.Context, clientID, workerID *int64) bool {
	fields := map[string][]string{}
	if clientID != nil {
		var n int64
		s.db.Model(&clientRow{}).Where("id = ?", *clientID).Count(&n)
		if n == 0 {
			fields["client_id"] = []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *clientID)}
		}
	}
	if workerID != nil {
		var n int64
		s.db.Model(&workerRow{}).Where("id = ?", *workerID).Count(&n)
		if n == 0 {
			fields["assigned_worker_id"] = []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *workerID)}
		}
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return false
	}
	return true
}

func (s *Server) listClients(c *gin.Context) {
	var rows []clientRow
	if err := s.db.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load clients")
		internalError(c)
		return
	}
	out := make([]models.Client, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createClient(c *gin.Context) {
	var in models.ClientInput
	if !bindValid(c, &in) {
		return
	}
	row := clientRow{Name: in.Name, ContactEmail: in.ContactEmail, Phone: in.Phone, Notes: in.Notes}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create client")
		internalError(c)
		return
	}
	c.JSON(http.StatusCreated, row.toModel())
}

func (s *Server) getClient(c *gin.Context) {
	var row clientRow
	if !s.first(c, s.db, &row) {
		return
	}
	c.JSON(http.StatusOK, row.toModel())
}

func (s *Server) updateClient(c *gin.Context) {
	var row clientRow
	if !s.first(c, s.db, &row) {
		return
	}
	var patch models.ClientPatch
	if !bindValid(c, &patch) {
		return
	}
	row.apply(patch)
	if err := s.db.Save(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update client")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, row.toModel())
}

// deleteClient cascades to the client's tasks
func (s *Server) deleteClient(c *gin.Context) {
	var row clientRow
	if !s.first(c, s.db, &row) {
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", row.ID).Delete(&taskRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete client")
		internalError(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listWorkers(c *gin.Context) {
	var rows []workerRow
	if err := s.db.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load workers")
		internalError(c)
		return
	}
	out := make([]models.Worker, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createWorker(c *gin.Context) {
	var in models.WorkerInput
	if !bindValid(c, &in) {
		return
	}
	row := workerRow{Name: in.Name, Skills: in.Skills, Availability: in.Availability, ContactEmail: in.ContactEmail}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create worker")
		internalError(c)
		return
	}
	c.JSON(http.StatusCreated, row.toModel())
}

func (s *Server) getWorker(c *gin.Context) {
	var row workerRow
	if !s.first(c, s.db, &row) {
		return
	}
	c.JSON(http.StatusOK, row.toModel())
}

func (s *Server) updateWorker(c *gin.Context) {
	var row workerRow
	if !s.first(c, s.db, &row) {
		return
	}
	var patch models.WorkerPatch
	if !bindValid(c, &patch) {
		return
	}
	row.apply(patch)
	if err := s.db.Save(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update worker")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, row.toModel())
}

// deleteWorker unassigns the worker's tasks
func (s *Server) deleteWorker(c *gin.Context) {
	var row workerRow
	if !s.first(c, s.db, &row) {
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&taskRow{}).Where("assigned_worker_id = ?", row.ID).Update("assigned_worker_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete worker")
		internalError(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) tasks() *gorm.DB {
	return s.db.Preload("Client").Preload("AssignedWorker")
}

func (s *Server) listTasks(c *gin.Context) {
	var rows []taskRow
	if err := s.tasks().Order("updated_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load tasks")
		internalError(c)
		return
	}
	out := make([]taskView, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toView())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createTask(c *gin.Context) {
	var in models.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("JSON parse error - %v", err)})
		return
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if !respondInvalid(c, validation.Struct(&in)) {
		return
	}
	if !s.relationsExist(c, in.ClientID, in.AssignedWorkerID) {
		return
	}

	row := taskFromInput(in)
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create task")
		internalError(c)
		return
	}
	s.respondTask(c, http.StatusCreated, row.ID)
}

func (s *Server) getTask(c *gin.Context) {
	var row taskRow
	if !s.first(c, s.tasks(), &row) {
		return
	}
	c.JSON(http.StatusOK, row.toView())
}

func (s *Server) updateTask(c *gin.Context) {
	var row taskRow
	if !s.first(c, s.db, &row) {
		return
	}
	var patch models.TaskPatch
	if !bindValid(c, &patch) {
		return
	}
	var clientID, workerID *int64
	if patch.ClientID.Set && !patch.ClientID.Null {
		clientID = &patch.ClientID.Value
	}
	if patch.AssignedWorkerID.Set && !patch.AssignedWorkerID.Null {
		workerID = &patch.AssignedWorkerID.Value
	}
	if !s.relationsExist(c, clientID, workerID) {
		return
	}

	row.apply(patch)
	if err := s.db.Omit("Client", "AssignedWorker").Save(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update task")
		internalError(c)
		return
	}
	s.respondTask(c, http.StatusOK, row.ID)
}

func (s *Server) deleteTask(c *gin.Context) {
	var row taskRow
	if !s.first(c, s.db, &row) {
		return
	}
	if err := s.db.Delete(&row).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete task")
		internalError(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondTask(c *gin.Context, status int, id int64) {
	var row taskRow
	if err := s.tasks().First(&row, id).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to reload task")
		internalError(c)
		return
	}
	c.JSON(status, row.toView())
}
