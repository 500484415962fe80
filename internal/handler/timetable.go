package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/timetable"
)

type addEntryRequest struct {
	timetable.Slot
	SubjectID string `json:"subject_id"`
	FacultyID string `json:"faculty_id"`
	Room      string `json:"room"`
	MDC       bool   `json:"mdc"`
}

// AddEntry occupies an empty grid slot.
func (h *Handler) AddEntry(c *gin.Context) {
	var req addEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.grid.AddEntry(c.Request.Context(), req.Slot, req.SubjectID, req.FacultyID, req.Room, req.MDC)
	if err != nil {
		h.fail(c, err)
		return
	}
	gridMutations.WithLabelValues("add").Inc()
	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry partially replaces fields on an occupied slot.
func (h *Handler) UpdateEntry(c *gin.Context) {
	var patch timetable.EntryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.grid.UpdateEntry(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	gridMutations.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, entry)
}

// DeleteEntry empties a slot.
func (h *Handler) DeleteEntry(c *gin.Context) {
	if err := h.grid.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	gridMutations.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type toggleMDCRequest struct {
	timetable.Slot
	Enabled bool `json:"enabled"`
}

// ToggleMDC resolves the MDC prefill for a slot, or reports that no
// configuration backs it.
func (h *Handler) ToggleMDC(c *gin.Context) {
	var req toggleMDCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefill, err := h.grid.ToggleMDC(c.Request.Context(), req.Slot, req.Enabled)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled, "prefill": prefill})
}

// GetGrid returns the weekly matrix with color-annotated cells.
func (h *Handler) GetGrid(c *gin.Context) {
	departmentID := c.Query("department_id")
	semesterID := c.Query("semester_id")
	if departmentID == "" || semesterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id and semester_id required"})
		return
	}

	grid, err := h.grid.GetGrid(c.Request.Context(), departmentID, semesterID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grid": grid, "days": timetable.DaysPerWeek, "periods": timetable.PeriodsPerDay})
}
