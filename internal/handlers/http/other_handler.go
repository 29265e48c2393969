package http

import (
	"net/http"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type OtherHandler struct {
	contact ports.ContactService
	stats   ports.StatsService
}

func NewOtherHandler(contact ports.ContactService, stats ports.StatsService) *OtherHandler {
	return &OtherHandler{
		contact: contact,
		stats:   stats,
	}
}

type contactRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Message string `json:"message" form:"message"`
}

type courseRequestRequest struct {
	Name   string `json:"name" form:"name"`
	Email  string `json:"email" form:"email"`
	Course string `json:"course" form:"course"`
}

func (h *OtherHandler) Contact(c *gin.Context) {
	var req contactRequest
	bindForm(c, &req)
	trim(&req.Name, &req.Email, &req.Message)

	err := h.contact.Contact(c.Request.Context(), ports.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Your Message Has Been Sent.")
}

func (h *OtherHandler) CourseRequest(c *gin.Context) {
	var req courseRequestRequest
	bindForm(c, &req)
	trim(&req.Name, &req.Email, &req.Course)

	err := h.contact.RequestCourse(c.Request.Context(), ports.CourseRequestInput{
		Name:   req.Name,
		Email:  req.Email,
		Course: req.Course,
	})
	if err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Your Request Has Been Sent.")
}

func (h *OtherHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*domain.DashboardStats
	}{true, stats})
}
