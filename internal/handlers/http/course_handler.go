package http

import (
	"net/http"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	courses ports.CourseService
}

func NewCourseHandler(courses ports.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

type createCourseRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
	CreatedBy   string `json:"createdBy" form:"createdBy"`
}

type addLectureRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

func (h *CourseHandler) GetAllCourses(c *gin.Context) {
	courses, err := h.courses.Search(c.Request.Context(), domain.CourseFilter{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"courses": courses,
	})
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	bindForm(c, &req)
	trim(&req.Title, &req.Description, &req.Category, &req.CreatedBy)

	poster, closeFile := formUpload(c, "file")
	defer closeFile()

	_, err := h.courses.Create(c.Request.Context(), ports.CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CreatedBy:   req.CreatedBy,
		Poster:      poster,
	})
	if err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusCreated, "Course Created Successfully!")
}

func (h *CourseHandler) GetCourseLectures(c *gin.Context) {
	lectures, err := h.courses.GetLectures(c.Request.Context(), domain.CourseID(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}
	if lectures == nil {
		lectures = []domain.Lecture{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"lectures": lectures,
	})
}

func (h *CourseHandler) AddLecture(c *gin.Context) {
	var req addLectureRequest
	bindForm(c, &req)
	trim(&req.Title, &req.Description)

	video, closeFile := formUpload(c, "file")
	defer closeFile()

	_, err := h.courses.AddLecture(c.Request.Context(), domain.CourseID(c.Param("id")), ports.AddLectureInput{
		Title:       req.Title,
		Description: req.Description,
		Video:       video,
	})
	if err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Lecture added successfully")
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), domain.CourseID(c.Param("id"))); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Course deleted successfully")
}

func (h *CourseHandler) DeleteLecture(c *gin.Context) {
	courseID := domain.CourseID(c.Query("courseId"))
	lectureID := domain.LectureID(c.Query("lectureId"))

	if err := h.courses.DeleteLecture(c.Request.Context(), courseID, lectureID); err != nil {
		c.Error(err)
		return
	}
	ok(c, http.StatusOK, "Lecture deleted successfully")
}
