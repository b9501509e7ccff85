package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cesde/internal/middleware"
	"cesde/internal/models"
	"cesde/internal/services"
)

type UserHandler struct {
	service services.UserService
	admin   *services.UserAdminService
	logger  *zap.Logger
}

func NewUserHandler(service services.UserService, admin *services.UserAdminService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{service: service, admin: admin, logger: logger.Named("users")}
}

// @Summary      Register an identity
// @Description  Elevated roles can only be assigned by a signed-in superadmin
// @Tags         Users
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        user  body      models.RegisterRequest  true  "New identity"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	actor, _ := middleware.CurrentUser(c)
	user, err := h.service.Register(c.Request.Context(), req, actor, c.ClientIP())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": user})
}

// Me returns the signed-in principal for the area the route belongs to.
//
// @Summary      Current principal
// @Tags         Users
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /welcome [get]
// @Router       /dashboard [get]
// @Router       /admin [get]
// @Router       /superadmin [get]
func (h *UserHandler) Me(area string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"area": area, "user": user})
	}
}

// @Summary      List users
// @Tags         Users
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   models.Identity
// @Failure      401     {object}  ErrorResponse
// @Failure      403     {object}  ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := h.admin.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary      Create a user
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        user  body      models.UserInput  true  "User"
// @Success      201   {object}  models.Identity
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var in models.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	actor, _ := middleware.CurrentUser(c)

	user, err := h.admin.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// @Summary      Update a user
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "User ID"
// @Param        user  body      models.UserInput  true  "User"
// @Success      200   {object}  models.Identity
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var in models.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	actor, _ := middleware.CurrentUser(c)

	user, err := h.admin.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary      Delete a user
// @Tags         Users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}
	actor, _ := middleware.CurrentUser(c)

	if err := h.admin.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
