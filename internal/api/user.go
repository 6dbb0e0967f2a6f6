package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves /users: registration, profiles, password change and subscriptions
type UserHandler struct {
	users     service.IUserService
	relations service.IRelationService
	presenter *service.Presenter
	enforcer  *authz.Enforcer
	pageSize  int
}

func NewUserHandler(deps *Dependencies) *UserHandler {
	return &UserHandler{
		users:     deps.Users,
		relations: deps.Relations,
		presenter: deps.Presenter,
		enforcer:  deps.Enforcer,
		pageSize:  deps.PageSize,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	subscriptions := middleware.Policy(h.enforcer, authz.ObjectSubscriptions)
	account := middleware.Policy(h.enforcer, authz.ObjectUsers)

	users := router.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.Register)
		users.GET("/me", middleware.RequireAuth(), h.Me)
		users.POST("/set_password", account, h.SetPassword)
		users.GET("/subscriptions", middleware.RequireAuth(), h.Subscriptions)
		users.GET("/:id", h.GetUser)
		users.POST("/:id/subscribe", subscriptions, h.Subscribe)
		users.DELETE("/:id/subscribe", subscriptions, h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	pager, err := NewPaginator(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	users, total, err := h.users.List(c.Request.Context(), pager.Limit, pager.Offset())
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.presenter.Users(c.Request.Context(), viewerFrom(c), users)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPage(c, pager, total, results))
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"email":      user.Email,
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.respondUser(c, userID)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.respondUser(c, id)
}

func (h *UserHandler) respondUser(c *gin.Context, id uint) {
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.presenter.User(c.Request.Context(), viewerFrom(c), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions lists the authors the caller follows; ?recipes_limit= caps each preview
func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	pager, err := NewPaginator(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := recipesLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	authors, total, err := h.relations.Subscriptions(c.Request.Context(), userID, pager.Limit, pager.Offset())
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.presenter.Subscriptions(c.Request.Context(), viewerFrom(c), authors, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPage(c, pager, total, results))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	authorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, err := recipesLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	author, err := h.relations.Subscribe(c.Request.Context(), userID, authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordToggle("subscription", true)

	out, err := h.presenter.Subscriptions(c.Request.Context(), viewerFrom(c), []models.User{*author}, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	authorID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.relations.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordToggle("subscription", false)
	c.Status(http.StatusNoContent)
}
