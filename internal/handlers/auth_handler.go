package handlers

import (
	"log"
	"net/http"

	"taskflow/internal/models"
	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users services.UserService
	auth  services.AuthService
}

func NewAuthHandler(users services.UserService, auth services.AuthService) *AuthHandler {
	return &AuthHandler{users: users, auth: auth}
}

// @Summary      Register a new user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        register  body      models.RegisterRequest  true  "Registration payload"
// @Success      201       {object}  map[string]interface{}
// @Failure      400       {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][register][bind][err] %v", err)
		bindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		log.Printf("[auth][register][err] email=%q: %v", req.Email, err)
		serviceError(c, err, "failed to register user")
		return
	}

	token, err := h.auth.IssueToken(user.ID.Hex())
	if err != nil {
		log.Printf("[auth][register][err] issue token userID=%s: %v", user.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	log.Printf("[auth][register][ok] userID=%s", user.ID.Hex())
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      401    {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][login][bind][err] %v", err)
		bindError(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("[auth][login][deny] email=%q: %v", req.Email, err)
		serviceError(c, err, "failed to log in")
		return
	}

	token, err := h.auth.IssueToken(user.ID.Hex())
	if err != nil {
		log.Printf("[auth][login][err] issue token userID=%s: %v", user.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	log.Printf("[auth][login][ok] userID=%s", user.ID.Hex())
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// GET /auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[auth][profile][err] userID=%s: %v", userID.Hex(), err)
		serviceError(c, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// PUT /auth/profile — name is the only mutable field; email is immutable.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][profile-update][bind][err] %v", err)
		bindError(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req.Name)
	if err != nil {
		log.Printf("[auth][profile-update][err] userID=%s: %v", userID.Hex(), err)
		serviceError(c, err, "failed to update profile")
		return
	}

	log.Printf("[auth][profile-update][ok] userID=%s", userID.Hex())
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
