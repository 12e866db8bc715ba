package v1

import (
	"github.com/desofme/bank/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) initAuthRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.GET("/confirm-mail/:token", h.confirmMail)
}

type customerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Surname  string `json:"surname" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Pin      string `json:"pin" binding:"required,pin"`
	Password string `json:"password" binding:"required,min=1,maxbytes=72"`
}

func (r customerRequest) toInput() service.CustomerRequest {
	return service.CustomerRequest{
		Name:     r.Name,
		Surname:  r.Surname,
		Email:    r.Email,
		Pin:      r.Pin,
		Password: r.Password,
	}
}

// @Summary Register customer
// @Tags Auth
// @Description Creates a disabled customer and emails a confirmation link
// @Accept  json
// @Produce  json
// @Param input body customerRequest true "customer"
// @Success 201 {object} domain.Result[service.CustomerResponse]
// @Failure 400 {object} domain.Result[service.CustomerResponse]
// @Failure 500 {object} domain.Result[service.CustomerResponse]
// @Router /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid register request", zap.Error(err))
		validationErrorResponse(c, err)
		return
	}

	resultResponse(c, h.services.Auth.Register(c.Request.Context(), req.toInput()))
}

// @Summary Confirm customer email
// @Tags Auth
// @Description Activates the customer owning the token
// @Produce  json
// @Param token path string true "confirmation token"
// @Success 200 {object} domain.Result[service.CustomerResponse]
// @Failure 400 {object} domain.Result[service.CustomerResponse]
// @Router /auth/confirm-mail/{token} [get]
func (h *Handler) confirmMail(c *gin.Context) {
	resultResponse(c, h.services.Auth.Confirm(c.Request.Context(), c.Param("token")))
}
