package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pump-launcher/internal/domain"
	"pump-launcher/internal/launch"
	"pump-launcher/internal/submit"
)

// LaunchRequest is the body of POST /v1/launches.
type LaunchRequest struct {
	Name        string                `json:"name" binding:"required"`
	Ticker      string                `json:"ticker" binding:"required"`
	Description string                `json:"description" binding:"required"`
	ImageURL    string                `json:"imageUrl" binding:"required,url"`
	Options     *domain.LaunchOptions `json:"options"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind,omitempty"`
	Logs  []string `json:"logs,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) wallet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"address": s.agent.Wallet.PublicKey().String()})
}

// createLaunch runs a launch to completion and returns its result.
func (s *Server) createLaunch(c *gin.Context) {
	var req LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: "invalid_input"})
		return
	}

	opts := req.Options
	if s.applyDefaults != nil {
		opts = s.applyDefaults(opts)
	}

	// A broadcast transaction cannot be recalled, so a client disconnect
	// must not abandon the confirmation wait.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.launchTimeout)
	defer cancel()

	result, err := s.launcher.Launch(ctx, s.agent, req.Name, req.Ticker, req.Description, req.ImageURL, opts)
	if err != nil {
		kind := launch.ErrorKind(err)
		resp := ErrorResponse{Error: err.Error(), Kind: kind}
		var subErr *submit.SubmissionError
		if errors.As(err, &subErr) {
			resp.Logs = subErr.Logs
		}
		c.JSON(statusForKind(kind), resp)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func statusForKind(kind string) int {
	switch kind {
	case "invalid_input", "image_failure":
		return http.StatusBadRequest
	case "upload_failure", "build_failure":
		return http.StatusBadGateway
	case "submission_failure", "on_chain_rejection":
		return http.StatusUnprocessableEntity
	case "expired", "cancelled":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
