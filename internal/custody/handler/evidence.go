// Package handler exposes the custody session over HTTP.
package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/auth"
	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/evidence"
)

// CustodyService is the subset of *custody.Session used by EvidenceHandler.
type CustodyService interface {
	Register(ctx context.Context, cmd custody.RegisterCommand) (*custody.RegisterResult, error)
	Transfer(ctx context.Context, cmd custody.TransferCommand) (*custody.TransferResult, error)
	ListEvidence(ctx context.Context) []*evidence.Evidence
	GetEvidence(ctx context.Context, id string) (*evidence.Evidence, bool)
	GetHistory(ctx context.Context, id string) ([]evidence.CustodyEvent, bool)
}

// EvidenceHandler serves evidence registration, transfer and lookup.
type EvidenceHandler struct {
	svc    CustodyService
	guard  gin.HandlerFunc
	logger *zap.Logger
}

// NewEvidenceHandler creates an EvidenceHandler. guard protects the mutating
// routes; pass auth.RequireToken(nil) to leave them open.
func NewEvidenceHandler(svc CustodyService, guard gin.HandlerFunc, logger *zap.Logger) *EvidenceHandler {
	if guard == nil {
		guard = auth.RequireToken(nil)
	}
	return &EvidenceHandler{svc: svc, guard: guard, logger: logger}
}

// Register mounts the evidence routes on the given router group.
func (h *EvidenceHandler) Register(rg *gin.RouterGroup) {
	ev := rg.Group("/evidence")
	{
		ev.POST("", h.guard, h.Create)
		ev.GET("", h.List)
		ev.GET("/:id", h.Get)
		ev.GET("/:id/history", h.History)
		ev.POST("/:id/transfer", h.guard, h.Transfer)
	}
	rg.GET("/roles", h.Roles)
}

// createRequest is the body of POST /evidence. Content is taken verbatim
// unless Encoding is "base64".
type createRequest struct {
	ID        string `json:"id"        binding:"required"`
	Content   string `json:"content"`
	Encoding  string `json:"encoding"`
	Custodian string `json:"custodian" binding:"required"`
}

// Create handles POST /evidence.
func (h *EvidenceHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := []byte(req.Content)
	switch req.Encoding {
	case "", "utf8", "text":
	case "base64":
		b, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content is not valid base64"})
			return
		}
		content = b
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "encoding must be \"base64\" or empty"})
		return
	}

	role, err := evidence.ParseRole(req.Custodian)
	if err != nil {
		writeRoleError(c, err)
		return
	}

	res, err := h.svc.Register(c.Request.Context(), custody.RegisterCommand{
		ID:        req.ID,
		Content:   content,
		Custodian: role,
	})
	if err != nil {
		h.writeError(c, "register", req.ID, err)
		return
	}

	h.logger.Info("evidence registered via API",
		zap.String("evidence_id", res.ID),
		zap.String("operator", auth.OperatorFromCtx(c)),
	)
	c.JSON(http.StatusCreated, res)
}

// List handles GET /evidence.
func (h *EvidenceHandler) List(c *gin.Context) {
	items := h.svc.ListEvidence(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"evidence": items, "count": len(items)})
}

// Get handles GET /evidence/:id.
func (h *EvidenceHandler) Get(c *gin.Context) {
	e, ok := h.svc.GetEvidence(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": evidence.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, e)
}

// History handles GET /evidence/:id/history.
func (h *EvidenceHandler) History(c *gin.Context) {
	id := c.Param("id")
	history, ok := h.svc.GetHistory(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": evidence.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "history": history})
}

type transferRequest struct {
	Custodian string `json:"custodian" binding:"required"`
}

// Transfer handles POST /evidence/:id/transfer.
func (h *EvidenceHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := evidence.ParseRole(req.Custodian)
	if err != nil {
		writeRoleError(c, err)
		return
	}

	id := c.Param("id")
	res, err := h.svc.Transfer(c.Request.Context(), custody.TransferCommand{ID: id, NewCustodian: role})
	if err != nil {
		h.writeError(c, "transfer", id, err)
		return
	}

	h.logger.Info("custody transferred via API",
		zap.String("evidence_id", res.ID),
		zap.String("to", string(res.NewCustodian)),
		zap.String("operator", auth.OperatorFromCtx(c)),
	)
	c.JSON(http.StatusOK, res)
}

// Roles handles GET /roles.
func (h *EvidenceHandler) Roles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": evidence.Roles()})
}

func (h *EvidenceHandler) writeError(c *gin.Context, op, id string, err error) {
	switch {
	case errors.Is(err, evidence.ErrDuplicateID):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, evidence.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, evidence.ErrInvalidID), errors.Is(err, evidence.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(op, zap.String("evidence_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func writeRoleError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"roles": evidence.Roles(),
	})
}
