package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/ledger"
	"github.com/jmerrifield20/custodyledger/internal/stream"
)

// LedgerService is the subset of *custody.Session used by LedgerHandler.
type LedgerService interface {
	ID() uuid.UUID
	Verify(ctx context.Context) custody.VerifyResult
	Block(ctx context.Context, index int) (*ledger.Block, bool)
	Blocks(ctx context.Context) []ledger.Block
	LedgerLen(ctx context.Context) int
	Root(ctx context.Context) string
}

// LedgerHandler exposes read-only HTTP endpoints for the custody ledger.
type LedgerHandler struct {
	svc    LedgerService
	hub    *stream.Hub // nil = streaming disabled
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc LedgerService, hub *stream.Hub, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, hub: hub, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/blocks", h.ListBlocks)
		l.GET("/blocks/:idx", h.GetBlock)
		l.GET("/stream", h.Stream)
	}
}

// Overview handles GET /ledger and returns the chain length and root hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"session": h.svc.ID().String(),
		"blocks":  h.svc.LedgerLen(ctx),
		"root":    h.svc.Root(ctx),
	})
}

// Verify handles GET /ledger/verify. A broken chain is still a 200; the body
// carries valid=false with the failing index.
func (h *LedgerHandler) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Verify(c.Request.Context()))
}

// ListBlocks handles GET /ledger/blocks and returns the whole chain. The
// response can be fed to offline verification.
func (h *LedgerHandler) ListBlocks(c *gin.Context) {
	ctx := c.Request.Context()
	blocks := h.svc.Blocks(ctx)
	c.JSON(http.StatusOK, gin.H{
		"session": h.svc.ID().String(),
		"blocks":  blocks,
		"count":   len(blocks),
	})
}

// GetBlock handles GET /ledger/blocks/:idx.
func (h *LedgerHandler) GetBlock(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}
	b, ok := h.svc.Block(c.Request.Context(), idx)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// Stream handles GET /ledger/stream, upgrading to a websocket that receives
// the existing chain followed by every newly appended block.
func (h *LedgerHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "block streaming is not enabled"})
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	h.hub.ServeWS(c.Writer, c.Request, func() []ledger.Block {
		return h.svc.Blocks(ctx)
	})
}
