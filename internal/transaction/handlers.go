package transaction

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/spendwatch/spendwatch/internal/logging"
	"github.com/spendwatch/spendwatch/internal/metrics"
)

// Handler provides HTTP endpoints for transaction ingestion.
type Handler struct {
	store Store
}

// NewHandler creates a new transaction handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up transaction routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions/upload", h.Upload)
}

// UploadRequest is the request body for batch ingestion.
type UploadRequest struct {
	Records []RawRecord `json:"records" binding:"required"`
}

// Upload handles POST /api/transactions/upload.
//
// Validation is per-record: malformed rows are reported with field and
// reason while the rest of the batch is stored.
func (h *Handler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "body must be {\"records\": [...]}",
		})
		return
	}

	batchID := uuid.NewString()
	result := ValidateBatch(req.Records)

	stored := 0
	for _, tx := range result.Accepted {
		if err := h.store.Insert(ctx, tx); err != nil {
			logging.L(ctx).Error("failed to store transaction",
				"batch_id", batchID, "vendor_id", tx.VendorID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "storage_error",
				"message": "failed to store batch",
			})
			return
		}
		stored++
	}

	metrics.TransactionsIngested.Add(float64(stored))
	metrics.TransactionsRejected.Add(float64(len(result.Rejections)))

	logging.L(ctx).Info("batch uploaded",
		"batch_id", batchID, "accepted", stored, "rejected", len(result.Rejections))

	rejections := result.Rejections
	if rejections == nil {
		rejections = []Rejection{}
	}
	c.JSON(http.StatusCreated, gin.H{
		"batch_id":   batchID,
		"accepted":   stored,
		"rejected":   len(rejections),
		"rejections": rejections,
	})
}
