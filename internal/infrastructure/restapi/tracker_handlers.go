package restapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/app/service"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/walletloader"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
	StatusMessage string `json:"status_message"`
}

// RefreshRequest is the optional body of POST /snapshots/refresh.
type RefreshRequest struct {
	RPCEndpoint string `json:"rpcEndpoint"`
	BatchSize   *int   `json:"batchSize"`
}

type labelRequest struct {
	Label string `json:"remark"`
}

// TrackerHandler обрабатывает HTTP запросы для кошельков и снапшотов.
type TrackerHandler struct {
	tracker port.TrackerService
	loader  *walletloader.Loader
	logger  port.Logger
}

func NewTrackerHandler(tracker port.TrackerService, loader *walletloader.Loader, l port.Logger) *TrackerHandler {
	return &TrackerHandler{tracker: tracker, loader: loader, logger: l}
}

func (h *TrackerHandler) ListWalletsHandler(c *gin.Context) {
	wallets, err := h.tracker.Wallets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          gin.H{"wallets": wallets, "total": len(wallets)},
		StatusMessage: fmt.Sprintf("%d wallets tracked.", len(wallets)),
	})
}

// ImportWalletsHandler accepts the same documents as the wallet list file: a bare
// array or an object with an items array. ?replace=true swaps the tracked list
// for the document instead of merging into it.
func (h *TrackerHandler) ImportWalletsHandler(c *gin.Context) {
	replace := false
	if raw := c.Query("replace"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, APIResponse{Error: err.Error(), StatusMessage: "Invalid replace flag."})
			return
		}
		replace = v
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Error: err.Error(), StatusMessage: "Failed to read request body."})
		return
	}
	wallets, err := h.loader.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Error: err.Error(), StatusMessage: "Invalid wallet list."})
		return
	}

	imported, total, err := h.tracker.ImportWallets(c.Request.Context(), wallets, replace)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          gin.H{"imported": imported, "total": total},
		StatusMessage: fmt.Sprintf("Imported %d new wallets.", imported),
	})
}

func (h *TrackerHandler) ExportWalletsHandler(c *gin.Context) {
	wallets, err := h.tracker.Wallets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	now := time.Now()
	data, err := walletloader.Marshal(walletloader.Export(wallets, now))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="staking_wallets_%d.json"`, now.UnixMilli()))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *TrackerHandler) UpdateLabelHandler(c *gin.Context) {
	var req labelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Error: err.Error(), StatusMessage: "Invalid request body."})
		return
	}
	address := c.Param("address")
	if err := h.tracker.UpdateLabel(c.Request.Context(), address, req.Label); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          gin.H{"address": address, "remark": req.Label},
		StatusMessage: "Label updated.",
	})
}

// RefreshHandler runs the snapshot engine over every tracked wallet.
// An unreachable RPC endpoint maps to 502, a concurrent refresh to 409.
func (h *TrackerHandler) RefreshHandler(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, APIResponse{Error: err.Error(), StatusMessage: "Invalid request body."})
		return
	}
	batchSize := 0
	if req.BatchSize != nil {
		if *req.BatchSize <= 0 {
			c.JSON(http.StatusBadRequest, APIResponse{Error: service.ErrInvalidBatchSize.Error(), StatusMessage: "Invalid batch size."})
			return
		}
		batchSize = *req.BatchSize
	}

	started := time.Now()
	snapshots, err := h.tracker.Refresh(c.Request.Context(), req.RPCEndpoint, batchSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          gin.H{"snapshots": snapshots, "count": len(snapshots)},
		StatusMessage: fmt.Sprintf("Refreshed %d wallets in %s.", len(snapshots), time.Since(started).Round(time.Millisecond)),
	})
}

func (h *TrackerHandler) ListSnapshotsHandler(c *gin.Context) {
	rows, totals, err := h.tracker.Snapshots(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "Snapshots retrieved successfully."
	if len(rows) == 0 {
		msg = "No wallets match the query."
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          gin.H{"rows": rows, "totals": totals},
		StatusMessage: msg,
	})
}

func (h *TrackerHandler) GetSnapshotHandler(c *gin.Context) {
	snap, err := h.tracker.Snapshot(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: snap, StatusMessage: "Snapshot retrieved successfully."})
}

// fail maps domain errors to HTTP statuses.
func (h *TrackerHandler) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal error."
	switch {
	case errors.Is(err, entity.ErrWalletNotFound):
		status, msg = http.StatusNotFound, "Wallet is not tracked."
	case errors.Is(err, entity.ErrSnapshotNotFound):
		status, msg = http.StatusNotFound, "No snapshot for this wallet yet."
	case errors.Is(err, service.ErrInvalidBatchSize):
		status, msg = http.StatusBadRequest, "Invalid batch size."
	case errors.Is(err, service.ErrRefreshInProgress):
		status, msg = http.StatusConflict, "A refresh is already running."
	case errors.Is(err, entity.ErrEndpointUnreachable), errors.Is(err, entity.ErrNoEndpoint):
		status, msg = http.StatusBadGateway, "RPC endpoint is unreachable."
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		h.logger.Warn("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, APIResponse{Error: err.Error(), StatusMessage: msg})
}
