package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
	"github.com/STARTUPinnovator/smartbin/internal/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// UplinkHandler 硬件上行 + 仪表盘查询的 HTTP 接口
type UplinkHandler struct {
	ingest *service.Ingestor
	logger *zap.Logger
}

func NewUplinkHandler(ingest *service.Ingestor, logger *zap.Logger) *UplinkHandler {
	return &UplinkHandler{ingest: ingest, logger: logger}
}

// GetBins GET /api/v1/bins：所有已注册节点的静态元数据
func (h *UplinkHandler) GetBins(w http.ResponseWriter, r *http.Request) {
	bins, err := h.ingest.ListBins(r.Context())
	if err != nil {
		h.logger.Error("Failed to list bins", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "storage unavailable",
		})
		return
	}

	out := make([]map[string]any, 0, len(bins))
	for i := range bins {
		out = append(out, bins[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, out)
}

type registerRequest struct {
	ID         string  `json:"id"`
	Supervisor string  `json:"supervisor"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Register POST /api/v1/register：注册/更新节点（whole-record 替换）
func (h *UplinkHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, maxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Missing ID"})
		return
	}

	var req registerRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Missing ID"})
			return
		}
	}

	err = h.ingest.Register(r.Context(), service.Registration{
		ID:         req.ID,
		Supervisor: req.Supervisor,
		Lat:        req.Lat,
		Lon:        req.Lon,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": verr.Message,
			})
			return
		}
		h.logger.Error("Register failed", zap.String("bin_id", req.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "storage unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type updateRequest struct {
	BinID     string  `json:"bin_id"`
	FillLevel int     `json:"fill_percentage"`
	StatusMsg string  `json:"status_msg"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// Update POST /api/v1/update：硬件遥测上行
// 空请求体、非 JSON、空对象 {} 都按无数据处理（与固件旧行为兼容）
func (h *UplinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, maxBodyBytes)
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false})
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false})
		return
	}

	var req updateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false})
		return
	}

	accepted, err := h.ingest.Ingest(r.Context(), service.Report{
		BinID:     req.BinID,
		FillLevel: req.FillLevel,
		StatusMsg: req.StatusMsg,
		Lat:       req.Lat,
		Lon:       req.Lon,
	})
	if err != nil {
		h.logger.Error("Uplink rejected", zap.String("bin_id", req.BinID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"server_time": accepted.ServerTime.Format(time.RFC3339),
	})
}

// History GET /api/v1/bins/{id}/telemetry：单节点最近遥测历史
func (h *UplinkHandler) History(w http.ResponseWriter, r *http.Request, binID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)

	events, err := h.ingest.History(r.Context(), binID, limit)
	if err != nil {
		h.logger.Error("Failed to list telemetry", zap.String("bin_id", binID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "storage unavailable",
		})
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		out = append(out, map[string]any{
			"sequence_id":     e.SequenceID,
			"bin_id":          e.BinID,
			"fill_percentage": e.FillLevel,
			"status_msg":      e.StatusMsg,
			"lat":             e.Lat,
			"lon":             e.Lon,
			"timestamp":       e.RecordedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
