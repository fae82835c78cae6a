package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"datapilot/internal/models"
	"datapilot/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatasetHandler covers dataset storage metadata, page links and cached
// metrics. File bytes live in object storage; only bookkeeping happens here.
type DatasetHandler struct {
	DB       *gorm.DB
	PageSize int
}

func NewDatasetHandler(db *gorm.DB, pageSize int) *DatasetHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &DatasetHandler{DB: db, PageSize: pageSize}
}

type saveDatasetReq struct {
	Endpoint string `json:"endpoint" binding:"required"`
	FileKey  string `json:"fileKey" binding:"required"`
	FileURL  string `json:"fileUrl" binding:"required"`
	RowCount int    `json:"rowCount"`
}

func datasetPayload(d *models.Dataset) gin.H {
	return gin.H{
		"id":        d.ID,
		"endpoint":  d.Endpoint,
		"fileKey":   d.FileKey,
		"fileUrl":   d.FileURL,
		"rowCount":  d.RowCount,
		"createdAt": d.CreatedAt,
	}
}

func (h *DatasetHandler) SaveDataset(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var req saveDatasetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Endpoint, file key and file URL are required.")
		return
	}

	dataset := models.Dataset{
		UserID:   claims.UserID,
		Endpoint: req.Endpoint,
		FileKey:  req.FileKey,
		FileURL:  req.FileURL,
		RowCount: req.RowCount,
	}
	if err := h.DB.Create(&dataset).Error; err != nil {
		log.Printf("save dataset: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to save dataset")
		return
	}

	util.JSON(c, http.StatusCreated, datasetPayload(&dataset))
}

func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var datasets []models.Dataset
	if err := h.DB.Where("user_id = ?", claims.UserID).
		Order("created_at DESC").
		Limit(h.PageSize).
		Find(&datasets).Error; err != nil {
		log.Printf("list datasets: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch datasets")
		return
	}

	out := make([]gin.H, 0, len(datasets))
	for i := range datasets {
		out = append(out, datasetPayload(&datasets[i]))
	}
	util.JSON(c, http.StatusOK, gin.H{"datasets": out})
}

func (h *DatasetHandler) GetDataset(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, "Invalid dataset id")
		return
	}

	var dataset models.Dataset
	err = h.DB.Where("id = ? AND user_id = ?", id, claims.UserID).
		First(&dataset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, "Dataset not found")
		return
	}
	if err != nil {
		log.Printf("get dataset: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch dataset")
		return
	}

	util.JSON(c, http.StatusOK, datasetPayload(&dataset))
}

func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, "Invalid dataset id")
		return
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, claims.UserID).
		Delete(&models.Dataset{})
	if res.Error != nil {
		log.Printf("delete dataset: %v", res.Error)
		util.Error(c, http.StatusInternalServerError, "Failed to delete dataset")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, "Dataset not found")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Dataset deleted"})
}

// ---------- page links ----------

type linkDatasetReq struct {
	DatasetID uint   `json:"datasetId" binding:"required"`
	PageType  string `json:"pageType" binding:"required"`
}

// LinkDataset binds a dataset to a page. One link per (user, page type);
// relinking replaces the previous one via the unique index.
func (h *DatasetHandler) LinkDataset(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var req linkDatasetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Dataset ID and page type are required.")
		return
	}

	var dataset models.Dataset
	err := h.DB.Where("id = ? AND user_id = ?", req.DatasetID, claims.UserID).
		First(&dataset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, "Dataset not found")
		return
	}
	if err != nil {
		log.Printf("link dataset: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to link dataset")
		return
	}

	link := models.LinkedDataset{
		UserID:    claims.UserID,
		DatasetID: req.DatasetID,
		PageType:  req.PageType,
		LinkedAt:  time.Now(),
	}
	err = h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "page_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"dataset_id": req.DatasetID,
			"linked_at":  time.Now(),
		}),
	}).Create(&link).Error
	if err != nil {
		log.Printf("link dataset: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to link dataset")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{
		"message":   "Dataset linked",
		"datasetId": req.DatasetID,
		"pageType":  req.PageType,
	})
}

func (h *DatasetHandler) GetLinkedDataset(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	pageType := c.Param("pageType")

	var link models.LinkedDataset
	err := h.DB.Where("user_id = ? AND page_type = ?", claims.UserID, pageType).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, "No dataset linked for this page")
		return
	}
	if err != nil {
		log.Printf("get linked dataset: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch linked dataset")
		return
	}

	var dataset models.Dataset
	if err := h.DB.First(&dataset, link.DatasetID).Error; err != nil {
		log.Printf("get linked dataset: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch linked dataset")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{
		"pageType": link.PageType,
		"linkedAt": link.LinkedAt,
		"dataset":  datasetPayload(&dataset),
	})
}

func (h *DatasetHandler) UnlinkDataset(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	pageType := c.Param("pageType")

	res := h.DB.Where("user_id = ? AND page_type = ?", claims.UserID, pageType).
		Delete(&models.LinkedDataset{})
	if res.Error != nil {
		log.Printf("unlink dataset: %v", res.Error)
		util.Error(c, http.StatusInternalServerError, "Failed to unlink dataset")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, "No dataset linked for this page")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Dataset unlinked"})
}

// ---------- metrics ----------

type saveMetricsReq struct {
	DatasetID uint            `json:"datasetId" binding:"required"`
	PageType  string          `json:"pageType" binding:"required"`
	Metrics   json.RawMessage `json:"metrics" binding:"required"`
}

func (h *DatasetHandler) SaveMetrics(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var req saveMetricsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Dataset ID, page type and metrics are required.")
		return
	}

	metric := models.LinkedDatasetMetric{
		DatasetID: req.DatasetID,
		UserID:    claims.UserID,
		PageType:  req.PageType,
		Metrics:   string(req.Metrics),
	}
	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "page_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"dataset_id": req.DatasetID,
			"metrics":    string(req.Metrics),
			"updated_at": time.Now(),
		}),
	}).Create(&metric).Error
	if err != nil {
		log.Printf("save metrics: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to save metrics")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Metrics saved"})
}

func (h *DatasetHandler) GetMetrics(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	pageType := c.Param("pageType")

	var metric models.LinkedDatasetMetric
	err := h.DB.Where("user_id = ? AND page_type = ?", claims.UserID, pageType).
		First(&metric).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, "No metrics for this page")
		return
	}
	if err != nil {
		log.Printf("get metrics: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{
		"datasetId": metric.DatasetID,
		"pageType":  metric.PageType,
		"metrics":   json.RawMessage(metric.Metrics),
		"updatedAt": metric.UpdatedAt,
	})
}

func (h *DatasetHandler) DeleteMetrics(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	pageType := c.Param("pageType")

	res := h.DB.Where("user_id = ? AND page_type = ?", claims.UserID, pageType).
		Delete(&models.LinkedDatasetMetric{})
	if res.Error != nil {
		log.Printf("delete metrics: %v", res.Error)
		util.Error(c, http.StatusInternalServerError, "Failed to delete metrics")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, "No metrics for this page")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Metrics deleted"})
}
