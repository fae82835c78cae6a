package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"datapilot/internal/models"
	"datapilot/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportHandler persists generated reports and exports them as XLSX.
// PDF rendering is handled elsewhere in the product.
type ReportHandler struct {
	DB       *gorm.DB
	PageSize int
}

func NewReportHandler(db *gorm.DB, pageSize int) *ReportHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ReportHandler{DB: db, PageSize: pageSize}
}

func reportPayload(r *models.Report) gin.H {
	return gin.H{
		"id":        r.ID,
		"title":     r.Title,
		"content":   r.Content,
		"createdAt": r.CreatedAt,
		"updatedAt": r.UpdatedAt,
	}
}

func (h *ReportHandler) ownedReport(c *gin.Context) *models.Report {
	claims := mustClaims(c)
	if claims == nil {
		return nil
	}

	id, err := strconv.Atoi(c.Param("reportId"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, "Invalid report id")
		return nil
	}

	var report models.Report
	err = h.DB.Where("id = ? AND user_id = ?", id, claims.UserID).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, "Report not found")
		return nil
	}
	if err != nil {
		log.Printf("load report: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	return &report
}

type saveReportReq struct {
	ReportID uint   `json:"reportId"` // zero creates a new report
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (h *ReportHandler) SaveReport(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var req saveReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Title and content are required")
		return
	}

	if req.ReportID != 0 {
		res := h.DB.Model(&models.Report{}).
			Where("id = ? AND user_id = ?", req.ReportID, claims.UserID).
			Updates(map[string]interface{}{
				"title":      req.Title,
				"content":    req.Content,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			log.Printf("update report: %v", res.Error)
			util.Error(c, http.StatusInternalServerError, "Error saving report")
			return
		}
		if res.RowsAffected == 0 {
			util.Error(c, http.StatusNotFound, "No report updated or created")
			return
		}
		util.JSON(c, http.StatusOK, gin.H{"message": "Report saved", "reportId": req.ReportID})
		return
	}

	report := models.Report{
		UserID:  claims.UserID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := h.DB.Create(&report).Error; err != nil {
		log.Printf("create report: %v", err)
		util.Error(c, http.StatusInternalServerError, "Error saving report")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Report saved", "data": reportPayload(&report)})
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	report := h.ownedReport(c)
	if report == nil {
		return
	}
	util.JSON(c, http.StatusOK, reportPayload(report))
}

func (h *ReportHandler) ListReports(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var reports []models.Report
	if err := h.DB.Where("user_id = ?", claims.UserID).
		Order("updated_at DESC").
		Limit(h.PageSize).
		Find(&reports).Error; err != nil {
		log.Printf("list reports: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch reports")
		return
	}

	out := make([]gin.H, 0, len(reports))
	for i := range reports {
		out = append(out, gin.H{
			"id":        reports[i].ID,
			"title":     reports[i].Title,
			"createdAt": reports[i].CreatedAt,
			"updatedAt": reports[i].UpdatedAt,
		})
	}
	util.JSON(c, http.StatusOK, gin.H{"reports": out})
}

func (h *ReportHandler) DeleteReport(c *gin.Context) {
	report := h.ownedReport(c)
	if report == nil {
		return
	}

	if err := h.DB.Delete(report).Error; err != nil {
		log.Printf("delete report: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to delete report")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Report deleted"})
}

// ExportXLSX writes one report as a downloadable workbook: a metadata header
// followed by the content split into paragraph rows.
func (h *ReportHandler) ExportXLSX(c *gin.Context) {
	report := h.ownedReport(c)
	if report == nil {
		return
	}

	f := excelize.NewFile()
	sheetName := "Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to create worksheet")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheetName, "A1", "Title")
	f.SetCellValue(sheetName, "B1", report.Title)
	f.SetCellValue(sheetName, "A2", "Created")
	f.SetCellValue(sheetName, "B2", report.CreatedAt.Format("2006-01-02 15:04"))
	f.SetCellValue(sheetName, "A3", "Updated")
	f.SetCellValue(sheetName, "B3", report.UpdatedAt.Format("2006-01-02 15:04"))

	row := 5
	for _, para := range strings.Split(report.Content, "\n") {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), para)
		row++
	}

	f.SetColWidth(sheetName, "A", "A", 30)
	f.SetColWidth(sheetName, "B", "B", 60)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"report_%d_%s.xlsx\"",
		report.ID, time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to export report")
	}
}
