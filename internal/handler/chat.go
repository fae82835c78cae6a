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
)

// ChatHandler persists conversation transcripts.
type ChatHandler struct {
	DB       *gorm.DB
	PageSize int
}

func NewChatHandler(db *gorm.DB, pageSize int) *ChatHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ChatHandler{DB: db, PageSize: pageSize}
}

func chatPayload(ch *models.Chat) gin.H {
	return gin.H{
		"id":        ch.ID,
		"title":     ch.Title,
		"createdAt": ch.CreatedAt,
		"updatedAt": ch.UpdatedAt,
	}
}

// ownedChat loads the chat and enforces ownership. Writes the error response
// itself and returns nil when the caller should bail out.
func (h *ChatHandler) ownedChat(c *gin.Context) *models.Chat {
	claims := mustClaims(c)
	if claims == nil {
		return nil
	}

	id, err := strconv.Atoi(c.Param("chatId"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, "Invalid chat id")
		return nil
	}

	var chat models.Chat
	err = h.DB.Where("id = ? AND user_id = ?", id, claims.UserID).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, "Chat not found")
		return nil
	}
	if err != nil {
		log.Printf("load chat: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	return &chat
}

type createChatReq struct {
	Title string `json:"title"`
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var req createChatReq
	// body is optional; an empty one means a default title
	_ = c.ShouldBindJSON(&req)
	if req.Title == "" {
		req.Title = "Untitled Chat"
	}

	chat := models.Chat{
		UserID: claims.UserID,
		Title:  req.Title,
	}
	if err := h.DB.Create(&chat).Error; err != nil {
		log.Printf("create chat: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	util.JSON(c, http.StatusOK, chatPayload(&chat))
}

type updateTitleReq struct {
	Title string `json:"title" binding:"required"`
}

func (h *ChatHandler) UpdateTitle(c *gin.Context) {
	chat := h.ownedChat(c)
	if chat == nil {
		return
	}

	var req updateTitleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.DB.Model(chat).Update("title", req.Title).Error; err != nil {
		log.Printf("update chat title: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to update chat title")
		return
	}
	chat.Title = req.Title

	util.JSON(c, http.StatusOK, chatPayload(chat))
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var chats []models.Chat
	if err := h.DB.Where("user_id = ?", claims.UserID).
		Order("updated_at DESC").
		Limit(h.PageSize).
		Find(&chats).Error; err != nil {
		log.Printf("list chats: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch chats")
		return
	}

	out := make([]gin.H, 0, len(chats))
	for i := range chats {
		out = append(out, chatPayload(&chats[i]))
	}
	util.JSON(c, http.StatusOK, gin.H{"chats": out})
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chat := h.ownedChat(c)
	if chat == nil {
		return
	}

	// messages first; the cascade only exists on databases that enforce it
	if err := h.DB.Where("chat_id = ?", chat.ID).Delete(&models.ChatMessage{}).Error; err != nil {
		log.Printf("delete chat messages: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to delete chat")
		return
	}
	if err := h.DB.Delete(chat).Error; err != nil {
		log.Printf("delete chat: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to delete chat")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Chat deleted"})
}

// ---------- messages ----------

type addMessageReq struct {
	Sender  string          `json:"sender" binding:"required,oneof=user assistant"`
	Message string          `json:"message"`
	Plots   json.RawMessage `json:"plots"`
}

func messagePayload(m *models.ChatMessage) gin.H {
	payload := gin.H{
		"id":        m.ID,
		"chatId":    m.ChatID,
		"sender":    m.Sender,
		"message":   m.Message,
		"createdAt": m.CreatedAt,
	}
	if m.Plots != "" {
		payload["plots"] = json.RawMessage(m.Plots)
	}
	return payload
}

func (h *ChatHandler) AddMessage(c *gin.Context) {
	chat := h.ownedChat(c)
	if chat == nil {
		return
	}

	var req addMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Sender must be 'user' or 'assistant'")
		return
	}

	msg := models.ChatMessage{
		ChatID:  chat.ID,
		Sender:  req.Sender,
		Message: req.Message,
		Plots:   string(req.Plots),
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		log.Printf("add chat message: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to add message")
		return
	}

	if err := h.DB.Model(chat).Update("updated_at", time.Now()).Error; err != nil {
		log.Printf("bump chat updated_at: %v", err)
	}

	util.JSON(c, http.StatusOK, messagePayload(&msg))
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	chat := h.ownedChat(c)
	if chat == nil {
		return
	}

	var messages []models.ChatMessage
	if err := h.DB.Where("chat_id = ?", chat.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		log.Printf("list chat messages: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	out := make([]gin.H, 0, len(messages))
	for i := range messages {
		out = append(out, messagePayload(&messages[i]))
	}
	util.JSON(c, http.StatusOK, gin.H{"messages": out})
}
