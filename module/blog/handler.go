package blog

import (
	"net/http"

	blogservice "BProject/module/blog/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *blogservice.BlogService
}

func NewHandler(svc *blogservice.BlogService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/blog", h.HandleCreate)
}

type createReq struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	AuthorID string `json:"authorId" binding:"required"`
}

// HandleCreate 创建成功即返回成功：通知管道整个挂掉也不影响这里的 200。
func (h *Handler) HandleCreate(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	blog, err := h.svc.Create(c.Request.Context(), req.Title, req.Content, req.AuthorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blog": blog})
}
