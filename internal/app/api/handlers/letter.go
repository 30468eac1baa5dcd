package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/letterdesk/internal/app/api/middleware"
	"github.com/fatflowers/letterdesk/internal/app/service/letter"
	"github.com/fatflowers/letterdesk/pkg/response"
	"github.com/fatflowers/letterdesk/pkg/types"
)

// @Summary      Generate a letter
// @Description  Validates the intake, checks the free trial or credit balance, drafts the letter and queues it for attorney review.
// @Tags         Letters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body letter.GenerateRequest true "Letter type and intake data"
// @Success      200  {object}  handlers.RespLetter
// @Failure      400  {object}  handlers.RespError
// @Failure      403  {object}  handlers.RespNeedsSubscription
// @Failure      500  {object}  handlers.RespError
// @Router       /api/v1/letters/generate [post]
func ApiGenerateLetter(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req letter.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		l, err := svc.Generate(c.Request.Context(), mw.ActorFrom(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(l))
	}
}

// @Summary      List letters
// @Description  Admins see every letter; other callers see their own.
// @Tags         Letters
// @Produce      json
// @Security     BearerAuth
// @Param        status      query string false "Filter by status"
// @Param        from        query int    false "Offset"
// @Param        size        query int    false "Page size"
// @Param        sort_order  query string false "asc or desc"
// @Success      200  {object}  handlers.RespLetterList
// @Router       /api/v1/letters [get]
func ApiListLetters(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req letter.ListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.List(c.Request.Context(), mw.ActorFrom(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get a letter
// @Tags         Letters
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Letter ID"
// @Success      200  {object}  handlers.RespLetter
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/letters/{id} [get]
func ApiGetLetter(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.Get(c.Request.Context(), mw.ActorFrom(c), c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(l))
	}
}

// @Summary      Start reviewing a letter (Admin)
// @Description  Assigns the letter to the calling admin and moves it to under_review.
// @Tags         Review
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Letter ID"
// @Success      200  {object}  handlers.RespLetter
// @Failure      400  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/letters/{id}/start-review [post]
func ApiStartReview(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.StartReview(c.Request.Context(), mw.ActorFrom(c), c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(l))
	}
}

// @Summary      Approve a letter (Admin)
// @Tags         Review
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string                 true "Letter ID"
// @Param        request  body letter.ApproveRequest  true "Final content and optional notes"
// @Success      200  {object}  handlers.RespLetter
// @Failure      400  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/letters/{id}/approve [post]
func ApiApproveLetter(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req letter.ApproveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		l, err := svc.Approve(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(l))
	}
}

// @Summary      Reject a letter (Admin)
// @Tags         Review
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string                true "Letter ID"
// @Param        request  body letter.RejectRequest  true "Rejection reason and optional notes"
// @Success      200  {object}  handlers.RespLetter
// @Failure      400  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/letters/{id}/reject [post]
func ApiRejectLetter(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req letter.RejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		l, err := svc.Reject(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(l))
	}
}

type ImproveLetterResponse struct {
	ImprovedContent string `json:"improvedContent"`
}

// @Summary      Improve a draft (Admin)
// @Description  Rewrites the supplied content following the instruction. The letter is not modified.
// @Tags         Review
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string                 true "Letter ID"
// @Param        request  body letter.ImproveRequest  true "Content and instruction"
// @Success      200  {object}  handlers.RespImproveLetter
// @Router       /api/v1/letters/{id}/improve [post]
func ApiImproveLetter(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req letter.ImproveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		text, err := svc.ImproveDraft(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ImproveLetterResponse{ImprovedContent: text}))
	}
}

// @Summary      Letter audit trail (Admin)
// @Tags         Review
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Letter ID"
// @Success      200  {object}  handlers.RespAuditTrail
// @Router       /api/v1/letters/{id}/audit [get]
func ApiLetterHistory(svc *letter.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.History(c.Request.Context(), mw.ActorFrom(c), c.Param("id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// RegisterLetterRoutes mounts the letter routes on an authenticated group.
// generateLimit guards the generate endpoint; pass nil to disable it.
func RegisterLetterRoutes(r gin.IRouter, svc *letter.Service, log *zap.SugaredLogger, generateLimit gin.HandlerFunc) {
	g := r.Group("/letters")
	generate := []gin.HandlerFunc{ApiGenerateLetter(svc, log)}
	if generateLimit != nil {
		generate = append([]gin.HandlerFunc{generateLimit}, generate...)
	}
	g.POST("/generate", generate...)
	g.GET("", ApiListLetters(svc, log))
	g.GET("/:id", ApiGetLetter(svc, log))

	admin := g.Group("/:id", mw.RequireRole(types.RoleAdmin))
	admin.POST("/start-review", ApiStartReview(svc, log))
	admin.POST("/approve", ApiApproveLetter(svc, log))
	admin.POST("/reject", ApiRejectLetter(svc, log))
	admin.POST("/improve", ApiImproveLetter(svc, log))
	admin.GET("/audit", ApiLetterHistory(svc, log))
}
