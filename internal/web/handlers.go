package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparky/internal/app"
	"sparky/internal/project"
	"sparky/internal/settings"
)

const sessionKey = "sparky_session"

type statusResp struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, statusResp{
		Status:   "healthy",
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Sessions: s.sessions.Count(),
	})
}

func (s *Server) createSession(c *gin.Context) {
	ctrl, err := s.sessions.Create(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "session_id": ctrl.ID(), "messages": ctrl.Messages()})
}

// withSession находит сессию по :sid и кладет ее в контекст запроса
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := s.sessions.Get(c.Param("sid"))
		if ctrl == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
			return
		}
		c.Set(sessionKey, ctrl)
		c.Next()
	}
}

func session(c *gin.Context) *app.Controller {
	return c.MustGet(sessionKey).(*app.Controller)
}

func (s *Server) endSession(c *gin.Context) {
	if err := s.sessions.End(c.Param("sid")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) listMessages(c *gin.Context) {
	ctrl := session(c)
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": ctrl.Messages(), "typing": ctrl.Typing()})
}

type sendReq struct {
	Content string `json:"content"`
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if !session(c).Send(req.Content) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func (s *Server) suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "suggestions": session(c).Suggestions()})
}

func (s *Server) listProjects(c *gin.Context) {
	ctrl := session(c)
	selected := ""
	if p, ok := ctrl.SelectedProject(); ok {
		selected = p.ID
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": ctrl.Projects(), "selected": selected})
}

type createProjectReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	p, err := session(c).CreateProject(req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (s *Server) selectProject(c *gin.Context) {
	ctrl := session(c)
	if err := ctrl.SelectProject(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}
	p, _ := ctrl.SelectedProject()
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (s *Server) fileTree(c *gin.Context) {
	p, err := session(c).Project(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tree": project.Tree(p)})
}

// fileName достает путь файла из catch-all параметра без ведущего слеша
func fileName(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("name"), "/")
}

func (s *Server) file(c *gin.Context) {
	f, err := session(c).File(c.Param("id"), fileName(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "file": f})
}

// preview отдает сырое содержимое: HTML рендерится браузером, остальное как текст
func (s *Server) preview(c *gin.Context) {
	f, err := session(c).File(c.Param("id"), fileName(c))
	if err != nil {
		c.String(http.StatusNotFound, "file not found")
		return
	}
	c.Data(http.StatusOK, project.PreviewContentType(f), []byte(f.Content))
}

type apiKeyReq struct {
	APIKey string `json:"api_key"`
}

func (s *Server) getAPIKey(c *gin.Context) {
	key, err := s.sessions.APIKey(c.Request.Context())
	if err != nil {
		s.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "configured": key != "", "api_key": settings.Mask(key)})
}

func (s *Server) putAPIKey(c *gin.Context) {
	var req apiKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if err := s.sessions.SetAPIKey(c.Request.Context(), req.APIKey); err != nil {
		s.settingsError(c, err)
		return
	}
	s.logger.Info("🔑 API key updated", zap.Bool("configured", strings.TrimSpace(req.APIKey) != ""))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) deleteAPIKey(c *gin.Context) {
	if err := s.sessions.SetAPIKey(c.Request.Context(), ""); err != nil {
		s.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) settingsError(c *gin.Context, err error) {
	if errors.Is(err, app.ErrNoSettings) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	s.logger.Error("❌ Settings operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
}
