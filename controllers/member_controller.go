package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parkcw/mboard/config"
	"github.com/parkcw/mboard/middleware"
	"github.com/parkcw/mboard/models"
	"github.com/parkcw/mboard/repository"
	"github.com/parkcw/mboard/session"
	"github.com/parkcw/mboard/utils"
)

const memberInfoCachePrefix = "cache:member:info:"

// MemberController handles join, login, logout and the profile lifecycle.
type MemberController struct {
	members  repository.Members
	sessions session.Store
}

// NewMemberController creates a MemberController.
func NewMemberController(members repository.Members, sessions session.Store) *MemberController {
	return &MemberController{members: members, sessions: sessions}
}

// Join registers a new member. The plaintext password is hashed before the
// record ever leaves this handler.
func (m *MemberController) Join(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Name     string `json:"name" binding:"required,max=64"`
		Password string `json:"password" binding:"required,min=6"`
		Email    string `json:"email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	username := strings.TrimSpace(req.Username)
	if _, err := m.members.Find(username); err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "registration failed")
		return
	}

	member := models.Member{
		Username:     username,
		Name:         utils.Sanitize(strings.TrimSpace(req.Name)),
		PasswordHash: hash,
		Email:        strings.TrimSpace(req.Email),
	}
	count, err := m.members.Insert(&member)
	if err != nil || count == 0 {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "registration failed")
		return
	}

	utils.SuccessTo(ctx, "registration complete", "/")
}

// Login verifies credentials and establishes a session. A nonexistent
// username and a wrong password produce the identical failure so accounts
// cannot be enumerated.
func (m *MemberController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}

	hash, err := m.members.PasswordHash(req.Username)
	if err != nil || !utils.CheckPassword(hash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "login failed")
		return
	}

	token, err := m.sessions.Establish(ctx.Request.Context(), req.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "login failed")
		return
	}

	cfg := config.Get()
	maxAge := int((time.Duration(cfg.SessionTTLHours) * time.Hour).Seconds())
	ctx.SetCookie(cfg.SessionCookie, token, maxAge, "/", "", false, true)
	utils.SuccessTo(ctx, "login successful", "/")
}

// Logout terminates the session regardless of whether one exists.
func (m *MemberController) Logout(ctx *gin.Context) {
	cfg := config.Get()
	if token, err := ctx.Cookie(cfg.SessionCookie); err == nil {
		if err := m.sessions.Terminate(ctx.Request.Context(), token); err != nil {
			utils.Sugar.Warnf("session terminate failed: %v", err)
		}
	}
	ctx.SetCookie(cfg.SessionCookie, "", -1, "/", "", false, true)
	utils.SuccessTo(ctx, "logged out", "/")
}

// Info returns the authenticated member's record. The email is split into
// local part and domain for the view; storage keeps it as one field.
func (m *MemberController) Info(ctx *gin.Context) {
	identity, ok := middleware.Identity(ctx)
	if !ok {
		utils.FailBack(ctx, http.StatusUnauthorized, 40103, "login required", middleware.LoginTarget)
		return
	}

	if b, ok := utils.CacheGetBytes(memberInfoCachePrefix + identity); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	member, err := m.members.Find(identity)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "member not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to load member info")
		return
	}

	local, domain, _ := strings.Cut(member.Email, "@")
	payload := gin.H{
		"member":       member,
		"email_local":  local,
		"email_domain": domain,
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(memberInfoCachePrefix+identity, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// Update rewrites the member's profile after re-verifying the current
// password against the hash stored for the session identity, never a
// client-supplied one. A non-empty new password is hashed fresh.
func (m *MemberController) Update(ctx *gin.Context) {
	identity, ok := middleware.Identity(ctx)
	if !ok {
		utils.FailBack(ctx, http.StatusUnauthorized, 40103, "login required", middleware.LoginTarget)
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required,max=64"`
		Email       string `json:"email"`
		Password    string `json:"password" binding:"required"`
		NewPassword string `json:"new_password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	hash, err := m.members.PasswordHash(identity)
	if err != nil || !utils.CheckPassword(hash, req.Password) {
		utils.Error(ctx, http.StatusForbidden, 40301, "not authorized")
		return
	}

	newHash := ""
	if req.NewPassword != "" {
		if newHash, err = utils.HashPassword(req.NewPassword); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50005, "update failed")
			return
		}
	}

	count, err := m.members.Update(identity, utils.Sanitize(strings.TrimSpace(req.Name)), strings.TrimSpace(req.Email), newHash)
	if err != nil || count == 0 {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "update failed")
		return
	}

	utils.CacheDelete(memberInfoCachePrefix + identity)
	utils.SuccessTo(ctx, "member info updated", "/member/info")
}

// Quit deletes the member's account after re-verifying the password, then
// terminates the session so the cookie is dead immediately.
func (m *MemberController) Quit(ctx *gin.Context) {
	identity, ok := middleware.Identity(ctx)
	if !ok {
		utils.FailBack(ctx, http.StatusUnauthorized, 40103, "login required", middleware.LoginTarget)
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	hash, err := m.members.PasswordHash(identity)
	if err != nil || !utils.CheckPassword(hash, req.Password) {
		utils.Error(ctx, http.StatusForbidden, 40302, "not authorized")
		return
	}

	count, err := m.members.Delete(identity)
	if err != nil || count == 0 {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "quit failed")
		return
	}

	cfg := config.Get()
	if token, err := ctx.Cookie(cfg.SessionCookie); err == nil {
		if err := m.sessions.Terminate(ctx.Request.Context(), token); err != nil {
			utils.Sugar.Warnf("session terminate failed: %v", err)
		}
	}
	ctx.SetCookie(cfg.SessionCookie, "", -1, "/", "", false, true)
	utils.CacheDelete(memberInfoCachePrefix + identity)
	utils.SuccessTo(ctx, "account deleted", "/")
}
