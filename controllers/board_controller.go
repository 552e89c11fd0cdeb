package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parkcw/mboard/middleware"
	"github.com/parkcw/mboard/models"
	"github.com/parkcw/mboard/repository"
	"github.com/parkcw/mboard/storage"
	"github.com/parkcw/mboard/utils"
)

// BoardListTarget is where a successful post navigates to.
const BoardListTarget = "/board/list"

// BoardController handles board post creation with optional file upload.
type BoardController struct {
	members   repository.Members
	posts     repository.Posts
	uploadDir string
	maxUpload int64
}

// NewBoardController creates a BoardController writing uploads below uploadDir.
func NewBoardController(members repository.Members, posts repository.Posts, uploadDir string, maxUploadBytes int64) *BoardController {
	return &BoardController{
		members:   members,
		posts:     posts,
		uploadDir: uploadDir,
		maxUpload: maxUploadBytes,
	}
}

// WriteForm gates access to the post form: it only confirms the caller is
// authenticated and echoes the author identity for the form.
func (b *BoardController) WriteForm(ctx *gin.Context) {
	identity, ok := middleware.Identity(ctx)
	if !ok {
		utils.FailBack(ctx, http.StatusUnauthorized, 40103, "login required", middleware.LoginTarget)
		return
	}
	utils.Success(ctx, gin.H{"author": identity})
}

// Write creates a board post from a multipart form. When a file accompanies
// the post, its destination is resolved up front, the metadata row is
// inserted, and only then are the bytes committed to disk — a failed insert
// leaves no orphaned file. Posts without a file are allowed.
func (b *BoardController) Write(ctx *gin.Context) {
	identity, ok := middleware.Identity(ctx)
	if !ok {
		utils.FailBack(ctx, http.StatusUnauthorized, 40103, "login required", middleware.LoginTarget)
		return
	}

	member, err := b.members.Find(identity)
	if err != nil {
		// Session outlived the account.
		utils.FailBack(ctx, http.StatusUnauthorized, 40104, "login required", middleware.LoginTarget)
		return
	}

	subject := utils.Sanitize(strings.TrimSpace(ctx.PostForm("subject")))
	content := utils.Sanitize(ctx.PostForm("content"))
	if subject == "" {
		utils.Error(ctx, http.StatusBadRequest, 40010, "subject cannot be empty")
		return
	}

	post := models.Post{
		MemberID:   member.ID,
		AuthorName: member.Name,
		Subject:    subject,
		Content:    content,
	}

	var placement *storage.Placement
	file, header, err := ctx.Request.FormFile("file")
	if err == nil {
		defer file.Close()

		if header.Size > b.maxUpload {
			utils.Error(ctx, http.StatusBadRequest, 40011, "file too large")
			return
		}

		// Directory-creation failure aborts here, before any insert is
		// attempted, so a storage error never leaves a half-done post.
		placement, err = storage.Resolve(b.uploadDir, time.Now(), header.Filename)
		if err != nil {
			utils.Sugar.Errorf("upload placement failed: %v", err)
			utils.Error(ctx, http.StatusInternalServerError, 50010, "storage error")
			return
		}

		post.FilePath = placement.DatePath
		post.FileName = placement.StoredName
		post.OriginalName = placement.OriginalName
	}

	count, err := b.posts.Insert(&post)
	if err != nil || count == 0 {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "post failed")
		return
	}

	if placement != nil {
		lr := &io.LimitedReader{R: file, N: b.maxUpload + 1}
		if err := placement.Commit(lr); err != nil {
			// The metadata row is already durable; a failed commit leaves
			// record and file inconsistent. Logged for manual repair.
			utils.Sugar.Errorf("upload commit failed after insert: post_id=%d dir=%s name=%s err=%v",
				post.ID, placement.Dir, placement.StoredName, err)
		}
	}

	utils.Respond(ctx, http.StatusOK, 0, "post created", BoardListTarget, gin.H{"post": post})
}
