package auth

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/models"
	"github.com/inkwell-app/backend/internal/web"
)

const maxAvatarBytes = 5 << 20

// UserStore defines the interface for user persistence.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (*models.User, error)
	CreateGoogle(ctx context.Context, email, name, googleID, avatar string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetLocalByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogle(ctx context.Context, id, googleID, avatar string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PostPurger cascades account deletion into the post store.
type PostPurger interface {
	DeleteByAuthor(ctx context.Context, authorID string) error
}

// AvatarStore uploads avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	RemovePrefix(ctx context.Context, prefix string) error
}

// ResetTokenStore issues and consumes single-use password reset tokens.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Consume(ctx context.Context, token string) (string, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users   UserStore
	posts   PostPurger
	avatars AvatarStore
	resets  ResetTokenStore
	tokens  *TokenManager
	log     *zap.Logger
}

func NewHandler(users UserStore, posts PostPurger, avatars AvatarStore, resets ResetTokenStore, tokens *TokenManager, log *zap.Logger) *Handler {
	return &Handler{users: users, posts: posts, avatars: avatars, resets: resets, tokens: tokens, log: log}
}

// Signup creates a local-provider user and opens a session.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" {
		web.Error(w, apierr.Validation("Email and password required"))
		return
	}
	if req.Name == "" {
		web.Error(w, apierr.Validation("Name is required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		web.Error(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Name, string(hash))
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("create user", zap.Error(err))
		}
		web.Error(w, err)
		return
	}

	if err := h.openSession(w, user); err != nil {
		return
	}
	web.JSON(w, http.StatusCreated, map[string]any{"user": user.Public()})
}

// Login authenticates a local-provider user. Unknown emails and wrong
// passwords produce the identical response so accounts can't be enumerated.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		web.Error(w, apierr.Validation("Email and password required"))
		return
	}

	user, err := h.users.GetLocalByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error("lookup user", zap.Error(err))
		web.Error(w, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		web.Error(w, apierr.Auth("Invalid credentials"))
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID); err != nil {
		h.log.Warn("update last login", zap.Error(err))
	}

	if err := h.openSession(w, user); err != nil {
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

func (h *Handler) openSession(w http.ResponseWriter, user *models.User) error {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.log.Error("issue session token", zap.Error(err))
		web.Error(w, err)
		return err
	}
	h.tokens.SetSessionCookie(w, token)
	return nil
}

// Logout clears the session cookie unconditionally.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.tokens.ClearSessionCookie(w)
	web.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the caller's profile, re-read from storage so it includes
// fields the token claims don't carry (avatar, provider).
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	user, err := h.users.GetByID(r.Context(), claims.ID)
	if err != nil {
		h.log.Error("get user", zap.Error(err))
		web.Error(w, err)
		return
	}
	if user == nil {
		web.Error(w, apierr.NotFound("User not found"))
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"user": user})
}

// UpdateProfile renames the caller. Existing posts keep the author name
// snapshot taken when they were written.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		web.Error(w, apierr.Validation("Name is required"))
		return
	}

	claims := ClaimsFrom(r.Context())
	user, err := h.users.UpdateName(r.Context(), claims.ID, req.Name)
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("update name", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// ChangePassword verifies the current password and replaces it.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		web.Error(w, apierr.Validation("Current and new password required"))
		return
	}

	claims := ClaimsFrom(r.Context())
	user, err := h.users.GetByID(r.Context(), claims.ID)
	if err != nil {
		h.log.Error("get user", zap.Error(err))
		web.Error(w, err)
		return
	}
	if user == nil {
		web.Error(w, apierr.NotFound("User not found"))
		return
	}
	if user.Password == "" {
		web.Error(w, apierr.Validation("Password login is not enabled for this account"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		web.Error(w, apierr.Auth("Current password is incorrect"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		web.Error(w, err)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), claims.ID, string(hash)); err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("update password", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UploadAvatar stores a multipart image upload and saves its URL on the
// caller's profile.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		web.Error(w, apierr.Validation("Invalid upload"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		web.Error(w, apierr.Validation("Avatar file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		web.Error(w, apierr.Validation("Invalid upload"))
		return
	}
	if len(data) > maxAvatarBytes {
		web.Error(w, apierr.Validation("Avatar must be 5MB or smaller"))
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		web.Error(w, apierr.Validation("Avatar must be an image"))
		return
	}

	claims := ClaimsFrom(r.Context())
	key := "avatars/" + claims.ID + "/" + uuid.New().String() + path.Ext(header.Filename)
	url, err := h.avatars.Upload(r.Context(), key, data, contentType)
	if err != nil {
		h.log.Error("upload avatar", zap.Error(err))
		web.Error(w, err)
		return
	}

	user, err := h.users.UpdateAvatar(r.Context(), claims.ID, url)
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("update avatar", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// DeleteAccount removes the caller's account and every post it authored.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	if err := h.posts.DeleteByAuthor(r.Context(), claims.ID); err != nil {
		h.log.Error("cascade delete posts", zap.Error(err))
		web.Error(w, err)
		return
	}
	if err := h.avatars.RemovePrefix(r.Context(), "avatars/"+claims.ID+"/"); err != nil {
		// Orphaned avatar objects are not worth failing the deletion over.
		h.log.Warn("remove avatars", zap.Error(err))
	}
	if err := h.users.Delete(r.Context(), claims.ID); err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("delete user", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	h.tokens.ClearSessionCookie(w)
	web.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ForgotPassword issues a single-use, time-limited reset token. The response
// is the same whether or not the email is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		web.Error(w, apierr.Validation("Email is required"))
		return
	}

	user, err := h.users.GetLocalByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error("lookup user", zap.Error(err))
		web.Error(w, err)
		return
	}
	if user != nil {
		token, err := h.resets.Issue(r.Context(), user.ID)
		if err != nil {
			h.log.Error("issue reset token", zap.Error(err))
			web.Error(w, err)
			return
		}
		// Token delivery (mail) is a deployment concern; surface it in the
		// logs so operators can relay it in environments without a mailer.
		h.log.Info("password reset token issued", zap.String("user_id", user.ID), zap.String("token", token))
	}
	web.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		web.Error(w, apierr.Validation("Token and new password required"))
		return
	}

	userID, err := h.resets.Consume(r.Context(), req.Token)
	if err != nil {
		web.Error(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		web.Error(w, err)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("update password", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
