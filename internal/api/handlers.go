package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/sawirricardo/remix-realworld/internal/account"
	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/internal/authz"
	"github.com/sawirricardo/remix-realworld/internal/content"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/storage"
)

// UserResponse is the signed-in user as returned to clients
type UserResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio,omitempty"`
	Image string `json:"image,omitempty"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{Name: u.Name, Email: u.Email, Bio: u.Bio.String, Image: u.Image.String}
}

// bind decodes JSON or form bodies; a malformed body is a validation error
func bind(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBind(dest); err != nil {
		verr := apperr.NewValidationError()
		verr.Add("body", err.Error())
		return verr
	}
	return nil
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == binding.MIMEPOSTForm || ct == binding.MIMEMultipartPOSTForm
}

// formTags accepts repeated "tags" fields, a comma separated list or a
// JSON array string.
func formTags(c *gin.Context) []string {
	values := c.PostFormArray("tags")
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			v = strings.Trim(v, "[]")
			v = strings.ReplaceAll(v, `"`, "")
		}
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func (r *Router) setSession(c *gin.Context, grant *account.Grant) {
	maxAge := int(time.Until(grant.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(r.cookie, grant.Token, maxAge, "/", "", c.Request.TLS != nil, true)
}

func (r *Router) sessionResponse(c *gin.Context, status int, grant *account.Grant) {
	r.setSession(c, grant)
	respondOK(c, status, gin.H{
		"user":        userResponse(grant.User),
		"token":       grant.Token,
		"expires_at":  grant.ExpiresAt,
		"redirect_to": grant.RedirectTo,
	}, grant.RedirectTo)
}

func (r *Router) register(c *gin.Context) {
	if authz.Actor(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	var in account.RegisterInput
	if err := bind(c, &in); err != nil {
		r.respondError(c, err)
		return
	}
	if isForm(c) && in.PasswordConfirmation == "" {
		in.PasswordConfirmation = c.PostForm("password_confirmation")
	}

	grant, err := r.account.Register(c.Request.Context(), in)
	if err != nil {
		r.respondError(c, err)
		return
	}
	r.sessionResponse(c, http.StatusCreated, grant)
}

func (r *Router) login(c *gin.Context) {
	var in account.LoginInput
	if err := bind(c, &in); err != nil {
		r.respondError(c, err)
		return
	}
	if isForm(c) {
		switch c.PostForm("remember") {
		case "on", "true", "1":
			in.Remember = true
		}
	}

	grant, err := r.account.Login(c.Request.Context(), in)
	if err != nil {
		r.respondError(c, err)
		return
	}
	r.sessionResponse(c, http.StatusOK, grant)
}

func (r *Router) logout(c *gin.Context) {
	if err := r.account.Logout(c.Request.Context(), r.resolver.Claims(c.Request)); err != nil {
		r.respondError(c, err)
		return
	}
	c.SetCookie(r.cookie, "", -1, "/", "", c.Request.TLS != nil, true)
	respondOK(c, http.StatusOK, gin.H{"status": "OK"}, "/")
}

func (r *Router) currentUser(c *gin.Context) {
	actor, err := r.gate.Require(c)
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(actor)})
}

func (r *Router) updateSettings(c *gin.Context) {
	actor, err := r.gate.Require(c)
	if err != nil {
		r.respondError(c, err)
		return
	}

	var in account.SettingsInput
	if err := bind(c, &in); err != nil {
		r.respondError(c, err)
		return
	}

	updated, err := r.account.UpdateSettings(c.Request.Context(), actor, in)
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": userResponse(updated)}, "/settings")
}

func (r *Router) listTags(c *gin.Context) {
	tags, err := r.content.ListTags(c.Request.Context())
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (r *Router) listArticles(c *gin.Context) {
	articles, err := r.content.ListArticles(c.Request.Context(), authz.Actor(c), storage.ArticleFilter{Tag: c.Query("tag")})
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (r *Router) getArticle(c *gin.Context) {
	article, err := r.content.GetArticle(c.Request.Context(), authz.Actor(c), c.Param("slug"))
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

func (r *Router) createArticle(c *gin.Context) {
	actor, err := r.gate.Require(c)
	if err != nil {
		r.respondError(c, err)
		return
	}

	var in content.ArticleInput
	if err := bind(c, &in); err != nil {
		r.respondError(c, err)
		return
	}
	if isForm(c) {
		in.TagNames = formTags(c)
	}

	article, err := r.content.CreateArticle(c.Request.Context(), actor, in)
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"article": gin.H{"slug": article.Slug, "title": article.Title}},
		"/articles/"+url.PathEscape(article.Slug))
}

func (r *Router) createComment(c *gin.Context) {
	actor, err := r.gate.Require(c)
	if err != nil {
		r.respondError(c, err)
		return
	}

	var in content.CommentInput
	if err := bind(c, &in); err != nil {
		r.respondError(c, err)
		return
	}

	slug := c.Param("slug")
	comment, err := r.content.CreateComment(c.Request.Context(), actor, slug, in)
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"comment": content.CommentView{
		ID:        comment.ID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		Author:    content.AuthorView{Name: actor.Name, Image: actor.Image.String},
	}}, "/articles/"+url.PathEscape(slug))
}

func (r *Router) toggleFavorite(c *gin.Context) {
	actor, err := r.gate.Require(c)
	if err != nil {
		r.respondError(c, err)
		return
	}

	slug := c.Param("slug")
	result, err := r.social.ToggleFavorite(c.Request.Context(), actor, slug)
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result, "/articles/"+url.PathEscape(slug))
}

func (r *Router) toggleFollow(c *gin.Context) {
	actor, err := r.gate.Require(c)
	if err != nil {
		r.respondError(c, err)
		return
	}

	name := c.Param("name")
	result, err := r.social.ToggleFollow(c.Request.Context(), actor, name)
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result, "/profiles/"+url.PathEscape(name))
}

func (r *Router) getProfile(c *gin.Context) {
	profile, err := r.account.Profile(c.Request.Context(), authz.Actor(c), c.Param("name"))
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (r *Router) getProfileFavorites(c *gin.Context) {
	profile, err := r.account.Favorites(c.Request.Context(), authz.Actor(c), c.Param("name"))
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
