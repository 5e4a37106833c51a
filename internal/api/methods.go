package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/sawirricardo/remix-realworld/internal/account"
	"github.com/sawirricardo/remix-realworld/internal/authz"
	"github.com/sawirricardo/remix-realworld/internal/content"
	"github.com/sawirricardo/remix-realworld/internal/storage"
)

type slugParams struct {
	Slug string `json:"slug"`
}

type nameParams struct {
	Name string `json:"name"`
}

type tagParams struct {
	Tag string `json:"tag"`
}

type commentParams struct {
	Slug    string `json:"slug"`
	Content string `json:"content"`
}

func grantResult(grant *account.Grant) gin.H {
	return gin.H{
		"user":        userResponse(grant.User),
		"token":       grant.Token,
		"expires_at":  grant.ExpiresAt,
		"redirect_to": grant.RedirectTo,
	}
}

func (r *Router) rpcRegister(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var in account.RegisterInput
	if err := bindParams(params, &in); err != nil {
		return nil, err
	}
	grant, err := r.account.Register(c.Request.Context(), in)
	if err != nil {
		return nil, err
	}
	return grantResult(grant), nil
}

func (r *Router) rpcLogin(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var in account.LoginInput
	if err := bindParams(params, &in); err != nil {
		return nil, err
	}
	grant, err := r.account.Login(c.Request.Context(), in)
	if err != nil {
		return nil, err
	}
	return grantResult(grant), nil
}

func (r *Router) rpcUpdateSettings(c *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := r.gate.Require(c)
	if err != nil {
		return nil, err
	}
	var in account.SettingsInput
	if err := bindParams(params, &in); err != nil {
		return nil, err
	}
	updated, err := r.account.UpdateSettings(c.Request.Context(), actor, in)
	if err != nil {
		return nil, err
	}
	return userResponse(updated), nil
}

func (r *Router) rpcToggleFollow(c *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := r.gate.Require(c)
	if err != nil {
		return nil, err
	}
	var p nameParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return r.social.ToggleFollow(c.Request.Context(), actor, p.Name)
}

func (r *Router) rpcToggleFavorite(c *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := r.gate.Require(c)
	if err != nil {
		return nil, err
	}
	var p slugParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return r.social.ToggleFavorite(c.Request.Context(), actor, p.Slug)
}

func (r *Router) rpcCreateArticle(c *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := r.gate.Require(c)
	if err != nil {
		return nil, err
	}
	var in content.ArticleInput
	if err := bindParams(params, &in); err != nil {
		return nil, err
	}
	article, err := r.content.CreateArticle(c.Request.Context(), actor, in)
	if err != nil {
		return nil, err
	}
	return r.content.GetArticle(c.Request.Context(), actor, article.Slug)
}

func (r *Router) rpcCreateComment(c *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := r.gate.Require(c)
	if err != nil {
		return nil, err
	}
	var p commentParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	comment, err := r.content.CreateComment(c.Request.Context(), actor, p.Slug, content.CommentInput{Content: p.Content})
	if err != nil {
		return nil, err
	}
	return content.CommentView{
		ID:        comment.ID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		Author:    content.AuthorView{Name: actor.Name, Image: actor.Image.String},
	}, nil
}

func (r *Router) rpcListArticles(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p tagParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return r.content.ListArticles(c.Request.Context(), authz.Actor(c), storage.ArticleFilter{Tag: p.Tag})
}

func (r *Router) rpcGetArticle(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p slugParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return r.content.GetArticle(c.Request.Context(), authz.Actor(c), p.Slug)
}

func (r *Router) rpcListTags(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	return r.content.ListTags(c.Request.Context())
}

func (r *Router) rpcGetProfile(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p nameParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return r.account.Profile(c.Request.Context(), authz.Actor(c), p.Name)
}

func (r *Router) rpcGetProfileFavorites(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p nameParams
	if err := bindParams(params, &p); err != nil {
		return nil, err
	}
	return r.account.Favorites(c.Request.Context(), authz.Actor(c), p.Name)
}
