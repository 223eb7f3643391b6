package blogit

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type createBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
}

func (a *App) handleListBlogs(c echo.Context) error {
	blogs, err := a.Cache.ListBlogs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blogs)
}

func (a *App) handleGetBlog(c echo.Context) error {
	blog, err := a.Store.GetBlog(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blog)
}

func (a *App) handleBlogStats(c echo.Context) error {
	stats, err := a.Cache.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (a *App) handleCreateBlog(c echo.Context) error {
	ctx := c.Request().Context()
	id, _ := CurrentIdentity(c)
	user, err := a.Store.GetUser(ctx, id.ID)
	if err != nil {
		// A verified token whose user is gone is no better than no token.
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedID) {
			return ErrMissingToken
		}
		return err
	}

	var req createBlogRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	blog := Blog{
		Title:  req.Title,
		Author: req.Author,
		URL:    req.URL,
		User:   user.Ref(),
	}
	if req.Likes != nil {
		blog.Likes = *req.Likes
	}

	created, err := a.Store.CreateBlog(ctx, blog)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Log.Info("blog created", "id", created.ID, "user", user.Username)
	return c.JSON(http.StatusCreated, created)
}

func (a *App) handleUpdateBlog(c echo.Context) error {
	var upd BlogUpdate
	if err := c.Bind(&upd); err != nil {
		return err
	}
	updated, err := a.Store.UpdateBlog(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, updated)
}

func (a *App) handleDeleteBlog(c echo.Context) error {
	ctx := c.Request().Context()
	id, _ := CurrentIdentity(c)
	blogID := c.Param("id")

	blog, err := a.Store.GetBlog(ctx, blogID)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.NoContent(http.StatusNoContent)
	case err != nil:
		return err
	}
	if blog.User != nil && blog.User.ID != id.ID {
		return ErrForbidden
	}

	if err := a.Store.DeleteBlog(ctx, blogID); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Log.Info("blog deleted", "id", blog.ID, "user", id.Username)
	return c.NoContent(http.StatusNoContent)
}
