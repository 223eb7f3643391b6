package blogit

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

func (a *App) handleFeed(c echo.Context) error {
	blogs, err := a.Cache.ListBlogs(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, blogs)
}

// renderRSS writes the blog list as an RSS 2.0 channel, newest first.
func (a *App) renderRSS(c echo.Context, blogs []Blog) error {
	items := make([]rssItem, 0, len(blogs))
	for i := len(blogs) - 1; i >= 0; i-- {
		b := blogs[i]
		items = append(items, rssItem{
			Title:       b.Title,
			Link:        b.URL,
			Description: fmt.Sprintf("%s, %d likes", b.Author, b.Likes),
			GUID:        rssGUID{Value: "urn:uuid:" + b.ID},
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        a.Config.URL,
			Description: "Blogs collected on " + a.Config.Name,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(feed)
}
