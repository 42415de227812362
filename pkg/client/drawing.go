package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Image task defaults applied by CreateImageTask.
const (
	DefaultImageStyle    = "auto"
	DefaultImageSize     = "1024x1024"
	DefaultImageModel    = "wanx_v1"
	DefaultImagePlatform = "tongyi"
)

// ImageTaskParams is the body of POST drawing/.
type ImageTaskParams struct {
	Prompt   string `json:"prompt"`
	Style    string `json:"style,omitempty"`
	Size     string `json:"size,omitempty"`
	Model    string `json:"model,omitempty"`
	Platform string `json:"platform,omitempty"`
	N        int    `json:"n,omitempty"`
}

// ImageTask is a drawing task as the backend reports it.
type ImageTask struct {
	ID           int64   `json:"id"`
	TaskID       string  `json:"task_id,omitempty"`
	Prompt       string  `json:"prompt,omitempty"`
	Status       string  `json:"status"`
	PicURL       *string `json:"pic_url,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	CreatedAt    *string `json:"created_at,omitempty"`
}

// PageParams selects a page of drawing tasks. Zero fields are omitted and
// the backend's defaults apply.
type PageParams struct {
	Page     int
	PageSize int
}

// ImagePage is one page of drawing tasks.
type ImagePage struct {
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    []ImageTask `json:"items"`
}

// CreateImageTask submits a drawing task.
func (c *Client) CreateImageTask(ctx context.Context, p ImageTaskParams) (*ImageTask, error) {
	if p.Style == "" {
		p.Style = DefaultImageStyle
	}
	if p.Size == "" {
		p.Size = DefaultImageSize
	}
	if p.Model == "" {
		p.Model = DefaultImageModel
	}
	if p.Platform == "" {
		p.Platform = DefaultImagePlatform
	}
	if p.N == 0 {
		p.N = 1
	}

	task := &ImageTask{}
	if err := c.doJSON(ctx, http.MethodPost, "drawing/", p, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ImageTaskStatus polls a drawing task.
func (c *Client) ImageTaskStatus(ctx context.Context, id int64) (*ImageTask, error) {
	task := &ImageTask{}
	if err := c.doJSON(ctx, http.MethodGet, "drawing/"+strconv.FormatInt(id, 10)+"/", nil, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ImagePage lists the caller's drawing tasks, newest first.
func (c *Client) ImagePage(ctx context.Context, p PageParams) (*ImagePage, error) {
	q := url.Values{}
	if p.Page != 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize != 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}

	path := "drawing"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	page := &ImagePage{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, page); err != nil {
		return nil, err
	}
	return page, nil
}
