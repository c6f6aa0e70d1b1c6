package model

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

type Post struct {
	ID         string
	AuthorID   string
	Title      string
	Slug       string
	Status     PostStatus
	ViewsCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Post) IsPublished() bool {
	return p != nil && p.Status == PostStatusPublished
}
