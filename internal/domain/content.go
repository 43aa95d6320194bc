package domain

import (
	"time"

	"gorm.io/gorm"

	"wylm-portal/pkg/utils"
)

// Base 内容类表公共字段
type Base struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = utils.NewID()
	}
	return nil
}

type PublishStatus string

const (
	StatusDraft     PublishStatus = "DRAFT"
	StatusPublished PublishStatus = "PUBLISHED"
	StatusArchived  PublishStatus = "ARCHIVED"
)

func (s PublishStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

type CategoryType string

const (
	CategoryPost  CategoryType = "POST"
	CategoryPhoto CategoryType = "PHOTO"
)

type Category struct {
	Base
	Name        string       `gorm:"size:64;not null" json:"name"`
	Slug        string       `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Description string       `gorm:"size:255" json:"description"`
	Icon        string       `gorm:"size:32" json:"icon"`
	Color       string       `gorm:"size:16" json:"color"`
	Type        CategoryType `gorm:"size:16;not null;index" json:"type"`
	SortOrder   int          `gorm:"not null;default:0" json:"sortOrder"`
}

type Tag struct {
	Base
	Name  string `gorm:"size:64;not null" json:"name"`
	Slug  string `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Color string `gorm:"size:16" json:"color"`
}

type Post struct {
	Base
	Title        string        `gorm:"size:200;not null" json:"title"`
	Slug         string        `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Excerpt      string        `gorm:"size:500" json:"excerpt"`
	Content      string        `gorm:"type:text" json:"content"`
	CoverImage   string        `gorm:"size:512" json:"coverImage"`
	Status       PublishStatus `gorm:"size:16;not null;default:DRAFT;index" json:"status"`
	IsPinned     bool          `gorm:"not null;default:false" json:"isPinned"`
	ViewCount    int64         `gorm:"not null;default:0" json:"viewCount"`
	LikeCount    int64         `gorm:"not null;default:0" json:"likeCount"`
	CommentCount int64         `gorm:"not null;default:0" json:"commentCount"`
	PublishedAt  *time.Time    `gorm:"index" json:"publishedAt"`
	AuthorID     string        `gorm:"size:32;not null;index" json:"authorId"`
	CategoryID   *string       `gorm:"size:32;index" json:"categoryId"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags     []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Author   *Author   `gorm:"-" json:"author,omitempty"`
}
