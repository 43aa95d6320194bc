package domain

import "time"

type PhotoExif struct {
	Camera      string `gorm:"size:128" json:"camera"`
	Lens        string `gorm:"size:128" json:"lens"`
	Aperture    string `gorm:"size:16" json:"aperture"`
	Shutter     string `gorm:"size:16" json:"shutter"`
	ISO         int    `json:"iso"`
	FocalLength string `gorm:"size:16" json:"focalLength"`
}

type Photo struct {
	Base
	Title         string        `gorm:"size:200;not null" json:"title"`
	Description   string        `gorm:"type:text" json:"description"`
	ImageURL      string        `gorm:"size:512;not null" json:"imageUrl"`
	ThumbnailURL  string        `gorm:"size:512" json:"thumbnailUrl"`
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	Location      string        `gorm:"size:128" json:"location"`
	TakenAt       *time.Time    `json:"takenAt"`
	Exif          PhotoExif     `gorm:"embedded;embeddedPrefix:exif_" json:"exif"`
	AllowDownload bool          `gorm:"not null;default:false" json:"allowDownload"`
	Status        PublishStatus `gorm:"size:16;not null;default:PUBLISHED;index" json:"status"`
	ViewCount     int64         `gorm:"not null;default:0" json:"viewCount"`
	LikeCount     int64         `gorm:"not null;default:0" json:"likeCount"`
	DownloadCount int64         `gorm:"not null;default:0" json:"downloadCount"`
	AuthorID      string        `gorm:"size:32;not null;index" json:"authorId"`
	CategoryID    *string       `gorm:"size:32;index" json:"categoryId"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags     []Tag     `gorm:"many2many:photo_tags;" json:"tags"`
	Author   *Author   `gorm:"-" json:"author,omitempty"`
}

// Album 归属到创建者，由通用 CRUD 管理
type Album struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	OwnerID     string    `gorm:"size:32;not null;index" json:"ownerId"`
	Title       string    `gorm:"size:128;not null" json:"title" binding:"required,max=128"`
	Description string    `gorm:"size:500" json:"description" binding:"max=500"`
	CoverURL    string    `gorm:"size:512" json:"coverUrl" binding:"omitempty,url"`
	IsPublic    bool      `gorm:"not null;default:true" json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
