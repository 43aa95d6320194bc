package domain

import "time"

type TargetType string

const (
	TargetPost    TargetType = "POST"
	TargetPhoto   TargetType = "PHOTO"
	TargetProduct TargetType = "PRODUCT"
	TargetComment TargetType = "COMMENT"
)

// TargetModel 目标类型对应的表模型；未知类型返回 nil
func TargetModel(t TargetType) any {
	switch t {
	case TargetPost:
		return &Post{}
	case TargetPhoto:
		return &Photo{}
	case TargetProduct:
		return &Product{}
	case TargetComment:
		return &Comment{}
	}
	return nil
}

type CommentStatus string

const (
	CommentPending  CommentStatus = "PENDING"
	CommentApproved CommentStatus = "APPROVED"
	CommentRejected CommentStatus = "REJECTED"
)

func (s CommentStatus) Valid() bool {
	return s == CommentPending || s == CommentApproved || s == CommentRejected
}

type Comment struct {
	Base
	Content    string        `gorm:"type:text;not null" json:"content"`
	AuthorID   string        `gorm:"size:32;not null;index" json:"authorId"`
	TargetType TargetType    `gorm:"size:16;not null;index:idx_comment_target,priority:1" json:"targetType"`
	TargetID   string        `gorm:"size:32;not null;index:idx_comment_target,priority:2" json:"targetId"`
	ParentID   *string       `gorm:"size:32;index" json:"parentId"`
	Status     CommentStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	LikeCount  int64         `gorm:"not null;default:0" json:"likeCount"`

	Replies []Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	Author  *Author   `gorm:"-" json:"author,omitempty"`
}

// Like (user_id, target_type, target_id) 唯一，点赞切换依赖该约束
type Like struct {
	ID         string     `gorm:"primaryKey;size:32" json:"id"`
	UserID     string     `gorm:"size:32;not null;uniqueIndex:uk_like_target,priority:1" json:"userId"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:uk_like_target,priority:2" json:"targetType"`
	TargetID   string     `gorm:"size:32;not null;uniqueIndex:uk_like_target,priority:3" json:"targetId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type SiteConfig struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:16;not null;default:string" json:"type"` // string / boolean / number / json
	Group     string    `gorm:"column:config_group;size:32;index" json:"group"`
	Label     string    `gorm:"size:64" json:"label"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Models 参与 AutoMigrate 的全部模型
func Models() []any {
	return []any{
		&User{}, &Role{}, &Permission{}, &UserRole{}, &RolePermission{},
		&Category{}, &Tag{}, &Post{},
		&Photo{}, &Album{},
		&Product{}, &ProductPlan{},
		&Comment{}, &Like{},
		&SiteConfig{},
	}
}
