package domain

type Product struct {
	Base
	Name        string        `gorm:"size:128;not null" json:"name"`
	Slug        string        `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Description string        `gorm:"type:text" json:"description"`
	Features    string        `gorm:"type:text" json:"features"`
	CoverImage  string        `gorm:"size:512" json:"coverImage"`
	DemoVideo   string        `gorm:"size:512" json:"demoVideo"`
	DemoImages  []string      `gorm:"serializer:json;type:text" json:"demoImages"`
	UseCases    string        `gorm:"type:text" json:"useCases"`
	TechStack   []string      `gorm:"serializer:json;type:text" json:"techStack"`
	Status      PublishStatus `gorm:"size:16;not null;default:DRAFT;index" json:"status"`
	SortOrder   int           `gorm:"not null;default:0" json:"sortOrder"`

	Plans []ProductPlan `gorm:"foreignKey:ProductID" json:"plans"`
}

// ProductPlan 价格以分存储
type ProductPlan struct {
	Base
	ProductID    string   `gorm:"size:32;not null;index" json:"productId"`
	Name         string   `gorm:"size:64;not null" json:"name"`
	Description  string   `gorm:"size:500" json:"description"`
	PriceCents   int64    `gorm:"not null" json:"priceCents"`
	Currency     string   `gorm:"size:8;not null;default:CNY" json:"currency"`
	// Duration 为 0 表示永久；DurationUnit: day / month / year
	Duration     int      `json:"duration"`
	DurationUnit string   `gorm:"size:16" json:"durationUnit"`
	Features     []string `gorm:"serializer:json;type:text" json:"features"`
	IsPopular    bool     `gorm:"not null;default:false" json:"isPopular"`
	SortOrder    int      `gorm:"not null;default:0" json:"sortOrder"`
}
