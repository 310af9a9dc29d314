package store

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex;not null"`
	Email        string `gorm:"size:254"`
	PasswordHash string `gorm:"not null"`
	IsStaff      bool
	CreatedAt    time.Time
}

type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null"`
	Slug string `gorm:"size:50;uniqueIndex;not null"`
}

// CategoryStats is a category with the number of posts filed under it.
type CategoryStats struct {
	ID        uint
	Name      string
	Slug      string
	PostCount int64
}

type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:60;not null"`
	Slug string `gorm:"size:80;uniqueIndex;not null"`
}

type Post struct {
	ID             uint `gorm:"primaryKey"`
	CategoryID     *uint
	Category       *Category
	Title          string `gorm:"size:255;not null"`
	Slug           string `gorm:"size:50;uniqueIndex;not null"`
	Content        string `gorm:"type:text"`
	FeaturedImage  string `gorm:"size:255"`
	AuthorID       *uint
	Author         *User
	SEOTitle       string  `gorm:"column:seo_title;size:60"`
	SEODescription string  `gorm:"column:seo_description;size:160"`
	SEOKeywords    string  `gorm:"column:seo_keywords;size:255"`
	IsIndexable    bool    `gorm:"not null"`
	CanonicalURL   *string `gorm:"size:200"`
	Tags           []Tag   `gorm:"many2many:post_tags"`
	Comments       []Comment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TagNames 返回文章标签名。
func (p Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

type Comment struct {
	ID        uint `gorm:"primaryKey"`
	PostID    uint `gorm:"not null;index"`
	Post      *Post
	AuthorID  *uint
	Author    *User
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// AdSenseSettings is a singleton row with ID 1.
type AdSenseSettings struct {
	ID                  uint    `gorm:"primaryKey"`
	PublisherID         *string `gorm:"size:50"`
	Enabled             bool
	HomepageAdUnitID    *string `gorm:"size:50"`
	PostSidebarAdUnitID *string `gorm:"size:50"`
	PostContentAdUnitID *string `gorm:"size:50"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (AdSenseSettings) TableName() string {
	return "adsense_settings"
}
