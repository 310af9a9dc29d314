package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

const postSlugLen = 50

// PostFilter narrows ListPosts. Zero values mean no filter.
type PostFilter struct {
	CategoryID uint
	AuthorID   uint
	Search     string
	// Ordering is created_at or title, optionally prefixed with "-".
	Ordering string
	Limit    int
	Offset   int
}

var postOrderings = map[string]string{
	"created_at":  "posts.created_at ASC",
	"-created_at": "posts.created_at DESC",
	"title":       "posts.title ASC",
	"-title":      "posts.title DESC",
}

func withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Category").
		Preload("Author").
		Preload("Tags").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Comments.Author")
}

func (s *Store) posts(ctx context.Context) *gorm.DB {
	return withRelations(s.db.WithContext(ctx))
}

// ListPosts returns one page of posts and the total number matching f.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) ([]Post, int64, error) {
	q := s.db.WithContext(ctx).Model(&Post{})
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.AuthorID != 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := postOrderings[f.Ordering]
	if !ok {
		order = postOrderings["-created_at"]
	}
	q = q.Order(order).Order("posts.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var out []Post
	err := withRelations(q).Find(&out).Error
	return out, total, err
}

func (s *Store) GetPost(ctx context.Context, slug string) (*Post, error) {
	var p Post
	if err := s.posts(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CreatePost inserts p. An empty slug is derived from the title; p.Tags must
// already exist (see EnsureTags).
func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source := p.Slug
		if source == "" {
			source = p.Title
		}
		sl, err := uniqueSlug(ctx, tx, &Post{}, source, postSlugLen, 0)
		if err != nil {
			return err
		}
		p.Slug = sl
		tags := p.Tags
		if err := tx.Omit("Tags", "Category", "Author", "Comments").Create(p).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			return tx.Model(p).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.firePostSaved(*p)
	return nil
}

// UpdatePost saves every column of p and replaces its tags.
func (s *Store) UpdatePost(ctx context.Context, p *Post) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.Slug == "" {
			sl, err := uniqueSlug(ctx, tx, &Post{}, p.Title, postSlugLen, p.ID)
			if err != nil {
				return err
			}
			p.Slug = sl
		}
		tags := p.Tags
		if err := tx.Omit("Tags", "Category", "Author", "Comments").Save(p).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return tx.Model(p).Association("Tags").Clear()
		}
		return tx.Model(p).Association("Tags").Replace(tags)
	})
	if err != nil {
		return err
	}
	s.firePostSaved(*p)
	return nil
}

// DeletePost removes the post with its comments and tag links.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Post
		if err := tx.Where("slug = ?", slug).First(&p).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("post_id = ?", p.ID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&p).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

// IndexablePosts returns the posts that belong in the sitemap, ordered by slug.
func (s *Store) IndexablePosts(ctx context.Context) ([]Post, error) {
	var out []Post
	err := s.db.WithContext(ctx).
		Select("id", "slug", "updated_at").
		Where("is_indexable = ?", true).
		Order("slug ASC").
		Find(&out).Error
	return out, err
}
