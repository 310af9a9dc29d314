package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

const (
	categorySlugLen = 50
	tagSlugLen      = 80
)

func (s *Store) ListCategories(ctx context.Context) ([]CategoryStats, error) {
	var out []CategoryStats
	err := s.db.WithContext(ctx).
		Model(&Category{}).
		Select("categories.id, categories.name, categories.slug, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN posts ON posts.category_id = categories.id").
		Group("categories.id").
		Order("categories.name ASC").
		Scan(&out).Error
	return out, err
}

func (s *Store) GetCategory(ctx context.Context, slug string) (*Category, error) {
	var c Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id uint) (*Category, error) {
	var c Category
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CountCategoryPosts 返回分类下的文章数。
func (s *Store) CountCategoryPosts(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Post{}).Where("category_id = ?", id).Count(&n).Error
	return n, err
}

// SaveCategory creates or updates c; an empty slug is derived from the name.
func (s *Store) SaveCategory(ctx context.Context, c *Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source := c.Slug
		if source == "" {
			source = c.Name
		}
		sl, err := uniqueSlug(ctx, tx, &Category{}, source, categorySlugLen, c.ID)
		if err != nil {
			return err
		}
		c.Slug = sl
		return tx.Save(c).Error
	})
}

// DeleteCategory removes the category; its posts become uncategorized.
func (s *Store) DeleteCategory(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Category
		if err := tx.Where("slug = ?", slug).First(&c).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&Post{}).Where("category_id = ?", c.ID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
}

func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	var out []Tag
	err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetTag(ctx context.Context, slug string) (*Tag, error) {
	var t Tag
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// SaveTag creates or renames t. Names are unique ignoring case.
func (s *Store) SaveTag(ctx context.Context, t *Tag) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t.Name = strings.TrimSpace(t.Name)
		var n int64
		q := tx.Model(&Tag{}).Where("LOWER(name) = ?", strings.ToLower(t.Name))
		if t.ID != 0 {
			q = q.Where("id <> ?", t.ID)
		}
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		sl, err := uniqueSlug(ctx, tx, &Tag{}, t.Name, tagSlugLen, t.ID)
		if err != nil {
			return err
		}
		t.Slug = sl
		return tx.Save(t).Error
	})
}

func (s *Store) DeleteTag(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t Tag
		if err := tx.Where("slug = ?", slug).First(&t).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", t.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
}

// EnsureTags returns the tags named by names, creating the missing ones.
// Lookup ignores case; order follows names and duplicates collapse.
func (s *Store) EnsureTags(ctx context.Context, names []string) ([]Tag, error) {
	var out []Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[uint]struct{})
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			var t Tag
			err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&t).Error
			switch {
			case err == nil:
			case errors.Is(err, gorm.ErrRecordNotFound):
				sl, err := uniqueSlug(ctx, tx, &Tag{}, name, tagSlugLen, 0)
				if err != nil {
					return err
				}
				t = Tag{Name: name, Slug: sl}
				if err := tx.Create(&t).Error; err != nil {
					return err
				}
			default:
				return err
			}
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}
