package store

import "context"

// ListComments returns comments newest first, optionally only for postID.
func (s *Store) ListComments(ctx context.Context, postID uint) ([]Comment, error) {
	q := s.db.WithContext(ctx).Preload("Author").Order("created_at DESC").Order("id DESC")
	if postID != 0 {
		q = q.Where("post_id = ?", postID)
	}
	var out []Comment
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) GetComment(ctx context.Context, id uint) (*Comment, error) {
	var c Comment
	if err := s.db.WithContext(ctx).Preload("Author").First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateComment(ctx context.Context, c *Comment) error {
	return s.db.WithContext(ctx).Omit("Post", "Author").Create(c).Error
}

func (s *Store) UpdateComment(ctx context.Context, c *Comment) error {
	return s.db.WithContext(ctx).Omit("Post", "Author").Save(c).Error
}

func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostID resolves a post slug to its id.
func (s *Store) PostID(ctx context.Context, slug string) (uint, error) {
	var p Post
	err := s.db.WithContext(ctx).Select("id").Where("slug = ?", slug).First(&p).Error
	if err != nil {
		return 0, notFound(err)
	}
	return p.ID, nil
}

// PostExists reports whether a post with id exists.
func (s *Store) PostExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Post{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
