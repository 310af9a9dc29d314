package store

import (
	"context"
	"strings"
)

// CreateUser inserts u; a taken username (ignoring case) yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	u.Username = strings.TrimSpace(u.Username)
	var n int64
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("LOWER(username) = ?", strings.ToLower(u.Username)).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) GetUser(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// SetStaff 修改用户的管理员标记。
func (s *Store) SetStaff(ctx context.Context, id uint, staff bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_staff", staff)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
