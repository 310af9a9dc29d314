package store

import "context"

const adSenseID = 1

// AdSenseSettings returns the singleton settings row, creating it on first use.
func (s *Store) AdSenseSettings(ctx context.Context) (*AdSenseSettings, error) {
	var a AdSenseSettings
	err := s.db.WithContext(ctx).
		Where(AdSenseSettings{ID: adSenseID}).
		FirstOrCreate(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) SaveAdSenseSettings(ctx context.Context, a *AdSenseSettings) error {
	cur, err := s.AdSenseSettings(ctx)
	if err != nil {
		return err
	}
	a.ID = adSenseID
	a.CreatedAt = cur.CreatedAt
	return s.db.WithContext(ctx).Save(a).Error
}
