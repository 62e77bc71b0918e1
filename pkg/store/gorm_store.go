package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"boorusync/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&PostModel{}, &UserModel{}, &TagModel{},
		&PostFileModel{}, &SourceModel{}, &DestroyedPostModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GetPost returns the post with its tags, children ids, and sources
// hydrated. The file payload is not loaded, only its presence.
func (s *GormStore) GetPost(id int64) (domain.Post, bool, error) {
	var model PostModel
	err := s.db.
		Preload("Tags").
		Preload("Sources", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Select("id", "parent_id") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, false, nil
		}
		return domain.Post{}, false, err
	}
	var fileCount int64
	if err := s.db.Model(&PostFileModel{}).Where("post_id = ?", id).Count(&fileCount).Error; err != nil {
		return domain.Post{}, false, err
	}
	post := postFromModel(model)
	post.HasFile = fileCount > 0
	return post, true, nil
}

// CreatePost inserts the bare post row. Associations are attached by the
// Set*/Add* operations as resolution progresses.
func (s *GormStore) CreatePost(p domain.Post) error {
	model := postToModel(p)
	if err := s.db.Omit(clause.Associations).Create(&model).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func (s *GormStore) SetPostUploader(postID, userID int64) error {
	return s.db.Model(&PostModel{}).Where("id = ?", postID).
		Update("uploader_id", userID).Error
}

func (s *GormStore) SetPostApprover(postID, userID int64) error {
	return s.db.Model(&PostModel{}).Where("id = ?", postID).
		Update("approver_id", userID).Error
}

func (s *GormStore) SetPostTags(postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	refs := make([]TagModel, 0, len(tagIDs))
	for _, id := range tagIDs {
		refs = append(refs, TagModel{ID: id})
	}
	return s.db.Model(&PostModel{ID: postID}).Association("Tags").Append(refs)
}

func (s *GormStore) SetPostChildren(postID int64, childIDs []int64) error {
	if len(childIDs) == 0 {
		return nil
	}
	return s.db.Model(&PostModel{}).Where("id IN ?", childIDs).
		Update("parent_id", postID).Error
}

func (s *GormStore) AddPostSources(postID int64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	models := make([]SourceModel, 0, len(urls))
	for _, url := range urls {
		models = append(models, SourceModel{PostID: postID, URL: url})
	}
	return s.db.Create(&models).Error
}

func (s *GormStore) AttachPostFile(postID int64, data []byte) error {
	model := PostFileModel{PostID: postID, File: data}
	if err := s.db.Create(&model).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func (s *GormStore) GetPostFile(postID int64) ([]byte, domain.Extension, bool, error) {
	var model PostFileModel
	if err := s.db.First(&model, "post_id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", false, nil
		}
		return nil, "", false, err
	}
	var ext string
	err := s.db.Model(&PostModel{}).Select("extension").
		Where("id = ?", postID).Scan(&ext).Error
	if err != nil {
		return nil, "", false, err
	}
	return model.File, domain.Extension(ext), true, nil
}

func (s *GormStore) IsDestroyed(id int64) (bool, error) {
	var count int64
	if err := s.db.Model(&DestroyedPostModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkDestroyed records the tombstone; it is permanent, so re-marking an
// already tombstoned id is a no-op.
func (s *GormStore) MarkDestroyed(id int64) error {
	model := DestroyedPostModel{ID: id}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

func (s *GormStore) GetUser(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func (s *GormStore) SetUserAvatar(userID, postID int64) error {
	return s.db.Model(&UserModel{}).Where("id = ?", userID).
		Update("avatar_id", postID).Error
}

func (s *GormStore) GetTagsByText(texts []string) ([]domain.Tag, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var models []TagModel
	if err := s.db.Where("text IN ?", texts).Find(&models).Error; err != nil {
		return nil, err
	}
	tags := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		tags = append(tags, tagFromModel(m))
	}
	return tags, nil
}

func (s *GormStore) CreateTag(t domain.Tag) error {
	model := TagModel{ID: t.ID, Text: t.Text, Category: string(t.Category)}
	if err := s.db.Create(&model).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func translateConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func postToModel(p domain.Post) PostModel {
	model := PostModel{
		ID:          p.ID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Width:       p.Width,
		Height:      p.Height,
		Extension:   string(p.Extension),
		Size:        p.Size,
		MD5:         p.MD5,
		ScoreUp:     p.ScoreUp,
		ScoreDown:   p.ScoreDown,
		ScoreTotal:  p.ScoreTotal,
		Rating:      string(p.Rating),
		FavCount:    p.FavCount,
		Description: p.Description,
		Duration:    p.Duration,
		ApproverID:  p.ApproverID,
		ParentID:    p.ParentID,
	}
	if p.UploaderID != 0 {
		uploaderID := p.UploaderID
		model.UploaderID = &uploaderID
	}
	return model
}

func postFromModel(m PostModel) domain.Post {
	post := domain.Post{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Width:       m.Width,
		Height:      m.Height,
		Extension:   domain.Extension(m.Extension),
		Size:        m.Size,
		MD5:         m.MD5,
		ScoreUp:     m.ScoreUp,
		ScoreDown:   m.ScoreDown,
		ScoreTotal:  m.ScoreTotal,
		Rating:      domain.Rating(m.Rating),
		FavCount:    m.FavCount,
		Description: m.Description,
		Duration:    m.Duration,
		ApproverID:  m.ApproverID,
		ParentID:    m.ParentID,
	}
	if m.UploaderID != nil {
		post.UploaderID = *m.UploaderID
	}
	post.Tags = make([]domain.Tag, 0, len(m.Tags))
	for _, t := range m.Tags {
		post.Tags = append(post.Tags, tagFromModel(t))
	}
	post.ChildIDs = make([]int64, 0, len(m.Children))
	for _, c := range m.Children {
		post.ChildIDs = append(post.ChildIDs, c.ID)
	}
	post.Sources = make([]string, 0, len(m.Sources))
	for _, s := range m.Sources {
		post.Sources = append(post.Sources, s.URL)
	}
	return post
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		Name:      u.Name,
		Level:     string(u.Level),
		Banned:    u.Banned,
		AvatarID:  u.AvatarID,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Name:      m.Name,
		Level:     domain.Level(m.Level),
		Banned:    m.Banned,
		AvatarID:  m.AvatarID,
	}
}

func tagFromModel(m TagModel) domain.Tag {
	return domain.Tag{ID: m.ID, Text: m.Text, Category: domain.TagCategory(m.Category)}
}
