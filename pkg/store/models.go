package store

import "time"

// GORM models used for persistence. Timestamps come from the remote
// source, so GORM's automatic created/updated tracking is disabled.
type PostModel struct {
	ID          int64      `gorm:"primaryKey"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false"`
	Width       int        `gorm:"not null"`
	Height      int        `gorm:"not null"`
	Extension   string     `gorm:"not null"`
	Size        int64      `gorm:"not null"`
	MD5         string     `gorm:"column:md5;not null;index"`
	ScoreUp     int        `gorm:"not null"`
	ScoreDown   int        `gorm:"not null"`
	ScoreTotal  int        `gorm:"not null"`
	Rating      string     `gorm:"not null"`
	FavCount    int        `gorm:"not null"`
	Description string     `gorm:"type:text"`
	Duration    *float64
	UploaderID  *int64 `gorm:"index"`
	ApproverID  *int64
	ParentID    *int64         `gorm:"index"`
	Tags        []TagModel     `gorm:"many2many:post_tags"`
	Sources     []SourceModel  `gorm:"foreignKey:PostID"`
	File        *PostFileModel `gorm:"foreignKey:PostID"`
	Children    []PostModel    `gorm:"foreignKey:ParentID"`
}

type UserModel struct {
	ID        int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	Name      string    `gorm:"uniqueIndex;not null"`
	Level     string    `gorm:"not null"`
	Banned    bool      `gorm:"not null"`
	AvatarID  *int64
}

type TagModel struct {
	ID       int64  `gorm:"primaryKey"`
	Text     string `gorm:"uniqueIndex;not null"`
	Category string `gorm:"not null"`
}

// PostFileModel holds the raw payload, owned 1:1 by its post.
type PostFileModel struct {
	PostID int64  `gorm:"primaryKey"`
	File   []byte `gorm:"not null"`
}

type SourceModel struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	PostID int64  `gorm:"not null;index"`
	URL    string `gorm:"not null"`
}

// DestroyedPostModel tombstones an id the remote source no longer serves.
type DestroyedPostModel struct {
	ID int64 `gorm:"primaryKey"`
}
