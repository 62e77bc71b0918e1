package remote

import "time"

// PostRecord is the remote representation of a post. Only the fields the
// migration consumes are declared.
type PostRecord struct {
	ID            int64         `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at"`
	File          FileInfo      `json:"file"`
	Score         Score         `json:"score"`
	Tags          TagGroups     `json:"tags"`
	Flags         Flags         `json:"flags"`
	Rating        string        `json:"rating"`
	FavCount      int           `json:"fav_count"`
	Sources       []string      `json:"sources"`
	Relationships Relationships `json:"relationships"`
	ApproverID    *int64        `json:"approver_id"`
	UploaderID    int64         `json:"uploader_id"`
	Description   string        `json:"description"`
	Duration      *float64      `json:"duration"`
}

type FileInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Ext    string `json:"ext"`
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
}

type Score struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Total int `json:"total"`
}

// TagGroups lists tag names per category as the remote source groups them.
type TagGroups struct {
	General   []string `json:"general"`
	Artist    []string `json:"artist"`
	Copyright []string `json:"copyright"`
	Character []string `json:"character"`
	Species   []string `json:"species"`
	Invalid   []string `json:"invalid"`
	Meta      []string `json:"meta"`
	Lore      []string `json:"lore"`
}

// All flattens the groups into a single name list.
func (t TagGroups) All() []string {
	var all []string
	for _, group := range [][]string{
		t.General, t.Artist, t.Copyright, t.Character,
		t.Species, t.Invalid, t.Meta, t.Lore,
	} {
		all = append(all, group...)
	}
	return all
}

type Flags struct {
	Deleted bool `json:"deleted"`
}

type Relationships struct {
	ParentID *int64  `json:"parent_id"`
	Children []int64 `json:"children"`
}

// UserRecord is the remote representation of a user.
type UserRecord struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	IsBanned  bool      `json:"is_banned"`
	AvatarID  *int64    `json:"avatar_id"`
}

// TagRecord is the remote representation of a tag.
type TagRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category int    `json:"category"`
}
