package domain

import (
	"fmt"
	"time"
)

// Extension is the media type of a post's file. The upstream source only
// ever serves these five formats.
type Extension string

const (
	ExtJPG  Extension = "jpg"
	ExtPNG  Extension = "png"
	ExtGIF  Extension = "gif"
	ExtSWF  Extension = "swf"
	ExtWEBM Extension = "webm"
)

// ParseExtension maps an upstream extension string to the fixed set.
// Unknown values are an error, never a default.
func ParseExtension(s string) (Extension, error) {
	switch Extension(s) {
	case ExtJPG, ExtPNG, ExtGIF, ExtSWF, ExtWEBM:
		return Extension(s), nil
	}
	return "", fmt.Errorf("unknown extension %q", s)
}

// MediaType returns the HTTP content type for the extension.
func (e Extension) MediaType() string {
	switch e {
	case ExtJPG:
		return "image/jpeg"
	case ExtPNG:
		return "image/png"
	case ExtGIF:
		return "image/gif"
	case ExtSWF:
		return "application/x-shockwave-flash"
	case ExtWEBM:
		return "video/webm"
	}
	return "application/octet-stream"
}

// Rating is the content rating of a post, single-letter upstream form.
type Rating string

const (
	RatingSafe         Rating = "s"
	RatingQuestionable Rating = "q"
	RatingExplicit     Rating = "e"
)

func ParseRating(s string) (Rating, error) {
	switch Rating(s) {
	case RatingSafe, RatingQuestionable, RatingExplicit:
		return Rating(s), nil
	}
	return "", fmt.Errorf("unknown rating %q", s)
}

// Level is a user's privilege level. The upstream source reports it as a
// numeric code.
type Level string

const (
	LevelBlocked     Level = "blocked"
	LevelMember      Level = "member"
	LevelPrivileged  Level = "privileged"
	LevelFormerStaff Level = "former_staff"
	LevelJanitor     Level = "janitor"
	LevelModerator   Level = "moderator"
	LevelAdmin       Level = "admin"
)

func ParseLevel(code int) (Level, error) {
	switch code {
	case 10:
		return LevelBlocked, nil
	case 20:
		return LevelMember, nil
	case 30:
		return LevelPrivileged, nil
	case 34:
		return LevelFormerStaff, nil
	case 35:
		return LevelJanitor, nil
	case 40:
		return LevelModerator, nil
	case 50:
		return LevelAdmin, nil
	}
	return "", fmt.Errorf("unknown user level %d", code)
}

// TagCategory classifies a tag. The upstream source reports it as a
// numeric code; 2 is unassigned upstream.
type TagCategory string

const (
	TagGeneral   TagCategory = "general"
	TagArtist    TagCategory = "artist"
	TagCopyright TagCategory = "copyright"
	TagCharacter TagCategory = "character"
	TagSpecies   TagCategory = "species"
	TagInvalid   TagCategory = "invalid"
	TagMeta      TagCategory = "meta"
	TagLore      TagCategory = "lore"
)

func ParseTagCategory(code int) (TagCategory, error) {
	switch code {
	case 0:
		return TagGeneral, nil
	case 1:
		return TagArtist, nil
	case 3:
		return TagCopyright, nil
	case 4:
		return TagCharacter, nil
	case 5:
		return TagSpecies, nil
	case 6:
		return TagInvalid, nil
	case 7:
		return TagMeta, nil
	case 8:
		return TagLore, nil
	}
	return "", fmt.Errorf("unknown tag category %d", code)
}

// Post is a catalog entry in the target store. Identity is assigned by
// the remote source; the file payload is stored separately and only its
// presence is reflected here.
type Post struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	Width       int
	Height      int
	Extension   Extension
	Size        int64
	MD5         string
	ScoreUp     int
	ScoreDown   int
	ScoreTotal  int
	Rating      Rating
	FavCount    int
	Description string
	Duration    *float64
	UploaderID  int64
	ApproverID  *int64
	ParentID    *int64
	HasFile     bool
	Tags        []Tag
	ChildIDs    []int64
	Sources     []string
}

// User is an account on the remote source, mirrored into the target store.
type User struct {
	ID        int64
	CreatedAt time.Time
	Name      string
	Level     Level
	Banned    bool
	AvatarID  *int64
}

// Tag labels posts; text is unique across the store.
type Tag struct {
	ID       int64
	Text     string
	Category TagCategory
}
