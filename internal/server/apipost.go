package server

import (
	"boorusync/pkg/domain"
	"boorusync/pkg/remote"
)

// toPostRecord maps a stored post back into the public representation,
// the same shape the remote source serves.
func toPostRecord(p domain.Post) remote.PostRecord {
	rec := remote.PostRecord{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		File: remote.FileInfo{
			Width:  p.Width,
			Height: p.Height,
			Ext:    string(p.Extension),
			Size:   p.Size,
			MD5:    p.MD5,
		},
		Score: remote.Score{
			Up:    p.ScoreUp,
			Down:  p.ScoreDown,
			Total: p.ScoreTotal,
		},
		Rating:   string(p.Rating),
		FavCount: p.FavCount,
		Relationships: remote.Relationships{
			ParentID: p.ParentID,
			Children: p.ChildIDs,
		},
		ApproverID:  p.ApproverID,
		UploaderID:  p.UploaderID,
		Description: p.Description,
		Duration:    p.Duration,
		Sources:     p.Sources,
	}
	for _, tag := range p.Tags {
		switch tag.Category {
		case domain.TagGeneral:
			rec.Tags.General = append(rec.Tags.General, tag.Text)
		case domain.TagArtist:
			rec.Tags.Artist = append(rec.Tags.Artist, tag.Text)
		case domain.TagCopyright:
			rec.Tags.Copyright = append(rec.Tags.Copyright, tag.Text)
		case domain.TagCharacter:
			rec.Tags.Character = append(rec.Tags.Character, tag.Text)
		case domain.TagSpecies:
			rec.Tags.Species = append(rec.Tags.Species, tag.Text)
		case domain.TagInvalid:
			rec.Tags.Invalid = append(rec.Tags.Invalid, tag.Text)
		case domain.TagMeta:
			rec.Tags.Meta = append(rec.Tags.Meta, tag.Text)
		case domain.TagLore:
			rec.Tags.Lore = append(rec.Tags.Lore, tag.Text)
		}
	}
	return rec
}
