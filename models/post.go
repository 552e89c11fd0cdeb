package models

import "time"

// Post represents a board post created by a member.
//
// FilePath and FileName are set together and only when an upload accompanied
// the post: FilePath holds the date partition (always forward slashes, e.g.
// "/2024/03/11") and FileName the collision-safe stored name. OriginalName
// keeps the uploaded filename as its own column so it never has to be
// recovered by splitting the stored name.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MemberID     uint      `gorm:"index;not null" json:"member_id"`
	AuthorName   string    `gorm:"size:64;not null" json:"author_name"`
	Subject      string    `gorm:"size:255;not null" json:"subject"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	FilePath     string    `gorm:"size:255" json:"file_path"`
	FileName     string    `gorm:"size:255" json:"file_name"`
	OriginalName string    `gorm:"size:255" json:"original_name"`
	CreatedAt    time.Time `json:"created_at"`
	Member       Member    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
