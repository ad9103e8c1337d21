package services

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

// NormalizeTag trims, collapses inner whitespace and lowercases a tag.
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// NormalizeTags normalizes raw tags, drops empty ones, dedupes and sorts.
// It rejects more than maxTags tags or any tag longer than maxLength runes.
func NormalizeTags(raw []string, maxTags, maxLength int) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, r := range raw {
		t := NormalizeTag(r)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		if len([]rune(t)) > maxLength {
			return nil, apperrors.ValidationError("Invalid tags.").
				WithField("tags", fmt.Sprintf("Tag must be at most %d characters.", maxLength))
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > maxTags {
		return nil, apperrors.ValidationError("Invalid tags.").
			WithField("tags", fmt.Sprintf("Maximum number of tags is %d.", maxTags))
	}
	sort.Strings(tags)
	return tags, nil
}

// ParseTagList splits a comma separated tag list.
func ParseTagList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ensureTags finds or creates the named tags.
func ensureTags(tx *gorm.DB, authorID int, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	newTags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		newTags = append(newTags, models.Tag{Name: name, AuthorID: authorID})
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&newTags).Error
	if err != nil {
		return nil, err
	}

	var tags []models.Tag
	if err := tx.Where("name IN ?", names).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
