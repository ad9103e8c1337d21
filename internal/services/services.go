// Package services holds the Q&A domain logic: questions, answers, tags,
// votes and users. All mutations run inside a database transaction.
package services

import (
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/hasker/backend/internal/config"
	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
)

// Limits are the tunable sizes used by the services.
type Limits struct {
	PageSize      int
	TrendingCount int
	MaxTags       int
	MaxTagLength  int
}

// DefaultLimits matches the defaults of the config package.
func DefaultLimits() Limits {
	return Limits{PageSize: 10, TrendingCount: 5, MaxTags: 3, MaxTagLength: 128}
}

// LimitsFromConfig reads the limits from the app config.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		PageSize:      cfg.PageSize,
		TrendingCount: cfg.TrendingCount,
		MaxTags:       cfg.MaxTags,
		MaxTagLength:  cfg.MaxTagLength,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.PageSize < 1 {
		l.PageSize = d.PageSize
	}
	if l.TrendingCount < 1 {
		l.TrendingCount = d.TrendingCount
	}
	if l.MaxTags < 1 {
		l.MaxTags = d.MaxTags
	}
	if l.MaxTagLength < 1 {
		l.MaxTagLength = d.MaxTagLength
	}
	return l
}

func validatePage(page int) error {
	if page < 1 {
		return apperrors.ValidationError("Invalid page.").
			WithField("page", "Page must be a positive integer.")
	}
	return nil
}

// paginate limits a query to the given 1-based page. Pages whose offset
// would overflow are clamped past the end, so they come back empty.
func paginate(page, size int) func(*gorm.DB) *gorm.DB {
	offset := math.MaxInt
	if page-1 <= math.MaxInt/size {
		offset = (page - 1) * size
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(offset).Limit(size)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern returns a case-folded substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
