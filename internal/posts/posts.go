// Package posts publishes posts and searches them.
package posts

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/graph"
	"example.com/microblog/internal/models"
	"golang.org/x/text/language"
)

const maxBodyLen = 140

type Store interface {
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	SearchPosts(ctx context.Context, query string, limit, offset int) ([]models.Post, int, error)
}

type Service struct {
	store           Store
	defaultPageSize int
}

func NewService(st Store, defaultPageSize int) *Service {
	if defaultPageSize <= 0 {
		defaultPageSize = graph.DefaultPageSize
	}
	return &Service{store: st, defaultPageSize: defaultPageSize}
}

// Create publishes a post by author. lang is an optional BCP 47 tag; an
// unparseable tag is stored as unknown.
func (s *Service) Create(ctx context.Context, author int64, body, lang string) (*models.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxBodyLen {
		return nil, fmt.Errorf("%w: post must be 1-%d characters", common.ErrValidation, maxBodyLen)
	}

	return s.store.CreatePost(ctx, &models.Post{
		AuthorID: author,
		Body:     body,
		Language: canonicalLanguage(lang),
	})
}

// Search returns one page of posts matching query, best match first.
func (s *Service) Search(ctx context.Context, query string, page, pageSize int) (models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.SearchResult{}, fmt.Errorf("%w: empty search query", common.ErrInvalidOperation)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > graph.MaxPageSize {
		pageSize = graph.MaxPageSize
	}
	page = graph.ClampPage(page, pageSize)

	items, total, err := s.store.SearchPosts(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return models.SearchResult{}, err
	}
	if items == nil {
		items = []models.Post{}
	}
	return models.SearchResult{
		Page: models.Page[models.Post]{
			Items:    items,
			Page:     page,
			PageSize: pageSize,
			HasNext:  total > page*pageSize,
			HasPrev:  page > 1 && len(items) > 0,
		},
		Total: total,
	}, nil
}

func canonicalLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	s := tag.String()
	if len(s) > 16 {
		base, _ := tag.Base()
		return base.String()
	}
	return s
}
