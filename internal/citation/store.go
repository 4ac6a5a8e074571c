// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"github.com/samber/lo"

	"github.com/jeranaias/citechat/internal/model"
)

// Store maps citation ids to citations for one message. A store is never
// updated: a new citation set means a new store.
type Store struct {
	byID map[int]model.Citation
}

// NewStore indexes a citation set by id. When ids repeat, the later entry wins.
func NewStore(set []model.Citation) *Store {
	return &Store{
		byID: lo.KeyBy(set, func(c model.Citation) int { return c.ID }),
	}
}

// Lookup returns the citation with the given id.
func (s *Store) Lookup(id int) (model.Citation, bool) {
	if s == nil {
		return model.Citation{}, false
	}
	c, ok := s.byID[id]
	return c, ok
}

// Len returns the number of distinct ids.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}
