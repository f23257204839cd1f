package keyboard

import (
	"strconv"

	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
)

// Pager is a 1-based page position within Pages pages.
type Pager struct {
	Page  int
	Pages int
}

// NewPager clamps page into the range covering total items of perPage each.
func NewPager(page, total, perPage int) Pager {
	p := Pager{Page: page, Pages: TotalPages(total, perPage)}
	p.Page = max(1, min(p.Page, p.Pages))
	return p
}

// TotalPages returns how many pages of perPage fit total items, at least one.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// Buttons returns the navigation row: previous, a label that does nothing, next. The
// neighbours carry mode|page and are omitted at the edges.
func (p Pager) Buttons(t i18n.Translator, unique, mode string) []Button {
	p = NewPager(p.Page, p.Pages, 1)

	nav := func(key, fallback string, page int) Button {
		return CallbackButton(translated(t, key, fallback), unique, pageData(mode, page)...)
	}

	row := make([]Button, 0, 3)
	if p.Page > 1 {
		row = append(row, nav("pagination.prev", "◀️", p.Page-1))
	}
	row = append(row, CallbackButton(p.label(t), UniqueNoop))
	if p.Page < p.Pages {
		row = append(row, nav("pagination.next", "▶️", p.Page+1))
	}
	return row
}

func pageData(mode string, page int) []string {
	if mode == "" {
		return []string{strconv.Itoa(page)}
	}
	return []string{mode, strconv.Itoa(page)}
}

func (p Pager) label(t i18n.Translator) string {
	page, pages := strconv.Itoa(p.Page), strconv.Itoa(p.Pages)
	if t != nil {
		if s := t.F("pagination.page", map[string]string{"page": page, "total": pages}); s != "" && s != "pagination.page" {
			return s
		}
	}
	return page + "/" + pages
}

// translated falls back when t is nil or has no entry for key.
func translated(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}
	if s := t.T(key); s != "" && s != key {
		return s
	}
	return fallback
}
